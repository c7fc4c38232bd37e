package data

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kehindes/groupspace/internal/apperr"
)

func TestUsersCreateAndGet(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	user, err := users.CreateUser(ctx, " Mixed.Case@Example.COM ", "Mixed Case", "hashed-password")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Email != "mixed.case@example.com" {
		t.Fatalf("email not normalized on create: %q", user.Email)
	}
	if user.Provider != ProviderEmail {
		t.Fatalf("expected provider %q, got %q", ProviderEmail, user.Provider)
	}

	// Duplicate email is a conflict, never a second record.
	if _, err := users.CreateUser(ctx, "mixed.case@example.com", "Other", "x"); err == nil {
		t.Fatal("expected conflict for duplicate email")
	} else if e, ok := apperr.From(err); !ok || e.Status != 409 {
		t.Fatalf("expected 409, got %v", err)
	}

	got, err := users.GetUserByEmail(ctx, "MIXED.CASE@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("GetUserByEmail returned wrong user")
	}

	byID, err := users.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email {
		t.Fatalf("GetUserByID returned wrong email: %s", byID.Email)
	}
}

func TestUsersGroupList(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "member@example.com", "Member", "hash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	gid := bson.NewObjectID()
	if err := users.AddGroup(ctx, user.ID, gid); err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	// Adding again must not duplicate.
	if err := users.AddGroup(ctx, user.ID, gid); err != nil {
		t.Fatalf("AddGroup (repeat) failed: %v", err)
	}

	got, err := users.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if len(got.GroupIDs) != 1 || got.GroupIDs[0] != gid {
		t.Fatalf("expected exactly one group id, got %v", got.GroupIDs)
	}

	if err := users.RemoveGroup(ctx, user.ID, gid); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	got, err = users.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if len(got.GroupIDs) != 0 {
		t.Fatalf("expected empty group list, got %v", got.GroupIDs)
	}
}

func TestUsersUpsertExternal(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	created, err := users.UpsertExternalUser(ctx, "ext-sub-1", "Ext@Example.com", "Ext One")
	if err != nil {
		t.Fatalf("UpsertExternalUser (create) failed: %v", err)
	}
	if created.Provider != ProviderExternal {
		t.Fatalf("expected external provider, got %q", created.Provider)
	}

	// Second login refreshes the profile snapshot, no new record.
	refreshed, err := users.UpsertExternalUser(ctx, "ext-sub-1", "ext@example.com", "Ext Renamed")
	if err != nil {
		t.Fatalf("UpsertExternalUser (refresh) failed: %v", err)
	}
	if refreshed.ID != created.ID {
		t.Fatal("refresh created a second user record")
	}
	if refreshed.DisplayName != "Ext Renamed" {
		t.Fatalf("display name not refreshed: %q", refreshed.DisplayName)
	}
}
