package data

import (
	"context"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kehindes/groupspace/internal/apperr"
)

func TestNewInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode failed: %v", err)
		}
		if len(code) != inviteCodeLen {
			t.Fatalf("expected %d chars, got %q", inviteCodeLen, code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("expected uppercase code, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(inviteAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("too many collisions in 50 draws: %d unique", len(seen))
	}
}

func TestGroup_HasAdminAndFindMember(t *testing.T) {
	a := bson.NewObjectID()
	b := bson.NewObjectID()
	g := &Group{Members: []Member{
		{UserID: a, Role: RoleMember},
		{UserID: b, Role: RoleAdmin},
	}}

	if !g.HasAdmin() {
		t.Fatal("expected HasAdmin true")
	}
	if m, ok := g.FindMember(a); !ok || m.Role != RoleMember {
		t.Fatalf("FindMember(a) = %v, %v", m, ok)
	}
	if _, ok := g.FindMember(bson.NewObjectID()); ok {
		t.Fatal("FindMember should miss for unknown id")
	}
}

func TestGroupLifecycle(t *testing.T) {
	c := setupDB(t)
	groups := NewGroupsStore(c.GroupsCollection())
	ctx := context.Background()

	alice := Member{UserID: bson.NewObjectID(), Email: "alice@example.com", DisplayName: "Alice"}
	bob := Member{UserID: bson.NewObjectID(), Email: "bob@example.com", DisplayName: "Bob"}

	g, err := groups.CreateGroup(ctx, "Midterm Prep", "study sessions", alice)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if len(g.Members) != 1 || g.Members[0].Role != RoleAdmin {
		t.Fatalf("creator should be sole admin, got %+v", g.Members)
	}
	if len(g.InviteCode) != inviteCodeLen {
		t.Fatalf("invite code not generated: %q", g.InviteCode)
	}

	// Join with the code in the wrong case still succeeds.
	g2, err := groups.Join(ctx, g.ID, strings.ToLower(g.InviteCode), bob)
	if err != nil {
		t.Fatalf("Join with lowercase code failed: %v", err)
	}
	if len(g2.Members) != 2 {
		t.Fatalf("expected 2 members after join, got %d", len(g2.Members))
	}

	// Second join is a conflict, never a second member entry.
	if _, err := groups.Join(ctx, g.ID, g.InviteCode, bob); err == nil {
		t.Fatal("expected conflict on duplicate join")
	} else if e, ok := apperr.From(err); !ok || e.Status != 409 {
		t.Fatalf("expected 409 conflict, got %v", err)
	}

	// Wrong code is refused.
	if _, err := groups.Join(ctx, g.ID, "WRONGCOD", Member{UserID: bson.NewObjectID()}); err == nil {
		t.Fatal("expected rejection for wrong invite code")
	}

	// Membership gate.
	if _, err := groups.RequireMember(ctx, g.ID, bob.UserID); err != nil {
		t.Fatalf("RequireMember for member failed: %v", err)
	}
	if _, err := groups.RequireMember(ctx, g.ID, bson.NewObjectID()); err == nil {
		t.Fatal("RequireMember should refuse non-members")
	}

	// Sole admin leaves: Bob gets promoted.
	deleted, err := groups.Leave(ctx, g.ID, alice.UserID)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if deleted {
		t.Fatal("group should survive with a member remaining")
	}
	g3, err := groups.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID after leave failed: %v", err)
	}
	if len(g3.Members) != 1 || g3.Members[0].UserID != bob.UserID || g3.Members[0].Role != RoleAdmin {
		t.Fatalf("expected bob promoted to sole admin, got %+v", g3.Members)
	}

	// Last member leaves: group is deleted.
	deleted, err = groups.Leave(ctx, g.ID, bob.UserID)
	if err != nil {
		t.Fatalf("Leave (last member) failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected group deletion when last member leaves")
	}
	if _, err := groups.GetByID(ctx, g.ID); err == nil {
		t.Fatal("deleted group should not resolve")
	} else if e, ok := apperr.From(err); !ok || e.Status != 404 {
		t.Fatalf("expected 404 after deletion, got %v", err)
	}
}

func TestGroupsGetByIDs_Chunking(t *testing.T) {
	c := setupDB(t)
	groups := NewGroupsStore(c.GroupsCollection())
	ctx := context.Background()

	owner := Member{UserID: bson.NewObjectID(), Email: "o@example.com", DisplayName: "O"}

	var ids []bson.ObjectID
	for i := 0; i < idChunkSize+5; i++ {
		g, err := groups.CreateGroup(ctx, "g", "", owner)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		ids = append(ids, g.ID)
	}
	// One stale id that no longer resolves is skipped, not an error.
	ids = append(ids, bson.NewObjectID())

	got, err := groups.GetByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != idChunkSize+5 {
		t.Fatalf("expected %d groups, got %d", idChunkSize+5, len(got))
	}
}
