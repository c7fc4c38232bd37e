package data

import (
	"context"
	"os"
	"testing"

	"github.com/kehindes/groupspace/internal/db"
)

// Integration tests require a running MongoDB instance; they skip unless
// MONGODB_URI is set.

func setupDB(t *testing.T) *db.Client {
	t.Helper()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri)
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}

	// Clean collections in case previous runs left data.
	_ = c.UsersCollection().Drop(ctx)
	_ = c.GroupsCollection().Drop(ctx)
	_ = c.MessagesCollection().Drop(ctx)
	_ = c.NotesCollection().Drop(ctx)
	_ = c.NoteHistoryCollection().Drop(ctx)
	_ = c.TasksCollection().Drop(ctx)

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}
