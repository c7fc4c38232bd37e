package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestNotesBornEmpty(t *testing.T) {
	c := setupDB(t)
	notes := NewNotesStore(c.NotesCollection(), c.NoteHistoryCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()

	note, err := notes.Get(ctx, groupID)
	if err != nil {
		t.Fatalf("Get on missing note failed: %v", err)
	}
	if note.Content != "" || note.LastEditedBy != nil || note.LastEditedAt != nil {
		t.Fatalf("expected empty default, got %+v", note)
	}
}

func TestNotesSaveArchivesPriorState(t *testing.T) {
	c := setupDB(t)
	notes := NewNotesStore(c.NotesCollection(), c.NoteHistoryCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	editor := UserRef{UserID: bson.NewObjectID(), DisplayName: "Editor"}

	// N saves on a previously-empty document: N-1 archive entries, and
	// entry k holds the content written by save k.
	const saves = 4
	for i := 1; i <= saves; i++ {
		saved, err := notes.Save(ctx, groupID, fmt.Sprintf("draft %d", i), editor)
		if err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
		if saved.Content != fmt.Sprintf("draft %d", i) {
			t.Fatalf("save %d returned wrong content: %q", i, saved.Content)
		}
		time.Sleep(2 * time.Millisecond)
	}

	current, err := notes.Get(ctx, groupID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.Content != fmt.Sprintf("draft %d", saves) {
		t.Fatalf("round-trip failed: %q", current.Content)
	}
	if current.LastEditedBy == nil || current.LastEditedBy.DisplayName != "Editor" {
		t.Fatalf("editor snapshot missing: %+v", current.LastEditedBy)
	}

	history, err := notes.History(ctx, groupID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != saves-1 {
		t.Fatalf("expected %d archive entries, got %d", saves-1, len(history))
	}
	// Newest first: the top entry is the state replaced by the last save.
	if history[0].Content != fmt.Sprintf("draft %d", saves-1) {
		t.Fatalf("newest archive entry wrong: %q", history[0].Content)
	}
	if history[len(history)-1].Content != "draft 1" {
		t.Fatalf("oldest archive entry wrong: %q", history[len(history)-1].Content)
	}
}

func TestNotesFirstArchiveHasNoEditor(t *testing.T) {
	c := setupDB(t)
	notes := NewNotesStore(c.NotesCollection(), c.NoteHistoryCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	editor := UserRef{UserID: bson.NewObjectID(), DisplayName: "E"}

	if _, err := notes.Save(ctx, groupID, "v1", editor); err != nil {
		t.Fatalf("Save v1 failed: %v", err)
	}
	if _, err := notes.Save(ctx, groupID, "v2", editor); err != nil {
		t.Fatalf("Save v2 failed: %v", err)
	}

	history, err := notes.History(ctx, groupID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 archive entry, got %d", len(history))
	}
	// The archived entry captures v1's editor, stamped at v2's save time.
	if history[0].Content != "v1" || history[0].EditedBy == nil {
		t.Fatalf("archive entry malformed: %+v", history[0])
	}
}

func TestNotesHistoryCap(t *testing.T) {
	c := setupDB(t)
	notes := NewNotesStore(c.NotesCollection(), c.NoteHistoryCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	editor := UserRef{UserID: bson.NewObjectID(), DisplayName: "E"}

	for i := 0; i < historyPageSize+5; i++ {
		if _, err := notes.Save(ctx, groupID, fmt.Sprintf("rev %d", i), editor); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	history, err := notes.History(ctx, groupID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != historyPageSize {
		t.Fatalf("expected history capped at %d, got %d", historyPageSize, len(history))
	}
}
