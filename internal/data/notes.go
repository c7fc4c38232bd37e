package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// historyPageSize is how many archive entries History returns.
const historyPageSize = 10

// NotesStore manages the one-per-group shared note and its archive log.
type NotesStore struct {
	notes   *mongo.Collection
	history *mongo.Collection
}

// NewNotesStore returns a NotesStore over the notes and note_history
// collections.
func NewNotesStore(notes, history *mongo.Collection) *NotesStore {
	return &NotesStore{notes: notes, history: history}
}

// Get returns the group's note. A group that has never saved gets the
// well-defined empty default rather than a not-found error: the document
// is born empty.
func (n *NotesStore) Get(ctx context.Context, groupID bson.ObjectID) (*Note, error) {
	var note Note
	err := n.notes.FindOne(ctx, bson.M{"_id": groupID}).Decode(&note)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &Note{ID: groupID, Content: ""}, nil
		}
		return nil, err
	}
	return &note, nil
}

// Save overwrites the note with create-if-absent semantics. When a prior
// version exists, its pre-overwrite content and editor are archived to the
// history log first — the archive must capture the state being replaced,
// never the new state. Concurrent saves are last-write-wins; the losing
// content is recoverable only through history.
func (n *NotesStore) Save(ctx context.Context, groupID bson.ObjectID, content string, editor UserRef) (*Note, error) {
	now := time.Now().UTC()

	var prior Note
	err := n.notes.FindOne(ctx, bson.M{"_id": groupID}).Decode(&prior)
	switch {
	case err == nil:
		entry := &NoteHistoryEntry{
			NoteID:     groupID,
			Content:    prior.Content,
			EditedBy:   prior.LastEditedBy,
			EditedAt:   prior.LastEditedAt,
			ArchivedAt: now,
		}
		if _, err := n.history.InsertOne(ctx, entry); err != nil {
			return nil, err
		}
	case err == mongo.ErrNoDocuments:
		// First save; nothing to archive.
	default:
		return nil, err
	}

	note := &Note{
		ID:           groupID,
		Content:      content,
		LastEditedBy: &editor,
		LastEditedAt: &now,
		UpdatedAt:    now,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := n.notes.ReplaceOne(ctx, bson.M{"_id": groupID}, note, opts); err != nil {
		return nil, err
	}
	return note, nil
}

// History returns the most recent archive entries, newest first.
func (n *NotesStore) History(ctx context.Context, groupID bson.ObjectID) ([]*NoteHistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.M{"archived_at": -1}).
		SetLimit(historyPageSize)

	cursor, err := n.history.Find(ctx, bson.M{"note_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*NoteHistoryEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
