package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kehindes/groupspace/internal/apperr"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using the given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// SaveMessage inserts a message with the sender identity frozen at post
// time and returns the stored record. Text is expected to be validated
// and trimmed by the caller; the server assigns the id.
func (m *MessagesStore) SaveMessage(ctx context.Context, groupID bson.ObjectID, sender Member, text string) (*Message, error) {
	now := time.Now().UTC()
	msg := &Message{
		GroupID:     groupID,
		SenderID:    sender.UserID,
		SenderEmail: sender.Email,
		SenderName:  sender.DisplayName,
		Text:        text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetHistory returns up to limit recent messages for the group, ordered
// oldest→newest so clients can append to the bottom. A non-nil before
// cursor restricts results to messages created strictly earlier.
func (m *MessagesStore) GetHistory(ctx context.Context, groupID bson.ObjectID, limit int64, before *time.Time) ([]*Message, error) {
	filter := bson.M{"group_id": groupID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": *before}
	}

	// Newest first so the limit keeps the most recent page, then reverse.
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteMessage hard-deletes a message. Only the original sender may
// delete, and the message must belong to the group named in the path —
// an id that resolves to another group's message is treated as absent.
func (m *MessagesStore) DeleteMessage(ctx context.Context, groupID, messageID, senderID bson.ObjectID) error {
	var msg Message
	err := m.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("message not found")
		}
		return err
	}

	if msg.GroupID != groupID {
		return apperr.NotFound("message not found")
	}
	if msg.SenderID != senderID {
		return apperr.Forbidden("only the sender can delete a message")
	}

	_, err = m.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	return err
}
