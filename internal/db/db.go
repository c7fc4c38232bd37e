// Package db manages the MongoDB connection, collections, and indexes.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Client wraps mongo.Client and exposes the application's collections.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB, verifies the connection with a bounded ping,
// and returns a Client scoped to the groupspace database.
func New(ctx context.Context, mongoURI string) (*Client, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database("groupspace"),
	}, nil
}

// Ping verifies the database connection is alive. Used by the health probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// GroupsCollection returns the groups collection.
func (c *Client) GroupsCollection() *mongo.Collection {
	return c.db.Collection("groups")
}

// MessagesCollection returns the chat messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection("messages")
}

// NotesCollection returns the shared notes collection (one doc per group).
func (c *Client) NotesCollection() *mongo.Collection {
	return c.db.Collection("notes")
}

// NoteHistoryCollection returns the append-only note archive collection.
func (c *Client) NoteHistoryCollection() *mongo.Collection {
	return c.db.Collection("note_history")
}

// TasksCollection returns the tasks collection.
func (c *Client) TasksCollection() *mongo.Collection {
	return c.db.Collection("tasks")
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes the stores rely on. Safe to call on
// every startup; index creation is idempotent.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// Unique email prevents duplicate registration at the store level.
	usersIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.UsersCollection().Indexes().CreateOne(ctx, usersIndex); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	groupsIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "invite_code", Value: 1}},
	}
	if _, err := c.GroupsCollection().Indexes().CreateOne(ctx, groupsIndex); err != nil {
		return fmt.Errorf("failed to create groups index: %w", err)
	}

	// History pagination: newest-first per group.
	messagesIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := c.MessagesCollection().Indexes().CreateOne(ctx, messagesIndex); err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}

	historyIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "note_id", Value: 1}, {Key: "archived_at", Value: -1}},
	}
	if _, err := c.NoteHistoryCollection().Indexes().CreateOne(ctx, historyIndex); err != nil {
		return fmt.Errorf("failed to create note history index: %w", err)
	}

	tasksIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := c.TasksCollection().Indexes().CreateOne(ctx, tasksIndex); err != nil {
		return fmt.Errorf("failed to create tasks index: %w", err)
	}

	return nil
}
