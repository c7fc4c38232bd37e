package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/normalize"
)

// UsersStore performs user DB operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new email-provider user with an already-hashed
// password. Duplicate email maps to Conflict via the unique index.
func (u *UsersStore) CreateUser(ctx context.Context, email, displayName, hashedPassword string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		Email:       normalize.Email(email),
		DisplayName: displayName,
		Password:    hashedPassword,
		Provider:    ProviderEmail,
		GroupIDs:    []bson.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, err
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// UpsertExternalUser creates or refreshes a user from an external identity
// assertion. An existing record (either provider) gets its display name and
// external id refreshed; a missing one is created with provider "external".
func (u *UsersStore) UpsertExternalUser(ctx context.Context, externalID, email, displayName string) (*User, error) {
	email = normalize.Email(email)

	var existing User
	err := u.coll.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err == nil {
		update := bson.M{"$set": bson.M{
			"display_name": displayName,
			"external_id":  externalID,
			"updated_at":   time.Now().UTC(),
		}}
		if _, err := u.coll.UpdateByID(ctx, existing.ID, update); err != nil {
			return nil, err
		}
		existing.DisplayName = displayName
		existing.ExternalID = externalID
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		Email:       email,
		DisplayName: displayName,
		ExternalID:  externalID,
		Provider:    ProviderExternal,
		GroupIDs:    []bson.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent first login; read the winner.
			return u.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by (normalized) email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// AddGroup records a group id on the user's membership list.
func (u *UsersStore) AddGroup(ctx context.Context, userID, groupID bson.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"group_ids": groupID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := u.coll.UpdateByID(ctx, userID, update)
	return err
}

// RemoveGroup deletes a group id from the user's membership list.
func (u *UsersStore) RemoveGroup(ctx context.Context, userID, groupID bson.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"group_ids": groupID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := u.coll.UpdateByID(ctx, userID, update)
	return err
}
