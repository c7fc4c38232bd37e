package data

import (
	"context"
	"crypto/rand"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/normalize"
)

// inviteCodeLen is the fixed length of group invite codes.
const inviteCodeLen = 8

// inviteAlphabet excludes lowercase so codes read unambiguously; matching
// is case-insensitive regardless.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// idChunkSize caps the cardinality of a single $in lookup.
const idChunkSize = 30

// GroupsStore performs group DB operations.
type GroupsStore struct {
	coll *mongo.Collection
}

// NewGroupsStore returns a GroupsStore using the provided collection.
func NewGroupsStore(coll *mongo.Collection) *GroupsStore {
	return &GroupsStore{coll: coll}
}

// NewInviteCode returns a random fixed-length uppercase invite code.
func NewInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf), nil
}

// CreateGroup inserts a new group with the creator as sole admin member.
func (g *GroupsStore) CreateGroup(ctx context.Context, name, description string, creator Member) (*Group, error) {
	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	creator.Role = RoleAdmin
	creator.JoinedAt = now

	group := &Group{
		Name:        name,
		Description: description,
		InviteCode:  code,
		CreatedBy:   creator.UserID,
		Members:     []Member{creator},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := g.coll.InsertOne(ctx, group)
	if err != nil {
		return nil, err
	}
	group.ID = result.InsertedID.(bson.ObjectID)
	return group, nil
}

// GetByID finds a group by id.
func (g *GroupsStore) GetByID(ctx context.Context, id bson.ObjectID) (*Group, error) {
	var group Group
	err := g.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("group not found")
		}
		return nil, err
	}
	return &group, nil
}

// GetByIDs fetches the groups for an id set, batching $in queries in
// chunks so a user with many groups stays under the store's lookup cap.
// Missing ids are skipped silently (the group may have been deleted).
func (g *GroupsStore) GetByIDs(ctx context.Context, ids []bson.ObjectID) ([]*Group, error) {
	groups := make([]*Group, 0, len(ids))

	for start := 0; start < len(ids); start += idChunkSize {
		end := start + idChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		cursor, err := g.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids[start:end]}})
		if err != nil {
			return nil, err
		}

		var chunk []*Group
		if err := cursor.All(ctx, &chunk); err != nil {
			return nil, err
		}
		groups = append(groups, chunk...)
	}

	return groups, nil
}

// RequireMember is the universal membership gate: it loads the group and
// confirms the caller is a member, returning NotFound for a missing group
// and Forbidden for a non-member. Chat, notes, and tasks all route their
// access checks through this.
func (g *GroupsStore) RequireMember(ctx context.Context, groupID, userID bson.ObjectID) (*Group, error) {
	group, err := g.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, ok := group.FindMember(userID); !ok {
		return nil, apperr.Forbidden("you are not a member of this group")
	}
	return group, nil
}

// Join adds the given member to the group after validating the invite
// code (case-insensitive). Already a member is a Conflict.
func (g *GroupsStore) Join(ctx context.Context, groupID bson.ObjectID, inviteCode string, member Member) (*Group, error) {
	group, err := g.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if normalize.InviteCode(inviteCode) != group.InviteCode {
		return nil, apperr.Forbidden("invalid invite code")
	}
	if _, ok := group.FindMember(member.UserID); ok {
		return nil, apperr.Conflict("already a member of this group")
	}

	member.Role = RoleMember
	member.JoinedAt = time.Now().UTC()

	update := bson.M{
		"$push": bson.M{"members": member},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	if _, err := g.coll.UpdateByID(ctx, groupID, update); err != nil {
		return nil, err
	}

	group.Members = append(group.Members, member)
	return group, nil
}

// Leave removes the user from the member list. The empty group is deleted
// outright; a group left without an admin gets its first remaining member
// promoted so the "≥1 admin while members exist" invariant holds. Returns
// whether the group was deleted.
func (g *GroupsStore) Leave(ctx context.Context, groupID, userID bson.ObjectID) (deleted bool, err error) {
	group, err := g.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	if _, ok := group.FindMember(userID); !ok {
		return false, apperr.Forbidden("you are not a member of this group")
	}

	remaining := make([]Member, 0, len(group.Members)-1)
	for _, m := range group.Members {
		if m.UserID != userID {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		if _, err := g.coll.DeleteOne(ctx, bson.M{"_id": groupID}); err != nil {
			return false, err
		}
		return true, nil
	}

	hasAdmin := false
	for _, m := range remaining {
		if m.Role == RoleAdmin {
			hasAdmin = true
			break
		}
	}
	if !hasAdmin {
		remaining[0].Role = RoleAdmin
	}

	update := bson.M{"$set": bson.M{
		"members":    remaining,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := g.coll.UpdateByID(ctx, groupID, update); err != nil {
		return false, err
	}
	return false, nil
}
