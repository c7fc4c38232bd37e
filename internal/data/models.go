// Package data provides DB models and stores.
package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Member roles within a group.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Identity providers.
const (
	ProviderEmail    = "email"
	ProviderExternal = "external"
)

// User maps to the users collection. Password and ExternalID are mutually
// optional: email-provider users carry a bcrypt hash, external users carry
// the provider's subject id.
type User struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email       string          `bson:"email" json:"email"`
	DisplayName string          `bson:"display_name" json:"displayName"`
	Password    string          `bson:"password,omitempty" json:"-"`
	ExternalID  string          `bson:"external_id,omitempty" json:"-"`
	Provider    string          `bson:"provider" json:"provider"`
	GroupIDs    []bson.ObjectID `bson:"group_ids" json:"groupIds"`
	CreatedAt   time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Member is a user's membership entry embedded in a group document.
// Email and display name are denormalized at join time.
type Member struct {
	UserID      bson.ObjectID `bson:"user_id" json:"userId"`
	Email       string        `bson:"email" json:"email"`
	DisplayName string        `bson:"display_name" json:"displayName"`
	Role        string        `bson:"role" json:"role"`
	JoinedAt    time.Time     `bson:"joined_at" json:"joinedAt"`
}

// Group maps to the groups collection. Invariant: at least one admin
// whenever Members is non-empty; the document is deleted when the last
// member leaves.
type Group struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	InviteCode  string        `bson:"invite_code" json:"inviteCode"`
	CreatedBy   bson.ObjectID `bson:"created_by" json:"createdBy"`
	Members     []Member      `bson:"members" json:"members"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

// Message maps to the messages collection. Sender identity is frozen at
// post time; messages are immutable except for hard deletion.
type Message struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     bson.ObjectID `bson:"group_id" json:"groupId"`
	SenderID    bson.ObjectID `bson:"sender_id" json:"senderId"`
	SenderEmail string        `bson:"sender_email" json:"senderEmail"`
	SenderName  string        `bson:"sender_name" json:"senderName"`
	Text        string        `bson:"text" json:"text"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

// UserRef is a frozen {id, display name} snapshot embedded wherever an
// actor is recorded (note editor, task assignee/creator/completer).
type UserRef struct {
	UserID      bson.ObjectID `bson:"user_id" json:"userId"`
	DisplayName string        `bson:"display_name" json:"displayName"`
}

// Note is the single shared document per group; its _id is the group id.
type Note struct {
	ID           bson.ObjectID `bson:"_id" json:"groupId"`
	Content      string        `bson:"content" json:"content"`
	LastEditedBy *UserRef      `bson:"last_edited_by,omitempty" json:"lastEditedBy"`
	LastEditedAt *time.Time    `bson:"last_edited_at,omitempty" json:"lastEditedAt"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"-"`
}

// NoteHistoryEntry is an immutable snapshot of a note's pre-overwrite
// state, written just before each save.
type NoteHistoryEntry struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID     bson.ObjectID `bson:"note_id" json:"groupId"`
	Content    string        `bson:"content" json:"content"`
	EditedBy   *UserRef      `bson:"edited_by,omitempty" json:"editedBy"`
	EditedAt   *time.Time    `bson:"edited_at,omitempty" json:"editedAt"`
	ArchivedAt time.Time     `bson:"archived_at" json:"archivedAt"`
}

// Task maps to the tasks collection. CompletedAt and CompletedBy are set
// and cleared together with the Completed flag.
type Task struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     bson.ObjectID `bson:"group_id" json:"groupId"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Assignee    *UserRef      `bson:"assignee,omitempty" json:"assignee,omitempty"`
	DueDate     string        `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Completed   bool          `bson:"completed" json:"completed"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CompletedBy *UserRef      `bson:"completed_by,omitempty" json:"completedBy,omitempty"`
	CreatedBy   UserRef       `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

// HasAdmin reports whether any member currently holds the admin role.
func (g *Group) HasAdmin() bool {
	for _, m := range g.Members {
		if m.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// FindMember returns the member entry for userID, if present.
func (g *Group) FindMember(userID bson.ObjectID) (*Member, bool) {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i], true
		}
	}
	return nil, false
}
