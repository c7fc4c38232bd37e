package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/kehindes/groupspace/internal/auth"
	"github.com/kehindes/groupspace/internal/data"
	"github.com/kehindes/groupspace/internal/hub"
)

// dbTimeout bounds every outbound database call so a slow store fails the
// request instead of hanging the connection.
const dbTimeout = 10 * time.Second

// Store interfaces cover exactly what the handlers call, so tests can
// substitute fakes without a running database.

type usersStore interface {
	CreateUser(ctx context.Context, email, displayName, hashedPassword string) (*data.User, error)
	UpsertExternalUser(ctx context.Context, externalID, email, displayName string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	AddGroup(ctx context.Context, userID, groupID bson.ObjectID) error
	RemoveGroup(ctx context.Context, userID, groupID bson.ObjectID) error
}

type groupsStore interface {
	CreateGroup(ctx context.Context, name, description string, creator data.Member) (*data.Group, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*data.Group, error)
	GetByIDs(ctx context.Context, ids []bson.ObjectID) ([]*data.Group, error)
	RequireMember(ctx context.Context, groupID, userID bson.ObjectID) (*data.Group, error)
	Join(ctx context.Context, groupID bson.ObjectID, inviteCode string, member data.Member) (*data.Group, error)
	Leave(ctx context.Context, groupID, userID bson.ObjectID) (bool, error)
}

type messagesStore interface {
	SaveMessage(ctx context.Context, groupID bson.ObjectID, sender data.Member, text string) (*data.Message, error)
	GetHistory(ctx context.Context, groupID bson.ObjectID, limit int64, before *time.Time) ([]*data.Message, error)
	DeleteMessage(ctx context.Context, groupID, messageID, senderID bson.ObjectID) error
}

type notesStore interface {
	Get(ctx context.Context, groupID bson.ObjectID) (*data.Note, error)
	Save(ctx context.Context, groupID bson.ObjectID, content string, editor data.UserRef) (*data.Note, error)
	History(ctx context.Context, groupID bson.ObjectID) ([]*data.NoteHistoryEntry, error)
}

type tasksStore interface {
	List(ctx context.Context, groupID bson.ObjectID) ([]*data.Task, error)
	Create(ctx context.Context, task *data.Task) (*data.Task, error)
	Update(ctx context.Context, groupID, taskID bson.ObjectID, upd data.TaskUpdate) (*data.Task, error)
	SetCompleted(ctx context.Context, groupID, taskID bson.ObjectID, completed bool, actor data.UserRef) (*data.Task, error)
	Delete(ctx context.Context, groupID, taskID bson.ObjectID) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the stores, auth logic, and room registry behind the API.
type Server struct {
	users    usersStore
	groups   groupsStore
	msgs     messagesStore
	notes    notesStore
	tasks    tasksStore
	auth     *auth.JWTManager
	identity auth.IdentityVerifier // nil when external login is not configured
	hub      *hub.Hub
	db       pinger
	log      *zap.Logger
}

// newServer returns a ready-to-use Server wired with stores, auth manager,
// and the room registry.
func newServer(users usersStore, groups groupsStore, msgs messagesStore, notes notesStore, tasks tasksStore, authMgr *auth.JWTManager, identity auth.IdentityVerifier, h *hub.Hub, db pinger, log *zap.Logger) *Server {
	return &Server{
		users:    users,
		groups:   groups,
		msgs:     msgs,
		notes:    notes,
		tasks:    tasks,
		auth:     authMgr,
		identity: identity,
		hub:      h,
		db:       db,
		log:      log,
	}
}

// opCtx derives a bounded context for one store or provider call.
func opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, dbTimeout)
}

// broadcast relays an event to the room, then announces any users the hub
// evicted because their connection died mid-send. Without the follow-up
// the rest of the room would never see a user_left for them: the evicted
// connection's own disconnect path finds it already gone and stays quiet.
func (s *Server) broadcast(room, event string, payload any) {
	s.announceDeparted(room, s.hub.Broadcast(room, event, payload))
}

func (s *Server) broadcastExcept(room, exceptConnID, event string, payload any) {
	s.announceDeparted(room, s.hub.BroadcastExcept(room, exceptConnID, event, payload))
}

// announceDeparted emits one user_left per departed user. The
// announcement itself can flush out further dead connections, hence the
// queue.
func (s *Server) announceDeparted(room string, departed []hub.RosterEntry) {
	for len(departed) > 0 {
		d := departed[0]
		departed = departed[1:]
		more := s.hub.Broadcast(room, evUserLeft, presencePayload{
			GroupID:     room,
			UserID:      d.UserID,
			DisplayName: d.DisplayName,
		})
		departed = append(departed, more...)
	}
}
