package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kehindes/groupspace/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers set Origin; non-browser clients may omit it. Cross-origin
	// abuse is bounded by the token requirement, not the handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// outboundEvent is the envelope every server push uses.
type outboundEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// wsConn is one websocket connection. It implements hub.Sender so the hub
// can fan events out to it; the write mutex serializes pushes because
// gorilla connections allow only one concurrent writer.
type wsConn struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex

	claims *auth.Claims
	joined map[string]bool
}

// Send pushes one event to the client. Called by the hub from broadcast
// goroutines as well as by the read loop, so it must be safe for
// concurrent use.
func (c *wsConn) Send(event string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(outboundEvent{Type: event, Payload: payload})
}

func (c *wsConn) sendError(message string) {
	_ = c.Send(evError, errorPayload{Message: message})
}

// handleWS upgrades the request and runs the connection's read loop until
// the client goes away. Authentication happens in-band: the first thing a
// client must send is an authenticate event carrying its JWT.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsConn{
		id:     uuid.NewString(),
		conn:   conn,
		joined: make(map[string]bool),
	}
	defer s.closeConn(c)

	for {
		var ev inboundEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		s.dispatch(c, ev)
	}
}

// closeConn tears the connection out of every room it joined, announcing
// user_left wherever this was the user's last connection. Leave reports
// ok=false for rooms the hub already evicted this connection from after
// a failed send; those departures were announced at eviction time.
func (s *Server) closeConn(c *wsConn) {
	for room := range c.joined {
		userID, displayName, last, ok := s.hub.Leave(room, c.id)
		if ok && last {
			s.broadcast(room, evUserLeft, presencePayload{
				GroupID:     room,
				UserID:      userID,
				DisplayName: displayName,
			})
		}
	}
	_ = c.conn.Close()
}

func (s *Server) dispatch(c *wsConn, ev inboundEvent) {
	if ev.Type == evAuthenticate {
		s.wsAuthenticate(c, ev.Payload)
		return
	}
	if c.claims == nil {
		c.sendError("authenticate first")
		return
	}

	switch ev.Type {
	case evJoinGroup:
		s.wsJoinGroup(c, ev.Payload)
	case evLeaveGroup:
		s.wsLeaveGroup(c, ev.Payload)
	case evSendMessage:
		s.wsSendMessage(c, ev.Payload)
	case evTyping:
		s.wsTyping(c, ev.Payload, evTyping)
	case evStopTyping:
		s.wsTyping(c, ev.Payload, evStopTyping)
	default:
		c.sendError("unknown event type")
	}
}

func (s *Server) wsAuthenticate(c *wsConn, raw json.RawMessage) {
	if c.claims != nil {
		c.sendError("already authenticated")
		return
	}
	var p authenticatePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Token == "" {
		_ = c.Send(evAuthError, errorPayload{Message: "token required"})
		return
	}
	claims, err := s.auth.VerifyToken(p.Token)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "token expired, please log in again"
		}
		_ = c.Send(evAuthError, errorPayload{Message: msg})
		return
	}
	c.claims = claims
	_ = c.Send(evAuthenticated, authenticatedPayload{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
	})
}

// wsJoinGroup checks membership against the store, registers the
// connection in the room, and sends the joiner the current roster. The
// user_joined announcement only goes out on the user's first connection
// so a second tab does not re-announce them.
func (s *Server) wsJoinGroup(c *wsConn, raw json.RawMessage) {
	var p joinGroupPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.GroupID == "" {
		c.sendError("groupId required")
		return
	}
	groupID, err := pathID(p.GroupID, "group id")
	if err != nil {
		c.sendError("invalid group id")
		return
	}
	userID, err := claimsUserID(c.claims)
	if err != nil {
		c.sendError("invalid token")
		return
	}

	ctx, cancel := opCtx(context.Background())
	defer cancel()
	if _, err := s.groups.RequireMember(ctx, groupID, userID); err != nil {
		c.sendError("not a member of this group")
		return
	}

	room := groupID.Hex()
	first := s.hub.Join(room, c.id, c.claims.UserID, c.claims.DisplayName, c)
	c.joined[room] = true

	_ = c.Send(evOnlineUsers, onlineUsersPayload{
		GroupID: room,
		Users:   s.hub.Roster(room),
	})
	if first {
		s.broadcastExcept(room, c.id, evUserJoined, presencePayload{
			GroupID:     room,
			UserID:      c.claims.UserID,
			DisplayName: c.claims.DisplayName,
		})
	}
}

func (s *Server) wsLeaveGroup(c *wsConn, raw json.RawMessage) {
	var p joinGroupPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.GroupID == "" {
		c.sendError("groupId required")
		return
	}
	// Room keys are the canonical lowercase hex; parse rather than trust
	// the client's casing.
	groupID, err := pathID(p.GroupID, "group id")
	if err != nil {
		c.sendError("invalid group id")
		return
	}
	room := groupID.Hex()
	if !c.joined[room] {
		return
	}
	delete(c.joined, room)

	userID, displayName, last, ok := s.hub.Leave(room, c.id)
	if ok && last {
		s.broadcast(room, evUserLeft, presencePayload{
			GroupID:     room,
			UserID:      userID,
			DisplayName: displayName,
		})
	}
}

// wsSendMessage persists the message and fans it out, same path as the
// REST handler. The sender receives the broadcast too, which doubles as
// their delivery confirmation with the server-assigned id and timestamp.
func (s *Server) wsSendMessage(c *wsConn, raw json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.GroupID == "" {
		c.sendError("groupId required")
		return
	}
	text, err := validateMessageText(p.Text)
	if err != nil {
		c.sendError("message text must be 1-2000 characters")
		return
	}
	groupID, err := pathID(p.GroupID, "group id")
	if err != nil {
		c.sendError("invalid group id")
		return
	}
	room := groupID.Hex()
	if !c.joined[room] {
		c.sendError("join the group before sending")
		return
	}
	sender, err := claimsMember(c.claims)
	if err != nil {
		c.sendError("invalid token")
		return
	}

	ctx, cancel := opCtx(context.Background())
	defer cancel()
	if _, err := s.groups.RequireMember(ctx, groupID, sender.UserID); err != nil {
		c.sendError("not a member of this group")
		return
	}
	msg, err := s.msgs.SaveMessage(ctx, groupID, sender, text)
	if err != nil {
		s.log.Error("save message over websocket", zap.Error(err))
		c.sendError("could not send message")
		return
	}
	s.broadcast(room, evNewMessage, msg)
}

// wsTyping relays typing indicators to everyone else in the room. They
// are ephemeral: nothing is persisted and membership is only checked
// against the in-memory room, which join_group already gated.
func (s *Server) wsTyping(c *wsConn, raw json.RawMessage, event string) {
	var p typingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.GroupID == "" {
		c.sendError("groupId required")
		return
	}
	groupID, err := pathID(p.GroupID, "group id")
	if err != nil {
		c.sendError("invalid group id")
		return
	}
	room := groupID.Hex()
	if !c.joined[room] {
		return
	}
	out := typingEventPayload{
		GroupID: room,
		UserID:  c.claims.UserID,
	}
	if event == evTyping {
		out.DisplayName = c.claims.DisplayName
	}
	s.broadcastExcept(room, c.id, event, out)
}
