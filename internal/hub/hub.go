// Package hub implements the in-process room registry for real-time
// broadcasting. A room is a per-group set of live connections plus a
// roster of the users behind them. State is process-local and
// non-durable: it is rebuilt from scratch on restart and from joins.
package hub

import (
	"sort"
	"sync"
)

// Sender is the minimal interface the hub needs from a connection: the
// ability to push a named event with a JSON-marshalable payload.
type Sender interface {
	Send(event string, payload any) error
}

// RosterEntry is one online user in a room. Multiple connections from the
// same user collapse into a single entry.
type RosterEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type roomConn struct {
	userID      string
	displayName string
	sender      Sender
}

// Hub tracks which connections are in which room. It is constructed at
// server start and passed into the connection handlers; handlers never
// reach for a shared global.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]roomConn // group id → conn id → conn
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{rooms: make(map[string]map[string]roomConn)}
}

// Join adds a connection to a room. It returns true when this is the
// user's first connection in the room, i.e. the roster gained an entry
// and the other members should be told the user came online.
func (h *Hub) Join(groupID, connID, userID, displayName string, s Sender) (first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[groupID]
	if !ok {
		room = make(map[string]roomConn)
		h.rooms[groupID] = room
	}

	first = true
	for _, c := range room {
		if c.userID == userID {
			first = false
			break
		}
	}

	room[connID] = roomConn{userID: userID, displayName: displayName, sender: s}
	return first
}

// Leave removes a connection from a room. last reports that the user has
// no remaining connections there (the roster lost an entry); ok reports
// whether the connection was actually in the room. Empty rooms are pruned.
func (h *Hub) Leave(groupID, connID string) (userID, displayName string, last, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(groupID, connID)
}

func (h *Hub) leaveLocked(groupID, connID string) (userID, displayName string, last, ok bool) {
	room, exists := h.rooms[groupID]
	if !exists {
		return "", "", false, false
	}
	c, exists := room[connID]
	if !exists {
		return "", "", false, false
	}

	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, groupID)
	}

	last = true
	for _, other := range room {
		if other.userID == c.userID {
			last = false
			break
		}
	}
	return c.userID, c.displayName, last, true
}

// Roster returns the room's online users, one entry per user, in a
// stable order.
func (h *Hub) Roster(groupID string) []RosterEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := map[string]bool{}
	var roster []RosterEntry
	for _, c := range h.rooms[groupID] {
		if seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		roster = append(roster, RosterEntry{UserID: c.userID, DisplayName: c.displayName})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].UserID < roster[j].UserID })
	return roster
}

// Broadcast sends an event to every connection in the room. Delivery is
// best-effort: connections whose send fails are dropped from the room so
// broken streams don't linger. The returned entries are users who lost
// their last connection that way; the caller must announce those
// departures, because the eviction bypasses the connection's own
// disconnect path.
func (h *Hub) Broadcast(groupID, event string, payload any) []RosterEntry {
	return h.broadcast(groupID, "", event, payload)
}

// BroadcastExcept is Broadcast minus one connection, used for typing
// relays and join/leave notices that must not echo back to the origin.
func (h *Hub) BroadcastExcept(groupID, exceptConnID, event string, payload any) []RosterEntry {
	return h.broadcast(groupID, exceptConnID, event, payload)
}

func (h *Hub) broadcast(groupID, exceptConnID, event string, payload any) []RosterEntry {
	h.mu.RLock()
	room := h.rooms[groupID]
	targets := make(map[string]roomConn, len(room))
	for id, c := range room {
		if id != exceptConnID {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	var failed []string
	for id, c := range targets {
		if err := c.sender.Send(event, payload); err != nil {
			failed = append(failed, id)
		}
	}

	var departed []RosterEntry
	if len(failed) > 0 {
		h.mu.Lock()
		for _, id := range failed {
			userID, displayName, last, ok := h.leaveLocked(groupID, id)
			if ok && last {
				departed = append(departed, RosterEntry{UserID: userID, DisplayName: displayName})
			}
		}
		h.mu.Unlock()
	}
	return departed
}
