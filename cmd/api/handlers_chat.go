package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/data"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	maxMessageRunes     = 2000
)

type postMessageRequest struct {
	Text string `json:"text"`
}

// validateMessageText trims and bounds message text. Shared by the REST
// path and the websocket path so both enforce identical rules.
func validateMessageText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", apperr.Validation("message text must not be empty", map[string]string{"text": "required"})
	}
	if utf8.RuneCountInString(trimmed) > maxMessageRunes {
		return "", apperr.Validation("message text too long", map[string]string{"text": "at most 2000 characters"})
	}
	return trimmed, nil
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	userID, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "groupID"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			s.writeError(w, r, apperr.Validation("limit must be a positive integer", nil))
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.writeError(w, r, apperr.Validation("before must be an RFC 3339 timestamp", nil))
			return
		}
		before = &t
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	messages, err := s.msgs.GetHistory(ctx, groupID, limit, before)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*data.Message{}
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	sender, err := claimsMember(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "groupID"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req postMessageRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := validateMessageText(req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, sender.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.msgs.SaveMessage(ctx, groupID, sender, text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Mirror the mutation into the room so connected members receive the
	// message without polling. The REST caller still gets the canonical
	// stored record in the response.
	s.broadcast(groupID.Hex(), evNewMessage, msg)

	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	userID, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "groupID"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	messageID, err := pathID(chi.URLParam(r, "id"), "message id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.msgs.DeleteMessage(ctx, groupID, messageID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.broadcast(groupID.Hex(), evMessageDeleted, messageDeletedPayload{
		MessageID: messageID.Hex(),
		GroupID:   groupID.Hex(),
	})

	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
