package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/data"
)

// maxNoteContentBytes caps the stored rich-text payload.
const maxNoteContentBytes = 2 << 20

type saveNoteRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	note, err := s.notes.Get(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	editor, err := claimsRef(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathID(chi.URLParam(r, "groupID"), "group id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req saveNoteRequest
	if err := decodeJSON(w, r, &req, maxNoteBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Content) > maxNoteContentBytes {
		s.writeError(w, r, apperr.Validation("note content too large", map[string]string{"content": "at most 2MB"}))
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, editor.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	note, err := s.notes.Save(ctx, groupID, req.Content, editor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Editor and timestamp only; the content itself can be megabytes and
	// does not belong on the broadcast channel.
	s.broadcast(groupID.Hex(), evNoteUpdated, noteUpdatedPayload{
		GroupID:      groupID.Hex(),
		LastEditedBy: note.LastEditedBy,
		LastEditedAt: note.LastEditedAt,
	})

	s.writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleNoteHistory(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	if _, err := s.groups.RequireMember(ctx, groupID, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.notes.History(ctx, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*data.NoteHistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}
