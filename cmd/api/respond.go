package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kehindes/groupspace/internal/apperr"
)

// maxBodyBytes is the default request body cap. Note saves get a larger
// allowance (the document itself may be up to ~2MB).
const (
	maxBodyBytes     = 1 << 20
	maxNoteBodyBytes = 3 << 20
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.log.Error("writing response failed", zap.Error(err))
		}
	}
}

// writeError maps typed domain errors to their status and hides everything
// else behind a generic 500. Internal detail goes to the log only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.From(err); ok {
		if e.Status >= http.StatusInternalServerError {
			s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		s.writeJSON(w, e.Status, e)
		return
	}

	s.log.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, apperr.Internal(""))
}

// decodeJSON reads a JSON body into dst with a size cap. Malformed or
// oversized bodies are client errors, not 500s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("request body too large", nil)
		}
		return apperr.Validation("invalid JSON body", nil)
	}
	return nil
}
