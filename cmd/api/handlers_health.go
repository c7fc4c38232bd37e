package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// handleHealth reports liveness plus database reachability so load
// balancers can pull an instance whose Mongo connection has gone bad.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check: database unreachable", zap.Error(err))
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
	})
}
