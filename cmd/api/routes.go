package main

import (
	"github.com/go-chi/chi/v5"

	"github.com/kehindes/groupspace/internal/middleware"
)

// routes assembles the REST surface. Auth endpoints sit behind a stricter
// rate limiter than the general API; everything group-scoped requires a
// bearer credential.
func (s *Server) routes(authLimiter, apiLimiter *middleware.LimiterStore) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RateLimit(apiLimiter))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/external", s.handleExternal)
		r.With(s.requireAuth).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.handleCreateGroup)
			r.Get("/", s.handleListGroups)
			r.Get("/{id}", s.handleGetGroup)
			r.Post("/{id}/join", s.handleJoinGroup)
			r.Post("/{id}/leave", s.handleLeaveGroup)
			r.Get("/{id}/members", s.handleGetMembers)
		})

		r.Route("/chat/{groupID}", func(r chi.Router) {
			r.Get("/messages", s.handleGetMessages)
			r.Post("/messages", s.handlePostMessage)
			r.Delete("/messages/{id}", s.handleDeleteMessage)
		})

		r.Route("/notes/{groupID}", func(r chi.Router) {
			r.Get("/", s.handleGetNote)
			r.Put("/", s.handleSaveNote)
			r.Get("/history", s.handleNoteHistory)
		})

		r.Route("/tasks/{groupID}", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Put("/{taskID}", s.handleUpdateTask)
			r.Delete("/{taskID}", s.handleDeleteTask)
			r.Patch("/{taskID}/complete", s.handleCompleteTask)
		})
	})

	return r
}
