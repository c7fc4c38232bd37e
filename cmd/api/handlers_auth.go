package main

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/auth"
	"github.com/kehindes/groupspace/internal/data"
	"github.com/kehindes/groupspace/internal/normalize"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalRequest struct {
	IDToken string `json:"idToken"`
}

// authResponse is the credential envelope returned by all three login
// paths.
type authResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *data.User `json:"user"`
}

func validateRegister(req *registerRequest) map[string]string {
	fields := map[string]string{}

	email := normalize.Email(req.Email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 254 {
		fields["email"] = "a valid email address is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	} else if len(req.Password) > 72 {
		// bcrypt ignores input beyond 72 bytes
		fields["password"] = "password must be at most 72 characters"
	}
	name := normalize.DisplayName(req.DisplayName)
	if name == "" || utf8.RuneCountInString(name) > 60 {
		fields["displayName"] = "display name must be 1-60 characters"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if fields := validateRegister(&req); fields != nil {
		s.writeError(w, r, apperr.Validation("invalid registration", fields))
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	user, err := s.users.CreateUser(ctx, req.Email, normalize.DisplayName(req.DisplayName), hashed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondWithToken(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		// Unknown email and wrong password are indistinguishable to the
		// caller; no account enumeration.
		if _, ok := apperr.From(err); ok {
			s.writeError(w, r, apperr.Unauthorized("invalid credentials"))
		} else {
			s.writeError(w, r, err)
		}
		return
	}

	if user.Password == "" || auth.CheckPassword(user.Password, req.Password) != nil {
		s.writeError(w, r, apperr.Unauthorized("invalid credentials"))
		return
	}

	s.respondWithToken(w, r, http.StatusOK, user)
}

func (s *Server) handleExternal(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		s.writeError(w, r, &apperr.Error{Status: http.StatusServiceUnavailable, Message: "external login is not configured"})
		return
	}

	var req externalRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		s.writeError(w, r, apperr.Validation("idToken is required", nil))
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	ident, err := s.identity.Verify(ctx, req.IDToken)
	if err != nil {
		s.writeError(w, r, apperr.Unauthorized("invalid identity token"))
		return
	}

	name := normalize.DisplayName(ident.Name)
	if name == "" {
		name = ident.Email
	}

	user, err := s.users.UpsertExternalUser(ctx, ident.Subject, ident.Email, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondWithToken(w, r, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, r, apperr.Unauthorized("missing auth claims"))
		return
	}
	id, err := claimsUserID(claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := opCtx(r.Context())
	defer cancel()

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *data.User) {
	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email, user.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, status, authResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
