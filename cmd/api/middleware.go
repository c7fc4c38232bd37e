package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kehindes/groupspace/internal/apperr"
	"github.com/kehindes/groupspace/internal/auth"
	"github.com/kehindes/groupspace/internal/data"
)

// context key type for storing auth claims in the request context
type authContextKey struct{}

// claimsFrom extracts auth claims from the context, if present.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return nil, false
	}
	c, ok := v.(*auth.Claims)
	return c, ok
}

// requireAuth enforces a bearer credential before any domain logic runs.
// Expired and invalid tokens both map to 401; only the message differs so
// the client knows whether to re-login or retry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeError(w, r, apperr.Unauthorized("missing authorization header"))
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			s.writeError(w, r, apperr.Unauthorized("invalid authorization header"))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := s.auth.VerifyToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				s.writeError(w, r, apperr.Unauthorized("token expired, please log in again"))
			} else {
				s.writeError(w, r, apperr.Unauthorized("invalid token"))
			}
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsUserID converts the hex user id carried in claims back to an
// ObjectID. A malformed id means a forged or corrupted token.
func claimsUserID(claims *auth.Claims) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.ObjectID{}, apperr.Unauthorized("invalid token")
	}
	return id, nil
}

// claimsMember builds the denormalized member snapshot stamped onto
// messages and memberships at write time.
func claimsMember(claims *auth.Claims) (data.Member, error) {
	id, err := claimsUserID(claims)
	if err != nil {
		return data.Member{}, err
	}
	return data.Member{
		UserID:      id,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}, nil
}

// claimsRef builds the {id, display name} actor snapshot used by notes
// and tasks.
func claimsRef(claims *auth.Claims) (data.UserRef, error) {
	id, err := claimsUserID(claims)
	if err != nil {
		return data.UserRef{}, err
	}
	return data.UserRef{UserID: id, DisplayName: claims.DisplayName}, nil
}

// pathID parses an ObjectID path parameter.
func pathID(raw, what string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, apperr.Validation("invalid "+what, nil)
	}
	return id, nil
}
