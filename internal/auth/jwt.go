// Package auth signs and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/kehindes/groupspace/internal/normalize"
)

// ErrTokenExpired is returned by VerifyToken for tokens that parsed and
// verified but are past their expiry. Callers use it to word the 401
// differently so clients know to re-login rather than retry.
var ErrTokenExpired = errors.New("token expired")

// JWTManager signs and validates the session tokens used by the API.
// It supports key rotation: tokens are signed with the active kid and
// verified against whichever key their kid header names, so previously
// issued tokens survive a rotation.
type JWTManager struct {
	keys      map[string]string
	activeKid string
	duration  time.Duration
}

// Claims is the session token payload.
type Claims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// NewJWTManager returns a manager with a single unrotated secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		keys:     map[string]string{"": secretKey},
		duration: duration,
	}
}

// NewJWTManagerFromKeys returns a manager holding a kid→secret map.
// activeKid selects the signing key; all keys remain valid for verification.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	return &JWTManager{keys: keys, activeKid: activeKid, duration: duration}
}

// GenerateToken issues a signed token for the given user identity.
func (m *JWTManager) GenerateToken(userID bson.ObjectID, email, displayName string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.duration)

	claims := &Claims{
		UserID:      userID.Hex(),
		Email:       normalize.Email(email),
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	secret, ok := m.keys[m.activeKid]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no signing key for kid %q", m.activeKid)
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
// Expired tokens return ErrTokenExpired; every other failure (bad
// signature, malformed, unknown kid) returns a generic error.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		secret, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
