package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ExternalIdentity is what an identity provider asserts about a user.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityVerifier validates a third-party identity token. Implementations
// must bound the outbound call with the supplied context.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier checks Google ID tokens against the tokeninfo endpoint
// and enforces the audience matches our OAuth client id.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
}

// NewGoogleVerifier returns a verifier for the given OAuth client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify validates the ID token and returns the asserted identity.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	u := googleTokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity token rejected (status %d)", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding tokeninfo response: %w", err)
	}

	if info.Aud != g.clientID {
		return nil, fmt.Errorf("identity token audience mismatch")
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return nil, fmt.Errorf("identity token has no verified email")
	}

	return &ExternalIdentity{Subject: info.Sub, Email: info.Email, Name: info.Name}, nil
}
