package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// cloudPlatformScope is the single OAuth2 scope the Vertex adapters need
// (spec.md §4.6 "Vertex OpenAI/Claude/Gemini ... scope: cloud-platform").
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexTokenSource hands out short-lived bearer tokens for a Vertex
// provider's service-account credentials, refreshing them lazily via
// oauth2.TokenSource's own expiry tracking. One instance is shared
// read-only across requests for a given provider (§5 "shared resources
// ... read-only").
type VertexTokenSource struct {
	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewVertexTokenSource builds a token source from a service-account JSON
// key (the same format gcloud/Vertex SDKs consume).
func NewVertexTokenSource(ctx context.Context, serviceAccountJSON []byte) (*VertexTokenSource, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(serviceAccountJSON, &key); err != nil {
		return nil, fmt.Errorf("vertex auth: parse service account: %w", err)
	}

	cfg := &jwt.Config{
		Email:      key.Email,
		PrivateKey: []byte(key.PrivateKey),
		TokenURL:   key.TokenURL,
		Scopes:     []string{cloudPlatformScope},
	}
	return &VertexTokenSource{source: cfg.TokenSource(ctx)}, nil
}

type serviceAccountKey struct {
	Email      string `json:"client_email"`
	PrivateKey string `json:"private_key"`
	TokenURL   string `json:"token_uri"`
}

// Token returns the current bearer token, refreshing it if expired.
func (v *VertexTokenSource) Token() (*oauth2.Token, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.source.Token()
}

// BearerHeader returns the `Authorization: Bearer <token>` header value to
// attach to a Vertex-bound request.
func (v *VertexTokenSource) BearerHeader() (string, error) {
	tok, err := v.Token()
	if err != nil {
		return "", fmt.Errorf("vertex auth: %w", err)
	}
	return "Bearer " + tok.AccessToken, nil
}
