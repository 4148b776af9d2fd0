package pipeline

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mihaisavezi/claude-code-open/internal/config"
)

// DefaultTimeout is the upstream-call deadline used when a provider does
// not set timeout_seconds (spec.md §4.4 dispatch defaults).
const DefaultTimeout = time.Hour

// hopByHopHeaders are never forwarded to an upstream provider regardless
// of allow/block configuration; they describe the inbound connection, not
// the content of the request.
var hopByHopHeaders = map[string]bool{
	"Connection":        true,
	"Proxy-Connection":  true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Te":                true,
	"Trailer":           true,
	"Host":              true,
	"Content-Length":    true,
}

// ClientFor returns an *http.Client configured for one provider dispatch:
// the provider's timeout (or DefaultTimeout) and its proxy (or the
// environment's, via http.ProxyFromEnvironment) if none is set.
func ClientFor(p config.Provider) (*http.Client, error) {
	timeout := DefaultTimeout
	if p.TimeoutSeconds > 0 {
		timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p.Proxy != "" {
		proxyURL, err := url.Parse(p.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// ForwardHeaders copies inbound client headers onto an outbound request,
// dropping hop-by-hop headers and applying the provider's allow/block
// lists (blocklist wins on conflict; an empty allowlist allows everything
// not blocked).
func ForwardHeaders(dst *http.Request, src http.Header, p config.Provider) {
	allow := toHeaderSet(p.HeaderAllowlist)
	block := toHeaderSet(p.HeaderBlocklist)

	for name, values := range src {
		canon := http.CanonicalHeaderKey(name)
		if hopByHopHeaders[canon] {
			continue
		}
		if block[canon] {
			continue
		}
		if len(allow) > 0 && !allow[canon] {
			continue
		}
		for _, v := range values {
			dst.Header.Add(name, v)
		}
	}
}

func toHeaderSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[http.CanonicalHeaderKey(n)] = true
	}
	return set
}

// SetAuthHeader applies the provider-family-appropriate credential header.
// Gemini's API key goes in a custom header; every other provider family
// observed in this gateway uses a bearer token.
func SetAuthHeader(req *http.Request, providerName, apiKey string) {
	if apiKey == "" {
		return
	}
	switch providerName {
	case "gemini":
		req.Header.Set("x-goog-api-key", apiKey)
	default:
		if strings.HasPrefix(apiKey, "Bearer ") {
			req.Header.Set("Authorization", apiKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
}
