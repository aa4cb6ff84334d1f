// package crud implements RESTful requests to the huddle game server
package crud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// NewClient provides an http.Client for requests to the game server. Requests are made with
// server-relative paths ("/rooms/") and the transport prefixes baseURL. timeout <= 0 leaves the
// client without an overall timeout.
func NewClient(baseURL string, timeout time.Duration) (*http.Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server origin %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server origin %q: scheme and host are required", baseURL)
	}

	huddleTransport := transport{
		base: base,
		next: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	}

	return &http.Client{
		Timeout:   max(timeout, 0),
		Transport: &huddleTransport,
	}, nil
}

type tokenKey struct{}

// WithToken returns a context whose requests carry token as a bearer credential.
// An empty token sends no Authorization header.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// transport resolves server-relative request URLs against base and attaches the bearer token
// found in the request context.
type transport struct {
	base *url.URL
	next http.RoundTripper
}

// RoundTrip adds upon the normal http.Transport.RoundTrip() behavior to add bearer auth and a base url to each request.
// Reference: https://cs.opensource.google/go/x/oauth2/+/refs/tags/v0.31.0:transport.go
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := req.URL.Path
	req = req.Clone(req.Context())

	resolved := *t.base
	resolved.Path = t.base.Path + "/" + strings.TrimPrefix(path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = req.URL.RawQuery
	req.URL = &resolved
	req.Host = resolved.Host

	if token := tokenFromContext(req.Context()); token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug().Str("module", "crud").Str("method", req.Method).Str("path", path).Msg("request to game server")
	return t.next.RoundTrip(req)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the underlying transport.
func (t *transport) CloseIdleConnections() {
	if ci, ok := t.next.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}
