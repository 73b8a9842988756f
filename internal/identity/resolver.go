// Package identity resolves the best-effort client identity that scopes
// download-gate state.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Unknown is returned whenever the lookup fails.
const Unknown = "unknown"

// Resolver asks a public IP echo service for the caller's address.
type Resolver struct {
	URL  string
	HTTP *http.Client

	// Observe, when set, is told whether the lookup succeeded.
	Observe func(ok bool)
}

// NewResolver returns a Resolver with the given request timeout.
func NewResolver(url string, timeout time.Duration) *Resolver {
	return &Resolver{URL: url, HTTP: &http.Client{Timeout: timeout}}
}

// Resolve never fails: every error collapses into Unknown.
func (r *Resolver) Resolve(ctx context.Context) string {
	ip, err := r.lookup(ctx)
	if r.Observe != nil {
		r.Observe(err == nil)
	}
	if err != nil {
		log.Debug().Err(err).Str("url", r.URL).Msg("Identity lookup failed, using fallback")
		return Unknown
	}
	log.Debug().Str("identity", ip).Msg("Identity resolved")
	return ip
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return "", err
	}
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return "", err
	}
	ip := strings.TrimSpace(body.IP)
	if ip == "" {
		return "", fmt.Errorf("empty ip in response")
	}
	return ip, nil
}
