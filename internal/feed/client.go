// Package feed loads the releases feed the catalog is built from.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"firmware-catalog/internal/catalog"

	"github.com/rs/zerolog/log"
)

var (
	ErrTransport = errors.New("releases feed unreachable")
	ErrStatus    = errors.New("releases feed returned an error status")
	ErrMalformed = errors.New("releases feed is not valid JSON")
	ErrNotArray  = errors.New("releases feed is not a JSON array")
)

// StatusError carries the HTTP status of a failed feed request.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Client fetches the releases feed over HTTP, or from disk when URL has
// no scheme.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New returns a Client with the given request timeout.
func New(rawURL string, timeout time.Duration) *Client {
	return &Client{URL: rawURL, HTTP: &http.Client{Timeout: timeout}}
}

// Fetch returns the decoded releases. Errors match ErrTransport, ErrStatus,
// ErrMalformed or ErrNotArray under errors.Is.
func (c *Client) Fetch(ctx context.Context) ([]catalog.RawRelease, error) {
	body, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	releases, err := Decode(body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", c.URL).
		Int("releases", len(releases)).
		Int("bytes", len(body)).
		Msg("Releases feed fetched")
	return releases, nil
}

// Decode parses a feed payload, telling malformed JSON apart from JSON of
// the wrong shape.
func Decode(body []byte) ([]catalog.RawRelease, error) {
	if !json.Valid(body) {
		return nil, ErrMalformed
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var releases []catalog.RawRelease
	if err := json.Unmarshal(trimmed, &releases); err != nil {
		// valid JSON array whose elements do not fit the release shape
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return releases, nil
}

func (c *Client) read(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if u.Scheme == "" || u.Scheme == "file" {
		path := c.URL
		if u.Scheme == "file" {
			path = u.Path
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return b, nil
}
