package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Webhook-Signature"

// Service dispatches catalog events to subscribed URLs.
type Service struct {
	Repo       Repository
	Secret     string
	TimeoutSec int
	Retries    int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration

	wg sync.WaitGroup
}

// Dispatch delivers event to every enabled subscriber in the background.
// A nil Service is a no-op.
func (s *Service) Dispatch(event string, data any) {
	if s == nil || s.Repo == nil {
		return
	}
	hooks, err := s.Repo.List()
	if err != nil {
		log.Error().
			Err(err).
			Str("event", event).
			Msg("Failed to list webhooks for event dispatch")
		return
	}

	body, err := json.Marshal(EventPayload{
		Event: event,
		Data:  data,
		Time:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("event", event).
			Msg("Failed to marshal webhook payload")
		return
	}

	dispatchCount := 0
	for _, h := range hooks {
		if !h.Enabled || !slices.Contains(h.Events, event) {
			continue
		}
		dispatchCount++
		s.wg.Add(1)
		go func(url string) {
			defer s.wg.Done()
			s.deliver(url, body, event)
		}(h.URL)
	}

	if dispatchCount > 0 {
		log.Info().
			Str("event", event).
			Int("webhook_count", dispatchCount).
			Msg("Dispatching webhook event")
	} else {
		log.Debug().
			Str("event", event).
			Msg("No webhooks configured for event")
	}
}

// Wait blocks until in-flight deliveries finish.
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func (s *Service) deliver(url string, body []byte, event string) {
	retries := max(s.Retries, 0)
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	client := &http.Client{Timeout: time.Duration(s.TimeoutSec) * time.Second}

	for attempt := 0; attempt <= retries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("Invalid webhook URL")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if s.Secret != "" {
			req.Header.Set(SignatureHeader, Sign([]byte(s.Secret), body))
		}

		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
		}

		switch {
		case err != nil:
			log.Warn().
				Err(err).
				Str("url", url).
				Str("event", event).
				Int("attempt", attempt+1).
				Int("max_attempts", retries+1).
				Msg("Webhook delivery failed with error")
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			log.Warn().
				Str("url", url).
				Str("event", event).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Int("max_attempts", retries+1).
				Msg("Webhook delivery failed with non-2xx status")
		default:
			log.Info().
				Str("url", url).
				Str("event", event).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("Webhook delivered successfully")
			return
		}

		if attempt < retries {
			time.Sleep(time.Duration(attempt+1) * backoff)
		}
	}

	log.Error().
		Str("url", url).
		Str("event", event).
		Int("attempts", retries+1).
		Msg("Webhook delivery failed after all retries")
}

// Sign returns the hex HMAC-SHA256 of data.
func Sign(secret, data []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}
