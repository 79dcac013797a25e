// Package webhook delivers validated leads to the concierge team's message
// endpoint (a chat bot, CRM inbox or automation hook) as JSON.
package webhook

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"alem_concierge/internal/adapters/observability"
	"alem_concierge/internal/contact"
	"alem_concierge/internal/domain"
)

var (
	ErrRejected     = errors.New("webhook: rejected")
	ErrUnauthorized = errors.New("webhook: unauthorized")
)

const maxAttempts = 4

type Client struct {
	url   string
	token string
	hc    *http.Client
	rl    *rate.Limiter
}

func New(url, token string, rps int) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		url:   url,
		token: token,
		hc:    &http.Client{Timeout: 20 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Message is the body posted for each lead.
type Message struct {
	Lead        domain.Lead `json:"lead"`
	Summary     string      `json:"summary"`
	ReplyViaURL string      `json:"reply_via_url"`
}

// DeliverLead posts l to the endpoint. The lead id is sent as the
// Idempotency-Key so a retried delivery is not duplicated downstream.
func (c *Client) DeliverLead(ctx context.Context, l domain.Lead) error {
	body, err := json.Marshal(Message{
		Lead:        l,
		Summary:     Summary(l),
		ReplyViaURL: contact.WhatsAppLink(l.Phone, ""),
	})
	if err != nil {
		return err
	}
	return c.post(ctx, body, l.ID)
}

// Summary is the one-line text shown in the team's inbox.
func Summary(l domain.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>, %s to %s, %s guests", l.Name, l.Email, l.Arrival, l.Departure, l.Guests)
	if l.Budget != "" {
		fmt.Fprintf(&b, ", budget %s", l.Budget)
	}
	if n := len(l.ServiceIDs); n > 0 {
		fmt.Fprintf(&b, ", %d services", n)
	}
	return b.String()
}

// post sends body with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, body []byte, key string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		req.Header.Set("User-Agent", "alem-concierge/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("webhook", "lead", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("webhook", "lead", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
