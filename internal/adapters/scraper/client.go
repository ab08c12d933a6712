package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"review_sync/internal/adapters/observability"
	"review_sync/internal/adapters/transport"
)

var ErrInvalidResponse = errors.New("invalid response format")

// HTTPError is returned for a non-2xx answer from the scraping API.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("scraper: status %d: %s", e.StatusCode, snippet(e.Body, 900))
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type Client struct {
	base    string
	token   string
	timeout time.Duration
	tr      transport.Transport
	rl      *rate.Limiter
}

// New builds an API client. tr is normally the native transport wrapped in
// a DNS fallback to curl; rps limits how often actor runs are started.
func New(base, token string, tr transport.Transport, timeout time.Duration, rps float64) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("API token is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		timeout: timeout,
		tr:      tr,
		rl:      rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// RunActor starts an actor synchronously and returns its dataset items.
func (c *Client) RunActor(ctx context.Context, actor string, input any) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s",
		c.base, url.PathEscape(actor), url.QueryEscape(c.token))
	return c.FetchArray(ctx, u, input)
}

// FetchArray posts body and requires the answer to be a JSON array.
// Items that are not objects are dropped.
func (c *Client) FetchArray(ctx context.Context, u string, body any) ([]map[string]any, error) {
	raw, err := c.Request(ctx, u, body)
	if err != nil {
		return nil, err
	}
	// null decodes into a nil slice without error, so the shape is checked first
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, snippet(raw, 200))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, snippet(raw, 200))
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		var m map[string]any
		if err := json.Unmarshal(it, &m); err != nil || m == nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Request POSTs body as JSON and returns the raw response text.
func (c *Client) Request(ctx context.Context, u string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.tr.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    u,
		Header: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
			"User-Agent":   {"review-sync/1.0"},
		},
		Body:    payload,
		Timeout: c.timeout,
	})
	if err != nil {
		observability.ObserveExternal("scraper", c.tr.Name(), 0, time.Since(start))
		return nil, fmt.Errorf("scraper request %s: %w", transport.Redact(u), err)
	}
	observability.ObserveExternal("scraper", resp.Via, resp.StatusCode, time.Since(start))
	log.Debug().
		Str("url", transport.Redact(u)).
		Int("status", resp.StatusCode).
		Str("via", resp.Via).
		Dur("took", time.Since(start)).
		Msg("scraper response")

	if !resp.OK() {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp.Body, nil
}
