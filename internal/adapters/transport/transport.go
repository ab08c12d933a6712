// Package transport is the single outbound-request capability shared by the
// scraping API client and the thumbnail pipeline. Callers depend on
// Transport only; which implementation answered is reported in Response.Via.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrRequestFailed = errors.New("request failed")

type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Via        string
}

func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) Redirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400 && r.Header.Get("Location") != ""
}

type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Fallback sends every request through Primary and repeats it once through
// Secondary when the primary error is a name-resolution failure. No other
// error is retried.
type Fallback struct {
	Primary   Transport
	Secondary Transport
}

func WithDNSFallback(primary, secondary Transport) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) Name() string { return f.Primary.Name() }

func (f *Fallback) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := f.Primary.Do(ctx, req)
	if err == nil || f.Secondary == nil || !IsDNSError(err) {
		return resp, err
	}
	log.Warn().Err(err).
		Str("url", Redact(req.URL)).
		Str("fallback", f.Secondary.Name()).
		Msg("name resolution failed, retrying with fallback transport")
	return f.Secondary.Do(ctx, req)
}

// IsDNSError reports a temporary name-resolution failure (EAI_AGAIN and
// friends), either as a *net.DNSError or by message.
func IsDNSError(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "eai_again") ||
		strings.Contains(msg, "temporary failure in name resolution")
}

// Redact hides the token query parameter so URLs can be logged.
func Redact(rawURL string) string {
	i := strings.Index(rawURL, "token=")
	if i < 0 {
		return rawURL
	}
	end := strings.IndexByte(rawURL[i:], '&')
	if end < 0 {
		return rawURL[:i] + "token=REDACTED"
	}
	return rawURL[:i] + "token=REDACTED" + rawURL[i+end:]
}
