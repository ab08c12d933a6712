package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTP is the native transport.
type HTTP struct {
	hc      *http.Client
	maxBody int64
}

// NewHTTP wraps hc. Unless followRedirects is set, 3xx responses are
// returned to the caller as-is. maxBody <= 0 means unlimited.
func NewHTTP(hc *http.Client, followRedirects bool, maxBody int64) *HTTP {
	if hc == nil {
		hc = &http.Client{}
	}
	c := *hc
	if !followRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	return &HTTP{hc: &c, maxBody: maxBody}
}

func (t *HTTP) Name() string { return "http" }

func (t *HTTP) Do(ctx context.Context, r Request) (*Response, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rd io.Reader = resp.Body
	if t.maxBody > 0 {
		rd = io.LimitReader(resp.Body, t.maxBody+1)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	if t.maxBody > 0 && int64(len(b)) > t.maxBody {
		return nil, fmt.Errorf("response body exceeds %d bytes", t.maxBody)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: b, Via: t.Name()}, nil
}
