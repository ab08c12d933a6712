package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Curl shells out to an external HTTP client binary. It blocks until the
// process exits or the request timeout fires. Every failure maps to
// ErrRequestFailed.
type Curl struct {
	Bin             string
	FollowRedirects bool
	MaxRedirects    int
	MaxOutput       int64
	// Pin, when set, must approve the target address before curl runs.
	// curl is then pinned to that address with --resolve, limited to
	// http(s) on ports 80/443, and never follows redirects itself.
	Pin Pinner
}

func NewCurl(bin string) *Curl {
	if bin == "" {
		bin = "curl"
	}
	return &Curl{Bin: bin, MaxRedirects: 5, MaxOutput: 256 << 20}
}

func (c *Curl) Name() string { return "curl" }

// statusMarker separates the body from the status line curl writes last:
// "<code> <redirect url>".
const statusMarker = "\n"

func (c *Curl) args(r Request, resolve string) []string {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	args := []string{"-sS", "-X", method, "-o", "-", "-w", statusMarker + "%{http_code} %{redirect_url}"}
	if r.Timeout > 0 {
		args = append(args, "--max-time", strconv.Itoa(int(r.Timeout.Seconds())))
	}
	if resolve != "" {
		args = append(args, "--proto", "=http,https", "--proto-redir", "=http,https", "--resolve", resolve)
	} else if c.FollowRedirects {
		args = append(args, "-L", "--max-redirs", strconv.Itoa(c.MaxRedirects))
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			args = append(args, "-H", k+": "+v)
		}
	}
	if r.Body != nil {
		args = append(args, "--data-binary", "@-")
	}
	return append(args, "--url", r.URL)
}

func (c *Curl) Do(ctx context.Context, r Request) (*Response, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		// give curl's own --max-time a chance to report first
		ctx, cancel = context.WithTimeout(ctx, r.Timeout+5*time.Second)
		defer cancel()
	}

	var resolve string
	if c.Pin != nil {
		var err error
		if resolve, err = c.pin(ctx, r.URL); err != nil {
			log.Warn().Err(err).Str("url", Redact(r.URL)).Msg("curl target refused")
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
	}

	cmd := exec.CommandContext(ctx, c.Bin, c.args(r, resolve)...)
	if r.Body != nil {
		cmd.Stdin = bytes.NewReader(r.Body)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Debug().Err(err).Str("stderr", strings.TrimSpace(stderr.String())).
			Str("url", Redact(r.URL)).Msg("curl failed")
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	out := stdout.Bytes()
	if c.MaxOutput > 0 && int64(len(out)) > c.MaxOutput {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrRequestFailed, c.MaxOutput)
	}
	i := bytes.LastIndex(out, []byte(statusMarker))
	if i < 0 {
		return nil, ErrRequestFailed
	}
	codeStr, location, _ := strings.Cut(strings.TrimSpace(string(out[i+len(statusMarker):])), " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || code == 0 {
		return nil, ErrRequestFailed
	}
	h := http.Header{}
	if location = strings.TrimSpace(location); location != "" {
		h.Set("Location", location)
	}
	return &Response{StatusCode: code, Header: h, Body: out[:i], Via: c.Name()}, nil
}

// pin validates rawURL and returns the --resolve entry for it.
func (c *Curl) pin(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	port := u.Port()
	switch {
	case u.Scheme == "http" && port == "":
		port = "80"
	case u.Scheme == "https" && port == "":
		port = "443"
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("%w: scheme %q", ErrForbiddenAddr, u.Scheme)
	}
	if port != "80" && port != "443" {
		return "", fmt.Errorf("%w: port %s", ErrForbiddenAddr, port)
	}
	ip, err := c.Pin(ctx, u.Hostname())
	if err != nil {
		return "", err
	}
	addr := ip.String()
	if ip.To4() == nil {
		addr = "[" + addr + "]"
	}
	return u.Hostname() + ":" + port + ":" + addr, nil
}
