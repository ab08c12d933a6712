// Package thumbnail turns reviewer photo URLs into two fixed-size avatar
// files keyed by stable user id.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"review_sync/internal/adapters/observability"
	"review_sync/internal/adapters/transport"
	"review_sync/internal/domain"
)

// MaxRedirects bounds the Location chain followed for one avatar.
const MaxRedirects = 5

var errTooManyRedirects = errors.New("too many redirects")

type Pipeline struct {
	dir     string
	prefix  string
	tr      transport.Transport
	timeout time.Duration

	memo    domain.Cache
	memoTTL time.Duration

	sf singleflight.Group
}

type Option func(*Pipeline)

// WithFailureMemo remembers failed photo URLs for ttl so later runs do not
// hit dead avatars again.
func WithFailureMemo(c domain.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.memo = c
		p.memoTTL = ttl
	}
}

// New builds a pipeline writing into dir. tr must not follow redirects on
// its own for the hop limit to apply; prefix is the public URL prefix
// recorded in stored reviews.
func New(dir, prefix string, tr transport.Transport, timeout time.Duration, opts ...Option) *Pipeline {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	p := &Pipeline{dir: dir, prefix: prefix, tr: tr, timeout: timeout}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SafeID maps a user id onto a file-name-safe token.
func SafeID(userID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
}

func (p *Pipeline) Paths(userID string) domain.ImagePaths {
	id := SafeID(userID)
	return domain.ImagePaths{
		Base:   filepath.Join(p.dir, id+".jpg"),
		Retina: filepath.Join(p.dir, id+"@2x.jpg"),
	}
}

func (p *Pipeline) PublicPath(userID string) string {
	return p.prefix + SafeID(userID) + ".jpg"
}

// Acquire makes sure both thumbnails for userID exist. It never returns an
// error: any failure is logged and reported as false.
func (p *Pipeline) Acquire(ctx context.Context, photoURL, userID string) bool {
	if photoURL == "" || userID == "" {
		return false
	}
	u, err := url.Parse(photoURL)
	if err != nil || !supportedScheme(u) {
		return false
	}

	paths := p.Paths(userID)
	if exists(paths.Base) && exists(paths.Retina) {
		observability.ObserveThumbnail("exists")
		return true
	}
	if p.memoized(ctx, photoURL) {
		observability.ObserveThumbnail("memoized")
		return false
	}

	v, _, _ := p.sf.Do(SafeID(userID), func() (any, error) {
		err := p.acquire(ctx, u, paths)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("url", photoURL).Msg("thumbnail failed")
		}
		return err == nil, nil
	})
	ok := v.(bool)
	if !ok {
		observability.ObserveThumbnail("failed")
		p.remember(ctx, photoURL)
		return false
	}
	observability.ObserveThumbnail("created")
	return true
}

func (p *Pipeline) acquire(ctx context.Context, u *url.URL, paths domain.ImagePaths) error {
	data, err := p.fetch(ctx, u)
	if err != nil {
		return err
	}
	base, retina, err := Render(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(paths.Base, base); err != nil {
		return err
	}
	return writeFile(paths.Retina, retina)
}

func (p *Pipeline) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	for hop := 0; ; hop++ {
		start := time.Now()
		resp, err := p.tr.Do(ctx, transport.Request{
			Method: http.MethodGet,
			URL:    u.String(),
			Header: http.Header{
				"Accept":     {"image/*"},
				"User-Agent": {"review-sync/1.0"},
			},
			Timeout: p.timeout,
		})
		if err != nil {
			observability.ObserveExternal("avatar", p.tr.Name(), 0, time.Since(start))
			return nil, err
		}
		observability.ObserveExternal("avatar", resp.Via, resp.StatusCode, time.Since(start))

		switch {
		case resp.Redirect():
			if hop >= MaxRedirects {
				return nil, errTooManyRedirects
			}
			next, err := u.Parse(resp.Header.Get("Location"))
			if err != nil {
				return nil, fmt.Errorf("bad redirect: %w", err)
			}
			if !supportedScheme(next) {
				return nil, fmt.Errorf("redirect to unsupported scheme %q", next.Scheme)
			}
			u = next
		case resp.OK():
			return resp.Body, nil
		default:
			return nil, fmt.Errorf("avatar status %d", resp.StatusCode)
		}
	}
}

func (p *Pipeline) memoized(ctx context.Context, photoURL string) bool {
	if p.memo == nil {
		return false
	}
	var failed bool
	ok, err := p.memo.Get(ctx, memoKey(photoURL), &failed)
	return err == nil && ok && failed
}

func (p *Pipeline) remember(ctx context.Context, photoURL string) {
	if p.memo == nil || p.memoTTL <= 0 {
		return
	}
	if err := p.memo.Set(ctx, memoKey(photoURL), true, int(p.memoTTL.Seconds())); err != nil {
		log.Debug().Err(err).Msg("thumbnail failure memo not stored")
	}
}

func memoKey(photoURL string) string { return "thumbfail:" + photoURL }

func supportedScheme(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".thumb-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ domain.Thumbnailer = (*Pipeline)(nil)
