package thumbnail_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "review_sync/internal/adapters/redis"
	"review_sync/internal/adapters/thumbnail"
	"review_sync/internal/adapters/transport"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// avatarServer serves a PNG at /img, redirects /r -> /img and /loop -> /loop.
func avatarServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	img := pngBytes(t, 200, 120)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/img":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
		case "/r":
			http.Redirect(w, r, "/img", http.StatusFound)
		case "/loop":
			http.Redirect(w, r, "/loop", http.StatusMovedPermanently)
		case "/text":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newPipeline(dir string, opts ...thumbnail.Option) *thumbnail.Pipeline {
	tr := transport.NewHTTP(nil, false, 10<<20)
	return thumbnail.New(dir, "/images", tr, 5*time.Second, opts...)
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestAcquire_WritesBothResolutions(t *testing.T) {
	ts, hits := avatarServer(t)
	dir := t.TempDir()
	p := newPipeline(dir)

	if !p.Acquire(context.Background(), ts.URL+"/img", "101426519435404522118") {
		t.Fatalf("expected success")
	}
	paths := p.Paths("101426519435404522118")
	if w, h := decodeSize(t, paths.Base); w != 48 || h != 48 {
		t.Fatalf("base size %dx%d", w, h)
	}
	if w, h := decodeSize(t, paths.Retina); w != 96 || h != 96 {
		t.Fatalf("retina size %dx%d", w, h)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected 1 request, got %d", *hits)
	}
	if got := p.PublicPath("101426519435404522118"); got != "/images/101426519435404522118.jpg" {
		t.Fatalf("public path %s", got)
	}
}

func TestAcquire_ExistingFilesSkipNetwork(t *testing.T) {
	ts, hits := avatarServer(t)
	dir := t.TempDir()
	p := newPipeline(dir)

	paths := p.Paths("fb-12345")
	for _, f := range []string{paths.Base, paths.Retina} {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if !p.Acquire(context.Background(), ts.URL+"/img", "fb-12345") {
		t.Fatalf("expected true for existing thumbnails")
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatalf("expected no network call, got %d", *hits)
	}
}

func TestAcquire_SecondCallIsNoop(t *testing.T) {
	ts, hits := avatarServer(t)
	p := newPipeline(t.TempDir())
	ctx := context.Background()

	if !p.Acquire(ctx, ts.URL+"/img", "tp-1") || !p.Acquire(ctx, ts.URL+"/img", "tp-1") {
		t.Fatalf("expected both calls to succeed")
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected 1 request, got %d", *hits)
	}
}

func TestAcquire_FollowsRedirect(t *testing.T) {
	ts, hits := avatarServer(t)
	p := newPipeline(t.TempDir())

	if !p.Acquire(context.Background(), ts.URL+"/r", "u1") {
		t.Fatalf("expected success through redirect")
	}
	if atomic.LoadInt32(hits) != 2 {
		t.Fatalf("expected 2 requests, got %d", *hits)
	}
}

func TestAcquire_RedirectLoopIsBounded(t *testing.T) {
	ts, hits := avatarServer(t)
	p := newPipeline(t.TempDir())

	if p.Acquire(context.Background(), ts.URL+"/loop", "u1") {
		t.Fatalf("expected failure on redirect loop")
	}
	if got := atomic.LoadInt32(hits); got != thumbnail.MaxRedirects+1 {
		t.Fatalf("expected %d requests, got %d", thumbnail.MaxRedirects+1, got)
	}
}

func TestAcquire_Failures(t *testing.T) {
	ts, _ := avatarServer(t)
	cases := map[string]struct{ url, user string }{
		"404":          {ts.URL + "/missing", "u1"},
		"not an image": {ts.URL + "/text", "u2"},
		"empty url":    {"", "u3"},
		"empty user":   {ts.URL + "/img", ""},
		"bad scheme":   {"ftp://example.com/a.png", "u4"},
		"unparseable":  {"http://[::1", "u5"},
	}
	for name, tc := range cases {
		dir := t.TempDir()
		p := newPipeline(dir)
		if p.Acquire(context.Background(), tc.url, tc.user) {
			t.Errorf("%s: expected false", name)
		}
		if ents, _ := os.ReadDir(dir); len(ents) != 0 {
			t.Errorf("%s: expected no files, got %d", name, len(ents))
		}
	}
}

type dnsDown struct{}

func (dnsDown) Name() string { return "http" }
func (dnsDown) Do(context.Context, transport.Request) (*transport.Response, error) {
	return nil, &net.DNSError{Err: "temporary failure in name resolution", Name: "lh3.googleusercontent.com", IsTemporary: true}
}

type staticImage struct {
	body  []byte
	calls int32
}

func (s *staticImage) Name() string { return "curl" }
func (s *staticImage) Do(context.Context, transport.Request) (*transport.Response, error) {
	atomic.AddInt32(&s.calls, 1)
	return &transport.Response{StatusCode: 200, Body: s.body, Via: "curl"}, nil
}

func TestAcquire_DNSFailureUsesFallbackTransport(t *testing.T) {
	fallback := &staticImage{body: pngBytes(t, 64, 64)}
	dir := t.TempDir()
	p := thumbnail.New(dir, "/images/", transport.WithDNSFallback(dnsDown{}, fallback), time.Second)

	if !p.Acquire(context.Background(), "https://lh3.googleusercontent.com/a/photo.jpg", "101") {
		t.Fatalf("expected success via fallback")
	}
	if fallback.calls != 1 {
		t.Fatalf("expected one fallback call, got %d", fallback.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "101@2x.jpg")); err != nil {
		t.Fatalf("retina missing: %v", err)
	}
}

func TestAcquire_FailureMemoSkipsKnownDeadURL(t *testing.T) {
	ts, hits := avatarServer(t)
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0, "")
	defer cache.Close()

	p := newPipeline(t.TempDir(), thumbnail.WithFailureMemo(cache, time.Hour))
	ctx := context.Background()

	if p.Acquire(ctx, ts.URL+"/missing", "u1") {
		t.Fatalf("expected failure")
	}
	if p.Acquire(ctx, ts.URL+"/missing", "u1") {
		t.Fatalf("expected memoized failure")
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected a single request, got %d", *hits)
	}
}

func TestSafeID(t *testing.T) {
	if got := thumbnail.SafeID("fb-pfbid/../x y"); got != "fb-pfbid____x_y" {
		t.Fatalf("got %s", got)
	}
}
