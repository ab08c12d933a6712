package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	server "review_sync/internal/adapters/http_server"
	"review_sync/internal/app"
	"review_sync/internal/domain"
	"review_sync/internal/storage/files"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	st := files.New(filepath.Join(root, "reviews"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for _, r := range []struct {
		author string
		date   time.Time
		rating int
		src    domain.Platform
	}{
		{"Ana", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 5, domain.PlatformGoogle},
		{"Ben", time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), 4, domain.PlatformTrustpilot},
	} {
		if err := st.EnsureDir("acme"); err != nil {
			t.Fatal(err)
		}
		if _, err := st.Save(ctx, "acme", domain.Review{Content: "Great stay overall", Author: r.author, Date: r.date, Rating: r.rating}, r.src); err != nil {
			t.Fatal(err)
		}
	}

	images := filepath.Join(root, "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(images, "u1.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := server.New(5 * time.Second)
	srv.MountHandlers(&server.Handlers{Q: app.NewQueryService(st, nil, time.Minute)})
	srv.Static("/images/", images)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, root
}

func TestListReviews(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/businesses/acme/reviews")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("ETag") == "" {
		t.Fatalf("status %d etag %q", res.StatusCode, res.Header.Get("ETag"))
	}
	var page domain.ReviewsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Items[0].Author != "Ben" {
		t.Fatalf("unexpected page: %+v", page)
	}

	// conditional request
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/businesses/acme/reviews", nil)
	req.Header.Set("If-None-Match", res.Header.Get("ETag"))
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", res2.StatusCode)
	}
}

func TestListReviews_Source(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/businesses/acme/reviews?source=google&limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var page domain.ReviewsPage
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Source != domain.PlatformGoogle {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListReviews_Errors(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := map[string]int{
		"/v1/businesses/acme/reviews?limit=0":        http.StatusBadRequest,
		"/v1/businesses/acme/reviews?limit=abc":      http.StatusBadRequest,
		"/v1/businesses/acme/reviews?source=yelp":    http.StatusBadRequest,
		"/v1/businesses/Bad..Slug/reviews":           http.StatusBadRequest,
		"/v1/businesses/unknown/reviews":             http.StatusNotFound,
		"/v1/businesses/acme/reviews?source=twitter": http.StatusBadRequest,
	}
	for path, want := range cases {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != want {
			t.Errorf("%s: got %d want %d", path, res.StatusCode, want)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("%s: content type %q", path, ct)
		}
	}
}

func TestStaticImages(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/images/u1.jpg")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	res, err = http.Get(ts.URL + "/images/")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("listing should be hidden, got %d", res.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
}
