package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"review_sync/internal/app"
	"review_sync/internal/domain"
)

// ---- fakes ----

type fakeReader struct {
	items []domain.StoredReview
	err   error
	calls int
}

func (f *fakeReader) List(slug string) ([]domain.StoredReview, error) {
	f.calls++
	return f.items, f.err
}

type fakeCache struct {
	store map[string]any
	ttls  map[string]int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.ReviewsPage); ok {
		*d = v.(domain.ReviewsPage)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
		c.ttls = map[string]int{}
	}
	c.store[key] = v
	c.ttls[key] = ttlSec
	return nil
}
func (c *fakeCache) DelPrefix(ctx context.Context, prefix string) error {
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
		}
	}
	return nil
}

func stored(author string, src domain.Platform, date string) domain.StoredReview {
	d, _ := time.Parse("2006-01-02", date)
	return domain.StoredReview{Content: "Lovely place to stay", Author: author, Date: d, Rating: 5, Source: src}
}

// ---- tests ----

func TestListReviews_CacheMissThenHit(t *testing.T) {
	r := &fakeReader{items: []domain.StoredReview{stored("Ana", domain.PlatformGoogle, "2024-06-01")}}
	cache := &fakeCache{}
	q := app.NewQueryService(r, cache, 10*time.Minute)

	out, err := q.ListReviews(context.Background(), "acme", domain.PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Business != "acme" || out.Total != 1 || len(out.Items) != 1 || out.Items[0].Author != "Ana" {
		t.Fatalf("unexpected page: %+v", out)
	}
	if cache.ttls["reviews:acme:10:all"] != 600 {
		t.Fatalf("expected 600s ttl, got %v", cache.ttls)
	}

	// Mutate the reader to ensure the second read comes from cache
	r.items[0].Author = "Changed"
	out2, _ := q.ListReviews(context.Background(), "acme", domain.PageQuery{Limit: 10})
	if out2.Items[0].Author != "Ana" || r.calls != 1 {
		t.Fatalf("expected cached page, got %+v after %d reads", out2, r.calls)
	}
}

func TestListReviews_SourceAndLimit(t *testing.T) {
	r := &fakeReader{items: []domain.StoredReview{
		stored("A", domain.PlatformGoogle, "2024-06-03"),
		stored("B", domain.PlatformFacebook, "2024-06-02"),
		stored("C", domain.PlatformGoogle, "2024-06-01"),
		stored("D", domain.PlatformGoogle, "2024-05-01"),
	}}
	q := app.NewQueryService(r, nil, time.Minute)

	src := domain.PlatformGoogle
	out, err := q.ListReviews(context.Background(), "acme", domain.PageQuery{Limit: 2, Source: &src})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Total != 3 || len(out.Items) != 2 || out.Items[0].Author != "A" || out.Items[1].Author != "C" {
		t.Fatalf("unexpected page: %+v", out)
	}

	all, _ := q.ListReviews(context.Background(), "acme", domain.PageQuery{})
	if all.Total != 4 || len(all.Items) != 4 {
		t.Fatalf("no limit should return everything: %+v", all)
	}
}

func TestListReviews_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeReader{err: domain.ErrNotFound}, &fakeCache{}, time.Minute)
	if _, err := q.ListReviews(context.Background(), "nope", domain.PageQuery{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestInvalidateReviews(t *testing.T) {
	r := &fakeReader{items: []domain.StoredReview{stored("Ana", domain.PlatformGoogle, "2024-06-01")}}
	cache := &fakeCache{}
	q := app.NewQueryService(r, cache, time.Minute)
	ctx := context.Background()

	src := domain.PlatformGoogle
	_, _ = q.ListReviews(ctx, "acme", domain.PageQuery{Limit: 10})
	_, _ = q.ListReviews(ctx, "acme", domain.PageQuery{Limit: 5, Source: &src})
	_, _ = q.ListReviews(ctx, "acme-two", domain.PageQuery{Limit: 10})
	if len(cache.store) != 3 {
		t.Fatalf("expected 3 cached pages, got %v", cache.store)
	}

	if err := app.InvalidateReviews(ctx, cache, "acme"); err != nil {
		t.Fatal(err)
	}
	if len(cache.store) != 1 {
		t.Fatalf("only acme-two should remain cached: %v", cache.store)
	}

	// newly saved reviews show up on the next read
	r.items = append(r.items, stored("Ben", domain.PlatformGoogle, "2024-06-05"))
	out, _ := q.ListReviews(ctx, "acme", domain.PageQuery{Limit: 10})
	if out.Total != 2 {
		t.Fatalf("expected fresh page, got %+v", out)
	}

	if err := app.InvalidateReviews(ctx, nil, "acme"); err != nil {
		t.Fatalf("nil cache is a no-op: %v", err)
	}
}
