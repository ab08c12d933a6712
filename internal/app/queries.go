package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"review_sync/internal/domain"
)

// ReviewReader is the read side of the review store.
type ReviewReader interface {
	List(slug string) ([]domain.StoredReview, error)
}

type QueryService struct {
	store    ReviewReader
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r ReviewReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: r, cache: c, cacheTTL: ttl}
}

// ListReviews returns the newest stored reviews of a business, optionally
// restricted to one source. Results are cached for cacheTTL.
func (s *QueryService) ListReviews(ctx context.Context, slug string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	src := "all"
	if pg.Source != nil {
		src = string(*pg.Source)
	}
	key := fmt.Sprintf("%s%d:%s", reviewsKeyPrefix(slug), pg.Limit, src)

	var out domain.ReviewsPage
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	all, err := s.store.List(slug)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	out = domain.ReviewsPage{Business: slug, Items: make([]domain.StoredReview, 0, len(all))}
	for _, r := range all {
		if pg.Source != nil && r.Source != *pg.Source {
			continue
		}
		out.Total++
		if pg.Limit <= 0 || len(out.Items) < pg.Limit {
			out.Items = append(out.Items, r)
		}
	}

	// optional size guard
	if s.cache != nil {
		if b, _ := json.Marshal(out); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
		}
	}
	return out, nil
}

func reviewsKeyPrefix(slug string) string { return "reviews:" + slug + ":" }

// InvalidateReviews drops every cached page of slug. A nil cache is a no-op.
func InvalidateReviews(ctx context.Context, c domain.Cache, slug string) error {
	if c == nil {
		return nil
	}
	return c.DelPrefix(ctx, reviewsKeyPrefix(slug))
}
