package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// ScraperClient runs a scraping actor synchronously and returns its dataset items.
type ScraperClient interface {
	RunActor(ctx context.Context, actor string, input any) ([]map[string]any, error)
}

// ReviewStore persists canonical reviews, one file per review.
type ReviewStore interface {
	EnsureDir(slug string) error
	// Save reports whether the review was newly written; false means a
	// review with the same derived name already exists.
	Save(ctx context.Context, slug string, r Review, src Platform) (bool, error)
	// LatestReviewDate returns the newest stored review date plus one day
	// (YYYY-MM-DD), or "" when nothing readable is stored.
	LatestReviewDate(slug string) (string, error)
	List(slug string) ([]StoredReview, error)
}

type Thumbnailer interface {
	Acquire(ctx context.Context, photoURL, userID string) bool
	PublicPath(userID string) string
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	// DelPrefix drops every key starting with prefix.
	DelPrefix(ctx context.Context, prefix string) error
}

// Read models & queries

type PageQuery struct {
	Limit  int
	Source *Platform
}

type ReviewsPage struct {
	Business string         `json:"business"`
	Items    []StoredReview `json:"items"`
	Total    int            `json:"total"`
}
