package app

import (
	"time"

	"review_sync/internal/domain"
)

// ShouldFetch reports whether the cooldown for p has elapsed. Elapsed time
// counts whole days; exactly FetchFrequencyDays days is due.
func ShouldFetch(b domain.Business, p domain.Platform, now time.Time) bool {
	last := b.LastFetchedFor(p)
	if last == nil || b.FetchFrequencyDays <= 0 {
		return true
	}
	days := int(now.Sub(*last).Hours() / 24)
	return days >= b.FetchFrequencyDays
}

type FetchOptions struct {
	MaxReviews int
	// StartDate (YYYY-MM-DD) bounds server-side filtering; only Google honors it.
	StartDate string
}

// PlanFetch computes the request bounds for one business.
func PlanFetch(b domain.Business, p domain.Platform, store domain.ReviewStore, maxReviews int) (FetchOptions, error) {
	opts := FetchOptions{MaxReviews: b.NumberOfReviews}
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = maxReviews
	}
	if !platformSpecs[p].incremental {
		return opts, nil
	}
	start, err := store.LatestReviewDate(b.Slug)
	if err != nil {
		return opts, err
	}
	opts.StartDate = start
	return opts, nil
}
