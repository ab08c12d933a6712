package app

import (
	"time"

	"review_sync/internal/domain"
)

type platformSpec struct {
	// incremental platforms accept a start date and are asked only for newer reviews
	incremental bool
	input       func(b domain.Business, opts FetchOptions) map[string]any
	flatten     func(items []map[string]any) []map[string]any
	normalize   func(raw map[string]any, now time.Time) domain.Review
}

var platformSpecs = map[domain.Platform]platformSpec{
	domain.PlatformGoogle: {
		incremental: true,
		input: func(b domain.Business, opts FetchOptions) map[string]any {
			in := map[string]any{
				"startUrls":   startURLs("https://www.google.com/maps/place/?q=place_id:" + b.GooglePlaceID),
				"maxReviews":  opts.MaxReviews,
				"reviewsSort": "newest",
				"language":    "en",
			}
			if opts.StartDate != "" {
				in["reviewsStartDate"] = opts.StartDate
			}
			return in
		},
		flatten:   flattenGoogle,
		normalize: NormalizeGoogle,
	},
	domain.PlatformFacebook: {
		input: func(b domain.Business, opts FetchOptions) map[string]any {
			return map[string]any{
				"startUrls":  startURLs(b.FacebookPageURL),
				"maxReviews": opts.MaxReviews,
			}
		},
		flatten:   identity,
		normalize: NormalizeFacebook,
	},
	domain.PlatformTrustpilot: {
		input: func(b domain.Business, opts FetchOptions) map[string]any {
			return map[string]any{
				"startUrls":  startURLs(b.TrustpilotURL),
				"maxReviews": opts.MaxReviews,
			}
		},
		flatten:   identity,
		normalize: NormalizeTrustpilot,
	},
}

func startURLs(u string) []map[string]string {
	return []map[string]string{{"url": u}}
}

func identity(items []map[string]any) []map[string]any { return items }
