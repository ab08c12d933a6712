package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"review_sync/internal/adapters/observability"
	"review_sync/internal/domain"
)

var ErrBusinessNotFound = errors.New("business not found")

type IngestionService struct {
	scraper    domain.ScraperClient
	store      domain.ReviewStore
	actors     map[domain.Platform]string
	maxReviews int
	now        func() time.Time
}

func NewIngestionService(c domain.ScraperClient, st domain.ReviewStore, actors map[domain.Platform]string, maxReviews int) *IngestionService {
	return &IngestionService{scraper: c, store: st, actors: actors, maxReviews: maxReviews, now: time.Now}
}

// WithClock replaces time.Now, for tests.
func (s *IngestionService) WithClock(now func() time.Time) *IngestionService {
	s.now = now
	return s
}

// BusinessResult summarizes one business of a run.
type BusinessResult struct {
	Slug        string
	Skipped     bool
	Fetched     int
	Saved       int
	Duplicates  int
	NoContent   int
	BelowRating int
}

// Run processes every business configured for p, in order, and returns a
// new configuration list carrying the updated fetch timestamps. The first
// error aborts the run; the caller must then not persist anything.
// only, when set, restricts the run to the business with that slug.
func (s *IngestionService) Run(ctx context.Context, p domain.Platform, businesses []domain.Business, only string) ([]domain.Business, []BusinessResult, error) {
	if _, ok := platformSpecs[p]; !ok {
		return nil, nil, fmt.Errorf("unsupported platform %q", p)
	}

	out := make([]domain.Business, 0, len(businesses))
	var summary []BusinessResult
	matched := false

	for _, b := range businesses {
		if b.Identifier(p) == "" || (only != "" && b.Slug != only) {
			out = append(out, b)
			continue
		}
		matched = true

		if !ShouldFetch(b, p, s.now()) {
			log.Info().Str("business", b.Slug).Str("platform", string(p)).
				Int("frequency_days", b.FetchFrequencyDays).Msg("fetch not due, skipping")
			observability.ObserveBusiness(string(p), "skipped")
			summary = append(summary, BusinessResult{Slug: b.Slug, Skipped: true})
			out = append(out, b)
			continue
		}

		res, err := s.IngestBusiness(ctx, p, b)
		if err != nil {
			observability.ObserveBusiness(string(p), "failed")
			return nil, summary, fmt.Errorf("%s/%s: %w", p, b.Slug, err)
		}
		observability.ObserveBusiness(string(p), "fetched")
		summary = append(summary, res)
		out = append(out, b.WithLastFetched(p, s.now()))
	}

	if only != "" && !matched {
		return nil, summary, fmt.Errorf("%w: %q has no %s identifier configured", ErrBusinessNotFound, only, p)
	}
	return out, summary, nil
}

// IngestBusiness runs fetch, normalize, filter and save for one business.
func (s *IngestionService) IngestBusiness(ctx context.Context, p domain.Platform, b domain.Business) (BusinessResult, error) {
	plat := platformSpecs[p]
	res := BusinessResult{Slug: b.Slug}

	if err := s.store.EnsureDir(b.Slug); err != nil {
		return res, err
	}
	opts, err := PlanFetch(b, p, s.store, s.maxReviews)
	if err != nil {
		return res, err
	}

	l := log.With().Str("business", b.Slug).Str("platform", string(p)).Logger()
	l.Info().Int("max_reviews", opts.MaxReviews).Str("start_date", opts.StartDate).Msg("fetching reviews")

	items, err := s.scraper.RunActor(ctx, s.actors[p], plat.input(b, opts))
	if err != nil {
		return res, err
	}
	raws := plat.flatten(items)
	res.Fetched = len(raws)

	now := s.now()
	for _, raw := range raws {
		r := plat.normalize(raw, now)
		if !HasContent(r) {
			res.NoContent++
			observability.ObserveReview(string(p), "no_content")
			continue
		}
		if !MeetsMinRating(r, b.MinimumStarRating) {
			res.BelowRating++
			observability.ObserveReview(string(p), "below_rating")
			continue
		}

		saved, err := s.store.Save(ctx, b.Slug, r, p)
		if err != nil {
			return res, err
		}
		if !saved {
			res.Duplicates++
			observability.ObserveReview(string(p), "duplicate")
			l.Debug().Str("author", r.Author).Time("date", r.Date).Msg("already fetched")
			continue
		}
		res.Saved++
		observability.ObserveReview(string(p), "saved")
		l.Info().Str("author", r.Author).Str("rating", domain.RatingLabel(r, p)).Msg("saved review")
	}

	l.Info().
		Int("fetched", res.Fetched).
		Int("saved", res.Saved).
		Int("duplicates", res.Duplicates).
		Int("no_content", res.NoContent).
		Int("below_rating", res.BelowRating).
		Msg("business done")
	return res, nil
}
