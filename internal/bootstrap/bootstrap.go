// Package bootstrap wires one platform fetch run for the CLI entry points.
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_sync/internal/adapters/observability"
	redisad "review_sync/internal/adapters/redis"
	"review_sync/internal/adapters/scraper"
	"review_sync/internal/adapters/thumbnail"
	"review_sync/internal/adapters/transport"
	"review_sync/internal/app"
	"review_sync/internal/domain"
	"review_sync/internal/shared"
	"review_sync/internal/storage/files"
)

// maxImageBytes caps one avatar download.
const maxImageBytes = 10 << 20

// Run executes a fetch run for p and returns the process exit code. args
// are the command line arguments after the program name; the first one,
// when present, restricts the run to that business slug.
func Run(p domain.Platform, args []string) int {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var only string
	if len(args) > 0 {
		only = args[0]
	}
	return run(ctx, cfg, p, only)
}

func run(ctx context.Context, cfg shared.Config, p domain.Platform, only string) int {
	l := log.With().Str("platform", string(p)).Logger()

	if cfg.ScraperToken == "" {
		l.Error().Msg("SCRAPER_API_TOKEN is not set")
		return 1
	}
	businesses, err := files.LoadBusinesses(cfg.BusinessesFile)
	if err != nil {
		l.Error().Err(err).Str("file", cfg.BusinessesFile).Msg("cannot read business configuration")
		return 1
	}

	reg := observability.InitRegistry()
	defer observability.Push(cfg.PushGateway, "review_sync_"+string(p), reg)

	apiTr := transport.WithDNSFallback(
		transport.NewHTTP(&http.Client{}, true, 0),
		transport.NewCurl(cfg.CurlBin),
	)
	client, err := scraper.New(cfg.ScraperBase, cfg.ScraperToken, apiTr, cfg.ScraperTimeout, cfg.ScraperRPS)
	if err != nil {
		l.Error().Err(err).Msg("failed to initialize scraping API client")
		return 1
	}

	var (
		opts  []thumbnail.Option
		cache domain.Cache
	)
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, shared.CachePrefix)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			l.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, thumbnail failure memo disabled")
		} else {
			cache = rc
			opts = append(opts, thumbnail.WithFailureMemo(rc, cfg.FailureTTL))
		}
	}
	thumbs := thumbnail.New(cfg.ImagesDir, cfg.ImagesPrefix, imageTransport(cfg), cfg.ImageTimeout, opts...)
	store := files.New(cfg.ReviewsDir, thumbs)

	l.Info().
		Str("base", cfg.ScraperBase).
		Str("businesses", cfg.BusinessesFile).
		Str("only", only).
		Msg("fetch run starting")

	svc := app.NewIngestionService(client, store, cfg.Actors, cfg.MaxReviews)
	updated, summary, err := svc.Run(ctx, p, businesses, only)
	if err != nil {
		l.Error().Err(err).Msg("fetch run aborted, business configuration left unchanged")
		return 1
	}

	if err := files.SaveBusinesses(cfg.BusinessesFile, updated); err != nil {
		l.Error().Err(err).Str("file", cfg.BusinessesFile).Msg("failed to persist fetch timestamps")
		return 1
	}

	saved := 0
	for _, r := range summary {
		saved += r.Saved
		if r.Saved == 0 {
			continue
		}
		if err := app.InvalidateReviews(ctx, cache, r.Slug); err != nil {
			l.Warn().Err(err).Str("business", r.Slug).Msg("failed to invalidate cached reviews")
		}
	}
	l.Info().Int("businesses", len(summary)).Int("saved", saved).Msg("fetch run completed")
	return 0
}

// imageTransport fetches avatars without following redirects so the
// pipeline can bound and revalidate every hop. With the SSRF guard on, the
// curl fallback is pinned to a vetted public address as well.
func imageTransport(cfg shared.Config) transport.Transport {
	hc := &http.Client{Timeout: cfg.ImageTimeout}
	curl := transport.NewCurl(cfg.CurlBin)
	curl.MaxOutput = maxImageBytes
	if cfg.ImageSSRFGuard {
		hc = transport.NewSafeClient(cfg.ImageTimeout)
		curl.Pin = transport.PublicPinner(nil)
	} else {
		curl.FollowRedirects = true
		curl.MaxRedirects = thumbnail.MaxRedirects
	}
	return transport.WithDNSFallback(transport.NewHTTP(hc, false, maxImageBytes), curl)
}
