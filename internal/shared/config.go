package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"review_sync/internal/domain"
)

// CachePrefix namespaces every Redis key shared by the CLIs and the read API.
const CachePrefix = "review_sync:"

type Config struct {
	AppEnv      string
	HTTPAddr    string
	PushGateway string

	ScraperBase    string
	ScraperToken   string
	ScraperTimeout time.Duration
	ScraperRPS     float64
	Actors         map[domain.Platform]string
	CurlBin        string
	MaxReviews     int

	BusinessesFile string
	ReviewsDir     string
	ImagesDir      string
	ImagesPrefix   string
	ImageTimeout   time.Duration
	ImageSSRFGuard bool

	RedisAddr  string
	RedisDB    int
	RedisPass  string
	FailureTTL time.Duration
	CacheTTL   time.Duration
}

// Load reads the environment. A local .env file is applied first; variables
// that are already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		PushGateway: env("PUSHGATEWAY_URL", ""),

		ScraperBase:    strings.TrimRight(env("SCRAPER_BASE_URL", "https://api.apify.com/v2"), "/"),
		ScraperToken:   env("SCRAPER_API_TOKEN", ""),
		ScraperTimeout: time.Duration(atoi("SCRAPER_TIMEOUT_SECONDS", 1200)) * time.Second,
		ScraperRPS:     float64(atoi("SCRAPER_RPS", 1)),
		Actors: map[domain.Platform]string{
			domain.PlatformGoogle:     env("SCRAPER_ACTOR_GOOGLE", "compass~google-maps-reviews-scraper"),
			domain.PlatformFacebook:   env("SCRAPER_ACTOR_FACEBOOK", "apify~facebook-reviews-scraper"),
			domain.PlatformTrustpilot: env("SCRAPER_ACTOR_TRUSTPILOT", "nikita-sviridenko~trustpilot-reviews-scraper"),
		},
		CurlBin:    env("CURL_BIN", "curl"),
		MaxReviews: atoi("MAX_REVIEWS", 200),

		BusinessesFile: env("BUSINESSES_FILE", "data/businesses.json"),
		ReviewsDir:     env("REVIEWS_DIR", "data/reviews"),
		ImagesDir:      env("IMAGES_DIR", "public/images"),
		ImagesPrefix:   env("IMAGES_PUBLIC_PREFIX", "/images/"),
		ImageTimeout:   time.Duration(atoi("IMAGE_TIMEOUT_SECONDS", 30)) * time.Second,
		ImageSSRFGuard: envBool("IMAGE_SSRF_GUARD", true),

		RedisAddr:  env("REDIS_ADDR", ""),
		RedisPass:  env("REDIS_PASSWORD", ""),
		RedisDB:    atoi("REDIS_DB", 0),
		FailureTTL: time.Duration(atoi("THUMBNAIL_FAILURE_TTL_SECONDS", 86400)) * time.Second,
		CacheTTL:   time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
	}
	if c.ScraperRPS <= 0 {
		c.ScraperRPS = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
