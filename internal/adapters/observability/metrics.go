package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "transport", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help: "Outbound request duration seconds.",
			// scraping runs take minutes
			Buckets: []float64{.05, .25, 1, 5, 15, 60, 180, 600, 1200},
		},
		[]string{"service", "transport"},
	)
	ReviewOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "processed_total", Help: "Fetched reviews by outcome."},
		[]string{"platform", "outcome"}, // saved|duplicate|no_content|below_rating
	)
	BusinessRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "business_runs_total", Help: "Per-business fetch decisions."},
		[]string{"platform", "outcome"}, // fetched|skipped|failed
	)
	Thumbnails = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "thumbnails_total", Help: "Avatar thumbnail acquisitions."},
		[]string{"outcome"}, // exists|created|failed|memoized
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		ReviewOutcomes, BusinessRuns, Thumbnails, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Push sends the batch counters to a Pushgateway. Empty url disables it.
func Push(url, job string, reg *prometheus.Registry) {
	if url == "" {
		return
	}
	if err := push.New(url, job).Gatherer(reg).Push(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("pushgateway push failed")
		return
	}
	log.Info().Str("job", job).Msg("metrics pushed")
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call. status 0 means the call
// failed before a response arrived.
func ObserveExternal(service, transport string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, transport, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, transport).Observe(dur.Seconds())
}

func ObserveReview(platform, outcome string) {
	ReviewOutcomes.WithLabelValues(platform, outcome).Inc()
}

func ObserveBusiness(platform, outcome string) {
	BusinessRuns.WithLabelValues(platform, outcome).Inc()
}

func ObserveThumbnail(outcome string) { // exists|created|failed|memoized
	Thumbnails.WithLabelValues(outcome).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
