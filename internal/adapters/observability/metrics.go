package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "innkeeper", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	PricingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "pricing_operations_total", Help: "Quote computations."},
		[]string{"op", "outcome"}, // outcome: ok|rejected|failed
	)
	GroupMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "group_mutations_total", Help: "Consistency-maintainer operations."},
		[]string{"op", "outcome"},
	)
	MissingRateNights = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "missing_rate_nights_total", Help: "Nights priced at zero for lack of a configured rate."},
	)
	LockEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "group_lock_events_total", Help: "Group lock acquisitions and contention."},
		[]string{"event"}, // event: acquired|busy|timeout|released
	)
	RepriceDrift = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "innkeeper", Name: "reprice_drift_total", Help: "Stored totals found different from recomputed totals."},
	)
)

// Serve starts the standalone metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, PricingOps, GroupMutations, MissingRateNights, LockEvents, RepriceDrift)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObservePricing(op, outcome string) {
	PricingOps.WithLabelValues(op, outcome).Inc()
}

func ObserveGroupMutation(op, outcome string) {
	GroupMutations.WithLabelValues(op, outcome).Inc()
}

func ObserveMissingRateNights(n int) {
	MissingRateNights.Add(float64(n))
}

func ObserveLock(event string) { // event: acquired|busy|timeout|released
	LockEvents.WithLabelValues(event).Inc()
}

func ObserveRepriceDrift() {
	RepriceDrift.Inc()
}
