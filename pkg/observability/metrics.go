package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	GrantsTotal       *prometheus.CounterVec
	BearerChecksTotal *prometheus.CounterVec
	SignUpsTotal      *prometheus.CounterVec
	ThrottledTotal    prometheus.Counter

	// Reaper metrics
	ReaperDeletedTotal *prometheus.CounterVec
	ReaperErrorsTotal  *prometheus.CounterVec
}

// Label values shared by the auth metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeMissing  = "missing"
	OutcomeUnknown  = "unknown"
	OutcomeExpired  = "expired"

	TargetSessions  = "sessions"
	TargetAuthCodes = "auth_codes"
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keygate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		GrantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_token_grants_total",
				Help: "Token endpoint calls by grant type and outcome",
			},
			[]string{"grant_type", "outcome"},
		),
		BearerChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_bearer_checks_total",
				Help: "Bearer token validations by outcome",
			},
			[]string{"outcome"},
		),
		SignUpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_sign_ups_total",
				Help: "Sign-up attempts by outcome",
			},
			[]string{"outcome"},
		),
		ThrottledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_sign_in_throttled_total",
				Help: "Password grants refused by the sign-in throttle",
			},
		),

		ReaperDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_reaper_deleted_total",
				Help: "Rows removed by the expiry reaper",
			},
			[]string{"target"},
		),
		ReaperErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_reaper_errors_total",
				Help: "Failed expiry sweeps",
			},
			[]string{"target"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GrantsTotal,
		m.BearerChecksTotal,
		m.SignUpsTotal,
		m.ThrottledTotal,
		m.ReaperDeletedTotal,
		m.ReaperErrorsTotal,
	)

	return m
}

// NewNopMetrics returns metrics registered on a private registry, for tests
// and tools that do not expose /metrics.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// HTTPMetrics instruments every request. The route template is used as the
// label so ids do not explode cardinality.
func HTTPMetrics(metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		route := c.Route().Path
		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
