package observability

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/asyncx"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthChecker pings the database and Redis.
type HealthChecker struct {
	db      *sqlx.DB
	redis   redis.UniversalClient
	version string
}

func NewHealthChecker(db *sqlx.DB, redis redis.UniversalClient, version string) *HealthChecker {
	return &HealthChecker{db: db, redis: redis, version: version}
}

// DependencyStatus is the health of a single dependency
type DependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// HealthStatus is the body of /health
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// probeTimeout bounds each dependency ping.
const probeTimeout = 2 * time.Second

// Check pings every dependency concurrently.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Service:      "keygate",
		Version:      h.version,
		Timestamp:    time.Now(),
		Dependencies: map[string]DependencyStatus{},
	}

	var (
		names  []string
		probes []func(context.Context) (DependencyStatus, error)
	)
	if h.db != nil {
		names = append(names, "database")
		probes = append(probes, probe(func(ctx context.Context) error { return h.db.PingContext(ctx) }))
	}
	if h.redis != nil {
		names = append(names, "redis")
		probes = append(probes, probe(func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }))
	}

	// probes never return an error, the outcome is in DependencyStatus
	results, _ := asyncx.All(ctx, probes...)
	for i, dep := range results {
		status.Dependencies[names[i]] = dep
		if dep.Status != StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

func probe(ping func(context.Context) error) func(context.Context) (DependencyStatus, error) {
	return func(ctx context.Context) (DependencyStatus, error) {
		start := time.Now()
		_, err := asyncx.WithTimeout(ctx, probeTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, ping(ctx)
		})
		dep := DependencyStatus{Status: StatusHealthy, Latency: time.Since(start).Milliseconds()}
		if err != nil {
			dep.Status = StatusUnhealthy
			dep.Message = err.Error()
		}
		return dep, nil
	}
}

// Handler answers 200 when every dependency is healthy and 503 otherwise.
func (h *HealthChecker) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		status := h.Check(ctx)
		code := fiber.StatusOK
		if status.Status != StatusHealthy {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(status)
	}
}
