// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, metrics, audit sink)
// and composes bounded-context containers.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/asyncx"
	"github.com/Abraxas-365/keygate/pkg/config"
	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/bootstrap"
	"github.com/Abraxas-365/keygate/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectDelay    = time.Second
	connectMaxDelay = 8 * time.Second
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB       *sqlx.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Health   *observability.HealthChecker
	Audit    auth.AuditService

	// Bounded-context containers
	IAM *iamcontainer.Container

	closeAudit func() error
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, metrics, audit
// ---------------------------------------------------------------------------

func connectBackoff(target string) asyncx.Backoff {
	return asyncx.Backoff{
		Attempts: connectAttempts,
		Initial:  connectDelay,
		Max:      connectMaxDelay,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logx.WithError(err).Warnf("  ⏳ %s not ready (attempt %d/%d), retrying in %s", target, attempt, connectAttempts, wait)
		},
	}
}

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")
	ctx := context.Background()

	// 1. Database
	db, err := asyncx.Retry(ctx, connectBackoff("Postgres"), func(ctx context.Context) (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "postgres", c.Config.Database.DSN())
	})
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if err := store.Migrate(ctx, db); err != nil {
		logx.Fatalf("Failed to apply schema: %v", err)
	}
	logx.Info("  ✅ Schema applied")

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := asyncx.Retry(ctx, connectBackoff("Redis"), func(ctx context.Context) (string, error) {
		return c.Redis.Ping(ctx).Result()
	}); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Metrics
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, c.Config.Database.Name),
	)
	c.Metrics = observability.NewMetrics(c.Registry)
	c.Health = observability.NewHealthChecker(c.DB, c.Redis, c.Config.Server.Version)
	logx.Info("  ✅ Metrics registry ready")

	// 4. Audit sink
	c.initAudit()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initAudit() {
	switch c.Config.Audit.Sink {
	case "amqp":
		svc, closeFn, err := authinfra.DialAMQPAudit(c.Config.Audit.AMQPURL, c.Config.Audit.Queue)
		if err != nil {
			logx.Fatalf("Failed to connect audit broker: %v", err)
		}
		c.Audit = svc
		c.closeAudit = closeFn
		logx.Infof("  ✅ Audit events published to queue %s", c.Config.Audit.Queue)
	default:
		c.Audit = authinfra.NewLogxAuditService()
		logx.Info("  ✅ Audit events written to the log")
	}
}

// ---------------------------------------------------------------------------
// Module composition — each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:      c.DB,
		Redis:   c.Redis,
		Cfg:     c.Config,
		Metrics: c.Metrics,
		Audit:   c.Audit,
	})
}

// Bootstrap seeds reference data and reconciles the administrator. Any store
// failure is fatal; a conflicting configuration is only reported.
func (c *Container) Bootstrap(ctx context.Context) {
	logx.Info("🌱 Bootstrapping...")

	report, err := c.IAM.Bootstrap(ctx)
	if err != nil {
		logx.Fatalf("Bootstrap failed: %v", err)
	}
	if report.Status == bootstrap.StatusConflict {
		logx.Warn("  ⚠️  Administrator left unchanged, see conflicts above")
		return
	}
	logx.Infof("  ✅ Administrator %s", report.Status)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")
	c.IAM.StartBackgroundServices(ctx)
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.closeAudit != nil {
		if err := c.closeAudit(); err != nil {
			logx.Errorf("Error closing audit broker: %v", err)
		} else {
			logx.Info("  ✅ Audit broker connection closed")
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
