package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Abraxas-365/keygate/pkg/config"
	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Invalid configuration: %v", err)
	}

	logx.Info("🚀 Starting keygate...")

	// 2. Initialize Dependency Container
	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container.Bootstrap(ctx)
	container.StartBackgroundServices(ctx)

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "keygate",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg.Server.Debug),
		IdleTimeout:           120 * time.Second,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestContext)

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID, WWW-Authenticate",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Use(observability.HTTPMetrics(container.Metrics))

	// 5. Health Check & Metrics
	app.Get("/health", container.Health.Handler())
	app.Get("/metrics", observability.Handler(container.Registry))

	// 6. Register Routes
	container.IAM.RegisterRoutes(app)
	logx.Info("✓ IAM routes registered")

	// 7. 404 Handler
	app.Use(notFoundHandler)

	printRouteSummary()

	// 8. Start Server with Graceful Shutdown
	startServer(app, cfg.Server.Port, cancel)
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.Get(fiber.HeaderXRequestID),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler logs the failure and renders it through errx.
func globalErrorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		entry := logx.WithContext(c.UserContext()).WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
			"ip":     c.IP(),
		})

		if e, ok := err.(*fiber.Error); ok {
			entry.Debugf("Request error: %v", err)
			return c.Status(e.Code).JSON(errx.HTTPErrorResponse{
				Error:     e.Message,
				Code:      "FIBER_ERROR",
				Status:    e.Code,
				RequestID: c.GetRespHeader(fiber.HeaderXRequestID),
			})
		}

		var e *errx.Error
		if errx.As(err, &e) && e.HTTPStatus < fiber.StatusInternalServerError {
			entry.Debugf("Request error: %v", err)
		} else {
			entry.Errorf("Request error: %v", err)
		}

		if debug && e != nil && e.Err != nil {
			e = e.WithDetail("underlying_error", e.Err.Error())
		}
		if e != nil {
			return errx.Respond(c, e)
		}
		return errx.Respond(c, err)
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ OAuth: /oauth/token, /oauth/sign_up, /oauth/code, /oauth/sign_out, /oauth/sign_out_all")
	logx.Info("   ├─ User: /api/user/*, /api/profiles/:account_id")
	logx.Info("   ├─ Invites: /api/invites/*")
	logx.Info("   └─ Ops: /health, /metrics, /api/ping")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, port string, stopBackground context.CancelFunc) {
	go func() {
		logx.Info(strings.Repeat("=", 61))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info(strings.Repeat("=", 61))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app, stopBackground)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	stopBackground()

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}

// requestContext copies the request id into the user context for logx.WithContext.
func requestContext(c *fiber.Ctx) error {
	ctx := context.WithValue(c.UserContext(), kernel.RequestIDKey, c.GetRespHeader(fiber.HeaderXRequestID))
	c.SetUserContext(ctx)
	return c.Next()
}
