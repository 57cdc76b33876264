package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/freshreach/opal-sync-monitor/internal/auth"
	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/gateway"
	"github.com/freshreach/opal-sync-monitor/internal/health"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/metrics"
	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/notify"
	"github.com/freshreach/opal-sync-monitor/internal/opal"
	"github.com/freshreach/opal-sync-monitor/internal/store"
	"github.com/freshreach/opal-sync-monitor/internal/tracker"
	"github.com/freshreach/opal-sync-monitor/internal/validation"

	_ "github.com/freshreach/opal-sync-monitor/docs" // swagger docs
)

// @title OPAL Sync Monitor API
// @version 1.0
// @description Monitoring and validation service for OPAL Force Sync workflows
// @description
// @description Ingests OPAL webhook events, tracks workflow and agent state, reconciles
// @description completed syncs into green/yellow/red verdicts and aggregates system health.

// @contact.name API Support
// @contact.email support@freshreach.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// unconfiguredPlatform stands in for the OPAL client when credentials are
// missing. Probes report a configuration error so health shows degraded
// instead of the service refusing to boot.
type unconfiguredPlatform struct{}

func (unconfiguredPlatform) Ping(context.Context) (time.Duration, error) {
	return 0, fmt.Errorf("%w: opal.api_key is required", models.ErrConfiguration)
}

func (unconfiguredPlatform) RecentIngestSeen(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%w: opal.api_key is required", models.ErrConfiguration)
}

func (unconfiguredPlatform) ResultsAvailable(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%w: opal.api_key is required", models.ErrConfiguration)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	if err := initTracer(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Logger.Info().Msg("connecting to PostgreSQL")
	pool, err := store.Connect(ctx, cfg.DatabaseURL, 10)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Logger.Info().Msg("connected to PostgreSQL")

	pg := store.NewPostgres(pool)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
	}

	agentTracker := tracker.NewAgentTracker(store.NewMemorySnapshotStore())
	workflowTracker := tracker.NewWorkflowTracker(pg, agentTracker, cfg.Tracker)

	var (
		syncTrigger   gateway.SyncTrigger
		platformProbe validation.PlatformProbe = unconfiguredPlatform{}
		platformPing  health.PlatformPinger    = unconfiguredPlatform{}
	)
	opalClient, err := opal.NewClient(cfg.OPAL)
	switch {
	case err == nil:
		syncTrigger = opalClient
		platformProbe = opalClient
		platformPing = opalClient
	case errors.Is(err, models.ErrConfiguration):
		logger.Logger.Warn().Err(err).Msg("OPAL client not configured, platform probes disabled")
	default:
		logger.Logger.Fatal().Err(err).Msg("failed to create OPAL client")
	}

	reconciler := validation.NewReconciler(pg, pg, pg, platformProbe, notifier, cfg.Validation, cfg.Tracker.ExpectedAgents)
	healthAgg := health.NewAggregator(pg, pg, pg, platformPing, pg, notifier, cfg.Health)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize JWT manager")
	}

	monitorMetrics, err := metrics.NewMonitorMetrics()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	handler := gateway.NewHandler(
		workflowTracker, agentTracker, pg, pg, reconciler,
		healthAgg, syncTrigger, pg, jwtManager, monitorMetrics, *cfg,
	)
	agentStream := gateway.NewAgentStream(agentTracker, 2*time.Second)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLoggingMiddleware())

	// Liveness and readiness stay at the root for the platform's probes.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := pg.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	// Public routes
	api.POST("/auth/login", handler.Login)
	api.POST("/webhooks/opal", handler.ReceiveWebhook)
	api.GET("/health", handler.GetHealth)
	api.GET("/sync/status/:workflow_id", handler.SyncStatus)
	api.GET("/workflows/stats", handler.GetWorkflowStats)
	api.GET("/workflows/:id", handler.GetWorkflow)
	api.GET("/agents/status", handler.GetAgentStatuses)
	api.GET("/validation/records", handler.ListValidations)
	api.GET("/ws/agents", agentStream.Stream)

	// Operator routes
	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))
	protected.POST("/sync/trigger", handler.TriggerSync)
	protected.POST("/validation/run", handler.RunValidation)
	protected.POST("/health/refresh", handler.RefreshHealth)
	protected.POST("/cron/cleanup", handler.RunCleanup)

	go reconcileLoop(ctx, reconciler, cfg.Validation)
	go cleanupLoop(ctx, pg, cfg.Cleanup)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info().Int("port", cfg.Port).Msg("starting OPAL sync monitor API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Logger.Info().Msg("server exited")
	os.Exit(0)
}

// reconcileLoop runs the validation reconciler on a fixed interval until
// shutdown.
func reconcileLoop(ctx context.Context, reconciler *validation.Reconciler, cfg config.ValidationConfig) {
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := reconciler.Run(ctx, cfg.BatchLimit, false)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("scheduled validation run failed")
				continue
			}
			if result.Processed > 0 {
				logger.Logger.Info().Int("processed", result.Processed).Msg("scheduled validation run completed")
			}
		}
	}
}

// cleanupLoop enforces event store retention until shutdown.
func cleanupLoop(ctx context.Context, pg *store.Postgres, cfg config.CleanupConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			horizon := time.Now().UTC().Add(-cfg.Retention)
			deleted, err := pg.DeleteEventsBefore(ctx, horizon)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("event cleanup failed")
				continue
			}
			if deleted > 0 {
				logger.Logger.Info().Int64("deleted", deleted).Msg("event cleanup completed")
			}
		}
	}
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// requestLoggingMiddleware emits one structured log line per request.
func requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := logger.Logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry = logger.Logger.Error()
		}

		entry = entry.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP())

		if userID, ok := c.Get("user_id"); ok {
			entry = entry.Interface("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.Str("errors", c.Errors.String())
		}

		entry.Msg("request")
	}
}
