// Package main is the entry point for the outage risk API server.
//
// It loads configuration, opens the database pool, builds vendor clients,
// the risk model and the prediction engine, mounts the HTTP handlers on the
// core chassis and serves until SIGINT or SIGTERM. When RETRAIN_INTERVAL is
// set, the model is retrained in the background on that interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jonboulle/clockwork"

	"outagewatch/internal/alerts"
	"outagewatch/internal/api/handlers"
	"outagewatch/internal/config"
	"outagewatch/internal/core"
	"outagewatch/internal/db"
	"outagewatch/internal/external"
	"outagewatch/internal/observability"
	"outagewatch/internal/prediction"
	"outagewatch/internal/queue"
	"outagewatch/internal/risk"
	"outagewatch/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("outagewatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
		logger.Info("database schema ensured")
	}

	clock := clockwork.NewRealClock()

	clients, err := external.NewClientRegistry(cfg, logger, clock)
	if err != nil {
		return fmt.Errorf("creating vendor clients: %w", err)
	}

	metrics := observability.NewMetrics()
	recorder := observability.Multi{metrics}
	publisher := queue.AlertEventPublisher(queue.NopPublisher{})

	if cfg.Observability.CloudWatchEnable || cfg.AWS.AlertEventsQueue != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		if cfg.Observability.CloudWatchEnable {
			cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			recorder = append(recorder, observability.NewCloudWatchRecorder(cw, cfg.Observability.MetricNamespace, logger))
			logger.Info("CloudWatch metrics enabled", "namespace", cfg.Observability.MetricNamespace)
		}
		if cfg.AWS.AlertEventsQueue != "" {
			sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
				if cfg.AWS.EndpointURL != "" {
					o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				}
			})
			publisher = queue.NewSQSAlertPublisher(sqsClient, cfg.AWS.AlertEventsQueue, clock, logger)
			logger.Info("alert events publishing enabled", "queue_url", cfg.AWS.AlertEventsQueue)
		}
	}

	sites := db.NewSiteRepository(pool)
	outages := db.NewOutageRepository(pool)
	weather := db.NewWeatherRepository(pool)

	model := risk.NewModel(
		risk.WithTrees(cfg.Model.Trees),
		risk.WithSeed(cfg.Model.Seed),
		risk.WithClock(clock),
	)

	escalator := alerts.NewEscalator(alerts.Config{
		Email:    clients.Email,
		SMS:      clients.SMS,
		Clock:    clock,
		Logger:   logger.With("component", "escalator"),
		Recorder: recorder,
	})

	engine := prediction.NewEngine(prediction.Deps{
		Sites:     sites,
		Weather:   weather,
		Outages:   outages,
		Provider:  clients.Weather,
		Model:     model,
		Escalator: escalator,
		Publisher: publisher,
		Recorder:  recorder,
		Clock:     clock,
		Logger:    logger.With("component", "engine"),
		Correlation: prediction.CorrelationConfig{
			Window:    cfg.Model.ObservationWindow,
			Scope:     risk.Scope(cfg.Model.CorrelationScope),
			Tolerance: cfg.Model.CoordTolerance,
		},
	})

	// Train from whatever history exists so the first request does not pay for it.
	if _, err := engine.Retrain(ctx); err != nil {
		logger.Warn("initial training failed", "error", err)
	}

	srv, err := buildServer(cfg, logger, serverDeps{
		DB:      pool,
		Sites:   sites,
		Outages: outages,
		Engine:  engine,
		Clock:   clock,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	retrainer := scheduler.NewRetrainer(engine, cfg.Scheduler.RetrainInterval, clock, logger)
	go retrainer.Run(ctx)

	return runHTTPServer(ctx, srv, cfg, logger)
}

// serverDeps holds the collaborators mounted on the HTTP server.
type serverDeps struct {
	DB      core.Pinger
	Sites   handlers.SiteRepo
	Outages handlers.OutageRepo
	Engine  handlers.PredictionService
	Clock   clockwork.Clock
	Metrics *observability.Metrics
}

// buildServer creates the core server and registers every /v1 handler.
func buildServer(cfg *config.Config, logger *slog.Logger, d serverDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.Metrics = d.Metrics
	if d.DB != nil {
		srv.HealthProbes = append(srv.HealthProbes, core.DatabaseProbe{DB: d.DB})
	}

	siteHandler := handlers.NewSiteHandler(d.Sites, srv.Validator, logger)
	outageHandler := handlers.NewOutageHandler(d.Outages, d.Sites, srv.Validator, d.Clock, logger)
	predictionHandler := handlers.NewPredictionHandler(d.Engine, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		siteHandler.RegisterRoutes,
		outageHandler.RegisterRoutes,
		predictionHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer serves until ctx is cancelled, then shuts down gracefully.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
