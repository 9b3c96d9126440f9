// Package main is the entry point for the weather collector.
//
// The collector records current conditions for every registered site so the
// risk model has history to learn from. Inside AWS Lambda it runs one
// collection per invocation (scheduled by an EventBridge rule). Elsewhere it
// collects immediately and then every COLLECT_INTERVAL until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jonboulle/clockwork"

	"outagewatch/internal/config"
	"outagewatch/internal/db"
	"outagewatch/internal/external"
	"outagewatch/internal/observability"
	"outagewatch/internal/prediction"
	"outagewatch/internal/risk"
	"outagewatch/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	logger.Info("weather collector initializing",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	clock := clockwork.NewRealClock()
	clients, err := external.NewClientRegistry(cfg, logger, clock)
	if err != nil {
		return fmt.Errorf("creating vendor clients: %w", err)
	}

	sites := db.NewSiteRepository(pool)

	// Collection only stores observations; the engine's model is never
	// consulted here.
	engine := prediction.NewEngine(prediction.Deps{
		Sites:    sites,
		Weather:  db.NewWeatherRepository(pool),
		Outages:  db.NewOutageRepository(pool),
		Provider: clients.Weather,
		Model:    risk.NewModel(),
		Recorder: observability.Nop{},
		Clock:    clock,
		Logger:   logger.With("component", "engine"),
	})

	collector := scheduler.NewWeatherCollector(scheduler.WeatherCollectorConfig{
		Sites:    sites,
		Weather:  engine,
		Interval: cfg.Scheduler.CollectInterval,
		Clock:    clock,
		Logger:   logger,
	})

	if isLambdaEnvironment() {
		lambda.Start(newHandler(collector, logger))
		return nil
	}

	collector.Run(ctx)
	return nil
}

// collectRunner is satisfied by *scheduler.WeatherCollector.
type collectRunner interface {
	RunOnce(ctx context.Context) (*scheduler.CollectResult, error)
}

// newHandler creates the Lambda handler. Each invocation performs one
// collection pass; the scheduled event payload is ignored.
func newHandler(c collectRunner, logger *slog.Logger) func(ctx context.Context) (*scheduler.CollectResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (*scheduler.CollectResult, error) {
		res, err := c.RunOnce(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "weather collection failed", "error", err)
			return nil, fmt.Errorf("weather collection failed: %w", err)
		}
		return res, nil
	}
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
