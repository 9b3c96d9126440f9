package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"outagewatch/internal/types"
)

// DefaultCollectConcurrency bounds parallel weather lookups per run.
const DefaultCollectConcurrency = 4

// SiteLister lists the monitored sites.
type SiteLister interface {
	List(ctx context.Context) ([]types.Site, error)
}

// WeatherRecorder fetches and stores the current observation for a
// coordinate, failing when either step fails.
type WeatherRecorder interface {
	RecordWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error)
}

// CollectResult summarizes one collection run.
type CollectResult struct {
	Sites     int `json:"sites"`
	Locations int `json:"locations"`
	Collected int `json:"collected"`
	Failed    int `json:"failed"`
}

// WeatherCollector records current weather for every site so the model has
// history to train on.
type WeatherCollector struct {
	sites       SiteLister
	weather     WeatherRecorder
	interval    time.Duration
	concurrency int
	clock       clockwork.Clock
	logger      *slog.Logger
}

// WeatherCollectorConfig holds the parameters for a WeatherCollector.
type WeatherCollectorConfig struct {
	Sites       SiteLister
	Weather     WeatherRecorder
	Interval    time.Duration
	Concurrency int
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

// NewWeatherCollector creates a WeatherCollector.
func NewWeatherCollector(cfg WeatherCollectorConfig) *WeatherCollector {
	c := &WeatherCollector{
		sites:       cfg.Sites,
		weather:     cfg.Weather,
		interval:    cfg.Interval,
		concurrency: cfg.Concurrency,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultCollectConcurrency
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("job", "collect")
	return c
}

type location struct{ lat, lon float64 }

// RunOnce fetches weather for each distinct site location. Per-location
// failures are counted, not returned; only listing sites can fail the run.
func (c *WeatherCollector) RunOnce(ctx context.Context) (*CollectResult, error) {
	sites, err := c.sites.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[location]struct{}, len(sites))
	var locs []location
	for _, s := range sites {
		l := location{s.Latitude, s.Longitude}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		locs = append(locs, l)
	}

	var collected, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, l := range locs {
		g.Go(func() error {
			if _, err := c.weather.RecordWeather(gctx, l.lat, l.lon); err != nil {
				failed.Add(1)
				c.logger.WarnContext(gctx, "weather collection failed",
					"lat", l.lat, "lon", l.lon, "error", err)
				return nil
			}
			collected.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := &CollectResult{
		Sites:     len(sites),
		Locations: len(locs),
		Collected: int(collected.Load()),
		Failed:    int(failed.Load()),
	}
	c.logger.InfoContext(ctx, "weather collection finished",
		"sites", res.Sites,
		"locations", res.Locations,
		"collected", res.Collected,
		"failed", res.Failed,
	)
	return res, nil
}

// Run collects immediately and then on every tick until ctx is cancelled.
// A non-positive interval runs once and returns.
func (c *WeatherCollector) Run(ctx context.Context) {
	c.runLogged(ctx)
	if c.interval <= 0 {
		return
	}

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.runLogged(ctx)
		}
	}
}

func (c *WeatherCollector) runLogged(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		c.logger.ErrorContext(ctx, "weather collection run failed", "error", err)
	}
}
