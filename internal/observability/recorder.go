// Package observability holds the service's metric sinks: Prometheus
// collectors scraped from /metrics and an optional CloudWatch emitter.
package observability

import (
	"context"
	"time"

	"outagewatch/internal/types"
)

// Training run outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_data"
	OutcomeInProgress   = "in_progress"
	OutcomeError        = "error"
)

// Result labels for deliveries and fetches.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder receives domain events worth counting.
type Recorder interface {
	TrainingRun(ctx context.Context, outcome string, d time.Duration)
	Prediction(ctx context.Context, tier types.RiskTier)
	AlertDelivery(ctx context.Context, channel types.AlertChannel, sent bool)
	WeatherFetch(ctx context.Context, ok bool)
}

// Multi fans every event out to each recorder in order.
type Multi []Recorder

var _ Recorder = Multi(nil)

func (m Multi) TrainingRun(ctx context.Context, outcome string, d time.Duration) {
	for _, r := range m {
		r.TrainingRun(ctx, outcome, d)
	}
}

func (m Multi) Prediction(ctx context.Context, tier types.RiskTier) {
	for _, r := range m {
		r.Prediction(ctx, tier)
	}
}

func (m Multi) AlertDelivery(ctx context.Context, channel types.AlertChannel, sent bool) {
	for _, r := range m {
		r.AlertDelivery(ctx, channel, sent)
	}
}

func (m Multi) WeatherFetch(ctx context.Context, ok bool) {
	for _, r := range m {
		r.WeatherFetch(ctx, ok)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) TrainingRun(context.Context, string, time.Duration)      {}
func (Nop) Prediction(context.Context, types.RiskTier)              {}
func (Nop) AlertDelivery(context.Context, types.AlertChannel, bool) {}
func (Nop) WeatherFetch(context.Context, bool)                      {}

func resultLabel(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailed
}
