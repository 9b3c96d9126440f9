// Package scheduler runs the service's periodic jobs: model retraining and
// weather collection. Each job exposes RunOnce for direct invocation (tests,
// Lambda handlers) and Run for an interval loop driven by a clockwork.Clock.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"outagewatch/internal/prediction"
	"outagewatch/internal/types"
)

// ModelTrainer rebuilds the model from stored history.
type ModelTrainer interface {
	Retrain(ctx context.Context) (*prediction.RetrainResult, error)
}

// Retrainer periodically retrains the risk model.
type Retrainer struct {
	trainer  ModelTrainer
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewRetrainer creates a Retrainer. A non-positive interval disables Run.
func NewRetrainer(trainer ModelTrainer, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Retrainer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrainer{
		trainer:  trainer,
		interval: interval,
		clock:    clock,
		logger:   logger.With("job", "retrain"),
	}
}

// Run retrains on every tick until ctx is cancelled.
func (r *Retrainer) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.InfoContext(ctx, "periodic retraining disabled")
		return
	}
	r.logger.InfoContext(ctx, "periodic retraining started", "interval", r.interval.String())

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "periodic retraining stopped")
			return
		case <-ticker.Chan():
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one retrain. Errors are logged; a retrain already in
// progress is not treated as a failure.
func (r *Retrainer) RunOnce(ctx context.Context) {
	res, err := r.trainer.Retrain(ctx)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictTrainingInProgress {
			r.logger.InfoContext(ctx, "retrain skipped: another run in progress")
			return
		}
		r.logger.ErrorContext(ctx, "scheduled retrain failed", "error", err)
		return
	}
	r.logger.InfoContext(ctx, "scheduled retrain finished",
		"success", res.Success,
		"message", res.Message,
		"examples", res.Examples,
	)
}
