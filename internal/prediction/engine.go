// Package prediction wires the risk model to its collaborators. It owns the
// host-facing operations: assessing a coordinate or site, retraining from
// stored history, and assessing with alert escalation.
package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"outagewatch/internal/external"
	"outagewatch/internal/observability"
	"outagewatch/internal/queue"
	"outagewatch/internal/risk"
	"outagewatch/internal/types"
)

// Test alert fixture values.
const (
	TestAlertScore   = 0.8
	TestAlertMessage = "TEST ALERT - High risk of network outage"
)

// Retrain result messages.
const (
	MsgRetrained          = "Model retrained successfully"
	MsgInsufficientData   = "Not enough data for training"
	MsgTrainingInProgress = "Training already in progress"
)

// SiteStore reads the site registry.
type SiteStore interface {
	GetByID(ctx context.Context, id int64) (*types.Site, error)
	List(ctx context.Context) ([]types.Site, error)
}

// WeatherStore persists and reads observations.
type WeatherStore interface {
	Insert(ctx context.Context, obs *types.WeatherObservation) error
	ListAll(ctx context.Context) ([]types.WeatherObservation, error)
}

// OutageStore reads outage history.
type OutageStore interface {
	ListAll(ctx context.Context) ([]types.OutageEvent, error)
}

// Model is the classifier lifecycle the engine drives. *risk.Model implements it.
type Model interface {
	risk.Evaluator
	Train(ctx context.Context, examples []risk.TrainingExample) (risk.Status, error)
	Trained() bool
	Status() risk.Status
}

// Escalator dispatches alerts for an assessment.
type Escalator interface {
	Escalate(ctx context.Context, siteName, email, phone string, a types.RiskAssessment) types.AlertOutcome
}

// CorrelationConfig selects how observations are labelled at retrain time.
type CorrelationConfig struct {
	Window    time.Duration
	Scope     risk.Scope
	Tolerance float64
}

// Deps holds the Engine's collaborators. Clock, Logger, Recorder and
// Publisher are optional.
type Deps struct {
	Sites       SiteStore
	Weather     WeatherStore
	Outages     OutageStore
	Provider    external.WeatherProvider
	Model       Model
	Escalator   Escalator
	Publisher   queue.AlertEventPublisher
	Recorder    observability.Recorder
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Correlation CorrelationConfig
}

// Engine implements the prediction operations.
type Engine struct {
	sites       SiteStore
	weather     WeatherStore
	outages     OutageStore
	provider    external.WeatherProvider
	model       Model
	scorer      *risk.Scorer
	escalator   Escalator
	publisher   queue.AlertEventPublisher
	recorder    observability.Recorder
	clock       clockwork.Clock
	logger      *slog.Logger
	correlation CorrelationConfig
}

// SiteAssessment is an assessment of a site's current conditions.
type SiteAssessment struct {
	Site       types.Site           `json:"site"`
	Assessment types.RiskAssessment `json:"assessment"`
}

// AlertResult is a site assessment plus the channels it fired.
type AlertResult struct {
	SiteAssessment
	Alerts types.AlertOutcome `json:"alerts"`
}

// RetrainResult reports the outcome of a retrain request.
type RetrainResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Examples  int    `json:"examples"`
	Positives int    `json:"positives"`
	Version   uint64 `json:"version"`
}

// NewEngine creates an Engine.
func NewEngine(d Deps) *Engine {
	e := &Engine{
		sites:       d.Sites,
		weather:     d.Weather,
		outages:     d.Outages,
		provider:    d.Provider,
		model:       d.Model,
		scorer:      risk.NewScorer(d.Model),
		escalator:   d.Escalator,
		publisher:   d.Publisher,
		recorder:    d.Recorder,
		clock:       d.Clock,
		logger:      d.Logger,
		correlation: d.Correlation,
	}
	if e.publisher == nil {
		e.publisher = queue.NopPublisher{}
	}
	if e.recorder == nil {
		e.recorder = observability.Nop{}
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.correlation.Window <= 0 {
		e.correlation.Window = risk.DefaultObservationWindow
	}
	return e
}

// ModelStatus reports the published model's metadata.
func (e *Engine) ModelStatus() risk.Status {
	return e.model.Status()
}

// CurrentWeather fetches and records the current observation for a
// coordinate. A failed fetch is returned as-is and nothing is stored. A
// failed store is logged only; the observation is still returned.
func (e *Engine) CurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	obs, err := e.fetchWeather(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if err := e.weather.Insert(ctx, obs); err != nil {
		e.logger.WarnContext(ctx, "failed to store weather observation",
			"lat", lat, "lon", lon, "error", err)
	}
	return obs, nil
}

// RecordWeather fetches the current observation for a coordinate and
// stores it. Both fetch and store failures are returned.
func (e *Engine) RecordWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	obs, err := e.fetchWeather(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if err := e.weather.Insert(ctx, obs); err != nil {
		return nil, err
	}
	return obs, nil
}

func (e *Engine) fetchWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	obs, err := e.provider.Current(ctx, lat, lon)
	e.recorder.WeatherFetch(ctx, err == nil)
	return obs, err
}

// AssessRisk fetches current conditions for a coordinate and scores them.
// Weather failures are returned; no value is synthesized.
func (e *Engine) AssessRisk(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error) {
	obs, err := e.CurrentWeather(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	a := e.scorer.Score(*obs)
	e.recorder.Prediction(ctx, a.Tier)
	return &a, nil
}

// AssessSite scores a site's current conditions. An untrained model gets
// one training attempt first; if that cannot train, the sentinel stands.
func (e *Engine) AssessSite(ctx context.Context, siteID int64) (*SiteAssessment, error) {
	site, err := e.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}

	obs, err := e.CurrentWeather(ctx, site.Latitude, site.Longitude)
	if err != nil {
		return nil, err
	}

	if !e.model.Trained() {
		if _, err := e.Retrain(ctx); err != nil {
			e.logger.WarnContext(ctx, "on-demand training failed", "site_id", siteID, "error", err)
		}
	}

	a := e.scorer.Score(*obs)
	e.recorder.Prediction(ctx, a.Tier)
	return &SiteAssessment{Site: *site, Assessment: a}, nil
}

// AssessAndAlert assesses a site and escalates the result. The untrained
// sentinel fires no channel.
func (e *Engine) AssessAndAlert(ctx context.Context, siteID int64) (*AlertResult, error) {
	sa, err := e.AssessSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return e.escalate(ctx, sa, false), nil
}

// TestAlert escalates a fixed high-risk assessment for a site so operators
// can verify its contacts and transports.
func (e *Engine) TestAlert(ctx context.Context, siteID int64) (*AlertResult, error) {
	site, err := e.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	sa := &SiteAssessment{
		Site: *site,
		Assessment: types.RiskAssessment{
			RiskScore:      TestAlertScore,
			Confidence:     1,
			Tier:           types.RiskTierHigh,
			Message:        TestAlertMessage,
			ModelAvailable: true,
			Observation: types.WeatherObservation{
				Timestamp:   e.clock.Now().UTC(),
				Latitude:    site.Latitude,
				Longitude:   site.Longitude,
				Temperature: 25,
				Humidity:    80,
				WindSpeed:   15,
			},
		},
	}
	return e.escalate(ctx, sa, true), nil
}

func (e *Engine) escalate(ctx context.Context, sa *SiteAssessment, test bool) *AlertResult {
	a := sa.Assessment
	out := e.escalator.Escalate(ctx, sa.Site.Name, sa.Site.ContactEmail, sa.Site.ContactPhone, a)

	event := types.AlertEvent{
		SiteID:    sa.Site.ID,
		SiteName:  sa.Site.Name,
		RiskScore: a.RiskScore,
		Tier:      a.Tier,
		EmailSent: out.EmailSent,
		SMSSent:   out.SMSSent,
		Test:      test,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish alert event", "site_id", sa.Site.ID, "error", err)
	}
	return &AlertResult{SiteAssessment: *sa, Alerts: out}
}

// Retrain rebuilds the model from all stored observations and outages.
//
// Too little history is not an error: the result has Success false and the
// previous model stays published. A concurrent retrain is reported as
// conflict_training_in_progress.
func (e *Engine) Retrain(ctx context.Context) (*RetrainResult, error) {
	var (
		observations []types.WeatherObservation
		outages      []types.OutageEvent
		sites        []types.Site
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		observations, err = e.weather.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		outages, err = e.outages.ListAll(gctx)
		return err
	})
	if e.correlation.Scope == risk.ScopeSite {
		g.Go(func() error {
			var err error
			sites, err = e.sites.List(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := []risk.CorrelatorOption{risk.WithWindow(e.correlation.Window)}
	if e.correlation.Scope == risk.ScopeSite {
		opts = append(opts, risk.WithSiteScope(sites, e.correlation.Tolerance))
	}
	var st risk.Status
	examples, err := risk.NewCorrelator(opts...).BuildTrainingSet(observations, outages)
	if err == nil {
		start := e.clock.Now()
		st, err = e.model.Train(ctx, examples)
		if err == nil {
			e.recorder.TrainingRun(ctx, observability.OutcomeSuccess, e.clock.Since(start))
		}
	}

	switch {
	case err == nil:
		e.logger.InfoContext(ctx, "model retrained",
			"examples", st.Examples,
			"positives", st.Positives,
			"version", st.Version,
		)
		return &RetrainResult{
			Success:   true,
			Message:   MsgRetrained,
			Examples:  st.Examples,
			Positives: st.Positives,
			Version:   st.Version,
		}, nil

	case errors.Is(err, risk.ErrInsufficientData):
		e.recorder.TrainingRun(ctx, observability.OutcomeInsufficient, 0)
		e.logger.InfoContext(ctx, "retrain skipped: insufficient data",
			"observations", len(observations),
			"outages", len(outages),
		)
		return &RetrainResult{
			Success:  false,
			Message:  MsgInsufficientData,
			Examples: len(examples),
		}, nil

	case errors.Is(err, risk.ErrTrainingInProgress):
		e.recorder.TrainingRun(ctx, observability.OutcomeInProgress, 0)
		return nil, types.NewAppError(types.ErrCodeConflictTrainingInProgress, MsgTrainingInProgress, err)

	default:
		e.recorder.TrainingRun(ctx, observability.OutcomeError, 0)
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "model training failed", err)
	}
}
