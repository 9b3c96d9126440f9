package risk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// MinTrainingExamples is the smallest training set Train accepts.
const MinTrainingExamples = 10

// Values returned by Predict while no model has been trained.
const (
	SentinelProbability = 0.5
	SentinelConfidence  = 0.0
)

var (
	// ErrInsufficientData means there is not enough history to train.
	ErrInsufficientData = errors.New("risk: insufficient training data")
	// ErrTrainingInProgress means another Train call holds the model.
	ErrTrainingInProgress = errors.New("risk: training already in progress")
)

// snapshot is a fitted (scaler, forest) pair. It is never mutated after
// publication, so predictions always pair a scaler with its own forest.
type snapshot struct {
	scaler    Scaler
	forest    *forest
	trainedAt time.Time
	examples  int
	positives int
	version   uint64
}

// Prediction is a model output tagged with whether a fitted model produced it.
type Prediction struct {
	Probability float64
	Confidence  float64
	Available   bool
	Version     uint64
}

// Status describes the currently published model.
type Status struct {
	Trained   bool       `json:"trained"`
	Version   uint64     `json:"version"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
	Examples  int        `json:"examples"`
	Positives int        `json:"positives"`
	Trees     int        `json:"trees"`
	Seed      int64      `json:"seed"`
}

// Model is a retrainable outage classifier. Predict never blocks; Train
// admits one caller at a time and publishes its result atomically.
type Model struct {
	params ForestParams
	clock  clockwork.Clock

	training sync.Mutex
	current  atomic.Pointer[snapshot]
	version  atomic.Uint64
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithTrees sets the ensemble size.
func WithTrees(n int) ModelOption {
	return func(m *Model) { m.params.Trees = n }
}

// WithSeed sets the seed all tree generators derive from.
func WithSeed(seed int64) ModelOption {
	return func(m *Model) { m.params.Seed = seed }
}

// WithClock overrides the clock used to stamp training time.
func WithClock(c clockwork.Clock) ModelOption {
	return func(m *Model) { m.clock = c }
}

// NewModel returns an untrained model with 100 trees and seed 42 unless
// overridden.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{
		params: ForestParams{Trees: 100, Seed: 42},
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.params = m.params.withDefaults()
	return m
}

// Train fits a scaler and forest on examples and replaces the published
// snapshot, returning the status of the snapshot it published. On any error
// the previous snapshot stays in place.
func (m *Model) Train(ctx context.Context, examples []TrainingExample) (Status, error) {
	if len(examples) < MinTrainingExamples {
		return Status{}, ErrInsufficientData
	}
	if !m.training.TryLock() {
		return Status{}, ErrTrainingInProgress
	}
	defer m.training.Unlock()

	raw := make([]FeatureVector, len(examples))
	labels := make([]int, len(examples))
	positives := 0
	for i, ex := range examples {
		raw[i] = ex.Features
		if ex.Label != 0 {
			labels[i] = 1
			positives++
		}
	}

	scaler := FitScaler(raw)
	scaled := make([]FeatureVector, len(raw))
	for i, r := range raw {
		scaled[i] = scaler.Transform(r)
	}

	f, err := fitForest(ctx, scaled, labels, m.params)
	if err != nil {
		return Status{}, err
	}

	snap := &snapshot{
		scaler:    scaler,
		forest:    f,
		trainedAt: m.clock.Now(),
		examples:  len(examples),
		positives: positives,
		version:   m.version.Add(1),
	}
	m.current.Store(snap)
	return m.status(snap), nil
}

// Predict returns the outage probability and confidence for v, or the
// (0.5, 0.0) sentinel while untrained.
func (m *Model) Predict(v FeatureVector) (probability, confidence float64) {
	p := m.Evaluate(v)
	return p.Probability, p.Confidence
}

// Evaluate is Predict with availability and model version attached.
func (m *Model) Evaluate(v FeatureVector) Prediction {
	snap := m.current.Load()
	if snap == nil {
		return Prediction{Probability: SentinelProbability, Confidence: SentinelConfidence}
	}
	prob, conf := snap.forest.predict(snap.scaler.Transform(v))
	return Prediction{Probability: prob, Confidence: conf, Available: true, Version: snap.version}
}

// Trained reports whether a snapshot has been published.
func (m *Model) Trained() bool {
	return m.current.Load() != nil
}

// Status reports the published snapshot's metadata.
func (m *Model) Status() Status {
	return m.status(m.current.Load())
}

func (m *Model) status(snap *snapshot) Status {
	st := Status{Trees: m.params.Trees, Seed: m.params.Seed}
	if snap == nil {
		return st
	}
	trainedAt := snap.trainedAt
	st.Trained = true
	st.Version = snap.version
	st.TrainedAt = &trainedAt
	st.Examples = snap.examples
	st.Positives = snap.positives
	return st
}
