package risk

import (
	"math"

	"outagewatch/internal/types"
)

// UntrainedMessage is the assessment message while no model is available.
const UntrainedMessage = "Model not yet trained - insufficient data"

// Band maps a half-open score interval [Lower, Upper) to a tier. The band
// whose Upper is 1 also includes 1.
type Band struct {
	Lower   float64
	Upper   float64
	Tier    types.RiskTier
	Message string
}

// DefaultBands is the tier table, checked in order.
var DefaultBands = []Band{
	{Lower: 0.0, Upper: 0.3, Tier: types.RiskTierLow, Message: "Low risk of network outage"},
	{Lower: 0.3, Upper: 0.7, Tier: types.RiskTierModerate, Message: "Moderate risk of network outage"},
	{Lower: 0.7, Upper: 1.0, Tier: types.RiskTierHigh, Message: "High risk of network outage"},
}

// Evaluator produces a prediction for a feature vector. *Model implements it.
type Evaluator interface {
	Evaluate(v FeatureVector) Prediction
}

// Scorer converts observations into risk assessments.
type Scorer struct {
	model Evaluator
	bands []Band
}

// NewScorer creates a Scorer over DefaultBands.
func NewScorer(model Evaluator) *Scorer {
	return &Scorer{model: model, bands: DefaultBands}
}

// Score encodes obs, evaluates it and attaches a tier. An untrained model
// yields the sentinel assessment with ModelAvailable false.
func (s *Scorer) Score(obs types.WeatherObservation) types.RiskAssessment {
	p := s.model.Evaluate(Encode(obs))
	if !p.Available {
		return types.RiskAssessment{
			RiskScore:   SentinelProbability,
			Confidence:  SentinelConfidence,
			Tier:        types.RiskTierUnavailable,
			Message:     UntrainedMessage,
			Observation: obs,
		}
	}

	score := Clamp(p.Probability)
	tier, msg := Classify(s.bands, score)
	return types.RiskAssessment{
		RiskScore:      score,
		Confidence:     Clamp(p.Confidence),
		Tier:           tier,
		Message:        msg,
		ModelAvailable: true,
		Observation:    obs,
	}
}

// Classify returns the first band containing score. Scores outside [0,1] are
// clamped first.
func Classify(bands []Band, score float64) (types.RiskTier, string) {
	score = Clamp(score)
	for _, b := range bands {
		if score >= b.Lower && (score < b.Upper || (b.Upper == 1 && score == 1)) {
			return b.Tier, b.Message
		}
	}
	last := bands[len(bands)-1]
	return last.Tier, last.Message
}

// Clamp limits v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
