// Package risk turns weather observations into outage-risk estimates. It holds
// the feature encoding, label correlation against outage history, the
// random-forest classifier and the score-to-tier mapping.
package risk

import (
	"math"

	"outagewatch/internal/types"
)

// FeatureCount is the width of every feature vector the model accepts.
const FeatureCount = 5

// FeatureVector is a fixed-order numeric encoding of one observation:
// temperature, humidity, wind speed, precipitation over the last hour and
// cloud cover.
type FeatureVector [FeatureCount]float64

// FeatureNames lists the vector columns in encoding order.
var FeatureNames = [FeatureCount]string{
	"temperature",
	"humidity",
	"wind_speed",
	"precipitation_last_hour",
	"cloud_cover",
}

// Encode extracts the feature vector from an observation. Non-finite values
// are treated as missing and encoded as 0.
func Encode(obs types.WeatherObservation) FeatureVector {
	return FeatureVector{
		finite(obs.Temperature),
		finite(obs.Humidity),
		finite(obs.WindSpeed),
		finite(obs.PrecipitationLastHour),
		finite(obs.CloudCover),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
