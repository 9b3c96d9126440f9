package risk

import "math"

// Scaler standardizes each column to zero mean and unit variance using the
// statistics of the training set it was fitted on.
type Scaler struct {
	Mean  FeatureVector
	Scale FeatureVector
}

// FitScaler computes column means and population standard deviations. A
// column with zero variance gets scale 1 so it passes through centred.
func FitScaler(rows []FeatureVector) Scaler {
	var s Scaler
	if len(rows) == 0 {
		for j := range s.Scale {
			s.Scale[j] = 1
		}
		return s
	}

	n := float64(len(rows))
	for _, r := range rows {
		for j, v := range r {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	var variance FeatureVector
	for _, r := range rows {
		for j, v := range r {
			d := v - s.Mean[j]
			variance[j] += d * d
		}
	}
	for j := range variance {
		std := math.Sqrt(variance[j] / n)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Transform standardizes a single vector.
func (s Scaler) Transform(v FeatureVector) FeatureVector {
	var out FeatureVector
	for j := range v {
		out[j] = (v[j] - s.Mean[j]) / s.Scale[j]
	}
	return out
}
