package risk

import (
	"math"
	"slices"
	"time"

	"outagewatch/internal/types"
)

// DefaultObservationWindow is the distance on either side of an observation
// within which an outage start marks it as a positive example.
const DefaultObservationWindow = 6 * time.Hour

// Scope selects which outages an observation is compared against.
type Scope string

const (
	// ScopeGlobal compares every observation with every outage.
	ScopeGlobal Scope = "global"
	// ScopeSite compares an observation only with outages of the site whose
	// coordinates match it.
	ScopeSite Scope = "site"
)

// TrainingExample is one labelled row. Label is 1 when an outage started
// within the observation window, else 0.
type TrainingExample struct {
	Features FeatureVector
	Label    int
}

// Correlator derives supervised labels from observation and outage history.
type Correlator struct {
	window    time.Duration
	scope     Scope
	sites     []types.Site
	tolerance float64
}

// CorrelatorOption configures a Correlator.
type CorrelatorOption func(*Correlator)

// WithWindow overrides DefaultObservationWindow. Non-positive values are ignored.
func WithWindow(d time.Duration) CorrelatorOption {
	return func(c *Correlator) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithSiteScope restricts correlation to per-site outages. An observation
// belongs to the first site whose latitude and longitude are both within
// tolerance degrees; observations matching no site are labelled 0.
func WithSiteScope(sites []types.Site, tolerance float64) CorrelatorOption {
	return func(c *Correlator) {
		c.scope = ScopeSite
		c.sites = sites
		c.tolerance = tolerance
	}
}

// NewCorrelator creates a Correlator using the global scope and the default
// window unless overridden.
func NewCorrelator(opts ...CorrelatorOption) *Correlator {
	c := &Correlator{
		window: DefaultObservationWindow,
		scope:  ScopeGlobal,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the configured observation window.
func (c *Correlator) Window() time.Duration { return c.window }

// Scope returns the configured correlation scope.
func (c *Correlator) Scope() Scope { return c.scope }

// BuildTrainingSet produces one example per observation, in input order.
// Both boundaries of the window are inclusive. ErrInsufficientData is
// returned when either input is empty.
func (c *Correlator) BuildTrainingSet(observations []types.WeatherObservation, outages []types.OutageEvent) ([]TrainingExample, error) {
	if len(observations) == 0 || len(outages) == 0 {
		return nil, ErrInsufficientData
	}

	var (
		global []time.Time
		bySite map[int64][]time.Time
	)
	if c.scope == ScopeSite {
		bySite = make(map[int64][]time.Time)
		for _, o := range outages {
			bySite[o.SiteID] = append(bySite[o.SiteID], o.StartTime)
		}
		for id := range bySite {
			slices.SortFunc(bySite[id], time.Time.Compare)
		}
	} else {
		global = make([]time.Time, 0, len(outages))
		for _, o := range outages {
			global = append(global, o.StartTime)
		}
		slices.SortFunc(global, time.Time.Compare)
	}

	examples := make([]TrainingExample, len(observations))
	for i, obs := range observations {
		starts := global
		if c.scope == ScopeSite {
			starts = nil
			if site, ok := c.siteFor(obs); ok {
				starts = bySite[site]
			}
		}
		label := 0
		if anyWithin(starts, obs.Timestamp, c.window) {
			label = 1
		}
		examples[i] = TrainingExample{Features: Encode(obs), Label: label}
	}
	return examples, nil
}

func (c *Correlator) siteFor(obs types.WeatherObservation) (int64, bool) {
	for _, s := range c.sites {
		if math.Abs(s.Latitude-obs.Latitude) <= c.tolerance &&
			math.Abs(s.Longitude-obs.Longitude) <= c.tolerance {
			return s.ID, true
		}
	}
	return 0, false
}

// anyWithin reports whether some start in the sorted slice lies in
// [at-window, at+window].
func anyWithin(sorted []time.Time, at time.Time, window time.Duration) bool {
	lo := at.Add(-window)
	i, _ := slices.BinarySearchFunc(sorted, lo, time.Time.Compare)
	return i < len(sorted) && !sorted[i].After(at.Add(window))
}
