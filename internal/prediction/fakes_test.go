package prediction

import (
	"context"
	"sync"
	"time"

	"outagewatch/internal/external"
	"outagewatch/internal/risk"
	"outagewatch/internal/types"
)

type fakeSites struct {
	sites map[int64]types.Site
}

func (f *fakeSites) GetByID(_ context.Context, id int64) (*types.Site, error) {
	s, ok := f.sites[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
	}
	return &s, nil
}

func (f *fakeSites) List(_ context.Context) ([]types.Site, error) {
	var out []types.Site
	for _, s := range f.sites {
		out = append(out, s)
	}
	return out, nil
}

type fakeWeather struct {
	mu       sync.Mutex
	stored   []types.WeatherObservation
	history  []types.WeatherObservation
	listErr  error
	insertFn func(*types.WeatherObservation) error
}

func (f *fakeWeather) Insert(_ context.Context, obs *types.WeatherObservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertFn != nil {
		if err := f.insertFn(obs); err != nil {
			return err
		}
	}
	f.stored = append(f.stored, *obs)
	return nil
}

func (f *fakeWeather) ListAll(_ context.Context) ([]types.WeatherObservation, error) {
	return f.history, f.listErr
}

type fakeOutages struct {
	outages []types.OutageEvent
	err     error
}

func (f *fakeOutages) ListAll(_ context.Context) ([]types.OutageEvent, error) {
	return f.outages, f.err
}

type fakeProvider struct {
	obs *types.WeatherObservation
	err error
}

func (f *fakeProvider) Current(_ context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	o := *f.obs
	o.Latitude, o.Longitude = lat, lon
	return &o, nil
}

var _ external.WeatherProvider = (*fakeProvider)(nil)

type escalation struct {
	siteName, email, phone string
	assessment             types.RiskAssessment
}

type recordingEscalator struct {
	calls []escalation
	out   types.AlertOutcome
}

func (r *recordingEscalator) Escalate(_ context.Context, siteName, email, phone string, a types.RiskAssessment) types.AlertOutcome {
	r.calls = append(r.calls, escalation{siteName, email, phone, a})
	out := r.out
	out.RiskLevel = a.RiskScore
	return out
}

type recordingPublisher struct {
	events []types.AlertEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev types.AlertEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

// busyModel reports a concurrent training run on every Train call.
type busyModel struct{ *risk.Model }

func (busyModel) Train(context.Context, []risk.TrainingExample) (risk.Status, error) {
	return risk.Status{}, risk.ErrTrainingInProgress
}

// overtakenModel publishes a second snapshot from next right after each
// successful Train, as a concurrent retrain finishing in between would.
type overtakenModel struct {
	*risk.Model
	next []risk.TrainingExample
}

func (m *overtakenModel) Train(ctx context.Context, examples []risk.TrainingExample) (risk.Status, error) {
	st, err := m.Model.Train(ctx, examples)
	if err != nil {
		return st, err
	}
	if _, err := m.Model.Train(ctx, m.next); err != nil {
		return risk.Status{}, err
	}
	return st, nil
}

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

var (
	stormyObs = types.WeatherObservation{Temperature: 17, Humidity: 93, WindSpeed: 18, PrecipitationLastHour: 8, CloudCover: 98}
	calmObs   = types.WeatherObservation{Temperature: 28, Humidity: 45, WindSpeed: 3, PrecipitationLastHour: 0, CloudCover: 15}
)

// history returns 12 hourly observations where the first 4 are stormy and
// fall within 6h of a single outage, and the remaining 8 are calm and far
// from it.
func history() ([]types.WeatherObservation, []types.OutageEvent) {
	var obs []types.WeatherObservation
	for i := range 4 {
		o := stormyObs
		o.Timestamp = epoch.Add(time.Duration(i) * time.Hour)
		o.WindSpeed += float64(i) * 0.5
		obs = append(obs, o)
	}
	for i := range 8 {
		o := calmObs
		o.Timestamp = epoch.Add(48*time.Hour + time.Duration(i)*time.Hour)
		o.Humidity += float64(i)
		obs = append(obs, o)
	}
	outages := []types.OutageEvent{{ID: 1, SiteID: 1, StartTime: epoch.Add(2 * time.Hour)}}
	return obs, outages
}
