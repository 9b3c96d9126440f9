package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"outagewatch/internal/core"
	"outagewatch/internal/prediction"
	"outagewatch/internal/risk"
	"outagewatch/internal/types"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// =============================================================================
// Site repository
// =============================================================================

type mockSiteRepo struct {
	mu     sync.Mutex
	sites  map[int64]types.Site
	nextID int64

	createErr error
	listErr   error
}

func newMockSiteRepo(sites ...types.Site) *mockSiteRepo {
	m := &mockSiteRepo{sites: make(map[int64]types.Site), nextID: 1}
	for _, s := range sites {
		m.sites[s.ID] = s
		if s.ID >= m.nextID {
			m.nextID = s.ID + 1
		}
	}
	return m
}

func (m *mockSiteRepo) Create(_ context.Context, site *types.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	site.ID = m.nextID
	site.CreatedAt = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	m.nextID++
	m.sites[site.ID] = *site
	return nil
}

func (m *mockSiteRepo) GetByID(_ context.Context, id int64) (*types.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
	}
	return &s, nil
}

func (m *mockSiteRepo) List(_ context.Context) ([]types.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []types.Site
	for id := int64(1); id < m.nextID; id++ {
		if s, ok := m.sites[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// =============================================================================
// Outage repository
// =============================================================================

type mockOutageRepo struct {
	created  []types.OutageEvent
	resolved map[int64]time.Time

	createErr  error
	resolveErr error
	list       []types.OutageEvent
}

func (m *mockOutageRepo) Create(_ context.Context, o *types.OutageEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = int64(len(m.created) + 1)
	o.Active = true
	m.created = append(m.created, *o)
	return nil
}

func (m *mockOutageRepo) Resolve(_ context.Context, id int64, endTime time.Time) (*types.OutageEvent, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	if m.resolved == nil {
		m.resolved = make(map[int64]time.Time)
	}
	m.resolved[id] = endTime
	end := endTime
	return &types.OutageEvent{ID: id, SiteID: 1, EndTime: &end, Active: false}, nil
}

func (m *mockOutageRepo) ListBySite(_ context.Context, siteID int64) ([]types.OutageEvent, error) {
	var out []types.OutageEvent
	for _, o := range m.list {
		if o.SiteID == siteID {
			out = append(out, o)
		}
	}
	return out, nil
}

// =============================================================================
// Prediction engine
// =============================================================================

type mockEngine struct {
	weatherFn   func(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error)
	riskFn      func(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error)
	assessFn    func(ctx context.Context, id int64) (*prediction.SiteAssessment, error)
	alertFn     func(ctx context.Context, id int64) (*prediction.AlertResult, error)
	testAlertFn func(ctx context.Context, id int64) (*prediction.AlertResult, error)
	retrainFn   func(ctx context.Context) (*prediction.RetrainResult, error)
	status      risk.Status
}

func (m *mockEngine) CurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error) {
	return m.weatherFn(ctx, lat, lon)
}

func (m *mockEngine) AssessRisk(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error) {
	return m.riskFn(ctx, lat, lon)
}

func (m *mockEngine) AssessSite(ctx context.Context, id int64) (*prediction.SiteAssessment, error) {
	return m.assessFn(ctx, id)
}

func (m *mockEngine) AssessAndAlert(ctx context.Context, id int64) (*prediction.AlertResult, error) {
	return m.alertFn(ctx, id)
}

func (m *mockEngine) TestAlert(ctx context.Context, id int64) (*prediction.AlertResult, error) {
	return m.testAlertFn(ctx, id)
}

func (m *mockEngine) Retrain(ctx context.Context) (*prediction.RetrainResult, error) {
	return m.retrainFn(ctx)
}

func (m *mockEngine) ModelStatus() risk.Status {
	return m.status
}

// =============================================================================
// Helpers
// =============================================================================

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// serve routes req through a chi router so URL parameters resolve.
func serve(h routeRegistrar, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeData unmarshals the APIResponse data field into dst.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) core.ErrorDetail {
	t.Helper()
	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func testSite() types.Site {
	return types.Site{
		ID:           1,
		Name:         "Lincoln High",
		Latitude:     40.7,
		Longitude:    -74.0,
		ContactEmail: "ops@lincoln.example.org",
		ContactPhone: "+15551234567",
	}
}
