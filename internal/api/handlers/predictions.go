package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"outagewatch/internal/core"
	"outagewatch/internal/prediction"
	"outagewatch/internal/risk"
	"outagewatch/internal/types"
)

// PredictionService is the engine surface the prediction handlers use.
// *prediction.Engine implements it.
type PredictionService interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherObservation, error)
	AssessRisk(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error)
	AssessSite(ctx context.Context, siteID int64) (*prediction.SiteAssessment, error)
	AssessAndAlert(ctx context.Context, siteID int64) (*prediction.AlertResult, error)
	TestAlert(ctx context.Context, siteID int64) (*prediction.AlertResult, error)
	Retrain(ctx context.Context) (*prediction.RetrainResult, error)
	ModelStatus() risk.Status
}

// PredictionHandler exposes weather, risk, retrain and alert operations.
type PredictionHandler struct {
	engine PredictionService
	logger *slog.Logger
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(engine PredictionService, l *slog.Logger) *PredictionHandler {
	if l == nil {
		l = slog.Default()
	}
	return &PredictionHandler{engine: engine, logger: l}
}

// RegisterRoutes mounts prediction routes on the provided chi.Router.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.GetWeather)
	r.Get("/risk", h.GetRisk)
	r.Get("/sites/{id}/risk", h.GetSiteRisk)
	r.Get("/sites/{id}/risk/alerts", h.GetSiteRiskWithAlerts)
	r.Post("/alerts/test/{id}", h.TestAlert)

	r.Route("/model", func(r chi.Router) {
		r.Post("/retrain", h.Retrain)
		r.Get("/status", h.Status)
	})
}

// GetWeather handles GET /v1/weather?lat=&lon=. The observation is stored
// as training history.
func (h *PredictionHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoordinates(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	obs, err := h.engine.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: obs})
}

// GetRisk handles GET /v1/risk?lat=&lon= for an arbitrary coordinate.
func (h *PredictionHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoordinates(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	a, err := h.engine.AssessRisk(r.Context(), lat, lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: a})
}

// GetSiteRisk handles GET /v1/sites/{id}/risk.
func (h *PredictionHandler) GetSiteRisk(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	sa, err := h.engine.AssessSite(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sa})
}

// GetSiteRiskWithAlerts handles GET /v1/sites/{id}/risk/alerts. Channel
// failures are reported in the body, never as an error status.
func (h *PredictionHandler) GetSiteRiskWithAlerts(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	res, err := h.engine.AssessAndAlert(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// TestAlert handles POST /v1/alerts/test/{id}.
func (h *PredictionHandler) TestAlert(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	res, err := h.engine.TestAlert(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "test alert triggered",
		"site_id", id,
		"email_sent", res.Alerts.EmailSent,
		"sms_sent", res.Alerts.SMSSent,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// Retrain handles POST /v1/model/retrain. Insufficient history answers 200
// with success=false; a concurrent retrain answers 409.
func (h *PredictionHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Retrain(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// Status handles GET /v1/model/status.
func (h *PredictionHandler) Status(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.engine.ModelStatus()})
}
