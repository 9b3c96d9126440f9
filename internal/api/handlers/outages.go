package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"outagewatch/internal/core"
	"outagewatch/internal/types"
)

// OutageRepo defines the data access contract for outage history.
type OutageRepo interface {
	Create(ctx context.Context, o *types.OutageEvent) error
	Resolve(ctx context.Context, id int64, endTime time.Time) (*types.OutageEvent, error)
	ListBySite(ctx context.Context, siteID int64) ([]types.OutageEvent, error)
}

// SiteLookup confirms a site exists before outages are attached to it.
type SiteLookup interface {
	GetByID(ctx context.Context, id int64) (*types.Site, error)
}

// ReportOutageRequest is the optional body for POST /v1/sites/{id}/outages.
// A missing start time means the outage began now.
type ReportOutageRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	Cause     string     `json:"cause,omitempty" validate:"max=500"`
}

// ResolveOutageRequest is the optional body for POST /v1/outages/{id}/resolve.
type ResolveOutageRequest struct {
	EndTime *time.Time `json:"end_time,omitempty"`
}

// OutageHandler records and resolves site outages.
type OutageHandler struct {
	outages   OutageRepo
	sites     SiteLookup
	validator *core.Validator
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewOutageHandler creates a new OutageHandler. A nil clock uses real time.
func NewOutageHandler(outages OutageRepo, sites SiteLookup, v *core.Validator, clock clockwork.Clock, l *slog.Logger) *OutageHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if l == nil {
		l = slog.Default()
	}
	return &OutageHandler{outages: outages, sites: sites, validator: v, clock: clock, logger: l}
}

// RegisterRoutes mounts outage routes on the provided chi.Router.
func (h *OutageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sites/{id}/outages", h.Report)
	r.Get("/sites/{id}/outages", h.ListBySite)
	r.Post("/outages/{id}/resolve", h.Resolve)
}

// Report handles POST /v1/sites/{id}/outages.
func (h *OutageHandler) Report(w http.ResponseWriter, r *http.Request) {
	siteID, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req ReportOutageRequest
	if hasBody(r) {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	if _, err := h.sites.GetByID(r.Context(), siteID); err != nil {
		core.Error(w, r, err)
		return
	}

	outage := &types.OutageEvent{
		SiteID:    siteID,
		StartTime: h.clock.Now().UTC(),
		Cause:     req.Cause,
	}
	if req.StartTime != nil {
		outage.StartTime = req.StartTime.UTC()
	}
	if err := h.outages.Create(r.Context(), outage); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "outage reported", "site_id", siteID, "outage_id", outage.ID)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: outage})
}

// ListBySite handles GET /v1/sites/{id}/outages.
func (h *OutageHandler) ListBySite(w http.ResponseWriter, r *http.Request) {
	siteID, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := h.sites.GetByID(r.Context(), siteID); err != nil {
		core.Error(w, r, err)
		return
	}
	outages, err := h.outages.ListBySite(r.Context(), siteID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if outages == nil {
		outages = []types.OutageEvent{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: outages})
}

// Resolve handles POST /v1/outages/{id}/resolve.
func (h *OutageHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req ResolveOutageRequest
	if hasBody(r) {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	end := h.clock.Now().UTC()
	if req.EndTime != nil {
		end = req.EndTime.UTC()
	}

	outage, err := h.outages.Resolve(r.Context(), id, end)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "outage resolved", "outage_id", id, "site_id", outage.SiteID)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: outage})
}

// hasBody reports whether the request carries a body worth decoding.
// Chunked bodies report an unknown length and are decoded.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
