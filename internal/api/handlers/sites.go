package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"outagewatch/internal/core"
	"outagewatch/internal/types"
)

// SiteRepo defines the data access contract for the site registry.
// Mirrors the concrete db.SiteRepository methods used by this handler.
type SiteRepo interface {
	Create(ctx context.Context, site *types.Site) error
	GetByID(ctx context.Context, id int64) (*types.Site, error)
	List(ctx context.Context) ([]types.Site, error)
}

// CreateSiteRequest is the request body for POST /v1/sites.
type CreateSiteRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Latitude     *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	ContactEmail string   `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone string   `json:"contact_phone,omitempty" validate:"omitempty,e164"`
}

// SiteHandler manages the site registry.
type SiteHandler struct {
	sites     SiteRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(sites SiteRepo, v *core.Validator, l *slog.Logger) *SiteHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SiteHandler{sites: sites, validator: v, logger: l}
}

// RegisterRoutes mounts site routes on the provided chi.Router.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sites", h.Create)
	r.Get("/sites", h.List)
	r.Get("/sites/{id}", h.Get)
}

// Create handles POST /v1/sites.
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSiteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	site := &types.Site{
		Name:         req.Name,
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}
	if err := h.sites.Create(r.Context(), site); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "site created", "site_id", site.ID, "name", site.Name)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: site})
}

// List handles GET /v1/sites.
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	sites, err := h.sites.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if sites == nil {
		sites = []types.Site{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sites})
}

// Get handles GET /v1/sites/{id}.
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	site, err := h.sites.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: site})
}
