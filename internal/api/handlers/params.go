// Package handlers contains the HTTP handler implementations for the outage
// risk API. Handlers depend on small locally declared interfaces so they
// can be tested against in-memory fakes.
package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"outagewatch/internal/types"
)

// parseIDParam reads a positive integer path parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidID,
			name+" must be a positive integer",
			nil,
			map[string]any{"value": raw},
		)
	}
	return id, nil
}

// parseCoordinates reads and range-checks the lat and lon query parameters.
func parseCoordinates(r *http.Request) (lat, lon float64, err error) {
	lat, err = parseCoordinate(r, "lat", 90, types.ErrCodeValidationInvalidLat)
	if err != nil {
		return 0, 0, err
	}
	lon, err = parseCoordinate(r, "lon", 180, types.ErrCodeValidationInvalidLon)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseCoordinate(r *http.Request, name string, limit float64, code types.ErrorCode) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, types.NewAppError(types.ErrCodeValidationMissingField, name+" is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > limit {
		return 0, types.NewAppErrorWithDetails(
			code,
			name+" must be a number between -"+strconv.FormatFloat(limit, 'f', -1, 64)+" and "+strconv.FormatFloat(limit, 'f', -1, 64),
			nil,
			map[string]any{"value": raw},
		)
	}
	return v, nil
}
