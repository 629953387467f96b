package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetlog/backend/internal/domain"
	"github.com/fleetlog/backend/internal/middleware"
)

// createTripRequest is the body of POST /trips. Timestamps are RFC3339.
// Pointer fields distinguish "absent" from zero values so malformed or
// missing required fields are rejected before reaching the service.
type createTripRequest struct {
	VehicleID     *uuid.UUID `json:"vehicleId"`
	DepartureAt   *time.Time `json:"departureAt"`
	ArrivalAt     *time.Time `json:"arrivalAt"`
	Purpose       string     `json:"purpose"`
	FinalOdometer *int64     `json:"finalOdometer"`
}

// updateTripRequest is the body of PATCH /trips/{id}; every field optional.
type updateTripRequest struct {
	Purpose       *string    `json:"purpose"`
	DepartureAt   *time.Time `json:"departureAt"`
	ArrivalAt     *time.Time `json:"arrivalAt"`
	FinalOdometer *int64     `json:"finalOdometer"`
}

// CreateTrip handles POST /trips.
// Success is 200 with the created trip — the mobile client treats create
// like any other form submit.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createTripRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input, err := req.toTrip()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.trips.Create(r.Context(), ident, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, created)
}

// ListTrips handles GET /trips: the caller's own trips, highest odometer
// first. Supports ?page= and ?limit= (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	trips, err := s.trips.ListMine(r.Context(), ident, pageParams(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, trips)
}

// ListCompanyTrips handles GET /trips/admin: every trip in the caller's
// company, most recent departure first. Admin role required.
func (s *Server) ListCompanyTrips(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	trips, err := s.trips.ListCompany(r.Context(), ident, pageParams(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, trips)
}

// UpdateTrip handles PATCH /trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	var req updateTripRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := domain.TripPatch{
		Purpose:       req.Purpose,
		DepartureAt:   req.DepartureAt,
		ArrivalAt:     req.ArrivalAt,
		FinalOdometer: req.FinalOdometer,
	}
	if patch.FinalOdometer != nil && *patch.FinalOdometer < 0 {
		writeError(w, http.StatusBadRequest, "finalOdometer must not be negative")
		return
	}

	updated, err := s.trips.Update(r.Context(), ident, tripID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trip id")
		return
	}

	if err := s.trips.Delete(r.Context(), ident, tripID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// --- request helpers --------------------------------------------------------

// decodeJSON decodes the request body into v, rejecting unknown fields and
// malformed values with an error suitable for the client.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("request body is not valid JSON for this operation")
	}
	return nil
}

// toTrip validates the presence of required fields and builds the domain
// input. Field-level rules (odometer >= 0) live here; cross-record rules
// belong to the service.
func (req createTripRequest) toTrip() (domain.Trip, error) {
	switch {
	case req.VehicleID == nil:
		return domain.Trip{}, errors.New("vehicleId is required")
	case req.DepartureAt == nil:
		return domain.Trip{}, errors.New("departureAt is required")
	case req.ArrivalAt == nil:
		return domain.Trip{}, errors.New("arrivalAt is required")
	case req.FinalOdometer == nil:
		return domain.Trip{}, errors.New("finalOdometer is required")
	case *req.FinalOdometer < 0:
		return domain.Trip{}, errors.New("finalOdometer must not be negative")
	}

	return domain.Trip{
		VehicleID:     *req.VehicleID,
		DepartureAt:   *req.DepartureAt,
		ArrivalAt:     *req.ArrivalAt,
		Purpose:       req.Purpose,
		FinalOdometer: *req.FinalOdometer,
	}, nil
}

// pageParams reads optional ?page= and ?limit= query values.
func pageParams(r *http.Request) domain.PaginationParams {
	var page, limit *int
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = &v
	}
	return domain.NewPaginationParams(page, limit)
}
