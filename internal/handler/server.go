// Package handler implements the HTTP handlers for the fleet trip API.
// Handlers are methods on Server, split into domain-specific files, and
// depend on service interfaces defined here (in the consumer package) so
// tests can inject mocks without touching the database or service layer.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetlog/backend/internal/domain"
)

// TripServicer defines the business operations the trip handlers depend on.
type TripServicer interface {
	Create(ctx context.Context, ident domain.Identity, input domain.Trip) (domain.Trip, error)
	Update(ctx context.Context, ident domain.Identity, tripID uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	Delete(ctx context.Context, ident domain.Identity, tripID uuid.UUID) error
	ListMine(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error)
	ListCompany(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error)
}

// Server holds every handler's dependencies.
type Server struct {
	trips TripServicer
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer) *Server {
	return &Server{trips: trips}
}

// Routes builds the API router. authn guards everything except the health
// check; it is injected so tests can pass a stub that plants an Identity.
func (s *Server) Routes(authn func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/trips", s.CreateTrip)
		r.Get("/trips", s.ListTrips)
		r.Get("/trips/admin", s.ListCompanyTrips)
		r.Patch("/trips/{id}", s.UpdateTrip)
		r.Delete("/trips/{id}", s.DeleteTrip)
	})

	return r
}
