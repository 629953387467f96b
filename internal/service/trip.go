// Package service contains the business logic for the fleet trip ledger.
// Services enforce authorization and the ledger sequencing rules, and
// orchestrate repo calls. No SQL lives here — services depend on repo
// interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fleetlog/backend/internal/domain"
	"github.com/fleetlog/backend/internal/repo"
)

// TxRunner runs a function with a set of repos bound to one transaction.
// Satisfied by *repo.Store; tests inject a fake that passes mock repos.
type TxRunner interface {
	ExecTx(ctx context.Context, fn func(r repo.Repos) error) error
}

// TripService implements the trip write and read paths.
//
// Writes (Create, Update) run inside a transaction that locks the vehicle
// row first, so the read-latest/validate/persist sequence cannot interleave
// with a concurrent writer for the same vehicle. Reads go straight to the
// pool-backed repo.
type TripService struct {
	store TxRunner
	trips repo.TripRepo
}

// NewTripService constructs a TripService. store is used for the
// transactional write paths, trips for reads.
func NewTripService(store TxRunner, trips repo.TripRepo) *TripService {
	return &TripService{store: store, trips: trips}
}

// Create authorizes, validates, and persists a new trip for the caller.
//
// The caller becomes the trip's driver; CompanyID is taken from the
// identity, never from the input. Rule order follows the ledger contract:
// assignment, vehicle lock, time range, departure ordering, odometer
// ordering — short-circuiting on the first failure.
func (s *TripService) Create(ctx context.Context, ident domain.Identity, input domain.Trip) (domain.Trip, error) {
	var created domain.Trip

	err := s.store.ExecTx(ctx, func(r repo.Repos) error {
		assigned, err := r.Assignments.Exists(ctx, ident.CompanyID, ident.DriverID, input.VehicleID)
		if err != nil {
			return fmt.Errorf("service.TripService.Create: %w", err)
		}
		if !assigned {
			return fmt.Errorf("service.TripService.Create: %w: driver is not assigned to this vehicle", domain.ErrForbidden)
		}

		if err := r.Vehicles.LockForSequence(ctx, ident.CompanyID, input.VehicleID); err != nil {
			return fmt.Errorf("service.TripService.Create: %w", err)
		}

		latest, err := ledgerLatest(ctx, r.Trips, ident.CompanyID, input.VehicleID, nil)
		if err != nil {
			return fmt.Errorf("service.TripService.Create: %w", err)
		}

		if err := domain.CheckTimeRange(input.DepartureAt, input.ArrivalAt); err != nil {
			return err
		}
		if err := domain.CheckDeparture(input.DepartureAt, latest); err != nil {
			return err
		}
		if err := domain.CheckOdometer(input.FinalOdometer, latest); err != nil {
			return err
		}

		input.CompanyID = ident.CompanyID
		input.DriverID = ident.DriverID

		created, err = r.Trips.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("service.TripService.Create: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return created, nil
}

// Update applies a partial edit to an existing trip.
//
// The caller must be the owning driver or an admin. The sequencing rules
// are deliberately narrower than Create's: the time range is checked only
// when both timestamps are supplied, and the odometer rule only when the
// odometer is supplied (against the ledger excluding the trip itself).
// Departure-vs-ledger is never re-checked on edit; that asymmetry matches
// the system's historical behavior and is intentional.
func (s *TripService) Update(ctx context.Context, ident domain.Identity, tripID uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	var updated domain.Trip

	err := s.store.ExecTx(ctx, func(r repo.Repos) error {
		existing, err := r.Trips.GetByID(ctx, ident.CompanyID, tripID)
		if err != nil {
			return fmt.Errorf("service.TripService.Update: %w", err)
		}
		if !ident.IsAdmin() && existing.DriverID != ident.DriverID {
			return fmt.Errorf("service.TripService.Update: %w: trip belongs to another driver", domain.ErrForbidden)
		}

		if patch.DepartureAt != nil && patch.ArrivalAt != nil {
			if err := domain.CheckTimeRange(*patch.DepartureAt, *patch.ArrivalAt); err != nil {
				return err
			}
		}

		if patch.FinalOdometer != nil {
			if err := r.Vehicles.LockForSequence(ctx, ident.CompanyID, existing.VehicleID); err != nil {
				return fmt.Errorf("service.TripService.Update: %w", err)
			}
			latest, err := ledgerLatest(ctx, r.Trips, ident.CompanyID, existing.VehicleID, &tripID)
			if err != nil {
				return fmt.Errorf("service.TripService.Update: %w", err)
			}
			if err := domain.CheckOdometer(*patch.FinalOdometer, latest); err != nil {
				return err
			}
		}

		updated, err = r.Trips.Update(ctx, existing.Apply(patch))
		if err != nil {
			return fmt.Errorf("service.TripService.Update: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return updated, nil
}

// Delete removes a trip. The caller must be the owning driver or an admin.
// No ledger recheck happens on delete: removing the high-water-mark trip
// simply lowers the ledger for future validation.
func (s *TripService) Delete(ctx context.Context, ident domain.Identity, tripID uuid.UUID) error {
	existing, err := s.trips.GetByID(ctx, ident.CompanyID, tripID)
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if !ident.IsAdmin() && existing.DriverID != ident.DriverID {
		return fmt.Errorf("service.TripService.Delete: %w: trip belongs to another driver", domain.ErrForbidden)
	}

	if err := s.trips.Delete(ctx, ident.CompanyID, tripID); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// ListMine returns a page of the caller's own trips, ordered by
// final_odometer descending. Always returns a non-nil slice so callers can
// safely range over it.
func (s *TripService) ListMine(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error) {
	trips, err := s.trips.ListByDriver(ctx, ident.CompanyID, ident.DriverID, page)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListMine: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// ListCompany returns a page of every trip in the caller's company, ordered
// by departure_at descending. Requires the admin role.
func (s *TripService) ListCompany(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error) {
	if !ident.IsAdmin() {
		return nil, fmt.Errorf("service.TripService.ListCompany: %w: admin role required", domain.ErrForbidden)
	}
	trips, err := s.trips.ListByCompany(ctx, ident.CompanyID, page)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListCompany: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return trips, nil
}

// ledgerLatest fetches the vehicle's ledger-latest trip, translating the
// repo's not-found into a nil pointer ("no prior trips").
func ledgerLatest(ctx context.Context, trips repo.TripRepo, companyID, vehicleID uuid.UUID, excludeTripID *uuid.UUID) (*domain.Trip, error) {
	latest, err := trips.LatestByVehicle(ctx, companyID, vehicleID, excludeTripID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &latest, nil
}
