// Package repo contains all database access logic for the fleet trip ledger.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fleetlog/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup. It is also what lets the
// Store rebind every repo onto a single transaction for the write paths.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation is the Postgres error code for a unique constraint failure.
const uniqueViolation = "23505"

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
//
// Every method takes the caller's companyID and scopes its query by it;
// a trip belonging to another company behaves exactly like a missing trip.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	// Returns domain.ErrConflict if the (vehicle_id, final_odometer) unique
	// constraint rejects the row — a concurrent writer won the ledger slot.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists in the company.
	GetByID(ctx context.Context, companyID, id uuid.UUID) (domain.Trip, error)

	// LatestByVehicle returns the vehicle's ledger-latest trip: the one with
	// the highest final_odometer, which is not necessarily the most recent
	// by time. excludeTripID, when non-nil, removes one trip from
	// consideration (used while revalidating an edit against the rest of
	// the ledger). Returns domain.ErrNotFound when the vehicle has no
	// eligible trips.
	LatestByVehicle(ctx context.Context, companyID, vehicleID uuid.UUID, excludeTripID *uuid.UUID) (domain.Trip, error)

	// ListByDriver returns a page of the driver's trips ordered by
	// final_odometer descending.
	ListByDriver(ctx context.Context, companyID, driverID uuid.UUID, page domain.PaginationParams) ([]domain.Trip, error)

	// ListByCompany returns a page of every trip in the company ordered by
	// departure_at descending.
	ListByCompany(ctx context.Context, companyID uuid.UUID, page domain.PaginationParams) ([]domain.Trip, error)

	// Update overwrites the mutable fields of an existing trip and returns
	// the updated record. Returns domain.ErrNotFound if no trip with that ID
	// exists in the company, domain.ErrConflict on a unique violation.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not
	// exist in the company.
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool or a pgx.Tx from Store.ExecTx; in tests
// pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, company_id, driver_id, vehicle_id, departure_at, arrival_at, purpose, final_odometer, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (company_id, driver_id, vehicle_id, departure_at, arrival_at, purpose, final_odometer)
		VALUES (@company_id, @driver_id, @vehicle_id, @departure_at, @arrival_at, @purpose, @final_odometer)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"company_id":     trip.CompanyID,
		"driver_id":      trip.DriverID,
		"vehicle_id":     trip.VehicleID,
		"departure_at":   trip.DepartureAt,
		"arrival_at":     trip.ArrivalAt,
		"purpose":        trip.Purpose,
		"final_odometer": trip.FinalOdometer,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapConflict(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key, scoped to the company.
func (r *pgTripRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id AND company_id = @company_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "company_id": companyID})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// LatestByVehicle returns the highest-odometer trip for the vehicle.
// The exclude_trip_id predicate is written so a nil UUID disables it,
// keeping create and edit revalidation on the same query.
func (r *pgTripRepo) LatestByVehicle(ctx context.Context, companyID, vehicleID uuid.UUID, excludeTripID *uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE vehicle_id = @vehicle_id
		  AND company_id = @company_id
		  AND (@exclude_trip_id::uuid IS NULL OR id <> @exclude_trip_id)
		ORDER BY final_odometer DESC
		LIMIT 1`

	args := pgx.NamedArgs{
		"vehicle_id":      vehicleID,
		"company_id":      companyID,
		"exclude_trip_id": excludeTripID, // nil becomes NULL
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.LatestByVehicle: %w", err)
	}
	return result, nil
}

// ListByDriver returns the driver's trips ordered by final_odometer descending.
// Odometer-descending is the historical "recent first" ordering of the
// driver-facing list; it intentionally mirrors the ledger ordering.
func (r *pgTripRepo) ListByDriver(ctx context.Context, companyID, driverID uuid.UUID, page domain.PaginationParams) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE driver_id = @driver_id AND company_id = @company_id
		ORDER BY final_odometer DESC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"driver_id":  driverID,
		"company_id": companyID,
		"limit":      page.Limit,
		"offset":     page.Offset(),
	}

	return r.list(ctx, "ListByDriver", q, args)
}

// ListByCompany returns every trip in the company ordered by departure_at descending.
func (r *pgTripRepo) ListByCompany(ctx context.Context, companyID uuid.UUID, page domain.PaginationParams) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE company_id = @company_id
		ORDER BY departure_at DESC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"company_id": companyID,
		"limit":      page.Limit,
		"offset":     page.Offset(),
	}

	return r.list(ctx, "ListByCompany", q, args)
}

func (r *pgTripRepo) list(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.%s: %w", op, err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.%s: scan: %w", op, err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.%s: rows: %w", op, err)
	}

	return trips, nil
}

// Update overwrites the mutable fields of a trip and returns the updated record.
// driver_id and company_id are immutable after creation and are not touched.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET departure_at   = @departure_at,
		    arrival_at     = @arrival_at,
		    purpose        = @purpose,
		    final_odometer = @final_odometer,
		    updated_at     = now()
		WHERE id = @id AND company_id = @company_id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":             trip.ID,
		"company_id":     trip.CompanyID,
		"departure_at":   trip.DepartureAt,
		"arrival_at":     trip.ArrivalAt,
		"purpose":        trip.Purpose,
		"final_odometer": trip.FinalOdometer,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", mapConflict(err))
	}
	return result, nil
}

// Delete removes a trip by primary key, scoped to the company.
func (r *pgTripRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id AND company_id = @company_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "company_id": companyID})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanTrip to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t         domain.Trip
		id        pgtype.UUID
		companyID pgtype.UUID
		driverID  pgtype.UUID
		vehicleID pgtype.UUID
	)

	err := s.Scan(&id, &companyID, &driverID, &vehicleID,
		&t.DepartureAt, &t.ArrivalAt, &t.Purpose, &t.FinalOdometer,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.CompanyID = uuid.UUID(companyID.Bytes)
	t.DriverID = uuid.UUID(driverID.Bytes)
	t.VehicleID = uuid.UUID(vehicleID.Bytes)

	return t, nil
}

// mapConflict translates a unique-violation Postgres error into
// domain.ErrConflict so callers do not have to import pgconn.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
