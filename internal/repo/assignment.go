package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssignmentRepo answers whether a driver is authorized to operate a vehicle.
// An assignment is an explicit (driver, vehicle) record; there is no implicit
// authorization.
type AssignmentRepo interface {
	// Exists reports whether an assignment links driverID to vehicleID.
	// The companyID scope is applied through the vehicles table, so an
	// assignment pointing at another company's vehicle never authorizes
	// anything.
	Exists(ctx context.Context, companyID, driverID, vehicleID uuid.UUID) (bool, error)
}

// pgAssignmentRepo is the Postgres implementation of AssignmentRepo.
type pgAssignmentRepo struct {
	db db
}

// NewAssignmentRepo constructs an AssignmentRepo backed by the provided db connection.
func NewAssignmentRepo(db db) AssignmentRepo {
	return &pgAssignmentRepo{db: db}
}

// Exists checks for an assignment record joined against the tenant's vehicles.
func (r *pgAssignmentRepo) Exists(ctx context.Context, companyID, driverID, vehicleID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM driver_vehicles dv
			JOIN vehicles v ON v.id = dv.vehicle_id
			WHERE dv.driver_id  = @driver_id
			  AND dv.vehicle_id = @vehicle_id
			  AND v.company_id  = @company_id
		)`

	args := pgx.NamedArgs{
		"driver_id":  driverID,
		"vehicle_id": vehicleID,
		"company_id": companyID,
	}

	var exists bool
	if err := r.db.QueryRow(ctx, q, args).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.AssignmentRepo.Exists: %w", err)
	}
	return exists, nil
}
