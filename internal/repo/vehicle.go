package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetlog/backend/internal/domain"
)

// VehicleRepo defines the persistence operations the trip write paths need
// on vehicles. Vehicle CRUD itself lives outside this service.
type VehicleRepo interface {
	// LockForSequence takes a row-level lock on the vehicle inside the
	// current transaction, serializing all trip writes for that vehicle
	// until commit. It doubles as the existence and tenancy check:
	// domain.ErrNotFound means the vehicle does not exist in the company.
	//
	// Only meaningful on a repo bound to a transaction (Store.ExecTx);
	// outside one the lock is released immediately.
	LockForSequence(ctx context.Context, companyID, vehicleID uuid.UUID) error
}

// pgVehicleRepo is the Postgres implementation of VehicleRepo.
type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

// LockForSequence locks the vehicle row with SELECT ... FOR UPDATE.
func (r *pgVehicleRepo) LockForSequence(ctx context.Context, companyID, vehicleID uuid.UUID) error {
	const q = `
		SELECT id
		FROM vehicles
		WHERE id = @id AND company_id = @company_id
		FOR UPDATE`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": vehicleID, "company_id": companyID}).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("repo.VehicleRepo.LockForSequence: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.VehicleRepo.LockForSequence: %w", err)
	}
	return nil
}
