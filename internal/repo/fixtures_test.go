package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/fleetlog/backend/internal/domain"
	"github.com/fleetlog/backend/testutil"
)

// fleetFixture is a company with one admin-less driver, one vehicle, and an
// assignment linking them — the minimum world a trip row needs.
type fleetFixture struct {
	CompanyID uuid.UUID
	DriverID  uuid.UUID
	VehicleID uuid.UUID
}

// newTestTx opens a transaction against the test database. The transaction
// is rolled back when the test finishes, giving free per-test isolation
// without any cleanup SQL.
//
// Requires TEST_DATABASE_URL to be set; TestMain has already applied all
// migrations.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return tx
}

// insertFleet seeds a company, driver, vehicle, and driver-vehicle
// assignment inside the test transaction.
func insertFleet(t *testing.T, tx pgx.Tx) fleetFixture {
	t.Helper()
	ctx := context.Background()

	f := fleetFixture{}
	err := tx.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ('Transportes Andrade') RETURNING id`,
	).Scan(&f.CompanyID)
	require.NoError(t, err, "insert company")

	err = tx.QueryRow(ctx,
		`INSERT INTO drivers (company_id, name, email)
		 VALUES ($1, 'Paulo Silva', $2) RETURNING id`,
		f.CompanyID, uuid.NewString()+"@example.com",
	).Scan(&f.DriverID)
	require.NoError(t, err, "insert driver")

	err = tx.QueryRow(ctx,
		`INSERT INTO vehicles (company_id, plate, model)
		 VALUES ($1, $2, 'Fiorino') RETURNING id`,
		f.CompanyID, uuid.NewString()[:8],
	).Scan(&f.VehicleID)
	require.NoError(t, err, "insert vehicle")

	_, err = tx.Exec(ctx,
		`INSERT INTO driver_vehicles (driver_id, vehicle_id) VALUES ($1, $2)`,
		f.DriverID, f.VehicleID)
	require.NoError(t, err, "insert assignment")

	return f
}

// tripFixture returns a domain.Trip for the fixture fleet with sensible
// defaults. Callers override individual fields after calling this.
func tripFixture(f fleetFixture) domain.Trip {
	return domain.Trip{
		CompanyID:     f.CompanyID,
		DriverID:      f.DriverID,
		VehicleID:     f.VehicleID,
		DepartureAt:   time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		ArrivalAt:     time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		Purpose:       "warehouse delivery",
		FinalOdometer: 15000,
	}
}
