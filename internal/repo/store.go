package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos bundles every repo the trip write paths use, all bound to the same
// transaction. Store.ExecTx hands one of these to its callback.
type Repos struct {
	Trips       TripRepo
	Vehicles    VehicleRepo
	Assignments AssignmentRepo
}

// Store runs multi-statement write sequences in a single transaction.
//
// The trip ledger's read-latest/validate/insert sequence is only safe when
// no concurrent writer can slip between the read and the write. ExecTx
// gives the service layer one transaction for the whole sequence; combined
// with VehicleRepo.LockForSequence it serializes writers per vehicle.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over the connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ExecTx begins a transaction, builds a Repos bound to it, and runs fn.
// The transaction commits only if fn returns nil; any error rolls it back
// and is returned unchanged so sentinel checks still work at the caller.
func (s *Store) ExecTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Store.ExecTx: begin: %w", err)
	}
	// Rollback after commit is a no-op.
	defer tx.Rollback(ctx)

	r := Repos{
		Trips:       NewTripRepo(tx),
		Vehicles:    NewVehicleRepo(tx),
		Assignments: NewAssignmentRepo(tx),
	}

	if err := fn(r); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Store.ExecTx: commit: %w", mapConflict(err))
	}
	return nil
}
