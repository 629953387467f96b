package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// MaintenanceRepo holds the persistence operations the hourly maintenance
// sweep needs. Maintenance CRUD lives outside this service; the sweep only
// rolls scheduled records over once their due time has passed.
type MaintenanceRepo interface {
	// CompleteOverdue flips every 'scheduled' maintenance whose
	// scheduled_for is at or before now to 'completed' and returns how many
	// rows changed. The sweep runs across all companies; a single UPDATE
	// keeps it atomic.
	CompleteOverdue(ctx context.Context, now time.Time) (int64, error)
}

// pgMaintenanceRepo is the Postgres implementation of MaintenanceRepo.
type pgMaintenanceRepo struct {
	db db
}

// NewMaintenanceRepo constructs a MaintenanceRepo backed by the provided db connection.
func NewMaintenanceRepo(db db) MaintenanceRepo {
	return &pgMaintenanceRepo{db: db}
}

func (r *pgMaintenanceRepo) CompleteOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE maintenances
		SET status = 'completed', updated_at = now()
		WHERE status = 'scheduled' AND scheduled_for <= @now`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"now": now})
	if err != nil {
		return 0, fmt.Errorf("repo.MaintenanceRepo.CompleteOverdue: %w", err)
	}
	return tag.RowsAffected(), nil
}
