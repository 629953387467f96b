package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetlog/backend/internal/repo"
)

// MaintenanceSweeper periodically rolls overdue scheduled maintenances over
// to completed. It is the background collaborator of the trip API: it never
// touches the trip ledger.
type MaintenanceSweeper struct {
	maintenances repo.MaintenanceRepo
	interval     time.Duration
	log          *slog.Logger
}

// NewMaintenanceSweeper constructs a sweeper that fires every interval.
func NewMaintenanceSweeper(maintenances repo.MaintenanceRepo, interval time.Duration, log *slog.Logger) *MaintenanceSweeper {
	return &MaintenanceSweeper{maintenances: maintenances, interval: interval, log: log}
}

// Run sweeps once immediately, then on every tick until ctx is canceled.
// Errors are logged and the loop keeps going; a failed sweep is retried on
// the next tick.
func (s *MaintenanceSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("maintenance sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce performs a single rollover pass and returns how many
// maintenances were completed.
func (s *MaintenanceSweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.maintenances.CompleteOverdue(ctx, time.Now().UTC())
}

func (s *MaintenanceSweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error("maintenance sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("maintenance sweep completed overdue records", "count", n)
	}
}
