package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"

	"waitline/models"
)

// sweepActor identifies sweep-driven transitions in the audit trail.
const sweepActor = "system:no-show-sweep"

// NoShowSweeper is the timer collaborator that expires notified entries
// whose confirmation window has passed. The notify operation only records
// the expectation; this loop is the one thing that enforces it.
type NoShowSweeper struct {
	queue    *QueueService
	window   time.Duration
	interval time.Duration
}

func NewNoShowSweeper(queue *QueueService, window, interval time.Duration) *NoShowSweeper {
	return &NoShowSweeper{
		queue:    queue,
		window:   window,
		interval: interval,
	}
}

// Run sweeps until the context is cancelled. A zero interval disables the
// sweep entirely, leaving no_show transitions to an external scheduler.
func (s *NoShowSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("no-show sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("no-show sweep started", "window", s.window, "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			slog.Info("no-show sweep stopping")
			return
		}
	}
}

func (s *NoShowSweeper) sweep(ctx context.Context) {
	cutoff := s.queue.Now().Add(-s.window)

	records, err := s.queue.app.FindRecordsByFilter(
		"queue_entries",
		"status = 'notified' && notified_at != '' && notified_at <= {:cutoff}",
		"notified_at",
		0,
		0,
		dbx.Params{"cutoff": cutoff.UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		slog.Error("no-show sweep query failed", "error", err)
		return
	}

	for _, record := range records {
		entry := models.QueueEntryFromRecord(record)
		if err := s.queue.MarkNoShow(ctx, entry.ID, sweepActor); err != nil {
			// a racing seat or cancel is fine; the entry left notified on its own
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			slog.Error("no-show transition failed", "entry_id", entry.ID, "error", err)
		}
	}
}
