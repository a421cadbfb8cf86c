package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"waitline/config"
	"waitline/models"
	"waitline/monitoring"
	"waitline/utils"
)

const (
	queueLockKey      = "lock:queue"
	queueLockAttempts = 20
	queueLockBackoff  = 50 * time.Millisecond
)

// QueueService owns the queue entry lifecycle and the position invariant:
// among active entries, positions are always the contiguous sequence 1..N
// ordered by join time. Every mutating operation serializes on the queue
// lock and runs its writes in one datastore transaction, so concurrent
// staff actions cannot race the admission count, a table, or the ordering.
type QueueService struct {
	app     core.App
	Redis   *redis.Client
	tables  *TableService
	history *HistoryService
	notify  *NotifyService
	cfg     *config.Config

	// Now is the clock every transition reads; swappable for tests.
	Now func() time.Time
}

func NewQueueService(app core.App, redisClient *redis.Client, tables *TableService, history *HistoryService, notify *NotifyService, cfg *config.Config) *QueueService {
	return &QueueService{
		app:     app,
		Redis:   redisClient,
		tables:  tables,
		history: history,
		notify:  notify,
		cfg:     cfg,
		Now:     time.Now,
	}
}

// Join admits a customer into the line. While the active set is at the
// admission ceiling the request is rejected with a CapacityError that still
// carries the estimate the customer would face at position count+1.
func (s *QueueService) Join(ctx context.Context, customerID string, partySize int) (models.QueueEntry, error) {
	if partySize < 1 {
		return models.QueueEntry{}, fmt.Errorf("party size must be positive: %w", ErrInvalidTransition)
	}

	if err := s.acquireQueueLock(ctx); err != nil {
		monitoring.TrackQueueOperation("join", "conflict")
		return models.QueueEntry{}, err
	}
	defer s.releaseQueueLock(ctx)

	now := s.Now()
	var entry models.QueueEntry
	var estimate int

	err := s.app.RunInTransaction(func(txApp core.App) error {
		count, err := txApp.CountRecords("queue_entries",
			dbx.In("status", string(models.StatusWaiting), string(models.StatusNotified)))
		if err != nil {
			return err
		}

		position := int(count) + 1

		samples, err := s.history.RecentSamplesWithActual(txApp, s.cfg.PredictorSampleLimit)
		if err != nil {
			// estimator degrades to the heuristic without history
			slog.Warn("sample read failed, using heuristic estimate", "error", err)
			samples = nil
		}
		estimate = Estimate(partySize, position, samples, now)

		if int(count) >= s.cfg.AdmissionCeiling {
			return &CapacityError{EstimatedWait: estimate}
		}

		token, err := utils.NewAdmissionToken()
		if err != nil {
			return err
		}

		collection, err := txApp.FindCollectionByNameOrId("queue_entries")
		if err != nil {
			return err
		}

		record := core.NewRecord(collection)
		record.Set("customer_id", customerID)
		record.Set("party_size", partySize)
		record.Set("status", string(models.StatusWaiting))
		record.Set("token", token)
		record.Set("position", position)
		record.Set("estimated_wait_time", estimate)
		record.Set("joined_at", now)
		if err := txApp.Save(record); err != nil {
			return err
		}

		entry = models.QueueEntryFromRecord(record)
		return nil
	})
	if err != nil {
		var capErr *CapacityError
		if errors.As(err, &capErr) {
			monitoring.TrackQueueOperation("join", "capacity_exceeded")
		} else {
			monitoring.TrackQueueOperation("join", "error")
		}
		return models.QueueEntry{}, err
	}

	s.recordJoinHistory(entry, now)
	monitoring.TrackQueueOperation("join", "ok")
	monitoring.TrackEstimate(estimate)

	return entry, nil
}

// recordJoinHistory appends the prediction sample and activity row for a
// committed join. Best-effort: the entry stays admitted even if the log
// write fails.
func (s *QueueService) recordJoinHistory(entry models.QueueEntry, now time.Time) {
	availableTables, err := s.tables.AvailableCount(s.app)
	if err != nil {
		availableTables = 0
	}

	sample := models.WaitTimeSample{
		QueueEntryID:    entry.ID,
		PredictedWait:   entry.EstimatedWait,
		QueueLength:     entry.Position,
		AvailableTables: availableTables,
		HourOfDay:       now.Hour(),
		DayOfWeek:       int(now.Weekday()),
	}
	if err := s.history.RecordPrediction(s.app, sample); err != nil {
		monitoring.TrackHistoryWriteFailure("prediction")
		slog.Error("prediction sample write failed", "entry_id", entry.ID, "error", err)
	}

	s.history.LogActivity(s.app, entry.CustomerID, models.ActionJoinQueue, models.EntityQueueEntry, entry.ID, map[string]any{
		"party_size":          entry.PartySize,
		"position":            entry.Position,
		"estimated_wait_time": entry.EstimatedWait,
	})
}

// Cancel terminalizes a waiting or notified entry and compacts positions.
func (s *QueueService) Cancel(ctx context.Context, entryID, actor string) error {
	if err := s.acquireQueueLock(ctx); err != nil {
		return err
	}
	defer s.releaseQueueLock(ctx)

	now := s.Now()
	var reordered []models.QueueEntry

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("queue_entries", entryID)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
		}

		status := models.QueueStatus(record.GetString("status"))
		if !status.CanTransitionTo(models.StatusCancelled) {
			return fmt.Errorf("cancel from %s: %w", status, ErrInvalidTransition)
		}

		record.Set("status", string(models.StatusCancelled))
		record.Set("cancelled_at", now)
		if err := txApp.Save(record); err != nil {
			return err
		}

		reordered, err = s.reorderTx(txApp)
		return err
	})
	if err != nil {
		monitoring.TrackQueueOperation("cancel", "error")
		return err
	}

	s.history.LogActivity(s.app, actor, models.ActionCancelQueue, models.EntityQueueEntry, entryID, map[string]any{})
	s.publishPositions(reordered)
	monitoring.TrackQueueOperation("cancel", "ok")
	return nil
}

// Notify moves a waiting entry to notified and emits the table-ready
// intent. The confirmation window is recorded on the intent; expiring it
// is the sweeper's job, not this call's.
func (s *QueueService) Notify(ctx context.Context, entryID, staffID string) (models.QueueEntry, error) {
	var entry models.QueueEntry
	err := s.withConflictRetry(func() error {
		var err error
		entry, err = s.notifyOnce(ctx, entryID)
		return err
	})
	if err != nil {
		monitoring.TrackQueueOperation("notify", "error")
		return models.QueueEntry{}, err
	}

	confirmMinutes := int(s.cfg.NotifyConfirmWindow.Minutes())
	s.notify.Dispatch(s.app, TableReadyIntent(entry, confirmMinutes))
	s.history.LogActivity(s.app, staffID, models.ActionNotifyCustomer, models.EntityQueueEntry, entryID, map[string]any{
		"confirm_within_minutes": confirmMinutes,
	})
	monitoring.TrackQueueOperation("notify", "ok")
	return entry, nil
}

func (s *QueueService) notifyOnce(ctx context.Context, entryID string) (models.QueueEntry, error) {
	if err := s.acquireQueueLock(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	defer s.releaseQueueLock(ctx)

	now := s.Now()
	var entry models.QueueEntry

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("queue_entries", entryID)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
		}

		if status := models.QueueStatus(record.GetString("status")); status != models.StatusWaiting {
			return fmt.Errorf("notify from %s: %w", status, ErrInvalidTransition)
		}

		record.Set("status", string(models.StatusNotified))
		record.Set("notified_at", now)
		if err := txApp.Save(record); err != nil {
			return err
		}

		entry = models.QueueEntryFromRecord(record)
		return nil
	})
	return entry, err
}

// Seat transitions an entry to seated against a specific table: the entry,
// the reservation, and the table flip in one transaction, so a failure on
// any of them leaves no partial seating behind. Waiting entries may be
// seated directly without a prior notify.
func (s *QueueService) Seat(ctx context.Context, entryID, tableID, staffID string) (models.Reservation, error) {
	var reservation models.Reservation
	err := s.withConflictRetry(func() error {
		var err error
		reservation, err = s.seatOnce(ctx, entryID, tableID, staffID)
		return err
	})
	if err != nil {
		monitoring.TrackQueueOperation("seat", "error")
		return models.Reservation{}, err
	}

	monitoring.TrackQueueOperation("seat", "ok")
	return reservation, nil
}

func (s *QueueService) seatOnce(ctx context.Context, entryID, tableID, staffID string) (models.Reservation, error) {
	if err := s.acquireQueueLock(ctx); err != nil {
		return models.Reservation{}, err
	}
	defer s.releaseQueueLock(ctx)

	claimed, err := s.tables.ClaimTable(ctx, tableID)
	if err != nil {
		return models.Reservation{}, err
	}
	if !claimed {
		return models.Reservation{}, fmt.Errorf("table %s is being seated by someone else: %w", tableID, ErrConcurrencyConflict)
	}
	defer s.tables.ReleaseClaim(ctx, tableID)

	now := s.Now()
	var entry models.QueueEntry
	var reservation models.Reservation
	var actualWait int
	var reordered []models.QueueEntry

	err = s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("queue_entries", entryID)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
		}

		status := models.QueueStatus(record.GetString("status"))
		if !status.CanTransitionTo(models.StatusSeated) {
			return fmt.Errorf("seat from %s: %w", status, ErrInvalidTransition)
		}

		table, err := txApp.FindRecordById("tables", tableID)
		if err != nil {
			return fmt.Errorf("table %s: %w", tableID, ErrNotFound)
		}

		entry = models.QueueEntryFromRecord(record)
		reservation, err = s.tables.Seat(txApp, table, entry, staffID, now)
		if err != nil {
			return err
		}

		record.Set("status", string(models.StatusSeated))
		record.Set("seated_at", now)
		if err := txApp.Save(record); err != nil {
			return err
		}
		entry = models.QueueEntryFromRecord(record)

		actualWait = wholeMinutes(entry.JoinedAt, now)

		reordered, err = s.reorderTx(txApp)
		return err
	})
	if err != nil {
		return models.Reservation{}, err
	}

	// outcome feedback closes the predicted-vs-actual loop; best-effort
	if err := s.history.FillActual(s.app, entryID, actualWait); err != nil {
		monitoring.TrackHistoryWriteFailure("actual_wait")
		slog.Error("actual wait backfill failed", "entry_id", entryID, "error", err)
	}

	table, err := s.app.FindRecordById("tables", tableID)
	tableLabel := tableID
	if err == nil {
		tableLabel = table.GetString("label")
	}
	s.notify.Dispatch(s.app, SeatedIntent(entry, tableLabel))

	s.history.LogActivity(s.app, staffID, models.ActionSeatCustomer, models.EntityQueueEntry, entryID, map[string]any{
		"table_id":         tableID,
		"actual_wait_time": actualWait,
	})
	s.publishPositions(reordered)

	return reservation, nil
}

// MarkNoShow expires a notified entry whose confirmation window has
// passed. Driven by the sweeper, never by the transitions themselves.
func (s *QueueService) MarkNoShow(ctx context.Context, entryID, actor string) error {
	if err := s.acquireQueueLock(ctx); err != nil {
		return err
	}
	defer s.releaseQueueLock(ctx)

	now := s.Now()
	var entry models.QueueEntry
	var reordered []models.QueueEntry

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("queue_entries", entryID)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
		}

		status := models.QueueStatus(record.GetString("status"))
		if !status.CanTransitionTo(models.StatusNoShow) {
			return fmt.Errorf("no-show from %s: %w", status, ErrInvalidTransition)
		}

		record.Set("status", string(models.StatusNoShow))
		record.Set("cancelled_at", now)
		if err := txApp.Save(record); err != nil {
			return err
		}

		entry = models.QueueEntryFromRecord(record)
		reordered, err = s.reorderTx(txApp)
		return err
	})
	if err != nil {
		monitoring.TrackQueueOperation("no_show", "error")
		return err
	}

	s.notify.Dispatch(s.app, NoShowIntent(entry))
	s.history.LogActivity(s.app, actor, models.ActionMarkNoShow, models.EntityQueueEntry, entryID, map[string]any{
		"notified_at": entry.NotifiedAt,
	})
	s.publishPositions(reordered)
	monitoring.TrackQueueOperation("no_show", "ok")
	return nil
}

// CompleteReservation closes an open reservation and frees its table.
func (s *QueueService) CompleteReservation(ctx context.Context, reservationID, staffID string) (models.Reservation, error) {
	now := s.Now()
	var reservation models.Reservation

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("reservations", reservationID)
		if err != nil {
			return fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}

		if !record.GetDateTime("completed_at").IsZero() {
			return fmt.Errorf("reservation %s already completed: %w", reservationID, ErrInvalidTransition)
		}

		duration := wholeMinutes(record.GetDateTime("seated_at").Time(), now)
		record.Set("completed_at", now)
		record.Set("duration_minutes", duration)
		if err := txApp.Save(record); err != nil {
			return err
		}

		if tableID := record.GetString("table_id"); tableID != "" {
			if err := s.tables.Release(txApp, tableID); err != nil {
				return err
			}
		}

		reservation = models.ReservationFromRecord(record)
		return nil
	})
	if err != nil {
		monitoring.TrackQueueOperation("complete_reservation", "error")
		return models.Reservation{}, err
	}

	s.history.LogActivity(s.app, staffID, models.ActionCompleteSeating, models.EntityReservation, reservationID, map[string]any{
		"duration_minutes": reservation.Duration,
	})
	monitoring.TrackQueueOperation("complete_reservation", "ok")
	return reservation, nil
}

// ChangeTableStatus is the staff override for table state. Moving a table
// away from occupied while a reservation is open force-completes the
// reservation and cancels its queue entry, both with audit rows. The entry
// cancellation deliberately bypasses the normal state machine: the override
// exists precisely to unwind a seated state.
func (s *QueueService) ChangeTableStatus(ctx context.Context, tableID string, status models.TableStatus, actor string) error {
	switch status {
	case models.TableAvailable, models.TableOccupied, models.TableReserved:
	default:
		return fmt.Errorf("unknown table status %q: %w", status, ErrInvalidTransition)
	}

	if err := s.acquireQueueLock(ctx); err != nil {
		return err
	}
	defer s.releaseQueueLock(ctx)

	now := s.Now()
	var forced *models.Reservation
	var reordered []models.QueueEntry

	err := s.app.RunInTransaction(func(txApp core.App) error {
		table, err := txApp.FindRecordById("tables", tableID)
		if err != nil {
			return fmt.Errorf("table %s: %w", tableID, ErrNotFound)
		}

		if status != models.TableOccupied {
			open, err := s.tables.openReservation(txApp, tableID)
			if err != nil {
				return err
			}
			if open != nil {
				duration := wholeMinutes(open.GetDateTime("seated_at").Time(), now)
				open.Set("completed_at", now)
				open.Set("duration_minutes", duration)
				if err := txApp.Save(open); err != nil {
					return err
				}

				if entryID := open.GetString("queue_entry_id"); entryID != "" {
					entry, err := txApp.FindRecordById("queue_entries", entryID)
					if err == nil {
						entry.Set("status", string(models.StatusCancelled))
						entry.Set("cancelled_at", now)
						if err := txApp.Save(entry); err != nil {
							return err
						}
					}
				}

				r := models.ReservationFromRecord(open)
				forced = &r
			}
		}

		table.Set("status", string(status))
		if err := txApp.Save(table); err != nil {
			return err
		}

		reordered, err = s.reorderTx(txApp)
		return err
	})
	if err != nil {
		return err
	}

	if forced != nil {
		s.history.LogActivity(s.app, actor, models.ActionForceComplete, models.EntityReservation, forced.ID, map[string]any{
			"reservation_id":   forced.ID,
			"duration_minutes": forced.Duration,
		})
	}
	s.history.LogActivity(s.app, actor, models.ActionChangeTableStatus, models.EntityTable, tableID, map[string]any{
		"status": string(status),
	})
	s.publishPositions(reordered)
	return nil
}

// ValidateToken resolves an admission token to its entry only while the
// entry is exactly notified. Stale tokens (seated, cancelled, or never
// notified) resolve to nothing so they cannot be honored twice.
func (s *QueueService) ValidateToken(token string) (models.QueueEntry, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"queue_entries",
		"token = {:token} && status = 'notified'",
		dbx.Params{"token": token},
	)
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("token: %w", ErrNotFound)
	}
	return models.QueueEntryFromRecord(record), nil
}

// GetEntry returns one entry by id.
func (s *QueueService) GetEntry(entryID string) (models.QueueEntry, error) {
	record, err := s.app.FindRecordById("queue_entries", entryID)
	if err != nil {
		return models.QueueEntry{}, fmt.Errorf("entry %s: %w", entryID, ErrNotFound)
	}
	return models.QueueEntryFromRecord(record), nil
}

// ActiveQueue returns the current line in position order.
func (s *QueueService) ActiveQueue() ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		"queue_entries",
		"status = 'waiting' || status = 'notified'",
		"position",
		0,
		0,
	)
	if err != nil {
		return nil, err
	}

	entries := make([]models.QueueEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.QueueEntryFromRecord(r))
	}
	return entries, nil
}

// CustomerQueue returns a customer's entries, newest first.
func (s *QueueService) CustomerQueue(customerID string) ([]models.QueueEntry, error) {
	records, err := s.app.FindRecordsByFilter(
		"queue_entries",
		"customer_id = {:customerId}",
		"-joined_at",
		0,
		0,
		dbx.Params{"customerId": customerID},
	)
	if err != nil {
		return nil, err
	}

	entries := make([]models.QueueEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.QueueEntryFromRecord(r))
	}
	return entries, nil
}

// reorderTx rewrites active positions to their 1-based FIFO rank, writing
// only entries whose position actually changed. Always runs under the
// queue lock inside the caller's transaction.
func (s *QueueService) reorderTx(txApp core.App) ([]models.QueueEntry, error) {
	records, err := txApp.FindRecordsByFilter(
		"queue_entries",
		"status = 'waiting' || status = 'notified'",
		"joined_at",
		0,
		0,
	)
	if err != nil {
		return nil, err
	}

	entries := make([]models.QueueEntry, 0, len(records))
	byID := make(map[string]*core.Record, len(records))
	for _, r := range records {
		entries = append(entries, models.QueueEntryFromRecord(r))
		byID[r.Id] = r
	}

	changed := make([]models.QueueEntry, 0)
	for id, rank := range rankChanges(entries) {
		record := byID[id]
		record.Set("position", rank)
		if err := txApp.Save(record); err != nil {
			return nil, err
		}
		changed = append(changed, models.QueueEntryFromRecord(record))
	}
	return changed, nil
}

// rankChanges computes the 1-based FIFO rank of every active entry and
// returns only the entries whose stored position disagrees with it.
func rankChanges(entries []models.QueueEntry) map[string]int {
	active := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status.IsActive() {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})

	changes := make(map[string]int)
	for i, e := range active {
		if rank := i + 1; e.Position != rank {
			changes[e.ID] = rank
		}
	}
	return changes
}

func (s *QueueService) publishPositions(entries []models.QueueEntry) {
	for _, e := range entries {
		s.notify.PublishPositionUpdate(e)
	}
}

// withConflictRetry re-runs a checked-and-set operation once after a lost
// race; the retry re-validates current state, so it either succeeds or
// fails with a definitive error.
func (s *QueueService) withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrConcurrencyConflict) {
		return fn()
	}
	return err
}

func (s *QueueService) acquireQueueLock(ctx context.Context) error {
	for attempt := 0; attempt < queueLockAttempts; attempt++ {
		ok, err := s.Redis.SetNX(ctx, queueLockKey, "1", s.cfg.QueueLockTTL).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(queueLockBackoff):
		}
	}
	return fmt.Errorf("queue lock contended: %w", ErrConcurrencyConflict)
}

func (s *QueueService) releaseQueueLock(ctx context.Context) {
	s.Redis.Del(ctx, queueLockKey)
}

// wholeMinutes is the floor of the elapsed time between two instants.
func wholeMinutes(from, to time.Time) int {
	minutes := int(to.Sub(from).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}
