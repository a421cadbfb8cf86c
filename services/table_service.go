package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"waitline/models"
)

// TableService tracks the physical table pool: capacity-tier candidate
// lookup, the seat/release transitions, and the occupancy invariant that a
// table never carries more than one open reservation.
type TableService struct {
	app      core.App
	Redis    *redis.Client
	history  *HistoryService
	claimTTL time.Duration
}

func NewTableService(app core.App, redisClient *redis.Client, history *HistoryService, claimTTL time.Duration) *TableService {
	return &TableService{
		app:      app,
		Redis:    redisClient,
		history:  history,
		claimTTL: claimTTL,
	}
}

// FindCandidate selects an available table in the capacity tier matching
// the party size. Returns nil when the tier is exhausted; it never falls
// back to a bigger tier (fixed-band policy).
func (s *TableService) FindCandidate(partySize int) (*models.Table, error) {
	records, err := s.app.FindRecordsByFilter(
		"tables",
		"status = 'available' && capacity = {:capacity}",
		"label",
		1,
		0,
		dbx.Params{"capacity": models.PartyBand(partySize)},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	table := models.TableFromRecord(records[0])
	return &table, nil
}

// ClaimTable takes the short exclusive claim that covers the
// find-available -> mark-occupied window, so two staff members cannot seat
// onto the same table at once. False means another seating holds it.
func (s *TableService) ClaimTable(ctx context.Context, tableID string) (bool, error) {
	return s.Redis.SetNX(ctx, tableClaimKey(tableID), "1", s.claimTTL).Result()
}

func (s *TableService) ReleaseClaim(ctx context.Context, tableID string) {
	s.Redis.Del(ctx, tableClaimKey(tableID))
}

func tableClaimKey(tableID string) string {
	return fmt.Sprintf("lock:table:%s", tableID)
}

// Seat performs the allocator side of a seating inside the caller's
// transaction: re-validates availability, creates the reservation, and
// marks the table occupied. The availability recheck is what rejects a
// table whose state changed since it was offered.
func (s *TableService) Seat(app core.App, table *core.Record, entry models.QueueEntry, staffID string, now time.Time) (models.Reservation, error) {
	if models.TableStatus(table.GetString("status")) != models.TableAvailable {
		return models.Reservation{}, fmt.Errorf("table %s is %s: %w", table.Id, table.GetString("status"), ErrTableUnavailable)
	}

	open, err := s.openReservation(app, table.Id)
	if err != nil {
		return models.Reservation{}, err
	}
	if open != nil {
		return models.Reservation{}, fmt.Errorf("table %s already has an open reservation: %w", table.Id, ErrTableUnavailable)
	}

	collection, err := app.FindCollectionByNameOrId("reservations")
	if err != nil {
		return models.Reservation{}, err
	}

	reservation := core.NewRecord(collection)
	reservation.Set("queue_entry_id", entry.ID)
	reservation.Set("table_id", table.Id)
	reservation.Set("customer_id", entry.CustomerID)
	reservation.Set("staff_id", staffID)
	reservation.Set("party_size", entry.PartySize)
	reservation.Set("seated_at", now)
	if err := app.Save(reservation); err != nil {
		return models.Reservation{}, err
	}

	table.Set("status", string(models.TableOccupied))
	if err := app.Save(table); err != nil {
		return models.Reservation{}, err
	}

	return models.ReservationFromRecord(reservation), nil
}

// Release returns a table to the available pool. Only legal once its
// reservation is completed.
func (s *TableService) Release(app core.App, tableID string) error {
	open, err := s.openReservation(app, tableID)
	if err != nil {
		return err
	}
	if open != nil {
		return fmt.Errorf("table %s still holds an open reservation: %w", tableID, ErrInvalidTransition)
	}

	table, err := app.FindRecordById("tables", tableID)
	if err != nil {
		return fmt.Errorf("table %s: %w", tableID, ErrNotFound)
	}

	table.Set("status", string(models.TableAvailable))
	return app.Save(table)
}

// openReservation returns the uncompleted reservation on a table, if any.
func (s *TableService) openReservation(app core.App, tableID string) (*core.Record, error) {
	records, err := app.FindRecordsByFilter(
		"reservations",
		"table_id = {:tableId} && completed_at = ''",
		"",
		1,
		0,
		dbx.Params{"tableId": tableID},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// ListTables returns the pool, optionally filtered by status, ordered by label.
func (s *TableService) ListTables(status string) ([]models.Table, error) {
	filter := "id != ''"
	params := dbx.Params{}
	if status != "" {
		filter = "status = {:status}"
		params["status"] = status
	}

	records, err := s.app.FindRecordsByFilter("tables", filter, "label", 0, 0, params)
	if err != nil {
		return nil, err
	}

	tables := make([]models.Table, 0, len(records))
	for _, r := range records {
		tables = append(tables, models.TableFromRecord(r))
	}
	return tables, nil
}

// CreateTable registers a new physical table in one of the capacity tiers.
func (s *TableService) CreateTable(label string, capacity int, actor string) (models.Table, error) {
	if !validTier(capacity) {
		return models.Table{}, fmt.Errorf("capacity %d is not one of the venue tiers %v", capacity, models.CapacityTiers)
	}

	collection, err := s.app.FindCollectionByNameOrId("tables")
	if err != nil {
		return models.Table{}, err
	}

	record := core.NewRecord(collection)
	record.Set("label", label)
	record.Set("capacity", capacity)
	record.Set("status", string(models.TableAvailable))
	if err := s.app.Save(record); err != nil {
		return models.Table{}, err
	}

	s.history.LogActivity(s.app, actor, models.ActionCreateTable, models.EntityTable, record.Id, map[string]any{
		"label":    label,
		"capacity": capacity,
	})

	return models.TableFromRecord(record), nil
}

// DeleteTable removes a table that is not referenced by an open reservation.
func (s *TableService) DeleteTable(tableID, actor string) error {
	open, err := s.openReservation(s.app, tableID)
	if err != nil {
		return err
	}
	if open != nil {
		return fmt.Errorf("table %s holds an open reservation: %w", tableID, ErrInvalidTransition)
	}

	table, err := s.app.FindRecordById("tables", tableID)
	if err != nil {
		return fmt.Errorf("table %s: %w", tableID, ErrNotFound)
	}
	if err := s.app.Delete(table); err != nil {
		return err
	}

	s.history.LogActivity(s.app, actor, models.ActionDeleteTable, models.EntityTable, tableID, map[string]any{})
	return nil
}

// Utilization counts tables by status for the staff tooling.
func (s *TableService) Utilization() (map[string]int, error) {
	stats := map[string]int{}
	total := 0
	for _, status := range []models.TableStatus{models.TableAvailable, models.TableOccupied, models.TableReserved} {
		count, err := s.app.CountRecords("tables", dbx.HashExp{"status": string(status)})
		if err != nil {
			return nil, err
		}
		stats[string(status)] = int(count)
		total += int(count)
	}
	stats["total"] = total
	return stats, nil
}

// AvailableCount feeds the predictor's sample context.
func (s *TableService) AvailableCount(app core.App) (int, error) {
	count, err := app.CountRecords("tables", dbx.HashExp{"status": string(models.TableAvailable)})
	return int(count), err
}

func validTier(capacity int) bool {
	for _, tier := range models.CapacityTiers {
		if capacity == tier {
			return true
		}
	}
	return false
}
