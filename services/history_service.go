package services

import (
	"fmt"
	"log/slog"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"waitline/models"
	"waitline/monitoring"
)

// unfilledActualWait marks a sample whose entry has not been seated yet.
// Number columns are not nullable, so the late fill-in uses a sentinel.
const unfilledActualWait = -1

// HistoryService is the append-only prediction/outcome log and activity
// audit trail. Writes are best-effort relative to the state transitions
// that trigger them: a failed log never rolls back a committed transition,
// it is counted and logged for operational monitoring instead.
type HistoryService struct {
	app core.App
}

func NewHistoryService(app core.App) *HistoryService {
	return &HistoryService{app: app}
}

// RecordPrediction appends a WaitTimeSample for a freshly joined entry.
func (s *HistoryService) RecordPrediction(app core.App, sample models.WaitTimeSample) error {
	collection, err := app.FindCollectionByNameOrId("wait_time_history")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("queue_entry_id", sample.QueueEntryID)
	record.Set("predicted_wait_time", sample.PredictedWait)
	record.Set("queue_length", sample.QueueLength)
	record.Set("available_tables", sample.AvailableTables)
	record.Set("hour_of_day", sample.HourOfDay)
	record.Set("day_of_week", sample.DayOfWeek)
	record.Set("actual_wait_time", unfilledActualWait)

	return app.Save(record)
}

// FillActual performs the single late mutation a sample permits: stamping
// the observed wait once the entry is seated.
func (s *HistoryService) FillActual(app core.App, entryID string, minutes int) error {
	record, err := app.FindFirstRecordByFilter(
		"wait_time_history",
		"queue_entry_id = {:entryId}",
		dbx.Params{"entryId": entryID},
	)
	if err != nil {
		return fmt.Errorf("sample for entry %s: %w", entryID, ErrNotFound)
	}

	record.Set("actual_wait_time", minutes)
	return app.Save(record)
}

// RecordActivity appends one audit row. Past records are never mutated.
func (s *HistoryService) RecordActivity(app core.App, actor, action, entityType, entityID string, details map[string]any) error {
	collection, err := app.FindCollectionByNameOrId("activity_logs")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("actor", actor)
	record.Set("action", action)
	record.Set("entity_type", entityType)
	record.Set("entity_id", entityID)
	record.Set("details", details)

	return app.Save(record)
}

// LogActivity is RecordActivity with the best-effort policy applied.
func (s *HistoryService) LogActivity(app core.App, actor, action, entityType, entityID string, details map[string]any) {
	if err := s.RecordActivity(app, actor, action, entityType, entityID, details); err != nil {
		monitoring.TrackHistoryWriteFailure("activity")
		slog.Error("activity log write failed", "action", action, "entity_id", entityID, "error", err)
	}
}

// RecentSamplesWithActual returns the newest samples that already have an
// outcome, newest first. This is the predictor's entire view of history.
func (s *HistoryService) RecentSamplesWithActual(app core.App, limit int) ([]models.WaitTimeSample, error) {
	records, err := app.FindRecordsByFilter(
		"wait_time_history",
		"actual_wait_time >= 0",
		"-created",
		limit,
		0,
	)
	if err != nil {
		return nil, err
	}

	samples := make([]models.WaitTimeSample, 0, len(records))
	for _, r := range records {
		samples = append(samples, models.WaitTimeSampleFromRecord(r))
	}
	return samples, nil
}

// AverageWait is the mean observed wait over the most recent outcomes,
// rounded to whole minutes. Zero when no outcomes exist yet.
func (s *HistoryService) AverageWait(app core.App, limit int) (int, error) {
	samples, err := s.RecentSamplesWithActual(app, limit)
	if err != nil {
		return 0, err
	}
	return averageActualWait(samples), nil
}

// PredictionAccuracy reports how close predictions land to outcomes as a
// 0-100 percentage over the most recent outcomes.
func (s *HistoryService) PredictionAccuracy(app core.App, limit int) (int, error) {
	samples, err := s.RecentSamplesWithActual(app, limit)
	if err != nil {
		return 0, err
	}
	return predictionAccuracy(samples), nil
}

func averageActualWait(samples []models.WaitTimeSample) int {
	total := decimal.Zero
	count := 0
	for _, s := range samples {
		if s.ActualWait == nil {
			continue
		}
		total = total.Add(decimal.NewFromInt(int64(*s.ActualWait)))
		count++
	}
	if count == 0 {
		return 0
	}
	avg := total.Div(decimal.NewFromInt(int64(count)))
	return int(avg.Round(0).IntPart())
}

// predictionAccuracy scores each sample as 100 minus the relative error,
// floored at zero, and averages the scores. Samples seated instantly
// (actual wait 0) carry no usable relative error and are skipped.
func predictionAccuracy(samples []models.WaitTimeSample) int {
	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	count := 0

	for _, s := range samples {
		if s.ActualWait == nil || *s.ActualWait == 0 {
			continue
		}
		predicted := decimal.NewFromInt(int64(s.PredictedWait))
		actual := decimal.NewFromInt(int64(*s.ActualWait))

		errAbs := predicted.Sub(actual).Abs()
		accuracy := hundred.Sub(errAbs.Div(actual).Mul(hundred))
		if accuracy.IsNegative() {
			accuracy = decimal.Zero
		}

		total = total.Add(accuracy)
		count++
	}
	if count == 0 {
		return 0
	}
	return int(total.Div(decimal.NewFromInt(int64(count))).Round(0).IntPart())
}
