package models

import (
	"github.com/pocketbase/pocketbase/core"
)

// WaitTimeSample is one prediction/outcome pair. Append-only; the only late
// mutation is the single ActualWait fill-in when the entry is seated.
type WaitTimeSample struct {
	ID              string `json:"id"`
	QueueEntryID    string `json:"queue_entry_id"`
	PredictedWait   int    `json:"predicted_wait_time"`
	QueueLength     int    `json:"queue_length"`
	AvailableTables int    `json:"available_tables"`
	HourOfDay       int    `json:"hour_of_day"`
	DayOfWeek       int    `json:"day_of_week"`
	ActualWait      *int   `json:"actual_wait_time,omitempty"`
}

func WaitTimeSampleFromRecord(r *core.Record) WaitTimeSample {
	s := WaitTimeSample{
		ID:              r.Id,
		QueueEntryID:    r.GetString("queue_entry_id"),
		PredictedWait:   r.GetInt("predicted_wait_time"),
		QueueLength:     r.GetInt("queue_length"),
		AvailableTables: r.GetInt("available_tables"),
		HourOfDay:       r.GetInt("hour_of_day"),
		DayOfWeek:       r.GetInt("day_of_week"),
	}
	// the column holds -1 until the entry is seated; zero is a legal actual wait
	if v := r.GetInt("actual_wait_time"); v >= 0 {
		s.ActualWait = &v
	}
	return s
}

// Activity actions written by the engine. Each action documents the detail
// keys it carries; details stay a flat map so the audit trail can absorb
// per-action fields without schema churn.
const (
	ActionJoinQueue         = "join_queue"          // party_size, position, estimated_wait_time
	ActionCancelQueue       = "cancel_queue"        // (none)
	ActionNotifyCustomer    = "notify_customer"     // confirm_within_minutes
	ActionSeatCustomer      = "seat_customer"       // table_id, actual_wait_time
	ActionMarkNoShow        = "mark_no_show"        // notified_at
	ActionCompleteSeating   = "complete_reservation" // duration_minutes
	ActionCreateTable       = "create_table"        // label, capacity
	ActionDeleteTable       = "delete_table"        // (none)
	ActionChangeTableStatus = "change_table_status" // status
	ActionForceComplete     = "force_complete"      // reservation_id, duration_minutes
)

const (
	EntityQueueEntry  = "queue_entry"
	EntityTable       = "table"
	EntityReservation = "reservation"
)

type ActivityRecord struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
}
