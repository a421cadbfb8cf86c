package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

type QueueStatus string

const (
	StatusWaiting   QueueStatus = "waiting"
	StatusNotified  QueueStatus = "notified"
	StatusSeated    QueueStatus = "seated"
	StatusCancelled QueueStatus = "cancelled"
	StatusNoShow    QueueStatus = "no_show"
)

// ActiveStatuses are the states that hold a position in the line.
var ActiveStatuses = []QueueStatus{StatusWaiting, StatusNotified}

var allowedTransitions = map[QueueStatus][]QueueStatus{
	StatusWaiting:  {StatusNotified, StatusSeated, StatusCancelled},
	StatusNotified: {StatusSeated, StatusCancelled, StatusNoShow},
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
// Terminal states permit nothing.
func (s QueueStatus) CanTransitionTo(next QueueStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the status holds a queue position.
func (s QueueStatus) IsActive() bool {
	return s == StatusWaiting || s == StatusNotified
}

// IsTerminal reports whether no further transition is allowed.
func (s QueueStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

type QueueEntry struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id"`
	PartySize     int         `json:"party_size"`
	Status        QueueStatus `json:"status"`
	Token         string      `json:"token"`
	Position      int         `json:"position"` // meaningful only while active
	EstimatedWait int         `json:"estimated_wait_time"`
	JoinedAt      time.Time   `json:"joined_at"`
	NotifiedAt    *time.Time  `json:"notified_at,omitempty"`
	SeatedAt      *time.Time  `json:"seated_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
}

// QueueEntryFromRecord maps a queue_entries record into the domain struct.
func QueueEntryFromRecord(r *core.Record) QueueEntry {
	return QueueEntry{
		ID:            r.Id,
		CustomerID:    r.GetString("customer_id"),
		PartySize:     r.GetInt("party_size"),
		Status:        QueueStatus(r.GetString("status")),
		Token:         r.GetString("token"),
		Position:      r.GetInt("position"),
		EstimatedWait: r.GetInt("estimated_wait_time"),
		JoinedAt:      r.GetDateTime("joined_at").Time(),
		NotifiedAt:    optionalTime(r, "notified_at"),
		SeatedAt:      optionalTime(r, "seated_at"),
		CancelledAt:   optionalTime(r, "cancelled_at"),
	}
}

func optionalTime(r *core.Record, field string) *time.Time {
	dt := r.GetDateTime(field)
	if dt.IsZero() {
		return nil
	}
	t := dt.Time()
	return &t
}
