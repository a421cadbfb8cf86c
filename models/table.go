package models

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// CapacityTiers are the fixed table sizes of the venue.
var CapacityTiers = []int{2, 4, 6}

// PartyBand maps a party size to the capacity tier it should be seated at.
// Fixed-band policy, not a bin packer.
func PartyBand(partySize int) int {
	switch {
	case partySize <= 2:
		return 2
	case partySize <= 4:
		return 4
	default:
		return 6
	}
}

type Table struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Capacity int         `json:"capacity"`
	Status   TableStatus `json:"status"`
}

func TableFromRecord(r *core.Record) Table {
	return Table{
		ID:       r.Id,
		Label:    r.GetString("label"),
		Capacity: r.GetInt("capacity"),
		Status:   TableStatus(r.GetString("status")),
	}
}

type Reservation struct {
	ID           string     `json:"id"`
	QueueEntryID string     `json:"queue_entry_id"`
	TableID      string     `json:"table_id"`
	CustomerID   string     `json:"customer_id"`
	StaffID      string     `json:"staff_id,omitempty"`
	PartySize    int        `json:"party_size"`
	SeatedAt     time.Time  `json:"seated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Duration     int        `json:"duration_minutes"`
}

func ReservationFromRecord(r *core.Record) Reservation {
	return Reservation{
		ID:           r.Id,
		QueueEntryID: r.GetString("queue_entry_id"),
		TableID:      r.GetString("table_id"),
		CustomerID:   r.GetString("customer_id"),
		StaffID:      r.GetString("staff_id"),
		PartySize:    r.GetInt("party_size"),
		SeatedAt:     r.GetDateTime("seated_at").Time(),
		CompletedAt:  optionalTime(r, "completed_at"),
		Duration:     r.GetInt("duration_minutes"),
	}
}

// Open reports whether the reservation still holds its table.
func (r Reservation) Open() bool {
	return r.CompletedAt == nil
}
