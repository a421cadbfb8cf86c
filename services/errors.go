package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entry, table, or reservation
	// does not exist. Operations returning it have no side effects.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an operation is attempted from a
	// state that does not permit it (double-seat, notify after cancel, ...).
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrTableUnavailable is returned when a seating targets a table that is
	// not free or already holds an open reservation.
	ErrTableUnavailable = errors.New("table unavailable")

	// ErrConcurrencyConflict is returned when a checked-and-set operation
	// lost a race. Seat and notify retry it once; callers see it otherwise.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// CapacityError rejects a join while still carrying the wait the customer
// would face at the back of the line, so callers can tell them when to retry.
type CapacityError struct {
	EstimatedWait int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("queue is full, estimated wait %d minutes", e.EstimatedWait)
}
