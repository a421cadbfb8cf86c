package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"waitline/services"
)

// apiError translates the engine's error taxonomy into API responses. The
// presentation layer decides retry vs. message; nothing here is swallowed.
func apiError(err error) error {
	var capErr *services.CapacityError
	switch {
	case errors.As(err, &capErr):
		return apis.NewApiError(http.StatusConflict, "Queue is full", map[string]any{
			"code":                "capacity_exceeded",
			"estimated_wait_time": capErr.EstimatedWait,
		})
	case errors.Is(err, services.ErrNotFound):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, services.ErrConcurrencyConflict):
		return apis.NewApiError(http.StatusConflict, "Operation lost a race, please retry", map[string]any{
			"code": "concurrency_conflict",
		})
	case errors.Is(err, services.ErrTableUnavailable):
		return apis.NewBadRequestError("Table is not available", err)
	case errors.Is(err, services.ErrInvalidTransition):
		return apis.NewBadRequestError("Operation not allowed in the current state", err)
	default:
		return apis.NewInternalServerError("Operation failed", err)
	}
}
