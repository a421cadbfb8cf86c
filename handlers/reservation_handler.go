package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"waitline/services"
)

type ReservationHandler struct {
	app            *pocketbase.PocketBase
	queueService   *services.QueueService
	historyService *services.HistoryService
}

func NewReservationHandler(app *pocketbase.PocketBase, queueService *services.QueueService, historyService *services.HistoryService) *ReservationHandler {
	return &ReservationHandler{
		app:            app,
		queueService:   queueService,
		historyService: historyService,
	}
}

// Complete - close an open reservation and free its table
func (h *ReservationHandler) Complete(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	reservationID := e.Request.PathValue("reservationId")
	reservation, err := h.queueService.CompleteReservation(e.Request.Context(), reservationID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, reservation)
}

// QueueMetrics - the engine's own accuracy figures for staff tooling
func (h *ReservationHandler) QueueMetrics(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	avgWait, err := h.historyService.AverageWait(h.app, 50)
	if err != nil {
		return apiError(err)
	}
	accuracy, err := h.historyService.PredictionAccuracy(h.app, 50)
	if err != nil {
		return apiError(err)
	}

	active, err := h.queueService.ActiveQueue()
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"active_count":        len(active),
		"avg_wait_time":       avgWait,
		"prediction_accuracy": accuracy,
	})
}
