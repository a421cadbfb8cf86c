package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"waitline/services"
)

type QueueHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		app:          app,
		queueService: queueService,
	}
}

// Join - customer joins the walk-in line
func (h *QueueHandler) Join(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		CustomerID string `json:"customer_id"`
		PartySize  int    `json:"party_size"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	customerID := req.CustomerID
	if customerID == "" {
		customerID = e.Auth.Id
	}
	if req.PartySize < 1 {
		return apis.NewBadRequestError("Party size must be positive", nil)
	}

	entry, err := h.queueService.Join(e.Request.Context(), customerID, req.PartySize)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// GetActiveQueue - the current line in position order (staff view)
func (h *QueueHandler) GetActiveQueue(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entries, err := h.queueService.ActiveQueue()
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetEntry - one queue entry by id
func (h *QueueHandler) GetEntry(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entry, err := h.queueService.GetEntry(e.Request.PathValue("entryId"))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// GetCustomerQueue - a customer's entries, newest first
func (h *QueueHandler) GetCustomerQueue(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entries, err := h.queueService.CustomerQueue(e.Request.PathValue("customerId"))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"entries": entries})
}

// Cancel - take an entry out of the line
func (h *QueueHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entryID := e.Request.PathValue("entryId")
	if err := h.queueService.Cancel(e.Request.Context(), entryID, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Queue entry cancelled"})
}

// Notify - staff signals a table is ready
func (h *QueueHandler) Notify(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entryID := e.Request.PathValue("entryId")
	entry, err := h.queueService.Notify(e.Request.Context(), entryID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// Seat - staff seats an entry at a table
func (h *QueueHandler) Seat(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		TableID string `json:"table_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.TableID == "" {
		return apis.NewBadRequestError("Table ID required", nil)
	}

	entryID := e.Request.PathValue("entryId")
	reservation, err := h.queueService.Seat(e.Request.Context(), entryID, req.TableID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, reservation)
}

// ValidateToken - resolve an admission token at physical check-in
func (h *QueueHandler) ValidateToken(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	token := e.Request.URL.Query().Get("token")
	if token == "" {
		return apis.NewBadRequestError("Token required", nil)
	}

	entry, err := h.queueService.ValidateToken(token)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, entry)
}
