package handlers

import (
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"waitline/models"
	"waitline/services"
)

type TableHandler struct {
	app          *pocketbase.PocketBase
	tableService *services.TableService
	queueService *services.QueueService
}

func NewTableHandler(app *pocketbase.PocketBase, tableService *services.TableService, queueService *services.QueueService) *TableHandler {
	return &TableHandler{
		app:          app,
		tableService: tableService,
		queueService: queueService,
	}
}

// List - the table pool, optionally filtered by status
func (h *TableHandler) List(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	tables, err := h.tableService.ListTables(e.Request.URL.Query().Get("status"))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"tables": tables})
}

// Create - register a new table in one of the capacity tiers
func (h *TableHandler) Create(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Label    string `json:"label"`
		Capacity int    `json:"capacity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Label == "" {
		return apis.NewBadRequestError("Label required", nil)
	}

	table, err := h.tableService.CreateTable(req.Label, req.Capacity, e.Auth.Id)
	if err != nil {
		return apis.NewBadRequestError("Failed to create table", err)
	}

	return e.JSON(http.StatusOK, table)
}

// Delete - remove a table without an open reservation
func (h *TableHandler) Delete(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	if err := h.tableService.DeleteTable(e.Request.PathValue("tableId"), e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Table deleted"})
}

// Candidate - the free table the allocator would offer for a party size
func (h *TableHandler) Candidate(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	partySize, err := strconv.Atoi(e.Request.URL.Query().Get("party_size"))
	if err != nil || partySize < 1 {
		return apis.NewBadRequestError("Party size must be a positive number", err)
	}

	table, err := h.tableService.FindCandidate(partySize)
	if err != nil {
		return apiError(err)
	}
	if table == nil {
		return e.JSON(http.StatusOK, map[string]any{
			"available": false,
			"capacity":  models.PartyBand(partySize),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"available": true,
		"table":     table,
	})
}

// ChangeStatus - administrative status override
func (h *TableHandler) ChangeStatus(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	tableID := e.Request.PathValue("tableId")
	err := h.queueService.ChangeTableStatus(e.Request.Context(), tableID, models.TableStatus(req.Status), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Table status updated"})
}

// Utilization - table counts per status
func (h *TableHandler) Utilization(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	stats, err := h.tableService.Utilization()
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, stats)
}
