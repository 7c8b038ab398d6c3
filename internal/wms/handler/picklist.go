package handler

import (
	"net/http"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/httputil"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// CreatePickListRequest generates a pick list from an order
type CreatePickListRequest struct {
	service.Order
	StagingLocationID string `json:"staging_location_id,omitempty"`
}

// PickListHandler handles pick list endpoints
type PickListHandler struct {
	picks  *service.PickListService
	logger *logger.Logger
}

// NewPickListHandler creates a new pick list handler
func NewPickListHandler(picks *service.PickListService, log *logger.Logger) *PickListHandler {
	return &PickListHandler{
		picks:  picks,
		logger: log,
	}
}

// Create generates a pick list for an order
// POST /api/wms/pick-lists
func (h *PickListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePickListRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	pl, err := h.picks.CreateFromOrder(r.Context(), req.Order, req.StagingLocationID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, pl)
}

// List lists pick lists, optionally filtered by ?status=
// GET /api/wms/pick-lists
func (h *PickListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.picks.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, lists, &httputil.Meta{Total: len(lists)})
}

// Get returns a pick list with its lines and items
// GET /api/wms/pick-list/{id}
func (h *PickListHandler) Get(w http.ResponseWriter, r *http.Request) {
	pl, err := h.picks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pl)
}

// PickItem confirms one pick instruction
// POST /api/wms/pick-item
func (h *PickListHandler) PickItem(w http.ResponseWriter, r *http.Request) {
	var req service.PickRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.picks.PickItem(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Complete closes a fully picked list
// POST /api/wms/pick-complete
func (h *PickListHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req api.CompleteRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	pl, err := h.picks.Complete(r.Context(), req.PickListID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pl)
}

// Cancel abandons an open pick list
// POST /api/wms/pick-list/{id}/cancel
func (h *PickListHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	pl, err := h.picks.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, pl)
}

// Dispatch ships a completed pick list
// POST /api/wms/pick-list/{id}/dispatch
func (h *PickListHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.picks.Dispatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
