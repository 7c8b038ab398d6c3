package handler

import (
	"net/http"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/httputil"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// StockHandler handles receiving, scanning and stock movement endpoints
type StockHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(ledger *service.LedgerService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		ledger: ledger,
		logger: log,
	}
}

// ScanCase resolves a case label or LWIN18 to its product and stock
// POST /api/wms/scan-case
func (h *StockHandler) ScanCase(w http.ResponseWriter, r *http.Request) {
	var req api.ScanRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	info, err := h.ledger.ScanCase(r.Context(), req.Barcode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, info)
}

// Receive books a shipment into a receiving location
// POST /api/wms/receive
func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req service.ReceiveRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ledger.Receive(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}

// Transfer moves cases between locations
// POST /api/wms/transfer
func (h *StockHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req service.TransferRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Putaway moves received cases into storage
// POST /api/wms/putaway
func (h *StockHandler) Putaway(w http.ResponseWriter, r *http.Request) {
	var req service.PutawayRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ledger.Putaway(r.Context(), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Movements lists the movement history of a product
// GET /api/wms/stock/{lwin18}/movements
func (h *StockHandler) Movements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.ledger.ListMovements(r.Context(), chi.URLParam(r, "lwin18"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, movements, &httputil.Meta{Total: len(movements)})
}

// Reconcile compares the movement ledger of a product with its stock records
// GET /api/wms/stock/{lwin18}/reconcile
func (h *StockHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.Reconcile(r.Context(), chi.URLParam(r, "lwin18"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Receipts lists expected vs received quantities of a shipment
// GET /api/wms/shipments/{id}/receipts
func (h *StockHandler) Receipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.ledger.Receipts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, receipts, &httputil.Meta{Total: len(receipts)})
}
