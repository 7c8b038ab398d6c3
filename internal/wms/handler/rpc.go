package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/httputil"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const maxRPCBody = 1 << 20

type procedure func(ctx context.Context, body []byte) (interface{}, error)

// RPCHandler serves the cloud RPC endpoint. Every procedure takes a JSON
// object and answers with the same envelope as the local HTTP API.
type RPCHandler struct {
	procedures map[string]procedure
	logger     *logger.Logger
}

// NewRPCHandler creates a new RPC handler
func NewRPCHandler(svc Services, log *logger.Logger) *RPCHandler {
	return &RPCHandler{
		procedures: map[string]procedure{
			api.ScanLocation.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req api.ScanRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.Directory.ScanLocation(ctx, req.Barcode)
			},
			api.ScanCase.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req api.ScanRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.Ledger.ScanCase(ctx, req.Barcode)
			},
			api.Transfer.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req service.TransferRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.Ledger.Transfer(ctx, req)
			},
			api.Putaway.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req service.PutawayRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.Ledger.Putaway(ctx, req)
			},
			api.PickItem.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req service.PickRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.PickLists.PickItem(ctx, req)
			},
			api.CompletePickList.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req api.CompleteRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.PickLists.Complete(ctx, req.PickListID)
			},
			api.GetPickList.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req api.PickListRef
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.PickLists.Get(ctx, req.ID)
			},
			api.ListPickLists.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req api.PickListFilter
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.PickLists.List(ctx, req.Status)
			},
			api.Receive.Procedure: func(ctx context.Context, body []byte) (interface{}, error) {
				var req service.ReceiveRequest
				if err := decode(body, &req); err != nil {
					return nil, err
				}
				return svc.Ledger.Receive(ctx, req)
			},
		},
		logger: log,
	}
}

// Call dispatches one procedure
// POST /rpc/{procedure}
func (h *RPCHandler) Call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "procedure")
	call, ok := h.procedures[name]
	if !ok {
		httputil.Error(w, errors.NotFound("procedure "+name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRPCBody))
	if err != nil {
		httputil.Error(w, errors.BadRequest("request body too large"))
		return
	}

	result, err := call(r.Context(), body)
	if err != nil {
		h.logger.Debug().Err(err).Str("procedure", name).Msg("rpc call failed")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// decode unmarshals a procedure payload; an empty body is an empty object.
func decode(body []byte, v interface{}) error {
	if len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return errors.BadRequest("invalid JSON body")
		}
	}
	return httputil.Validate(v)
}
