// Package api describes the wire contract shared by the warehouse service
// and the handheld client: the operations, where each is served on the
// local HTTP API and the cloud RPC endpoint, and the response envelope.
package api

import (
	"encoding/json"
	"net/http"
)

// PathPrefix is the root of the local HTTP API
const PathPrefix = "/api/wms"

// RPCPath is the cloud RPC endpoint; the procedure name is the last segment.
const RPCPath = "/rpc/{procedure}"

// HealthPath is probed by the handheld to decide whether the edge server is reachable
const HealthPath = "/health"

// Operation is one backend call as it is addressed on either backend.
type Operation struct {
	Name string
	// Method and Path address the operation on the local HTTP API. Path
	// segments in braces are filled from the request payload.
	Method string
	Path   string
	// Procedure is the cloud RPC procedure name
	Procedure string
}

// Operations served by both backends
var (
	ScanLocation     = Operation{Name: "scanLocation", Method: http.MethodPost, Path: PathPrefix + "/scan-location", Procedure: "wms.scanLocation"}
	ScanCase         = Operation{Name: "scanCase", Method: http.MethodPost, Path: PathPrefix + "/scan-case", Procedure: "wms.scanCase"}
	Transfer         = Operation{Name: "transfer", Method: http.MethodPost, Path: PathPrefix + "/transfer", Procedure: "wms.transfer"}
	Putaway          = Operation{Name: "putaway", Method: http.MethodPost, Path: PathPrefix + "/putaway", Procedure: "wms.putaway"}
	PickItem         = Operation{Name: "pickItem", Method: http.MethodPost, Path: PathPrefix + "/pick-item", Procedure: "wms.pickItem"}
	CompletePickList = Operation{Name: "pickComplete", Method: http.MethodPost, Path: PathPrefix + "/pick-complete", Procedure: "wms.pickComplete"}
	GetPickList      = Operation{Name: "getPickList", Method: http.MethodGet, Path: PathPrefix + "/pick-list/{id}", Procedure: "wms.getPickList"}
	ListPickLists    = Operation{Name: "listPickLists", Method: http.MethodGet, Path: PathPrefix + "/pick-lists", Procedure: "wms.listPickLists"}
	Receive          = Operation{Name: "receive", Method: http.MethodPost, Path: PathPrefix + "/receive", Procedure: "wms.receive"}
)

// Operations lists every operation available over RPC
var Operations = []Operation{
	ScanLocation, ScanCase, Transfer, Putaway, PickItem,
	CompletePickList, GetPickList, ListPickLists, Receive,
}

// Mutating reports whether the operation changes stock or pick list state.
func (o Operation) Mutating() bool {
	switch o.Name {
	case Transfer.Name, Putaway.Name, PickItem.Name, CompletePickList.Name, Receive.Name:
		return true
	}
	return false
}

// ScanRequest carries a scanned barcode
type ScanRequest struct {
	Barcode string `json:"barcode" validate:"required,max=200"`
}

// PickListRef addresses one pick list
type PickListRef struct {
	ID string `json:"id" validate:"required"`
}

// CompleteRequest closes a pick list
type CompleteRequest struct {
	PickListID string `json:"pick_list_id" validate:"required"`
}

// PickListFilter filters the pick list listing
type PickListFilter struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed cancelled"`
}

// Envelope is the response body of both backends. It mirrors
// httputil.Response with the payload left undecoded.
type Envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
