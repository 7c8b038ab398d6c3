package repository

import "time"

// Location types
const (
	LocationReceiving = "receiving"
	LocationRack      = "rack"
	LocationFloor     = "floor"
	LocationShipping  = "shipping"
)

// LocationTypes lists every valid location type
var LocationTypes = []string{LocationReceiving, LocationRack, LocationFloor, LocationShipping}

// IsStorageType reports whether stock may be put away at a location of type t.
func IsStorageType(t string) bool {
	return t == LocationRack || t == LocationFloor
}

// Movement types
const (
	MovementReceive  = "receive"
	MovementPutaway  = "putaway"
	MovementTransfer = "transfer"
	MovementPick     = "pick"
	MovementDispatch = "dispatch"
)

// Pick list statuses
const (
	PickListPending    = "pending"
	PickListInProgress = "in_progress"
	PickListCompleted  = "completed"
	PickListCancelled  = "cancelled"
)

// Pick item statuses
const (
	PickNotPicked = "not_picked"
	PickPicked    = "picked"
	PickShort     = "short"
)

// Location is an addressable slot in the warehouse. Immutable once created.
type Location struct {
	ID               string    `db:"id" json:"id"`
	Code             string    `db:"location_code" json:"location_code"`
	Barcode          string    `db:"barcode" json:"barcode"`
	Aisle            string    `db:"aisle" json:"aisle"`
	Bay              string    `db:"bay" json:"bay"`
	Level            string    `db:"level" json:"level"`
	Type             string    `db:"location_type" json:"location_type"`
	ForkliftRequired bool      `db:"forklift_required" json:"forklift_required"`
	CapacityCases    *int      `db:"capacity_cases" json:"capacity_cases,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// StockRecord is the current holding of one lot of one product at one location.
// QuantityCases - AvailableCases is reserved for picking.
type StockRecord struct {
	ID             string    `db:"id" json:"id"`
	LWIN18         string    `db:"lwin18" json:"lwin18"`
	ProductName    string    `db:"product_name" json:"product_name"`
	OwnerID        string    `db:"owner_id" json:"owner_id"`
	LocationID     string    `db:"location_id" json:"location_id"`
	LocationCode   string    `db:"location_code" json:"location_code,omitempty"`
	QuantityCases  int       `db:"quantity_cases" json:"quantity_cases"`
	AvailableCases int       `db:"available_cases" json:"available_cases"`
	LotNumber      string    `db:"lot_number" json:"lot_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ReservedCases is the part of the record held for pick lists.
func (s *StockRecord) ReservedCases() int {
	return s.QuantityCases - s.AvailableCases
}

// StockMovement is one append-only ledger entry.
type StockMovement struct {
	Seq            int64     `db:"seq" json:"-"`
	ID             string    `db:"id" json:"id"`
	MovementNumber string    `db:"movement_number" json:"movement_number"`
	Type           string    `db:"movement_type" json:"movement_type"`
	LWIN18         string    `db:"lwin18" json:"lwin18"`
	QuantityCases  int       `db:"quantity_cases" json:"quantity_cases"`
	FromLocationID *string   `db:"from_location_id" json:"from_location_id,omitempty"`
	ToLocationID   *string   `db:"to_location_id" json:"to_location_id,omitempty"`
	StockID        *string   `db:"stock_id" json:"stock_id,omitempty"`
	PickListID     *string   `db:"pick_list_id" json:"pick_list_id,omitempty"`
	ShipmentID     *string   `db:"shipment_id" json:"shipment_id,omitempty"`
	LotNumber      string    `db:"lot_number" json:"lot_number"`
	PerformedAt    time.Time `db:"performed_at" json:"performed_at"`
	PerformedBy    string    `db:"performed_by" json:"performed_by"`
}

// SignedQuantity is the movement's effect on the product's aggregate stock.
// Receive adds, dispatch removes; the rest move stock between locations.
func (m *StockMovement) SignedQuantity() int {
	switch m.Type {
	case MovementReceive:
		return m.QuantityCases
	case MovementDispatch:
		return -m.QuantityCases
	default:
		return 0
	}
}

// PickList is a set of pick instructions generated from one order.
type PickList struct {
	ID                string          `db:"id" json:"id"`
	PickListNumber    string          `db:"pick_list_number" json:"pick_list_number"`
	OrderID           string          `db:"order_id" json:"order_id"`
	Status            string          `db:"status" json:"status"`
	StagingLocationID string          `db:"staging_location_id" json:"staging_location_id"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	StartedAt         *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	DispatchedAt      *time.Time      `db:"dispatched_at" json:"dispatched_at,omitempty"`
	Lines             []*PickListLine `db:"-" json:"lines,omitempty"`
	Items             []*PickListItem `db:"-" json:"items,omitempty"`
	TotalItems        int             `db:"total_items" json:"total_items"`
	PickedItems       int             `db:"picked_items" json:"picked_items"`
}

// IsOpen reports whether items may still be picked.
func (p *PickList) IsOpen() bool {
	return p.Status == PickListPending || p.Status == PickListInProgress
}

// PickListLine records how much of one order line could be allocated.
type PickListLine struct {
	ID             string `db:"id" json:"id"`
	PickListID     string `db:"pick_list_id" json:"pick_list_id"`
	LineNumber     int    `db:"line_number" json:"line_number"`
	LWIN18         string `db:"lwin18" json:"lwin18"`
	RequestedCases int    `db:"requested_cases" json:"requested_cases"`
	AllocatedCases int    `db:"allocated_cases" json:"allocated_cases"`
}

// ShortCases is the unallocated remainder of the line.
func (l *PickListLine) ShortCases() int {
	return l.RequestedCases - l.AllocatedCases
}

// PickListItem is one instruction: take SuggestedQuantity cases of a stock record.
type PickListItem struct {
	ID                   string     `db:"id" json:"id"`
	PickListID           string     `db:"pick_list_id" json:"pick_list_id"`
	LineID               string     `db:"line_id" json:"line_id"`
	LWIN18               string     `db:"lwin18" json:"lwin18"`
	ProductName          string     `db:"product_name" json:"product_name"`
	OwnerID              string     `db:"owner_id" json:"owner_id"`
	LotNumber            string     `db:"lot_number" json:"lot_number"`
	SuggestedLocationID  string     `db:"suggested_location_id" json:"suggested_location_id"`
	SuggestedStockID     string     `db:"suggested_stock_id" json:"suggested_stock_id"`
	SuggestedQuantity    int        `db:"suggested_quantity" json:"suggested_quantity"`
	PickedFromLocationID *string    `db:"picked_from_location_id" json:"picked_from_location_id,omitempty"`
	PickedQuantity       *int       `db:"picked_quantity" json:"picked_quantity,omitempty"`
	PickStatus           string     `db:"pick_status" json:"pick_status"`
	PickedAt             *time.Time `db:"picked_at" json:"picked_at,omitempty"`
	PickedBy             *string    `db:"picked_by" json:"picked_by,omitempty"`
}

// IsPicked reports whether the item was picked in full or marked short.
func (i *PickListItem) IsPicked() bool {
	return i.PickStatus != PickNotPicked
}

// CaseLabel is the identity of one physical case, minted at receiving.
type CaseLabel struct {
	Barcode    string     `db:"barcode" json:"barcode"`
	LWIN18     string     `db:"lwin18" json:"lwin18"`
	LotNumber  string     `db:"lot_number" json:"lot_number"`
	ShipmentID string     `db:"shipment_id" json:"shipment_id"`
	Sequence   int        `db:"sequence" json:"sequence"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// ShipmentReceipt records received against expected for one shipment line.
type ShipmentReceipt struct {
	ID            string    `db:"id" json:"id"`
	ShipmentID    string    `db:"shipment_id" json:"shipment_id"`
	LWIN18        string    `db:"lwin18" json:"lwin18"`
	LotNumber     string    `db:"lot_number" json:"lot_number"`
	ExpectedCases *int      `db:"expected_cases" json:"expected_cases,omitempty"`
	ReceivedCases int       `db:"received_cases" json:"received_cases"`
	Variance      *int      `db:"variance" json:"variance,omitempty"`
	LocationID    string    `db:"location_id" json:"location_id"`
	ReceivedAt    time.Time `db:"received_at" json:"received_at"`
	ReceivedBy    string    `db:"received_by" json:"received_by"`
}
