package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Stock events
	EventStockReceived    = "stock.received"
	EventStockTransferred = "stock.transferred"
	EventStockPutaway     = "stock.putaway"
	EventStockDispatched  = "stock.dispatched"

	// Pick list events
	EventPickListCreated    = "picklist.created"
	EventPickListItemPicked = "picklist.item_picked"
	EventPickListCompleted  = "picklist.completed"
	EventPickListCancelled  = "picklist.cancelled"
	EventPickListDispatched = "picklist.dispatched"

	// Location events
	EventLocationCreated = "location.created"
)

// ExchangeWarehouseEvents is the topic exchange every warehouse event is published to.
const ExchangeWarehouseEvents = "warehouse.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockMovedEvent is published for receive, putaway, transfer and dispatch.
type StockMovedEvent struct {
	MovementID     string `json:"movement_id"`
	MovementNumber string `json:"movement_number"`
	MovementType   string `json:"movement_type"`
	LWIN18         string `json:"lwin18"`
	QuantityCases  int    `json:"quantity_cases"`
	FromLocationID string `json:"from_location_id,omitempty"`
	ToLocationID   string `json:"to_location_id,omitempty"`
	LotNumber      string `json:"lot_number,omitempty"`
	PerformedBy    string `json:"performed_by"`
}

// PickListEvent is published on pick list lifecycle changes.
type PickListEvent struct {
	PickListID     string `json:"pick_list_id"`
	PickListNumber string `json:"pick_list_number"`
	OrderID        string `json:"order_id,omitempty"`
	Status         string `json:"status"`
	TotalItems     int    `json:"total_items"`
	PickedItems    int    `json:"picked_items"`
	PerformedBy    string `json:"performed_by"`
}

// PickItemEvent is published when an operator confirms a pick line.
type PickItemEvent struct {
	PickListID     string `json:"pick_list_id"`
	ItemID         string `json:"item_id"`
	LWIN18         string `json:"lwin18"`
	LocationID     string `json:"location_id"`
	PickedCases    int    `json:"picked_cases"`
	SuggestedCases int    `json:"suggested_cases"`
	Short          bool   `json:"short"`
	PerformedBy    string `json:"performed_by"`
}

// LocationCreatedEvent is published when a storage location is registered.
type LocationCreatedEvent struct {
	LocationID   string `json:"location_id"`
	LocationCode string `json:"location_code"`
	Barcode      string `json:"barcode"`
	LocationType string `json:"location_type"`
}

// GenerateEventID returns a unique event identifier
func GenerateEventID() string {
	return uuid.New().String()
}
