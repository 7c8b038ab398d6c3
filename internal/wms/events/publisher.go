package events

import (
	"context"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/messaging"
)

// movementEvents maps a movement type to the event announcing it. Picks are
// announced per item instead.
var movementEvents = map[string]string{
	repository.MovementReceive:  messaging.EventStockReceived,
	repository.MovementTransfer: messaging.EventStockTransferred,
	repository.MovementPutaway:  messaging.EventStockPutaway,
	repository.MovementDispatch: messaging.EventStockDispatched,
}

// WarehouseEventPublisher publishes warehouse events. A nil publisher drops
// every event, so the service runs without RabbitMQ.
type WarehouseEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewWarehouseEventPublisher declares the warehouse exchange and returns a publisher on it
func NewWarehouseEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*WarehouseEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeWarehouseEvents, "wms-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing EventPublisher
func NewWithPublisher(p messaging.EventPublisher, log *logger.Logger) *WarehouseEventPublisher {
	return &WarehouseEventPublisher{publisher: p, logger: log}
}

func (p *WarehouseEventPublisher) publish(ctx context.Context, eventType string, data interface{}, key, id string) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str(key, id).Str("event_type", eventType).Msg("failed to publish warehouse event")
	}
}

// PublishMovement publishes the stock event for a committed movement
func (p *WarehouseEventPublisher) PublishMovement(ctx context.Context, m *repository.StockMovement) {
	if p == nil {
		return
	}
	eventType, ok := movementEvents[m.Type]
	if !ok {
		return
	}

	data := messaging.StockMovedEvent{
		MovementID:     m.ID,
		MovementNumber: m.MovementNumber,
		MovementType:   m.Type,
		LWIN18:         m.LWIN18,
		QuantityCases:  m.QuantityCases,
		LotNumber:      m.LotNumber,
		PerformedBy:    m.PerformedBy,
	}
	if m.FromLocationID != nil {
		data.FromLocationID = *m.FromLocationID
	}
	if m.ToLocationID != nil {
		data.ToLocationID = *m.ToLocationID
	}

	p.publish(ctx, eventType, data, "movement_id", m.ID)
}

// PublishPickList publishes a pick list lifecycle event
func (p *WarehouseEventPublisher) PublishPickList(ctx context.Context, eventType string, pl *repository.PickList, performedBy string) {
	if p == nil {
		return
	}
	data := messaging.PickListEvent{
		PickListID:     pl.ID,
		PickListNumber: pl.PickListNumber,
		OrderID:        pl.OrderID,
		Status:         pl.Status,
		TotalItems:     pl.TotalItems,
		PickedItems:    pl.PickedItems,
		PerformedBy:    performedBy,
	}
	p.publish(ctx, eventType, data, "pick_list_id", pl.ID)
}

// PublishItemPicked publishes a pick confirmation
func (p *WarehouseEventPublisher) PublishItemPicked(ctx context.Context, item *repository.PickListItem) {
	if p == nil {
		return
	}
	data := messaging.PickItemEvent{
		PickListID:     item.PickListID,
		ItemID:         item.ID,
		LWIN18:         item.LWIN18,
		SuggestedCases: item.SuggestedQuantity,
		Short:          item.PickStatus == repository.PickShort,
	}
	if item.PickedFromLocationID != nil {
		data.LocationID = *item.PickedFromLocationID
	}
	if item.PickedQuantity != nil {
		data.PickedCases = *item.PickedQuantity
	}
	if item.PickedBy != nil {
		data.PerformedBy = *item.PickedBy
	}
	p.publish(ctx, messaging.EventPickListItemPicked, data, "item_id", item.ID)
}

// PublishLocationCreated publishes a new location
func (p *WarehouseEventPublisher) PublishLocationCreated(ctx context.Context, loc *repository.Location) {
	if p == nil {
		return
	}
	data := messaging.LocationCreatedEvent{
		LocationID:   loc.ID,
		LocationCode: loc.Code,
		Barcode:      loc.Barcode,
		LocationType: loc.Type,
	}
	p.publish(ctx, messaging.EventLocationCreated, data, "location_id", loc.ID)
}
