package workflow

import (
	"context"
	"fmt"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/lwin"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
)

// ReceiveBackend books a receipt. *client.Client satisfies it.
type ReceiveBackend interface {
	Receive(ctx context.Context, req service.ReceiveRequest) (*service.ReceiveResult, error)
}

// ExpectedItem is one line of an inbound shipment's manifest.
type ExpectedItem struct {
	LWIN18        string
	ProductName   string
	OwnerID       string
	ExpectedCases int
	LotNumber     string
}

// Shipment is the manifest an operator receives against.
type Shipment struct {
	ID    string
	Items []ExpectedItem
}

// ReceivingLine is a manifest line with what was counted so far.
type ReceivingLine struct {
	ExpectedItem
	ReceivedCases int
}

// Variance is received minus expected; negative means short.
func (l ReceivingLine) Variance() int {
	return l.ReceivedCases - l.ExpectedCases
}

type receivingPhase int

const (
	receivingIdle receivingPhase = iota
	receivingCounting
	receivingSubmitted
)

// Receiving records case counts against a shipment manifest and submits
// them as a single receive. A failed submit keeps the counts.
type Receiving struct {
	backend  ReceiveBackend
	phase    receivingPhase
	shipment string
	lines    []*ReceivingLine
	index    map[string]*ReceivingLine
	result   *service.ReceiveResult
}

// NewReceiving creates an idle receiving session.
func NewReceiving(backend ReceiveBackend) *Receiving {
	return &Receiving{backend: backend}
}

// Start loads a manifest. Each product may appear once.
func (r *Receiving) Start(shipment Shipment) error {
	if r.phase == receivingCounting {
		return ErrInvalidTransition
	}
	if shipment.ID == "" {
		return errors.Invalid("shipment_id", "this field is required")
	}
	if len(shipment.Items) == 0 {
		return errors.Invalid("items", "shipment has no items")
	}

	lines := make([]*ReceivingLine, 0, len(shipment.Items))
	index := make(map[string]*ReceivingLine, len(shipment.Items))
	for i, item := range shipment.Items {
		compact, err := lwin.Validate(fmt.Sprintf("items[%d].lwin18", i), item.LWIN18)
		if err != nil {
			return err
		}
		if _, dup := index[compact]; dup {
			return errors.Invalid(fmt.Sprintf("items[%d].lwin18", i), "appears more than once in the shipment")
		}
		item.LWIN18 = compact
		line := &ReceivingLine{ExpectedItem: item}
		lines = append(lines, line)
		index[compact] = line
	}

	r.phase = receivingCounting
	r.shipment = shipment.ID
	r.lines = lines
	r.index = index
	r.result = nil
	return nil
}

// Record sets the counted cases for a manifest line.
func (r *Receiving) Record(lwin18 string, received int) error {
	if r.phase != receivingCounting {
		return ErrInvalidTransition
	}
	if received < 0 {
		return errors.Invalid("received_cases", "must not be negative")
	}
	compact, ok := lwin.Compact(lwin18)
	if !ok {
		return errors.Invalid("lwin18", "must be an LWIN18")
	}
	line, ok := r.index[compact]
	if !ok {
		return errors.NotFound("shipment line for " + lwin.Dashed(compact))
	}
	line.ReceivedCases = received
	return nil
}

// Lines returns a copy of the manifest lines in manifest order.
func (r *Receiving) Lines() []ReceivingLine {
	out := make([]ReceivingLine, len(r.lines))
	for i, l := range r.lines {
		out[i] = *l
	}
	return out
}

// Result returns the receive outcome once submitted.
func (r *Receiving) Result() *service.ReceiveResult {
	return r.result
}

// Submit books every line with at least one counted case into the given
// receiving location.
func (r *Receiving) Submit(ctx context.Context, locationID string) (*service.ReceiveResult, error) {
	if r.phase != receivingCounting {
		return nil, ErrInvalidTransition
	}

	req := service.ReceiveRequest{ShipmentID: r.shipment, LocationID: locationID}
	for _, l := range r.lines {
		if l.ReceivedCases == 0 {
			continue
		}
		expected := l.ExpectedCases
		req.Items = append(req.Items, service.ReceiveItem{
			LWIN18:        l.LWIN18,
			ProductName:   l.ProductName,
			OwnerID:       l.OwnerID,
			QuantityCases: l.ReceivedCases,
			ExpectedCases: &expected,
			LotNumber:     l.LotNumber,
		})
	}
	if len(req.Items) == 0 {
		return nil, errors.Invalid("items", "no cases have been counted")
	}

	result, err := r.backend.Receive(ctx, req)
	if err != nil {
		return nil, err
	}
	r.phase = receivingSubmitted
	r.result = result
	return result, nil
}
