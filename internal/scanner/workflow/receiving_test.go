package workflow

import (
	"context"
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wineA = "101027920180600750"
	wineB = "101027920190600750"
)

type fakeReceiver struct {
	err      error
	requests []service.ReceiveRequest
}

func (f *fakeReceiver) Receive(ctx context.Context, req service.ReceiveRequest) (*service.ReceiveResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.ReceiveResult{ShipmentID: req.ShipmentID, LocationID: req.LocationID}, nil
}

func manifest() Shipment {
	return Shipment{
		ID: "shp-1",
		Items: []ExpectedItem{
			{LWIN18: wineA, OwnerID: "owner-1", ExpectedCases: 10, ProductName: "Chateau Test 2018"},
			{LWIN18: "1010279-2019-06-00750", OwnerID: "owner-1", ExpectedCases: 4},
		},
	}
}

func TestReceiving_Start(t *testing.T) {
	r := NewReceiving(&fakeReceiver{})
	require.NoError(t, r.Start(manifest()))

	lines := r.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, wineA, lines[0].LWIN18)
	assert.Equal(t, wineB, lines[1].LWIN18, "dashed codes are stored compact")
	assert.Equal(t, -10, lines[0].Variance())

	assert.ErrorIs(t, r.Start(manifest()), ErrInvalidTransition)
}

func TestReceiving_StartValidation(t *testing.T) {
	tests := []struct {
		name     string
		shipment Shipment
	}{
		{"no id", Shipment{Items: manifest().Items}},
		{"no items", Shipment{ID: "shp-1"}},
		{"bad lwin", Shipment{ID: "shp-1", Items: []ExpectedItem{{LWIN18: "12345"}}}},
		{"duplicate product", Shipment{ID: "shp-1", Items: []ExpectedItem{{LWIN18: wineA}, {LWIN18: "1010279-2018-06-00750"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReceiving(&fakeReceiver{})
			err := r.Start(tt.shipment)
			assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
			assert.Empty(t, r.Lines())
		})
	}
}

func TestReceiving_Record(t *testing.T) {
	r := NewReceiving(&fakeReceiver{})
	assert.ErrorIs(t, r.Record(wineA, 1), ErrInvalidTransition)

	require.NoError(t, r.Start(manifest()))
	require.NoError(t, r.Record("1010279-2018-06-00750", 12))
	require.NoError(t, r.Record(wineB, 3))
	require.NoError(t, r.Record(wineB, 4))

	lines := r.Lines()
	assert.Equal(t, 12, lines[0].ReceivedCases)
	assert.Equal(t, 2, lines[0].Variance())
	assert.Equal(t, 0, lines[1].Variance())

	assert.True(t, errors.Is(r.Record(wineA, -1), errors.ErrValidation))
	assert.True(t, errors.Is(r.Record("nope", 1), errors.ErrValidation))
	assert.True(t, errors.Is(r.Record("101027920200600750", 1), errors.ErrNotFound))

	// Lines is a copy
	lines[0].ReceivedCases = 99
	assert.Equal(t, 12, r.Lines()[0].ReceivedCases)
}

func TestReceiving_Submit(t *testing.T) {
	ctx := context.Background()
	backend := &fakeReceiver{}
	r := NewReceiving(backend)
	require.NoError(t, r.Start(manifest()))

	_, err := r.Submit(ctx, "loc-recv")
	assert.True(t, errors.Is(err, errors.ErrValidation), "nothing counted")
	assert.Empty(t, backend.requests)

	require.NoError(t, r.Record(wineA, 8))
	result, err := r.Submit(ctx, "loc-recv")
	require.NoError(t, err)
	assert.Equal(t, "shp-1", result.ShipmentID)
	assert.Same(t, result, r.Result())

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "shp-1", req.ShipmentID)
	assert.Equal(t, "loc-recv", req.LocationID)
	require.Len(t, req.Items, 1, "uncounted lines are not booked")
	item := req.Items[0]
	assert.Equal(t, wineA, item.LWIN18)
	assert.Equal(t, 8, item.QuantityCases)
	require.NotNil(t, item.ExpectedCases)
	assert.Equal(t, 10, *item.ExpectedCases)
	assert.Equal(t, "Chateau Test 2018", item.ProductName)

	assert.ErrorIs(t, r.Record(wineA, 9), ErrInvalidTransition)
	_, err = r.Submit(ctx, "loc-recv")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, r.Start(Shipment{ID: "shp-2", Items: []ExpectedItem{{LWIN18: wineB, ExpectedCases: 1}}}), "a new shipment can follow")
	assert.Nil(t, r.Result())
}

func TestReceiving_SubmitFailureKeepsCounts(t *testing.T) {
	ctx := context.Background()
	backend := &fakeReceiver{err: errors.Network(assert.AnError)}
	r := NewReceiving(backend)
	require.NoError(t, r.Start(manifest()))
	require.NoError(t, r.Record(wineA, 10))
	require.NoError(t, r.Record(wineB, 2))

	_, err := r.Submit(ctx, "loc-recv")
	assert.True(t, errors.Is(err, errors.ErrNetwork))
	assert.Equal(t, 10, r.Lines()[0].ReceivedCases)
	assert.Equal(t, 2, r.Lines()[1].ReceivedCases)

	require.NoError(t, r.Record(wineB, 3))
	backend.err = nil
	_, err = r.Submit(ctx, "loc-recv")
	require.NoError(t, err)
	require.Len(t, backend.requests, 2)
	assert.Equal(t, 3, backend.requests[1].Items[1].QuantityCases)
}
