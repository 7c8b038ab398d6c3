package service

import (
	"context"
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository/memstore"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/testutil"
	"github.com/stretchr/testify/require"
)

const testLWIN = "101027920180600750"

type testEnv struct {
	t         *testing.T
	ctx       context.Context
	store     *memstore.Store
	publisher *testutil.MockPublisher
	fixtures  *testutil.FixtureFactory
	directory *DirectoryService
	ledger    *LedgerService
	picks     *PickListService
	receiving *repository.Location
	shipping  *repository.Location
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ids, err := idgen.New(1)
	require.NoError(t, err)

	store := memstore.New()
	mock := testutil.NewMockPublisher()
	publisher := events.NewWithPublisher(mock, logger.Nop())
	log := logger.Nop()

	e := &testEnv{
		t:         t,
		ctx:       actor.WithActor(context.Background(), &actor.Actor{ID: "op-1", Name: "Test Operator"}),
		store:     store,
		publisher: mock,
		fixtures:  testutil.NewFixtureFactory(),
		directory: NewDirectoryService(store, nil, publisher, log),
		ledger:    NewLedgerService(store, ids, publisher, log),
		picks:     NewPickListService(store, ids, publisher, log),
	}
	e.receiving = e.location(testutil.WithCoordinates("R", "01", "1"), testutil.WithLocationType(repository.LocationReceiving))
	e.shipping = e.location(testutil.WithCoordinates("S", "01", "1"), testutil.WithLocationType(repository.LocationShipping))
	mock.Reset()
	return e
}

func (e *testEnv) location(opts ...func(*testutil.LocationFixture)) *repository.Location {
	e.t.Helper()
	f := e.fixtures.Location(opts...)
	loc, err := e.directory.CreateLocation(e.ctx, CreateLocationInput{
		Aisle:         f.Aisle,
		Bay:           f.Bay,
		Level:         f.Level,
		LocationType:  f.Type,
		CapacityCases: f.Capacity,
	})
	require.NoError(e.t, err)
	return loc
}

func (e *testEnv) rack(aisle, bay, level string) *repository.Location {
	e.t.Helper()
	return e.location(testutil.WithCoordinates(aisle, bay, level))
}

// receive books stock into the receiving location
func (e *testEnv) receive(opts ...func(*testutil.StockFixture)) *ReceivedLine {
	e.t.Helper()
	f := e.fixtures.Stock(opts...)
	result, err := e.ledger.Receive(e.ctx, ReceiveRequest{
		ShipmentID: "shp-1",
		LocationID: e.receiving.ID,
		Items: []ReceiveItem{{
			LWIN18:        f.LWIN18,
			ProductName:   f.ProductName,
			OwnerID:       f.Owner,
			QuantityCases: f.Cases,
			LotNumber:     f.LotNumber,
		}},
	})
	require.NoError(e.t, err)
	require.Len(e.t, result.Lines, 1)
	return result.Lines[0]
}

// stockAt receives stock and puts all of it away at loc
func (e *testEnv) stockAt(loc *repository.Location, opts ...func(*testutil.StockFixture)) *repository.StockRecord {
	e.t.Helper()
	line := e.receive(opts...)
	moved, err := e.ledger.Putaway(e.ctx, PutawayRequest{StockID: line.Stock.ID, ToLocationID: loc.ID})
	require.NoError(e.t, err)
	return moved.Destination
}

func (e *testEnv) stock(id string) *repository.StockRecord {
	e.t.Helper()
	rec, err := e.store.Repositories().Stock.GetByID(e.ctx, id)
	require.NoError(e.t, err)
	return rec
}

func (e *testEnv) casesAt(loc *repository.Location) (quantity, available int) {
	e.t.Helper()
	records, err := e.store.Repositories().Stock.ListByLocation(e.ctx, loc.ID)
	require.NoError(e.t, err)
	for _, rec := range records {
		quantity += rec.QuantityCases
		available += rec.AvailableCases
	}
	return quantity, available
}
