package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/client"
	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/health"
	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/transport"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/handler"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository/memstore"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLWIN = "101027920180600750"

// backend is a complete warehouse service over an in-memory store
type backend struct {
	srv       *httptest.Server
	store     *memstore.Store
	svc       handler.Services
	requests  atomic.Int32
	down      atomic.Bool
	receiving *repository.Location
	rack      *repository.Location
}

func newBackend(t *testing.T, role string) *backend {
	t.Helper()
	ids, err := idgen.New(1)
	require.NoError(t, err)
	log := logger.Nop()
	store := memstore.New()
	publisher := events.NewWithPublisher(testutil.NewMockPublisher(), log)

	b := &backend{store: store}
	b.svc = handler.Services{
		Directory: service.NewDirectoryService(store, nil, publisher, log),
		Ledger:    service.NewLedgerService(store, ids, publisher, log),
		PickLists: service.NewPickListService(store, ids, publisher, log),
	}
	router := handler.NewRouter(b.svc, handler.RouterConfig{ServiceName: "wms-service", Role: role}, log)
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			if b.down.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		} else {
			b.requests.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)

	ctx := context.Background()
	b.receiving, err = b.svc.Directory.CreateLocation(ctx, service.CreateLocationInput{Aisle: "R", Bay: "01", Level: "1", LocationType: "receiving"})
	require.NoError(t, err)
	b.rack, err = b.svc.Directory.CreateLocation(ctx, service.CreateLocationInput{Aisle: "A", Bay: "01", Level: "1", LocationType: "rack"})
	require.NoError(t, err)
	return b
}

func newClient(t *testing.T, edge, cloud *backend) (*client.Client, *health.Monitor) {
	t.Helper()
	monitor := health.NewMonitor(config.EdgeConfig{URL: edge.srv.URL}, logger.Nop())
	local := func(baseURL string) transport.Transport {
		return transport.NewLocalTransport(baseURL, nil)
	}
	tr := transport.NewSelectingTransport(monitor, local, transport.NewCloudTransport(cloud.srv.URL, nil), logger.Nop())
	return client.New(tr), monitor
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{ID: "op-3"})
}

func TestClient_UsesEdgeWhenHealthy(t *testing.T) {
	edge, cloud := newBackend(t, "edge"), newBackend(t, "cloud")
	c, monitor := newClient(t, edge, cloud)
	ctx := operatorCtx()

	require.Equal(t, health.ModeLocal, monitor.Check(ctx).Mode)

	received, err := c.Receive(ctx, service.ReceiveRequest{
		ShipmentID: "shp-1",
		LocationID: edge.receiving.ID,
		Items:      []service.ReceiveItem{{LWIN18: testLWIN, OwnerID: "owner-1", QuantityCases: 4}},
	})
	require.NoError(t, err)
	require.Len(t, received.Lines, 1)
	line := received.Lines[0]
	assert.Len(t, line.CaseLabels, 4)
	assert.Equal(t, "op-3", line.Movement.PerformedBy)

	info, err := c.ScanCase(ctx, line.CaseLabels[0])
	require.NoError(t, err)
	require.NotNil(t, info.Primary)
	assert.Equal(t, line.Stock.ID, info.Primary.ID)

	moved, err := c.Putaway(ctx, service.PutawayRequest{StockID: info.Primary.ID, ToLocationID: edge.rack.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, moved.Destination.QuantityCases)

	contents, err := c.ScanLocation(ctx, edge.rack.Barcode)
	require.NoError(t, err)
	assert.Equal(t, 4, contents.TotalCases)

	assert.Len(t, edge.store.Movements(), 2)
	assert.Empty(t, cloud.store.Movements())
	assert.EqualValues(t, 0, cloud.requests.Load())
}

func TestClient_PickListOperations(t *testing.T) {
	edge, cloud := newBackend(t, "edge"), newBackend(t, "cloud")
	c, monitor := newClient(t, edge, cloud)
	ctx := operatorCtx()
	monitor.Check(ctx)

	shipping, err := edge.svc.Directory.CreateLocation(ctx, service.CreateLocationInput{Aisle: "S", Bay: "01", Level: "1", LocationType: "shipping"})
	require.NoError(t, err)
	received, err := c.Receive(ctx, service.ReceiveRequest{
		ShipmentID: "shp-1",
		LocationID: edge.receiving.ID,
		Items:      []service.ReceiveItem{{LWIN18: testLWIN, OwnerID: "owner-1", QuantityCases: 5}},
	})
	require.NoError(t, err)
	_, err = c.Putaway(ctx, service.PutawayRequest{StockID: received.Lines[0].Stock.ID, ToLocationID: edge.rack.ID})
	require.NoError(t, err)

	pl, err := edge.svc.PickLists.CreateFromOrder(ctx, service.Order{
		OrderID: "ord-1",
		Lines:   []service.OrderLine{{LWIN18: testLWIN, Quantity: 2}},
	}, shipping.ID)
	require.NoError(t, err)

	lists, err := c.ListPickLists(ctx, repository.PickListPending)
	require.NoError(t, err)
	require.Len(t, lists, 1)

	got, err := c.GetPickList(ctx, pl.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	item := got.Items[0]

	_, err = c.CompletePickList(ctx, pl.ID)
	assert.True(t, errors.Is(err, errors.ErrIncompletePick))

	picked, err := c.PickItem(ctx, service.PickRequest{ItemID: item.ID, PickedFromLocationID: item.SuggestedLocationID, PickedQuantity: 2})
	require.NoError(t, err)
	assert.Equal(t, repository.PickListInProgress, picked.PickList.Status)

	done, err := c.CompletePickList(ctx, pl.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.PickListCompleted, done.Status)

	_, err = c.CompletePickList(ctx, pl.ID)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.EqualValues(t, 0, cloud.requests.Load())
}

func TestClient_FallsBackToCloudWhenEdgeDrops(t *testing.T) {
	edge, cloud := newBackend(t, "edge"), newBackend(t, "cloud")
	c, monitor := newClient(t, edge, cloud)
	ctx := operatorCtx()

	require.Equal(t, health.ModeLocal, monitor.Check(ctx).Mode)
	edge.srv.Close()

	// The monitor has not noticed yet; the call itself falls back
	contents, err := c.ScanLocation(ctx, "LOC-A-01-1")
	require.NoError(t, err)
	assert.Equal(t, cloud.rack.ID, contents.Location.ID)
	assert.EqualValues(t, 1, cloud.requests.Load())

	require.Equal(t, health.ModeCloud, monitor.Check(ctx).Mode)
	_, err = c.ScanLocation(ctx, "LOC-A-01-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cloud.requests.Load())
}

func TestClient_DomainErrorsStayOnEdge(t *testing.T) {
	edge, cloud := newBackend(t, "edge"), newBackend(t, "cloud")
	c, monitor := newClient(t, edge, cloud)
	ctx := operatorCtx()
	monitor.Check(ctx)

	received, err := c.Receive(ctx, service.ReceiveRequest{
		ShipmentID: "shp-1",
		LocationID: edge.receiving.ID,
		Items:      []service.ReceiveItem{{LWIN18: testLWIN, OwnerID: "owner-1", QuantityCases: 2}},
	})
	require.NoError(t, err)

	_, err = c.Transfer(ctx, service.TransferRequest{StockID: received.Lines[0].Stock.ID, QuantityCases: 3, ToLocationID: edge.rack.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	_, err = c.ScanLocation(ctx, "A-01-1")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = c.ScanCase(ctx, "CASE-1010279-20180600750-099")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	assert.EqualValues(t, 0, cloud.requests.Load())
}

func TestClient_StaysOnCloudWhileEdgeUnhealthy(t *testing.T) {
	edge, cloud := newBackend(t, "edge"), newBackend(t, "cloud")
	c, monitor := newClient(t, edge, cloud)
	ctx := operatorCtx()

	edge.down.Store(true)
	monitor.Check(ctx)
	status := monitor.Check(ctx)
	require.Equal(t, health.ModeCloud, status.Mode)
	assert.Equal(t, 2, status.ConsecutiveFailures)

	for i := 0; i < 3; i++ {
		_, err := c.ScanLocation(ctx, "LOC-A-01-1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 0, edge.requests.Load(), "edge is not tried while unhealthy")
	assert.EqualValues(t, 3, cloud.requests.Load())

	edge.down.Store(false)
	require.Equal(t, health.ModeLocal, monitor.Check(ctx).Mode)
	_, err := c.ScanLocation(ctx, "LOC-A-01-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, edge.requests.Load())
	assert.EqualValues(t, 3, cloud.requests.Load())
}
