package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/handler"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/labels"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository/memstore"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testLWIN = "101027920180600750"

type testServer struct {
	t         *testing.T
	router    http.Handler
	store     *memstore.Store
	publisher *testutil.MockPublisher
	svc       handler.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ids, err := idgen.New(1)
	require.NoError(t, err)

	log := logger.Nop()
	store := memstore.New()
	mock := testutil.NewMockPublisher()
	publisher := events.NewWithPublisher(mock, log)

	svc := handler.Services{
		Directory: service.NewDirectoryService(store, nil, publisher, log),
		Ledger:    service.NewLedgerService(store, ids, publisher, log),
		PickLists: service.NewPickListService(store, ids, publisher, log),
	}
	router := handler.NewRouter(svc, handler.RouterConfig{
		ServiceName: "wms-service",
		Role:        "edge",
		Health: func(ctx context.Context) map[string]interface{} {
			return map[string]interface{}{"database": map[string]string{"status": "up"}}
		},
	}, log)

	return &testServer{t: t, router: router, store: store, publisher: mock, svc: svc}
}

// do sends a request as operator op-1 and decodes the envelope
func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, api.Envelope) {
	s.t.Helper()
	req := testutil.WithOperatorHeaders(testutil.NewHTTPRequest(method, path, body), "op-1", "Test Operator")
	rr := testutil.ExecuteRequest(s.router, req)

	var env api.Envelope
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func (s *testServer) location(aisle, bay, level, locationType string) *repository.Location {
	s.t.Helper()
	rr, env := s.do(http.MethodPost, "/api/wms/locations", map[string]interface{}{
		"aisle": aisle, "bay": bay, "level": level, "location_type": locationType,
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	var loc repository.Location
	require.NoError(s.t, json.Unmarshal(env.Data, &loc))
	return &loc
}

func (s *testServer) receive(receiving *repository.Location, cases int) *service.ReceiveResult {
	s.t.Helper()
	rr, env := s.do(http.MethodPost, "/api/wms/receive", map[string]interface{}{
		"shipment_id": "shp-1",
		"location_id": receiving.ID,
		"items": []map[string]interface{}{
			{"lwin18": testLWIN, "owner_id": "owner-1", "quantity_cases": cases, "lot_number": "LOT-1"},
		},
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	var result service.ReceiveResult
	require.NoError(s.t, json.Unmarshal(env.Data, &result))
	return &result
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rr, env := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, "edge", status["role"])
	assert.Contains(t, status, "database")
}

func TestReceivePutawayAndScan(t *testing.T) {
	s := newTestServer(t)
	receiving := s.location("R", "01", "1", "receiving")
	rack := s.location("A", "01", "1", "rack")

	received := s.receive(receiving, 6)
	require.Len(t, received.Lines, 1)
	line := received.Lines[0]
	assert.Len(t, line.CaseLabels, 6)
	assert.Equal(t, "op-1", line.Movement.PerformedBy)

	rr, env := s.do(http.MethodPost, "/api/wms/putaway", map[string]interface{}{
		"stock_id": line.Stock.ID, "to_location_id": rack.ID,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var moved service.MoveResult
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Nil(t, moved.Source)
	assert.Equal(t, 6, moved.Destination.QuantityCases)

	rr, env = s.do(http.MethodPost, "/api/wms/scan-location", api.ScanRequest{Barcode: rack.Barcode})
	require.Equal(t, http.StatusOK, rr.Code)
	var contents service.LocationContents
	require.NoError(t, json.Unmarshal(env.Data, &contents))
	assert.Equal(t, 6, contents.TotalCases)

	rr, env = s.do(http.MethodPost, "/api/wms/scan-case", api.ScanRequest{Barcode: line.CaseLabels[0]})
	require.Equal(t, http.StatusOK, rr.Code)
	var info service.CaseInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, testLWIN, info.LWIN18)
	require.NotNil(t, info.Primary)
	assert.Equal(t, rack.ID, info.Primary.LocationID)

	rr, env = s.do(http.MethodGet, "/api/wms/stock/"+testLWIN+"/reconcile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec service.Reconciliation
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.True(t, rec.Balanced)

	rr, _ = s.do(http.MethodGet, "/api/wms/stock/"+testLWIN+"/movements", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":2`)
}

func TestErrorEnvelopes(t *testing.T) {
	s := newTestServer(t)
	receiving := s.location("R", "01", "1", "receiving")
	rack := s.location("A", "01", "1", "rack")
	line := s.receive(receiving, 5).Lines[0]

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed location barcode", http.MethodPost, "/api/wms/scan-location", api.ScanRequest{Barcode: "A-01-1"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing barcode", http.MethodPost, "/api/wms/scan-location", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown location", http.MethodPost, "/api/wms/scan-location", api.ScanRequest{Barcode: "LOC-Z-99-9"}, http.StatusNotFound, "NOT_FOUND"},
		{"transfer too many", http.MethodPost, "/api/wms/transfer", map[string]interface{}{"stock_id": line.Stock.ID, "quantity_cases": 9, "to_location_id": rack.ID}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"transfer zero", http.MethodPost, "/api/wms/transfer", map[string]interface{}{"stock_id": line.Stock.ID, "quantity_cases": 0, "to_location_id": rack.ID}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown pick list", http.MethodGet, "/api/wms/pick-list/missing", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad status filter", http.MethodGet, "/api/wms/pick-lists?status=shipped", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/wms/transfer", bytes.NewBufferString("{"))
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error":"invalid JSON body"`)
	})
}

func TestPickListFlow(t *testing.T) {
	s := newTestServer(t)
	receiving := s.location("R", "01", "1", "receiving")
	s.location("S", "01", "1", "shipping")
	rack := s.location("A", "01", "1", "rack")
	line := s.receive(receiving, 10).Lines[0]

	rr, _ := s.do(http.MethodPost, "/api/wms/putaway", map[string]interface{}{"stock_id": line.Stock.ID, "to_location_id": rack.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env := s.do(http.MethodPost, "/api/wms/pick-lists", map[string]interface{}{
		"order_id": "ord-1",
		"lines":    []map[string]interface{}{{"lwin18": testLWIN, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pl repository.PickList
	require.NoError(t, json.Unmarshal(env.Data, &pl))
	require.Len(t, pl.Items, 1)
	item := pl.Items[0]

	rr, env = s.do(http.MethodPost, "/api/wms/pick-complete", api.CompleteRequest{PickListID: pl.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INCOMPLETE_PICK", env.Code)
	assert.Equal(t, item.ID, env.Details["unpicked_items"])

	rr, _ = s.do(http.MethodPost, "/api/wms/pick-item", map[string]interface{}{
		"item_id": item.ID, "picked_from_location_id": rack.ID, "picked_quantity": 4,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, _ = s.do(http.MethodPost, "/api/wms/pick-complete", api.CompleteRequest{PickListID: pl.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	rr, env = s.do(http.MethodPost, "/api/wms/pick-complete", api.CompleteRequest{PickListID: pl.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "CONFLICT", env.Code)

	rr, _ = s.do(http.MethodPost, "/api/wms/pick-list/"+pl.ID+"/dispatch", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr, _ = s.do(http.MethodPost, "/api/wms/pick-list/"+pl.ID+"/dispatch", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, env = s.do(http.MethodGet, "/api/wms/pick-list/"+pl.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got repository.PickList
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, repository.PickListCompleted, got.Status)
	assert.NotNil(t, got.DispatchedAt)

	rr, _ = s.do(http.MethodGet, "/api/wms/pick-lists?status=completed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)
}

func TestRPC(t *testing.T) {
	s := newTestServer(t)
	receiving := s.location("R", "01", "1", "receiving")
	rack := s.location("A", "01", "1", "rack")
	line := s.receive(receiving, 3).Lines[0]

	rr, env := s.do(http.MethodPost, "/rpc/wms.transfer", map[string]interface{}{
		"stock_id": line.Stock.ID, "quantity_cases": 2, "to_location_id": rack.ID,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, env.Success)

	rr, env = s.do(http.MethodPost, "/rpc/wms.scanLocation", api.ScanRequest{Barcode: rack.Barcode})
	require.Equal(t, http.StatusOK, rr.Code)
	var contents service.LocationContents
	require.NoError(t, json.Unmarshal(env.Data, &contents))
	assert.Equal(t, 2, contents.TotalCases)

	rr, env = s.do(http.MethodPost, "/rpc/wms.transfer", map[string]interface{}{
		"stock_id": line.Stock.ID, "quantity_cases": 2, "to_location_id": rack.ID,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)

	rr, env = s.do(http.MethodPost, "/rpc/wms.listPickLists", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rr, env = s.do(http.MethodPost, "/rpc/wms.getPickList", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	rr, env = s.do(http.MethodPost, "/rpc/wms.deleteEverything", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestOperatorIdentity(t *testing.T) {
	s := newTestServer(t)
	receiving := s.location("R", "01", "1", "receiving")

	body, err := json.Marshal(map[string]interface{}{
		"shipment_id": "shp-1",
		"location_id": receiving.ID,
		"items":       []map[string]interface{}{{"lwin18": testLWIN, "owner_id": "owner-1", "quantity_cases": 1}},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/wms/receive", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	movements := s.store.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, actor.SystemID, movements[0].PerformedBy)
}

func TestLocationImportAndLabels(t *testing.T) {
	s := newTestServer(t)

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Aisle", "Bay", "Level", "Type"},
		{"A", "01", "1", "rack"},
		{"A", "01", "2", "rack"},
		{"A", "01", "x-y", "rack"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var workbook bytes.Buffer
	require.NoError(t, f.Write(&workbook))
	require.NoError(t, f.Close())

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "locations.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/wms/locations/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var env api.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var result service.ImportResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)

	rr, _ = s.do(http.MethodGet, "/api/wms/labels.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, labels.ContentType, rr.Header().Get("Content-Type"))
	sheet, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer sheet.Close()
	assert.Contains(t, sheet.GetSheetList(), labels.SheetTotems)

	rr, env = s.do(http.MethodGet, "/api/wms/labels/totems", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var totems []labels.BayTotem
	require.NoError(t, json.Unmarshal(env.Data, &totems))
	require.Len(t, totems, 1)
	assert.Len(t, totems[0].Levels, 2)
}
