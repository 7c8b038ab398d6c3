package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/craftandculture/Craft-Culture-sub006/internal/scanner/health"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
	userID string
}

type callLog struct {
	mu    sync.Mutex
	calls []recorded
}

func (l *callLog) all() []recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recorded(nil), l.calls...)
}

// backend records each request and answers with the given status and body
func backend(t *testing.T, status int, body string) (*httptest.Server, *callLog) {
	t.Helper()
	log := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		defer log.mu.Unlock()
		log.calls = append(log.calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(raw),
			userID: r.Header.Get(actor.HeaderUserID),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{ID: "op-7", Name: "Handheld 7"})
}

func TestLocalTransport_Post(t *testing.T) {
	srv, log := backend(t, http.StatusOK, `{"success":true,"data":{"total_cases":6}}`)
	tr := NewLocalTransport(srv.URL+"/", srv.Client())

	var out struct {
		TotalCases int `json:"total_cases"`
	}
	err := tr.Request(operatorCtx(), api.ScanLocation, api.ScanRequest{Barcode: "LOC-A-01-1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 6, out.TotalCases)

	calls := log.all()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/api/wms/scan-location", call.path)
	assert.JSONEq(t, `{"barcode":"LOC-A-01-1"}`, call.body)
	assert.Equal(t, "op-7", call.userID)
}

func TestLocalTransport_GetFillsPathAndQuery(t *testing.T) {
	srv, log := backend(t, http.StatusOK, `{"success":true,"data":[]}`)
	tr := NewLocalTransport(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, tr.Request(ctx, api.GetPickList, api.PickListRef{ID: "pl 1"}, nil))
	require.NoError(t, tr.Request(ctx, api.ListPickLists, api.PickListFilter{Status: "pending"}, nil))
	require.NoError(t, tr.Request(ctx, api.ListPickLists, api.PickListFilter{}, nil))

	calls := log.all()
	require.Len(t, calls, 3)
	assert.Equal(t, "/api/wms/pick-list/pl 1", calls[0].path)
	assert.Equal(t, "/api/wms/pick-lists", calls[1].path)
	assert.Equal(t, "status=pending", calls[1].query)
	assert.Empty(t, calls[2].query)
	assert.Empty(t, calls[0].userID)

	err := tr.Request(ctx, api.GetPickList, api.PickListRef{}, nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Len(t, log.all(), 3)
}

func TestLocalTransport_ErrorEnvelope(t *testing.T) {
	srv, _ := backend(t, http.StatusConflict,
		`{"success":false,"error":"requested 9 cases but only 5 available","code":"INSUFFICIENT_STOCK","details":{"available":"5","requested":"9"}}`)
	tr := NewLocalTransport(srv.URL, srv.Client())

	err := tr.Request(context.Background(), api.Transfer, map[string]interface{}{"stock_id": "s-1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.False(t, errors.Is(err, errors.ErrNetwork))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	assert.Equal(t, "5", appErr.Details["available"])
	assert.Equal(t, "requested 9 cases but only 5 available", appErr.Message)
}

func TestLocalTransport_NetworkErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := backend(t, http.StatusBadGateway, `bad gateway`)
		tr := NewLocalTransport(srv.URL, srv.Client())
		err := tr.Request(context.Background(), api.ScanCase, api.ScanRequest{Barcode: "x"}, nil)
		assert.True(t, errors.Is(err, errors.ErrNetwork))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		tr := NewLocalTransport(url, nil)
		err := tr.Request(context.Background(), api.ScanCase, api.ScanRequest{Barcode: "x"}, nil)
		assert.True(t, errors.Is(err, errors.ErrNetwork))
	})

	t.Run("non json client error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)
		tr := NewLocalTransport(srv.URL, srv.Client())
		err := tr.Request(context.Background(), api.ScanCase, api.ScanRequest{Barcode: "x"}, nil)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("caller cancelled", func(t *testing.T) {
		srv, _ := backend(t, http.StatusOK, `{"success":true}`)
		tr := NewLocalTransport(srv.URL, srv.Client())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := tr.Request(ctx, api.ScanCase, api.ScanRequest{Barcode: "x"}, nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, errors.ErrNetwork))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCloudTransport(t *testing.T) {
	srv, log := backend(t, http.StatusOK, `{"success":true,"data":{"id":"pl-1","status":"pending"}}`)
	tr := NewCloudTransport(srv.URL, srv.Client())

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, tr.Request(operatorCtx(), api.GetPickList, api.PickListRef{ID: "pl-1"}, &out))
	assert.Equal(t, "pl-1", out.ID)

	require.NoError(t, tr.Request(context.Background(), api.ListPickLists, nil, nil))

	calls := log.all()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/rpc/wms.getPickList", calls[0].path)
	assert.JSONEq(t, `{"id":"pl-1"}`, calls[0].body)
	assert.Equal(t, "op-7", calls[0].userID)
	assert.Equal(t, "/rpc/wms.listPickLists", calls[1].path)
	assert.JSONEq(t, `{}`, calls[1].body)
}

type fixedStatus health.Status

func (s fixedStatus) Status() health.Status { return health.Status(s) }

type fakeTransport struct {
	calls atomic.Int32
	err   error
	data  string
}

func (f *fakeTransport) Request(ctx context.Context, op api.Operation, payload, out interface{}) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	if out != nil && f.data != "" {
		return json.Unmarshal([]byte(f.data), out)
	}
	return nil
}

func selecting(status health.Status, local, cloud *fakeTransport) (*SelectingTransport, *string) {
	var usedURL string
	factory := func(baseURL string) Transport {
		usedURL = baseURL
		return local
	}
	return NewSelectingTransport(fixedStatus(status), factory, cloud, logger.Nop()), &usedURL
}

func TestSelectingTransport(t *testing.T) {
	localUp := health.Status{Mode: health.ModeLocal, BaseURL: "http://edge:8080"}
	ctx := context.Background()

	t.Run("cloud mode never touches the edge server", func(t *testing.T) {
		local, cloud := &fakeTransport{}, &fakeTransport{}
		tr, _ := selecting(health.Status{Mode: health.ModeCloud}, local, cloud)

		require.NoError(t, tr.Request(ctx, api.Transfer, nil, nil))
		assert.EqualValues(t, 0, local.calls.Load())
		assert.EqualValues(t, 1, cloud.calls.Load())
	})

	t.Run("local mode uses the probed base url", func(t *testing.T) {
		local, cloud := &fakeTransport{data: `"edge"`}, &fakeTransport{}
		tr, usedURL := selecting(localUp, local, cloud)

		var out string
		require.NoError(t, tr.Request(ctx, api.ScanCase, nil, &out))
		assert.Equal(t, "edge", out)
		assert.Equal(t, "http://edge:8080", *usedURL)
		assert.EqualValues(t, 0, cloud.calls.Load())
	})

	t.Run("network failure falls back to cloud once", func(t *testing.T) {
		local := &fakeTransport{err: errors.Network(io.ErrUnexpectedEOF)}
		cloud := &fakeTransport{data: `"cloud"`}
		tr, _ := selecting(localUp, local, cloud)

		var out string
		require.NoError(t, tr.Request(ctx, api.PickItem, nil, &out))
		assert.Equal(t, "cloud", out)
		assert.EqualValues(t, 1, local.calls.Load())
		assert.EqualValues(t, 1, cloud.calls.Load())
	})

	t.Run("domain errors are not retried", func(t *testing.T) {
		for _, domainErr := range []error{
			errors.InsufficientStock(9, 5),
			errors.Invalid("barcode", "malformed"),
			errors.Conflict("pick list already completed"),
			errors.NotFound("location"),
		} {
			local, cloud := &fakeTransport{err: domainErr}, &fakeTransport{}
			tr, _ := selecting(localUp, local, cloud)

			err := tr.Request(ctx, api.Transfer, nil, nil)
			assert.Equal(t, domainErr, err)
			assert.EqualValues(t, 0, cloud.calls.Load())
		}
	})

	t.Run("cloud failure after fallback is returned", func(t *testing.T) {
		local := &fakeTransport{err: errors.Network(io.EOF)}
		cloud := &fakeTransport{err: errors.Network(io.EOF)}
		tr, _ := selecting(localUp, local, cloud)

		err := tr.Request(ctx, api.Transfer, nil, nil)
		assert.True(t, errors.Is(err, errors.ErrNetwork))
		assert.EqualValues(t, 1, cloud.calls.Load())
	})
}
