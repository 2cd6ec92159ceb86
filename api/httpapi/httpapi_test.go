package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderflow/api/ws"
	"orderflow/domain/book"
	"orderflow/domain/match"
	"orderflow/infra/sequence"
	"orderflow/service/sequencer"
	"orderflow/service/store"
)

// -------------------- Sequencer API --------------------

type recordingPublisher struct {
	orders  []book.Order
	batches []book.ExecutionBatch
}

func (p *recordingPublisher) EnqueueOrder(o book.Order) bool {
	p.orders = append(p.orders, o)
	return true
}

func (p *recordingPublisher) EnqueueExecutions(_ uint64, b book.ExecutionBatch) bool {
	p.batches = append(p.batches, b)
	return true
}

func newSequencerServer(t *testing.T) (*echo.Echo, *sequencer.Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := sequencer.New(
		sequence.New(),
		match.NewPriceTime([]string{"AAPL"}),
		pub,
		zap.NewNop(),
		[]string{"AAPL"},
	)
	e := echo.New()
	NewSequencerAPI(svc, zap.NewNop()).Register(e)
	return e, svc, pub
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAccepted(t *testing.T) {
	e, _, pub := newSequencerServer(t)

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":100.0,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status  string `json:"status"`
		OrderID uint64 `json:"orderId"`
		Secnum  uint64 `json:"secnum"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, uint64(1), resp.OrderID)
	assert.Equal(t, uint64(1), resp.Secnum)

	require.Len(t, pub.orders, 1)
	assert.Empty(t, pub.batches)
}

func TestSubmitPriceAsStringIsRejected(t *testing.T) {
	e, _, pub := newSequencerServer(t)

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":"100.0","quantity":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No allocation, no downstream traffic.
	assert.Empty(t, pub.orders)
	assert.Empty(t, pub.batches)

	rec = postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":100.0,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Secnum uint64 `json:"secnum"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Secnum, "rejected submission must not burn a secnum")
}

func TestSubmitMissingFieldIsRejected(t *testing.T) {
	e, _, _ := newSequencerServer(t)

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":100.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")
}

func TestSubmitUnknownSideIsRejected(t *testing.T) {
	e, _, _ := newSequencerServer(t)

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"short","price":100.0,"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "side")
}

func TestCrossingOrdersPublishExecutions(t *testing.T) {
	e, _, pub := newSequencerServer(t)

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"ask","price":99.0,"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":99.0,"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, pub.orders, 2)
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0].AskExecutions, 1)
	assert.Len(t, pub.batches[0].BidExecutions, 1)
}

func TestSequencerProbesWhileDraining(t *testing.T) {
	e, svc, _ := newSequencerServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	svc.BeginDrain()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}

	rec := postJSON(e, "/orders", `{"symbol":"AAPL","side":"bid","price":100.0,"quantity":10}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// -------------------- Store API --------------------

type countingNotifier struct {
	count int
}

func (n *countingNotifier) Notify(book.Snapshot) { n.count++ }

func newStoreServer(t *testing.T) (*echo.Echo, *store.Store, *countingNotifier) {
	t.Helper()
	n := &countingNotifier{}
	st := store.New(zap.NewNop(), n)
	hub := ws.NewHub(func() book.Snapshot { return st.Snapshot() }, zap.NewNop())
	e := echo.New()
	NewStoreAPI(st, hub, zap.NewNop()).Register(e)
	return e, st, n
}

func TestPublishOrder(t *testing.T) {
	e, st, n := newStoreServer(t)

	rec := postJSON(e, "/events", `{"order":{"orderId":1,"secnum":1,"symbol":"AAPL","side":"bid","price":100.0,"quantity":10}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := st.Snapshot()
	require.Len(t, snap["AAPL"].Bids, 1)
	assert.Equal(t, 1, n.count)
}

func TestPublishExecutionBatch(t *testing.T) {
	e, st, _ := newStoreServer(t)

	rec := postJSON(e, "/events", `{"order":{"orderId":1,"secnum":1,"symbol":"AAPL","side":"ask","price":99.0,"quantity":5}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(e, "/events", `{"askExecutions":[{"orderId":1,"symbol":"AAPL","price":99.0,"quantity":5}],"bidExecutions":[]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Empty(t, st.Snapshot()["AAPL"].Asks)
}

func TestPublishInvalidSide(t *testing.T) {
	e, st, n := newStoreServer(t)

	rec := postJSON(e, "/events", `{"order":{"orderId":1,"symbol":"AAPL","side":"upward","price":100.0,"quantity":10}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, st.Snapshot().Empty())
	assert.Zero(t, n.count)
}

func TestPublishUnrecognizedPayload(t *testing.T) {
	e, _, n := newStoreServer(t)

	rec := postJSON(e, "/events", `{"something":"else"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, n.count)
}

func TestStoreProbesWhileDraining(t *testing.T) {
	e, st, _ := newStoreServer(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	st.BeginDrain()

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
