package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderflow/domain/book"
)

type stubTarget struct {
	mu     sync.Mutex
	orders []book.Order
	execs  []book.ExecutionBatch
	fail   atomic.Bool
	calls  atomic.Int32
	block  chan struct{} // when set, publishes wait on it
}

func (s *stubTarget) PublishOrder(_ context.Context, o book.Order) error {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.fail.Load() {
		return errors.New("boom")
	}
	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
	return nil
}

func (s *stubTarget) PublishExecutions(_ context.Context, b book.ExecutionBatch) error {
	s.calls.Add(1)
	if s.fail.Load() {
		return errors.New("boom")
	}
	s.mu.Lock()
	s.execs = append(s.execs, b)
	s.mu.Unlock()
	return nil
}

func testOrder(id uint64) book.Order {
	return book.Order{
		OrderID:  id,
		Secnum:   id,
		Symbol:   "AAPL",
		Side:     book.Bid,
		Price:    decimal.NewFromInt(100),
		Quantity: decimal.NewFromInt(10),
	}
}

func TestDispatcherDeliversOrdersAndExecutions(t *testing.T) {
	target := &stubTarget{}
	d := NewDispatcher(target, nil, zap.NewNop(), Options{})

	assert.True(t, d.EnqueueOrder(testOrder(1)))
	assert.True(t, d.EnqueueExecutions(1, book.ExecutionBatch{
		BidExecutions: []book.Execution{{OrderID: 1, Symbol: "AAPL"}},
	}))
	d.Close()

	published, failed, dropped := d.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Zero(t, failed)
	assert.Zero(t, dropped)

	require.Len(t, target.orders, 1)
	require.Len(t, target.execs, 1)
	assert.Equal(t, uint64(1), target.orders[0].OrderID)
}

func TestDispatcherRetriesThenGivesUp(t *testing.T) {
	target := &stubTarget{}
	target.fail.Store(true)
	d := NewDispatcher(target, nil, zap.NewNop(), Options{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	d.EnqueueOrder(testOrder(1))
	d.Close()

	published, failed, _ := d.Stats()
	assert.Zero(t, published)
	assert.Equal(t, uint64(1), failed)
	assert.Equal(t, int32(3), target.calls.Load(), "1 attempt + 2 retries")
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	target := &stubTarget{block: make(chan struct{})}
	d := NewDispatcher(target, nil, zap.NewNop(), Options{
		QueueSize: 1,
		Workers:   1,
	})

	// First publish parks the single worker inside the stub; the second
	// occupies the one buffered slot; the third must be dropped.
	require.True(t, d.EnqueueOrder(testOrder(1)))
	waitForCalls(t, &target.calls, 1)
	require.True(t, d.EnqueueOrder(testOrder(2)))
	assert.False(t, d.EnqueueOrder(testOrder(3)))

	close(target.block)
	d.Close()

	published, _, dropped := d.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(1), dropped)
}

func waitForCalls(t *testing.T, calls *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for calls.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("worker never picked up a task")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClientPublishOrder(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.PublishOrder(context.Background(), testOrder(9))
	require.NoError(t, err)
	assert.Contains(t, string(gotBody), `"order"`)
	assert.Contains(t, string(gotBody), `"orderId":9`)
}

func TestClientReportsDownstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.PublishOrder(context.Background(), testOrder(1))
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)

	srv.Close()
	err = c.PublishExecutions(context.Background(), book.ExecutionBatch{})
	assert.ErrorIs(t, err, ErrDownstreamUnavailable)
}
