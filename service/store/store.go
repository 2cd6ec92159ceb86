package store

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"orderflow/domain/book"
)

// Notifier receives the full snapshot after every successful mutation.
// The WebSocket hub and the Kafka feed both sit behind this.
type Notifier interface {
	Notify(snap book.Snapshot)
}

// Store owns the authoritative in-memory book per symbol. One mutex
// serializes all mutation, the Go rendition of the original's single
// logical thread; orders and executions arrive as independent publishes
// and are applied in whatever order the network delivers them.
type Store struct {
	mu        sync.Mutex
	books     map[string]*book.OrderBook
	notifiers []Notifier
	log       *zap.Logger
	draining  atomic.Bool
}

// New creates an empty store; books are created lazily per symbol.
func New(log *zap.Logger, notifiers ...Notifier) *Store {
	return &Store{
		books:     make(map[string]*book.OrderBook),
		notifiers: notifiers,
		log:       log,
	}
}

// Subscribe adds a notifier. Called during wiring, before traffic.
func (s *Store) Subscribe(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// IngestOrder adds an accepted order to its symbol's book and broadcasts
// the new snapshot. An unrecognized side rejects this one event only.
func (s *Store) IngestOrder(o book.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[o.Symbol]
	if !ok {
		b = book.NewOrderBook()
	}
	if err := b.Insert(o); err != nil {
		return err
	}
	s.books[o.Symbol] = b

	s.log.Debug("order ingested",
		zap.Uint64("orderId", o.OrderID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
	)
	s.notifyLocked()
	return nil
}

// ApplyExecutions removes each executed orderId from the side list the
// batch implies. Removal is idempotent: ids that are unknown, already
// removed, or delivered twice are skipped without error. An execution can
// legitimately arrive before its order (the two publishes race); the late
// order then rests unmatched until the books reconcile upstream.
func (s *Store) ApplyExecutions(batch book.ExecutionBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range batch.AskExecutions {
		if b, ok := s.books[ex.Symbol]; ok {
			if !b.RemoveAsk(ex.OrderID) {
				s.log.Debug("ask execution for absent order", zap.Uint64("orderId", ex.OrderID))
			}
		}
	}
	for _, ex := range batch.BidExecutions {
		if b, ok := s.books[ex.Symbol]; ok {
			if !b.RemoveBid(ex.OrderID) {
				s.log.Debug("bid execution for absent order", zap.Uint64("orderId", ex.OrderID))
			}
		}
	}

	s.notifyLocked()
	return nil
}

// Snapshot returns a deep copy of every symbol's book.
func (s *Store) Snapshot() book.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() book.Snapshot {
	snap := make(book.Snapshot, len(s.books))
	for sym, b := range s.books {
		snap[sym] = b.Snapshot()
	}
	return snap
}

// Notifying under the lock keeps broadcasts in mutation order.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, n := range s.notifiers {
		n.Notify(snap)
	}
}

// BeginDrain flips the shutdown flag for the readiness probe.
func (s *Store) BeginDrain() {
	s.draining.Store(true)
}

// Draining reports the shutdown flag.
func (s *Store) Draining() bool {
	return s.draining.Load()
}
