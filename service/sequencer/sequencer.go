package sequencer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orderflow/domain/book"
	"orderflow/domain/match"
	"orderflow/infra/sequence"
)

/*
Service is the write entry point of the pipeline: it validates a raw
submission, assigns the (secnum, orderId) pair, drives the matching
engine synchronously, and hands the accepted order plus any executions
to the publisher. The caller's response never waits on the downstream
round trips.
*/

// ErrDraining rejects new submissions while the process shuts down.
var ErrDraining = errors.New("sequencer is draining")

// ValidationError names the submission field that failed validation.
// Rejected input causes no allocation and no downstream traffic.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s %s", e.Field, e.Reason)
}

// Publisher is the fire-and-forget downstream half; see infra/publish.
type Publisher interface {
	EnqueueOrder(o book.Order) bool
	EnqueueExecutions(orderID uint64, batch book.ExecutionBatch) bool
}

// Service wires allocator, engine and publisher. No other state is held
// beyond the monotonic counters and the draining flag.
type Service struct {
	alloc    *sequence.Allocator
	engine   match.Engine
	pub      Publisher
	log      *zap.Logger
	symbols  map[string]struct{}
	draining atomic.Bool
}

// New builds a sequencer for a fixed tradable universe.
func New(
	alloc *sequence.Allocator,
	engine match.Engine,
	pub Publisher,
	log *zap.Logger,
	symbols []string,
) *Service {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return &Service{
		alloc:   alloc,
		engine:  engine,
		pub:     pub,
		log:     log,
		symbols: set,
	}
}

// RawOrder is the submission payload before validation. Pointer fields
// distinguish "missing" from zero values; mistyped JSON fails to bind
// upstream and never reaches Submit.
type RawOrder struct {
	Symbol   *string  `json:"symbol"`
	Side     *string  `json:"side"`
	Price    *float64 `json:"price"`
	Quantity *float64 `json:"quantity"`
}

// Submit accepts one order: validate, allocate, match, dispatch.
// On success the order publish has been enqueued (not confirmed) and the
// fully-formed order is returned to acknowledge the caller.
func (s *Service) Submit(raw RawOrder) (book.Order, error) {
	if s.draining.Load() {
		return book.Order{}, ErrDraining
	}

	o, err := s.validate(raw)
	if err != nil {
		return book.Order{}, err
	}

	o.Secnum, o.OrderID = s.alloc.Next()

	batch, err := s.engine.Execute(o)
	if err != nil {
		// The secnum is already burned; matching faults are internal
		// errors, not validation failures.
		return book.Order{}, fmt.Errorf("matching failed for order %d: %w", o.OrderID, err)
	}

	s.pub.EnqueueOrder(o)
	if !batch.Empty() {
		s.pub.EnqueueExecutions(o.OrderID, batch)
	}

	s.log.Info("order accepted",
		zap.Uint64("orderId", o.OrderID),
		zap.Uint64("secnum", o.Secnum),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.Int("askExecutions", len(batch.AskExecutions)),
		zap.Int("bidExecutions", len(batch.BidExecutions)),
	)
	return o, nil
}

func (s *Service) validate(raw RawOrder) (book.Order, error) {
	if raw.Symbol == nil {
		return book.Order{}, &ValidationError{Field: "symbol", Reason: "missing or not a string"}
	}
	if raw.Side == nil {
		return book.Order{}, &ValidationError{Field: "side", Reason: "missing or not a string"}
	}
	if raw.Price == nil {
		return book.Order{}, &ValidationError{Field: "price", Reason: "missing or not a number"}
	}
	if raw.Quantity == nil {
		return book.Order{}, &ValidationError{Field: "quantity", Reason: "missing or not a number"}
	}

	side, err := book.ParseSide(*raw.Side)
	if err != nil {
		return book.Order{}, &ValidationError{Field: "side", Reason: fmt.Sprintf("unrecognized value %q", *raw.Side)}
	}
	if _, ok := s.symbols[*raw.Symbol]; !ok {
		return book.Order{}, &ValidationError{Field: "symbol", Reason: fmt.Sprintf("not tradable: %q", *raw.Symbol)}
	}

	return book.Order{
		Symbol:   *raw.Symbol,
		Side:     side,
		Price:    decimal.NewFromFloat(*raw.Price),
		Quantity: decimal.NewFromFloat(*raw.Quantity),
	}, nil
}

// BeginDrain flips the shutdown flag: subsequent submissions are
// rejected while in-flight publishes are allowed to finish.
func (s *Service) BeginDrain() {
	s.draining.Store(true)
}

// Draining reports the shutdown flag; the readiness probe reflects it.
func (s *Service) Draining() bool {
	return s.draining.Load()
}
