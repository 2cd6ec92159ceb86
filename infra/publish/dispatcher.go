package publish

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"orderflow/domain/book"
	"orderflow/infra/journal"
)

// Dispatcher runs the fire-and-forget half of the sequencer: publishes
// are enqueued onto a bounded queue and sent by background workers, so
// the submitter's response never waits on a downstream round trip.
// When the queue is full the publish is dropped, not blocked on; every
// outcome lands in the journal and in the counters.
type Dispatcher struct {
	target  Target
	log     *zap.Logger
	journal *journal.Journal

	tasks chan task
	wg    sync.WaitGroup

	maxRetries int
	retryDelay time.Duration

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

type task struct {
	orderID uint64
	kind    journal.Kind
	order   book.Order
	batch   book.ExecutionBatch
}

// Options bound the dispatcher's queue and retry policy.
type Options struct {
	QueueSize  int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NewDispatcher starts the worker pool. The journal may be nil (tests).
func NewDispatcher(target Target, jnl *journal.Journal, log *zap.Logger, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}

	d := &Dispatcher{
		target:     target,
		log:        log,
		journal:    jnl,
		tasks:      make(chan task, opts.QueueSize),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// EnqueueOrder queues the accepted order for publication. Returns false
// when the queue is full and the publish was dropped.
func (d *Dispatcher) EnqueueOrder(o book.Order) bool {
	return d.enqueue(task{orderID: o.OrderID, kind: journal.KindOrder, order: o})
}

// EnqueueExecutions queues an execution batch keyed by the triggering
// order's id.
func (d *Dispatcher) EnqueueExecutions(orderID uint64, batch book.ExecutionBatch) bool {
	return d.enqueue(task{orderID: orderID, kind: journal.KindExecutions, batch: batch})
}

func (d *Dispatcher) enqueue(t task) bool {
	d.record(t, journal.StateNew, 0)
	select {
	case d.tasks <- t:
		return true
	default:
		d.dropped.Add(1)
		d.record(t, journal.StateDropped, 0)
		d.log.Warn("publish queue full, dropping",
			zap.Uint64("orderId", t.orderID),
			zap.String("kind", t.kind.String()),
		)
		return false
	}
}

// Close stops intake and drains queued publishes before returning.
func (d *Dispatcher) Close() {
	close(d.tasks)
	d.wg.Wait()
}

// Stats reports the lifetime publish counters.
func (d *Dispatcher) Stats() (published, failed, dropped uint64) {
	return d.published.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.send(t)
	}
}

func (d *Dispatcher) send(t task) {
	var err error
	for attempt := 0; ; attempt++ {
		err = d.attempt(t)
		if err == nil {
			d.published.Add(1)
			d.record(t, journal.StateSent, uint32(attempt))
			return
		}
		if attempt >= d.maxRetries {
			break
		}
		time.Sleep(d.retryDelay)
	}

	d.failed.Add(1)
	d.record(t, journal.StateFailed, uint32(d.maxRetries))
	d.log.Error("publish failed, giving up",
		zap.Uint64("orderId", t.orderID),
		zap.String("kind", t.kind.String()),
		zap.Int("attempts", d.maxRetries+1),
		zap.Error(err),
	)
}

func (d *Dispatcher) attempt(t task) error {
	ctx := context.Background()
	if t.kind == journal.KindOrder {
		return d.target.PublishOrder(ctx, t.order)
	}
	return d.target.PublishExecutions(ctx, t.batch)
}

func (d *Dispatcher) record(t task, state journal.State, retries uint32) {
	if d.journal == nil {
		return
	}
	var err error
	if state == journal.StateNew {
		err = d.journal.PutNew(t.orderID, t.kind)
	} else {
		err = d.journal.Update(t.orderID, t.kind, state, retries)
	}
	if err != nil {
		d.log.Warn("journal write failed",
			zap.Uint64("orderId", t.orderID),
			zap.Error(err),
		)
	}
}
