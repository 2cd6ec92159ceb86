package sequence

import "sync"

// Allocator hands out the two monotonic identifiers every accepted order
// carries: secnum (submission order) and orderId (independent counter).
// Both start at 1, never repeat and never leave gaps. A single mutex
// makes each allocation atomic with respect to concurrent submissions;
// there is no coordination across instances.
type Allocator struct {
	mu      sync.Mutex
	secnum  uint64
	orderID uint64
}

// New creates an allocator; the first Next returns (1, 1).
func New() *Allocator {
	return &Allocator{}
}

// Next allocates the next (secnum, orderId) pair.
func (a *Allocator) Next() (secnum, orderID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.secnum++
	a.orderID++
	return a.secnum, a.orderID
}

// Current returns the last issued pair without allocating.
func (a *Allocator) Current() (secnum, orderID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.secnum, a.orderID
}
