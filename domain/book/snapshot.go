package book

// BookSnapshot is a point-in-time copy of one symbol's book.
type BookSnapshot struct {
	Asks []Order `json:"asks"`
	Bids []Order `json:"bids"`
}

// Snapshot maps every known symbol to a copy of its book. Callers own the
// returned slices; later mutations of the live book do not show through.
type Snapshot map[string]BookSnapshot

// Snapshot copies the book's current state.
func (b *OrderBook) Snapshot() BookSnapshot {
	asks := make([]Order, len(b.Asks))
	copy(asks, b.Asks)
	bids := make([]Order, len(b.Bids))
	copy(bids, b.Bids)
	return BookSnapshot{Asks: asks, Bids: bids}
}

// Empty reports whether no symbol in the snapshot holds any order.
func (s Snapshot) Empty() bool {
	for _, bs := range s {
		if len(bs.Asks) > 0 || len(bs.Bids) > 0 {
			return false
		}
	}
	return true
}
