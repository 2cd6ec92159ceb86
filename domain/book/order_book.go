package book

import "sort"

// OrderBook holds the outstanding orders of one symbol: asks sorted
// ascending by price (best ask first), bids sorted descending (best bid
// first). It is not safe for concurrent use; the owning store serializes
// access.
type OrderBook struct {
	Asks []Order
	Bids []Order
}

// NewOrderBook returns an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		Asks: make([]Order, 0),
		Bids: make([]Order, 0),
	}
}

// Insert appends the order to the sequence named by its side and
// re-establishes that side's price order. The whole sequence is re-sorted
// on every insert; fine at this scale, a known limit beyond it.
func (b *OrderBook) Insert(o Order) error {
	switch o.Side {
	case Ask:
		b.Asks = append(b.Asks, o)
		sort.SliceStable(b.Asks, func(i, j int) bool {
			return b.Asks[i].Price.LessThan(b.Asks[j].Price)
		})
	case Bid:
		b.Bids = append(b.Bids, o)
		sort.SliceStable(b.Bids, func(i, j int) bool {
			return b.Bids[i].Price.GreaterThan(b.Bids[j].Price)
		})
	default:
		return ErrInvalidSide
	}
	return nil
}

// RemoveAsk removes the ask with the given orderId. Removing an id that
// is not present is a no-op; the bool reports whether anything changed.
func (b *OrderBook) RemoveAsk(orderID uint64) bool {
	asks, removed := removeByID(b.Asks, orderID)
	b.Asks = asks
	return removed
}

// RemoveBid removes the bid with the given orderId, no-op if absent.
func (b *OrderBook) RemoveBid(orderID uint64) bool {
	bids, removed := removeByID(b.Bids, orderID)
	b.Bids = bids
	return removed
}

// Empty reports whether both sides hold no orders.
func (b *OrderBook) Empty() bool {
	return len(b.Asks) == 0 && len(b.Bids) == 0
}

func removeByID(orders []Order, orderID uint64) ([]Order, bool) {
	for i, o := range orders {
		if o.OrderID == orderID {
			return append(orders[:i], orders[i+1:]...), true
		}
	}
	return orders, false
}
