package match

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"orderflow/domain/book"
)

// PriceTime is the reference Engine: per-symbol price-time priority with
// partial fills. An incoming order trades against the opposite side while
// prices cross; any order that becomes fully filled, incoming or resting,
// yields one execution on its own side. Partially filled resting orders
// keep their place with the remaining quantity.
type PriceTime struct {
	mu    sync.Mutex
	books map[string]*ladder
}

type ladder struct {
	asks []*resting // ascending by price, time within price
	bids []*resting // descending by price, time within price
}

type resting struct {
	orderID   uint64
	price     decimal.Decimal
	quantity  decimal.Decimal
	remaining decimal.Decimal
}

// NewPriceTime builds an engine for a fixed set of tradable symbols.
func NewPriceTime(symbols []string) *PriceTime {
	books := make(map[string]*ladder, len(symbols))
	for _, s := range symbols {
		books[s] = &ladder{}
	}
	return &PriceTime{books: books}
}

// Execute matches one order and returns the resulting execution batch.
func (e *PriceTime) Execute(o book.Order) (book.ExecutionBatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.books[o.Symbol]
	if !ok {
		return book.ExecutionBatch{}, ErrUnknownSymbol
	}

	var batch book.ExecutionBatch
	remaining := o.Quantity

	switch o.Side {
	case book.Bid:
		for len(l.asks) > 0 && remaining.IsPositive() {
			best := l.asks[0]
			if best.price.GreaterThan(o.Price) {
				break
			}
			trade := decimal.Min(remaining, best.remaining)
			remaining = remaining.Sub(trade)
			best.remaining = best.remaining.Sub(trade)
			if best.remaining.IsZero() {
				batch.AskExecutions = append(batch.AskExecutions, execFor(best, o.Symbol))
				l.asks = l.asks[1:]
			}
		}
		if remaining.IsZero() {
			batch.BidExecutions = append(batch.BidExecutions, book.Execution{
				OrderID:  o.OrderID,
				Symbol:   o.Symbol,
				Price:    o.Price,
				Quantity: o.Quantity,
			})
		} else {
			l.rest(book.Bid, &resting{
				orderID:   o.OrderID,
				price:     o.Price,
				quantity:  o.Quantity,
				remaining: remaining,
			})
		}

	case book.Ask:
		for len(l.bids) > 0 && remaining.IsPositive() {
			best := l.bids[0]
			if best.price.LessThan(o.Price) {
				break
			}
			trade := decimal.Min(remaining, best.remaining)
			remaining = remaining.Sub(trade)
			best.remaining = best.remaining.Sub(trade)
			if best.remaining.IsZero() {
				batch.BidExecutions = append(batch.BidExecutions, execFor(best, o.Symbol))
				l.bids = l.bids[1:]
			}
		}
		if remaining.IsZero() {
			batch.AskExecutions = append(batch.AskExecutions, book.Execution{
				OrderID:  o.OrderID,
				Symbol:   o.Symbol,
				Price:    o.Price,
				Quantity: o.Quantity,
			})
		} else {
			l.rest(book.Ask, &resting{
				orderID:   o.OrderID,
				price:     o.Price,
				quantity:  o.Quantity,
				remaining: remaining,
			})
		}

	default:
		return book.ExecutionBatch{}, book.ErrInvalidSide
	}

	return batch, nil
}

func (l *ladder) rest(side book.Side, r *resting) {
	if side == book.Ask {
		l.asks = append(l.asks, r)
		sort.SliceStable(l.asks, func(i, j int) bool {
			return l.asks[i].price.LessThan(l.asks[j].price)
		})
		return
	}
	l.bids = append(l.bids, r)
	sort.SliceStable(l.bids, func(i, j int) bool {
		return l.bids[i].price.GreaterThan(l.bids[j].price)
	})
}

func execFor(r *resting, symbol string) book.Execution {
	return book.Execution{
		OrderID:  r.orderID,
		Symbol:   symbol,
		Price:    r.price,
		Quantity: r.quantity,
	}
}
