package book

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side of an order: "ask" sells, "bid" buys.
type Side string

const (
	Ask Side = "ask"
	Bid Side = "bid"
)

// ErrInvalidSide is returned when an event carries a side that is
// neither "ask" nor "bid". The event is rejected, nothing is mutated.
var ErrInvalidSide = errors.New("invalid order side")

// ParseSide validates a raw side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Ask, Bid:
		return Side(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Order is a pure domain entity. OrderID and Secnum are assigned once at
// acceptance and never change; the order itself is immutable after
// creation except for its removal from a book.
type Order struct {
	OrderID  uint64          `json:"orderId"`
	Secnum   uint64          `json:"secnum"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Execution reports that the order identified by OrderID became fully
// filled and must leave its book.
type Execution struct {
	OrderID  uint64          `json:"orderId"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ExecutionBatch groups the executions produced by one submission,
// partitioned by the side of the order each execution removes.
type ExecutionBatch struct {
	AskExecutions []Execution `json:"askExecutions"`
	BidExecutions []Execution `json:"bidExecutions"`
}

// Empty reports whether the batch carries no executions at all.
func (b ExecutionBatch) Empty() bool {
	return len(b.AskExecutions) == 0 && len(b.BidExecutions) == 0
}
