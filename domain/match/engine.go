package match

import (
	"errors"

	"orderflow/domain/book"
)

// ErrUnknownSymbol is returned for orders outside the tradable universe
// the engine was constructed with.
var ErrUnknownSymbol = errors.New("symbol not in tradable universe")

// Engine computes the executions caused by a single accepted order.
// Execute is synchronous: the caller must have the result in hand before
// deciding what to publish downstream. Implementations own whatever
// resting state they need; the pipeline depends only on this contract.
type Engine interface {
	Execute(o book.Order) (book.ExecutionBatch, error)
}
