// Package book holds the market's core entities: orders, executions,
// and the per-symbol order book with its two price-sorted sides. Asks
// sort ascending, bids descending; inserts re-sort the whole side.
//
// The book is pure data with no locking of its own. The store service
// serializes every mutation, and snapshots are deep copies, so readers
// never observe a half-applied change.
package book
