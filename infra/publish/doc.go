// Package publish moves accepted orders and execution batches from the
// sequencer to the market state store without making the submitter wait.
// A bounded queue feeds a small worker pool; a full queue drops, a
// failed send retries a configured number of times and then gives up.
//
// Every outcome is observable: lifetime counters on the dispatcher and
// per-publish records in the journal.
package publish
