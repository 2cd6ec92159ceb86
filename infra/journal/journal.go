package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

// State tracks one downstream publish through its lifecycle. Publishes
// are fire-and-forget toward the submitter; the journal is what makes
// their outcome observable.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateFailed
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateFailed:
		return "FAILED"
	case StateDropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// Kind names what a publish carries.
type Kind uint8

const (
	KindOrder Kind = iota
	KindExecutions
)

func (k Kind) String() string {
	if k == KindOrder {
		return "order"
	}
	return "executions"
}

// -------------------- Record --------------------

type Record struct {
	State       State
	Retries     uint32
	LastAttempt int64
}

// binary encoding: [state:1][retries:4][lastAttempt:8]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8)
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) != 13 {
		return Record{}, errors.New("invalid journal record length")
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
	}, nil
}

// -------------------- Journal --------------------

// Journal is the pebble-backed publish log. One record per dispatched
// publish, keyed by (orderId, kind).
type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// -------------------- API --------------------

// PutNew records a freshly enqueued publish.
func (j *Journal) PutNew(orderID uint64, kind Kind) error {
	rec := Record{State: StateNew}
	return j.db.Set(keyFor(orderID, kind), encodeRecord(rec), pebble.Sync)
}

// Update moves a publish to a new state after a send attempt.
func (j *Journal) Update(orderID uint64, kind Kind, state State, retries uint32) error {
	rec := Record{
		State:       state,
		Retries:     retries,
		LastAttempt: time.Now().UnixNano(),
	}
	return j.db.Set(keyFor(orderID, kind), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for a publish.
func (j *Journal) Get(orderID uint64, kind Kind) (Record, error) {
	val, closer, err := j.db.Get(keyFor(orderID, kind))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// -------------------- Scan --------------------

// ScanByState iterates all records currently in the given state, in key
// order. Diagnostics use this to enumerate failed or dropped publishes.
func (j *Journal) ScanByState(
	state State,
	fn func(orderID uint64, kind Kind, rec Record) error,
) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("pub/"),
		UpperBound: []byte("pub/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}

		id, kind, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(id, kind, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

func keyFor(orderID uint64, kind Kind) []byte {
	return []byte(fmt.Sprintf("pub/%020d/%s", orderID, kind))
}

func parseKey(b []byte) (uint64, Kind, error) {
	rest := bytes.TrimPrefix(b, []byte("pub/"))
	parts := bytes.SplitN(rest, []byte("/"), 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed journal key: %q", b)
	}
	var id uint64
	if _, err := fmt.Sscanf(string(parts[0]), "%d", &id); err != nil {
		return 0, 0, err
	}
	kind := KindOrder
	if string(parts[1]) == "executions" {
		kind = KindExecutions
	}
	return id, kind, nil
}
