package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"orderflow/domain/book"
)

// Update is the broadcast message. Every mutation fans out the full
// snapshot; there is no delta encoding and no per-subscriber filtering.
type Update struct {
	Type      string        `json:"type"`
	OrderBook book.Snapshot `json:"orderBook"`
	Timestamp string        `json:"timestamp,omitempty"`
}

// Hub tracks subscriber connections and fans each snapshot out to all of
// them. Subscribers that fail a write are dropped; nothing is buffered or
// replayed for them.
type Hub struct {
	log      *zap.Logger
	snapshot func() book.Snapshot
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewHub wires the hub to a snapshot source used for catch-up on connect.
func NewHub(snapshot func() book.Snapshot, log *zap.Logger) *Hub {
	return &Hub{
		log:      log,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[string]*subscriber),
	}
}

// ServeHTTP upgrades the connection and registers the subscriber. A new
// subscriber immediately receives the current snapshot if any book holds
// orders.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	h.log.Info("subscriber connected", zap.String("subscriber", sub.id))

	if snap := h.snapshot(); !snap.Empty() {
		h.send(sub, Update{
			Type:      "orderBookUpdate",
			OrderBook: snap,
			Timestamp: time.Now().Format(time.RFC3339Nano),
		})
	}

	// Reads are only consumed to notice the peer going away.
	go h.readLoop(sub)
}

// Notify broadcasts the snapshot to every connected subscriber.
// Implements store.Notifier.
func (h *Hub) Notify(snap book.Snapshot) {
	update := Update{
		Type:      "orderBookUpdate",
		OrderBook: snap,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.send(s, update)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.conn.Close()
	}
}

func (h *Hub) send(s *subscriber, update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.log.Error("marshal update failed", zap.Error(err))
		return
	}

	s.writeMu.Lock()
	err = s.conn.WriteMessage(websocket.TextMessage, payload)
	s.writeMu.Unlock()

	if err != nil {
		h.drop(s, err)
	}
}

func (h *Hub) readLoop(s *subscriber) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.drop(s, err)
			return
		}
	}
}

func (h *Hub) drop(s *subscriber, err error) {
	h.mu.Lock()
	_, present := h.subs[s.id]
	delete(h.subs, s.id)
	h.mu.Unlock()

	if present {
		h.log.Info("subscriber dropped",
			zap.String("subscriber", s.id),
			zap.Error(err),
		)
	}
	s.conn.Close()
}
