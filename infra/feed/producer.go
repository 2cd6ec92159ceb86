package feed

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"orderflow/domain/book"
)

// Producer mirrors every order-book mutation onto a Kafka topic so
// consumers other than the WebSocket subscribers can follow the market.
// Best-effort: a failed publish is logged and the mutation moves on.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

type feedMessage struct {
	Type      string        `json:"type"`
	OrderBook book.Snapshot `json:"orderBook"`
	Timestamp string        `json:"timestamp"`
}

// NewProducer connects a synchronous producer to the given brokers.
func NewProducer(brokers []string, topic string, log *zap.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    topic,
		log:      log,
	}, nil
}

// Notify publishes the snapshot to the feed topic.
// Implements store.Notifier.
func (p *Producer) Notify(snap book.Snapshot) {
	payload, err := json.Marshal(feedMessage{
		Type:      "orderBookUpdate",
		OrderBook: snap,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		p.log.Error("marshal feed message failed", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.log.Warn("feed publish failed", zap.Error(err))
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
