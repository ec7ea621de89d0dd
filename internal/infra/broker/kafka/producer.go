package kafka

import (
	"context"
	"strings"

	"github.com/IBM/sarama"
)

// Producer publishes chat events for downstream consumers (notification
// fan-out, search indexing). Event types double as topic names, optionally
// namespaced by a prefix.
type Producer struct {
	sync        sarama.SyncProducer
	topicPrefix string
}

func NewProducer(brokers []string, topicPrefix string, cfg *sarama.Config) (*Producer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync, topicPrefix: strings.TrimSuffix(topicPrefix, ".")}, nil
}

// Publish sends one event keyed for per-conversation ordering.
func (p *Producer) Publish(ctx context.Context, eventType string, key string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic(eventType),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	}
	_, _, err := p.sync.SendMessage(msg)
	return err
}

func (p *Producer) topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
