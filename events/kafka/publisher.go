// Package kafka streams recorded ledger entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/fintalk"
	"github.com/segmentio/kafka-go"
	"goa.design/clue/log"
)

// DefaultTopic receives ledger events when no topic is configured.
const DefaultTopic = "ledger_entries"

// Writer is the subset of *kafka.Writer used by the Publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements fintalk.Publisher on a Kafka writer. Messages are
// keyed by entry id so that replays of an entry land on the same partition.
type Publisher struct {
	writer Writer
}

// New returns a Publisher with an asynchronous writer on brokers.
func New(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no broker")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error(ctx, err, log.KV{K: "topic", V: topic}, log.KV{K: "dropped", V: len(msgs)})
			}
		},
	}
	return NewWithWriter(w), nil
}

// NewWithWriter returns a Publisher on w.
func NewWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes e as JSON. With an asynchronous writer it only fails when
// the writer is closed.
func (p *Publisher) Publish(ctx context.Context, e fintalk.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Entry.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Entry.Kind.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Entry.ID, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error { return p.writer.Close() }

var _ fintalk.Publisher = (*Publisher)(nil)
