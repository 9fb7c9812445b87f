package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaEmitter implements Emitter using segmentio/kafka-go.
type KafkaEmitter struct {
	writer *kafka.Writer
}

// NewKafkaEmitter creates an emitter writing events to topic. Returns nil
// (a disabled emitter) when brokers or topic are unconfigured. Call Close
// when shutting down.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit serializes the event as JSON and writes it, keyed by employee id so
// one principal's events stay ordered within a partition.
func (e *KafkaEmitter) Emit(ctx context.Context, event Event) error {
	if e == nil || e.writer == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EmployeeID),
		Value: payload,
	})
}

// Close closes the underlying writer. Safe on a nil emitter.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}
