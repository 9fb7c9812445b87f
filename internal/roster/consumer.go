// Package roster answers staffing lookups arriving over Kafka: a request
// names a zone and shift, the response lists the ids of active employees
// working it. The notification service on the other side of the topics
// correlates request and response by notification id.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Request is the message consumed from the request topic.
type Request struct {
	NotificationID string `json:"notification_id"`
	ZoneID         string `json:"zone_id"`
	Shift          string `json:"shift"`
}

// Response is the message produced to the response topic.
type Response struct {
	NotificationID string   `json:"notification_id"`
	UserIDs        []string `json:"user_ids"`
}

// Repo is the minimal employee lookup the consumer needs.
type Repo interface {
	ListIDsByScopeAndShift(ctx context.Context, scope, shift string) ([]string, error)
}

// messageWriter abstracts *kafka.Writer for tests.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer reads requests, resolves them against the employee store, and
// publishes responses. Malformed requests are logged and skipped; store
// failures are returned so the message is retried.
type Consumer struct {
	repo   Repo
	writer messageWriter
	log    *zap.Logger
}

func NewConsumer(repo Repo, writer messageWriter, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{repo: repo, writer: writer, log: log}
}

// NewReader returns a kafka reader for the request topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}

// NewWriter returns a kafka writer for the response topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Handle processes one request payload end to end.
func (c *Consumer) Handle(ctx context.Context, payload []byte) error {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		c.log.Warn("roster request malformed", zap.Error(err))
		return nil
	}
	if req.NotificationID == "" {
		c.log.Warn("roster request missing notification id")
		return nil
	}

	ids, err := c.repo.ListIDsByScopeAndShift(ctx, req.ZoneID, req.Shift)
	if err != nil {
		return fmt.Errorf("list employees for zone %s shift %s: %w", req.ZoneID, req.Shift, err)
	}
	if ids == nil {
		ids = []string{}
	}

	out, err := json.Marshal(Response{NotificationID: req.NotificationID, UserIDs: ids})
	if err != nil {
		return fmt.Errorf("encode roster response: %w", err)
	}
	if err := c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.NotificationID),
		Value: out,
	}); err != nil {
		return fmt.Errorf("publish roster response: %w", err)
	}
	c.log.Info("roster request answered",
		zap.String("notification_id", req.NotificationID),
		zap.String("zone_id", req.ZoneID),
		zap.String("shift", req.Shift),
		zap.Int("matches", len(ids)))
	return nil
}

// Run consumes the request topic until ctx is cancelled. Read failures are
// logged and retried; handle failures leave the message uncommitted only
// insofar as the reader's commit interval allows, so responses are
// best-effort at-least-once.
func (c *Consumer) Run(ctx context.Context, reader *kafka.Reader) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("roster read failed", zap.Error(err))
			continue
		}
		if err := c.Handle(ctx, msg.Value); err != nil {
			c.log.Error("roster handle failed", zap.Error(err))
		}
	}
}
