package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanksha/camping-booking-backend/booking"
	"github.com/segmentio/kafka-go"
)

const eventHeader = "event"

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer forwards lifecycle events to the real-time channel: the per-type
// name on the user topic and the admin update on the admin topic.
type Producer struct {
	writer     MessageWriter
	userTopic  string
	adminTopic string
	logger     *slog.Logger
}

func NewProducer(brokers []string, userTopic, adminTopic string, logger *slog.Logger) *Producer {
	logger = logger.With("component", "kafka-producer")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("failed to publish real-time events", "count", len(messages), "error", err)
			}
		},
	}

	return NewProducerWithWriter(writer, userTopic, adminTopic, logger)
}

func NewProducerWithWriter(writer MessageWriter, userTopic, adminTopic string, logger *slog.Logger) *Producer {
	return &Producer{writer: writer, userTopic: userTopic, adminTopic: adminTopic, logger: logger}
}

func (p *Producer) HandleBookingEvent(ctx context.Context, e booking.DomainEvent) {
	msgs, err := p.messages(e)

	if err != nil {
		p.logger.Error("failed to encode real-time event", "bookingId", e.Booking.ID, "error", err)
		return
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Warn("failed to publish real-time event", "bookingId", e.Booking.ID, "error", err)
	}
}

func (p *Producer) messages(e booking.DomainEvent) ([]kafka.Message, error) {
	var msgs []kafka.Message

	for _, out := range []struct{ topic, name string }{
		{p.userTopic, Name(e.Type)},
		{p.adminTopic, BookingAdminUpdate},
	} {
		payload, err := json.Marshal(NewMessage(out.name, e))

		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}

		msgs = append(msgs, kafka.Message{
			Topic:   out.topic,
			Key:     []byte(e.Booking.ID),
			Value:   payload,
			Headers: []kafka.Header{{Key: eventHeader, Value: []byte(out.name)}},
			Time:    e.OccurredAt,
		})
	}

	return msgs, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads real-time events and hands them to a handler. Messages that
// do not decode are logged, committed and skipped.
type Consumer struct {
	reader  MessageReader
	handler func(ctx context.Context, msg Message)
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, handler func(ctx context.Context, msg Message), logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})

	return NewConsumerWithReader(reader, handler, logger)
}

func NewConsumerWithReader(reader MessageReader, handler func(ctx context.Context, msg Message), logger *slog.Logger) *Consumer {
	return &Consumer{reader: reader, handler: handler, logger: logger.With("component", "kafka-consumer")}
}

// Run consumes until ctx is done. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)

		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to fetch real-time event: %w", err)
		}

		var decoded Message

		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			c.logger.Warn("skipping undecodable real-time event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		} else {
			c.handler(ctx, decoded)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warn("failed to commit real-time event", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
