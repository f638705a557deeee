package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/shop"
)

// Event types published to Kafka.
const (
	EventOrderPlaced   = "order.placed"
	EventStatusChanged = "order.status_changed"
	EventFeedback      = "feedback.received"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	Total      string    `json:"total,omitempty"`
	Payment    string    `json:"payment,omitempty"`
	Items      int       `json:"items,omitempty"`
	Text       string    `json:"text,omitempty"`
	At         time.Time `json:"at"`
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer that keys messages to partitions by hash so
// events of one order stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// Publisher emits shop events to a Kafka topic.
type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

var _ flow.Notifier = (*Publisher)(nil)

// NewPublisher wraps w.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

func (p *Publisher) publish(ctx context.Context, key string, ev Event) error {
	ev.At = p.now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", ev.Type, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}); err != nil {
		return shop.Transient("publish "+ev.Type, err)
	}
	logger.LogEvent(ctx, logger.SVCNotify, slog.LevelDebug, "event.published",
		slog.String("type", ev.Type),
		slog.String("key", key),
	)
	return nil
}

func orderKey(o *shop.Order) string {
	if o.Reference != "" {
		return o.Reference
	}
	return strconv.FormatInt(o.ID, 10)
}

func (p *Publisher) OrderPlaced(ctx context.Context, order *shop.Order, _ *shop.User) error {
	return p.publish(ctx, orderKey(order), Event{
		Type:      EventOrderPlaced,
		OrderID:   order.ID,
		Reference: order.Reference,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(2),
		Payment:   string(order.Payment),
		Items:     len(order.Items),
	})
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, order *shop.Order, from shop.OrderStatus) error {
	return p.publish(ctx, orderKey(order), Event{
		Type:       EventStatusChanged,
		OrderID:    order.ID,
		Reference:  order.Reference,
		UserID:     order.UserID,
		Status:     string(order.Status),
		FromStatus: string(from),
	})
}

func (p *Publisher) Feedback(ctx context.Context, from *shop.User, text string) error {
	return p.publish(ctx, strconv.FormatInt(from.ID, 10), Event{
		Type:   EventFeedback,
		UserID: from.ID,
		Text:   text,
	})
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
