package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	OrdersTopic          = "storefront-orders"
	EventTypeOrderPlaced = "order_placed"
)

type OrderPlacedEvent struct {
	OrderID        string             `json:"order_id"`
	UserID         string             `json:"user_id"`
	IdempotencyKey string             `json:"idempotency_key"`
	Items          []domain.OrderItem `json:"items"`
	TotalPrice     decimal.Decimal    `json:"total_price"`
	PaymentMethod  string             `json:"payment_method"`
	PlacedAt       time.Time          `json:"placed_at"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewOrderPublisher(brokers ...string) *OrderPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrdersTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewOrderPublisherWithWriter(w)
}

func NewOrderPublisherWithWriter(w MessageWriter) *OrderPublisher {
	return &OrderPublisher{writer: w, timeout: 5 * time.Second}
}

// OrderPlaced publishes one event keyed by order id.
func (p *OrderPublisher) OrderPlaced(ctx context.Context, userID, idempotencyKey string, order domain.Order) error {
	placedAt := order.CreatedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(OrderPlacedEvent{
		OrderID:        order.ID,
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		Items:          order.Items,
		TotalPrice:     order.TotalPrice,
		PaymentMethod:  order.PaymentMethod,
		PlacedAt:       placedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order event failed: %w", err)
	}
	return nil
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
