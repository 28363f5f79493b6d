package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrdersExchange is the fanout exchange change events are published to.
const OrdersExchange = "labflow.orders"

// OutboxMessage represents an event waiting to be published to RabbitMQ.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// OrderChangedEvent tells subscribers that an order changed and should be
// re-fetched. It carries no diff on purpose.
type OrderChangedEvent struct {
	OrderNumber string    `json:"orderNumber"`
	Kind        string    `json:"kind"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewOrderChanged builds an outbox message announcing a change to an order.
// Kind names the mutation (created, updated, status_changed, attachment_added).
func NewOrderChanged(orderNumber, kind string, now time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderChangedEvent{
		OrderNumber: orderNumber,
		Kind:        kind,
		OccurredAt:  now,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal order changed event: %w", err)
	}

	return OutboxMessage{
		ExchangeName: OrdersExchange,
		RoutingKey:   "",
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   10,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}
