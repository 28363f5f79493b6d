package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/denteo/labflow/internal/dal/rabbitmq"
	"github.com/denteo/labflow/internal/service/models/outbox"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// hub receives the change notifications this consumer pulls off the broker.
type hub interface {
	Broadcast(message []byte)
}

// Consumer moves order change events from RabbitMQ to the dashboard hub.
type Consumer struct {
	client *rabbitmq.Client
	hub    hub
	queue  amqp.Queue
	stop   chan struct{}
	done   chan struct{}
}

// NewConsumer declares the events queue, binds it to the orders exchange and
// returns a consumer ready to run.
func NewConsumer(client *rabbitmq.Client, h hub) *Consumer {
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	if err := client.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    outbox.OrdersExchange,
		Kind:    "fanout",
		Durable: true,
	}); err != nil {
		panic(err)
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    false,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	if err := client.BindQueue(rabbitmq.BindQueueConfig{
		Queue:    queue.Name,
		Exchange: outbox.OrdersExchange,
	}); err != nil {
		panic(err)
	}

	return &Consumer{
		client: client,
		hub:    h,
		queue:  queue,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "labflow"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:     c.queue.Name,
		Consumer:  consumerTag,
		AutoAck:   viper.GetBool("rabbitmq.auto_ack"),
		Exclusive: viper.GetBool("rabbitmq.exclusive"),
		NoLocal:   viper.GetBool("rabbitmq.no_local"),
		NoWait:    viper.GetBool("rabbitmq.no_wait"),
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.processMessage(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage validates a single message and fans it out to the hub.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	_, span := otel.Tracer("labflow").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Info("Received message", "delivery_tag", msg.DeliveryTag)

	var event outbox.OrderChangedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("Failed to unmarshal order change event", "error", err)
		// Reject the message without requeuing
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return err
	}

	c.hub.Broadcast(msg.Body)

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Info("Message processed successfully", "order_number", event.OrderNumber, "kind", event.Kind)

	return nil
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	// Wait for processing to finish with timeout
	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
