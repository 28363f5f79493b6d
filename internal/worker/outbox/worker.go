package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/denteo/labflow/internal/dal/interfaces/ioutboxrepo"
	"github.com/denteo/labflow/internal/dal/rabbitmq"
	outboxmodel "github.com/denteo/labflow/internal/service/models/outbox"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Worker drains the outbox table: every committed change event is published
// to the orders exchange, with exponential backoff on broker failures.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRepository
	rabbitClient  *rabbitmq.Client
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	stopCh        chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	rabbitClient *rabbitmq.Client,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	// Publishing targets the orders exchange, so it has to exist before the
	// first poll even when no consumer declared it yet.
	if err := rabbitClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    outboxmodel.OrdersExchange,
		Kind:    "fanout",
		Durable: true,
	}); err != nil {
		panic(err)
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		rabbitClient:  rabbitClient,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages publishes one batch of pending change events.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending change events from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Publishing pending change events", "count", len(messages))

	for _, msg := range messages {
		err := w.rabbitClient.Channel().Publish(
			msg.ExchangeName,
			msg.RoutingKey,
			false,
			false,
			amqp.Publishing{
				ContentType: msg.ContentType,
				Body:        msg.Payload,
			},
		)

		if err != nil {
			w.scheduleRetry(ctx, msg.ID, msg.RetryCount, err)

			continue
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete change event after publish",
				"outbox_id", msg.ID,
				"error", err,
			)

			continue
		}

		slog.Info("Change event published", "outbox_id", msg.ID)
	}
}

// scheduleRetry records a failed publish attempt. The delay doubles with
// every attempt, starting from the configured retry interval.
func (w *Worker) scheduleRetry(ctx context.Context, id int64, retryCount int, cause error) {
	newRetryCount := retryCount + 1
	backoff := time.Duration(math.Pow(2, float64(newRetryCount))) * w.retryInterval
	nextRetryAt := time.Now().Add(backoff)

	slog.Warn("Failed to publish change event, will retry",
		"outbox_id", id,
		"retry_count", newRetryCount,
		"next_retry", nextRetryAt,
		"error", cause,
	)

	if err := w.outboxRepo.UpdateRetry(ctx, id, newRetryCount, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "outbox_id", id, "error", err)
	}
}
