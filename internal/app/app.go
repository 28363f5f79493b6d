package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denteo/labflow/internal/dal/filestore"
	"github.com/denteo/labflow/internal/dal/postgres"
	"github.com/denteo/labflow/internal/dal/rabbitmq"
	outboxRepository "github.com/denteo/labflow/internal/dal/repositories/outbox/postgres"
	"github.com/denteo/labflow/internal/notify"
	otelcontroller "github.com/denteo/labflow/internal/otel"
	"github.com/denteo/labflow/internal/service/services/analyticssvc"
	"github.com/denteo/labflow/internal/service/services/authsvc"
	"github.com/denteo/labflow/internal/service/services/floorsvc"
	"github.com/denteo/labflow/internal/service/services/ordersvc"
	"github.com/denteo/labflow/internal/transport/consumer"
	httptransport "github.com/denteo/labflow/internal/transport/http"
	outboxworker "github.com/denteo/labflow/internal/worker/outbox"
)

// App represents the application.
type App struct {
	otelController *otelcontroller.OtelController
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	fileStore      *filestore.Store
	hub            *notify.Hub
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	consumer       *consumer.Consumer
	outboxWorker   *outboxworker.Worker
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otelcontroller.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()
	fileStore := filestore.MustNewStore()
	hub := notify.NewHub()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithFileStore(fileStore),
	)
	analyticsSvc := analyticssvc.MustNewAnalyticsService(
		analyticssvc.WithPostgresClient(postgresClient),
	)
	authSvc := authsvc.MustNewAuthService(
		authsvc.WithPostgresClient(postgresClient),
	)
	floorSvc := floorsvc.MustNewFloorService(
		floorsvc.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, analyticsSvc, authSvc, floorSvc, fileStore, hub)
	transport.RegisterRoutes()

	outboxWorker := outboxworker.NewWorker(
		outboxRepository.NewOutboxRepository(postgresClient.Pool()),
		rabbitClient,
	)
	eventsConsumer := consumer.NewConsumer(rabbitClient, hub)

	return &App{
		otelController: otelController,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		fileStore:      fileStore,
		hub:            hub,
		orderSvc:       orderSvc,
		transport:      transport,
		consumer:       eventsConsumer,
		outboxWorker:   outboxWorker,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go a.outboxWorker.Start(workerCtx)

	go func() {
		if err := a.consumer.Run(workerCtx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.consumer.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}

	a.outboxWorker.Stop()
	cancelWorkers()

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
