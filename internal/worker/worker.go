package worker

import (
	"context"
	"errors"
	"log"

	"stock-assistant/internal/broker"
	"stock-assistant/internal/models"
	"stock-assistant/internal/service"
)

// OrderEventWorker consumes order-completed events from the shop system and
// turns each one into a Confirm/Edit prompt for the owning seller.
type OrderEventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewOrderEventWorker creates a new order event worker
func NewOrderEventWorker(
	consumer *broker.Consumer,
	reconcile *service.ReconcileService,
) *OrderEventWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderCompleted(func(ctx context.Context, event *models.OrderCompletedEvent) error {
		err := reconcile.PromptOrderCompleted(ctx, event.OrderNumber)
		// duplicate deliveries of an already handled order are committed,
		// not retried
		if errors.Is(err, models.ErrAlreadyProcessed) {
			log.Printf("Skipping already processed order: %s", event.OrderNumber)
			return nil
		}
		return err
	})

	return &OrderEventWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *OrderEventWorker) Start(ctx context.Context) error {
	log.Println("Starting order event worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderEventWorker) Stop() error {
	log.Println("Stopping order event worker...")
	return w.consumer.Close()
}
