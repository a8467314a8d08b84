package service

import (
	"context"

	"stock-assistant/internal/models"
)

// Notifier delivers a message to a counter-party's chat. Delivery is
// best-effort: a failure is logged by the caller and never rolls back a
// committed state transition.
type Notifier interface {
	Send(ctx context.Context, chatID int64, reply Reply) error
}

// Publisher emits domain events for downstream consumers after a state
// transition has committed. Publish failures are logged, never propagated.
type Publisher interface {
	PublishOrderProcessed(ctx context.Context, event *models.OrderProcessedEvent) error
	PublishTransferResolved(ctx context.Context, event *models.TransferResolvedEvent) error
	PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error
	PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error
}
