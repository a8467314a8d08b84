package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stock-assistant/internal/models"
	"stock-assistant/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes domain events to the ledger topic and chat
// messages to the outbound topic. It satisfies both service.Publisher and
// service.Notifier.
type EventPublisher struct {
	domain   *Producer
	outbound *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(domain, outbound *Producer) *EventPublisher {
	return &EventPublisher{domain: domain, outbound: outbound}
}

// Send delivers a chat reply through the outbound topic; the transport
// adapter consuming it renders text and buttons for the messenger.
func (ep *EventPublisher) Send(ctx context.Context, chatID int64, reply service.Reply) error {
	msg := &models.OutboundMessage{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOutboundMessage,
			Timestamp: time.Now(),
		},
		ChatID: chatID,
		Text:   reply.Text,
	}
	for _, row := range reply.Buttons {
		out := make([]models.OutboundButton, 0, len(row))
		for _, b := range row {
			out = append(out, models.OutboundButton{Label: b.Label, Token: b.Token})
		}
		msg.Buttons = append(msg.Buttons, out)
	}

	key := fmt.Sprintf("chat-%d", chatID)
	return ep.outbound.PublishEvent(ctx, key, msg)
}

// PublishOrderProcessed publishes OrderProcessed event
func (ep *EventPublisher) PublishOrderProcessed(ctx context.Context, event *models.OrderProcessedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.domain.PublishEvent(ctx, key, event)
}

// PublishTransferResolved publishes TransferResolved event
func (ep *EventPublisher) PublishTransferResolved(ctx context.Context, event *models.TransferResolvedEvent) error {
	key := fmt.Sprintf("transfer-%d", event.RequestID)
	return ep.domain.PublishEvent(ctx, key, event)
}

// PublishPaymentConfirmed publishes PaymentConfirmed event
func (ep *EventPublisher) PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	key := fmt.Sprintf("payment-%d", event.PaymentID)
	return ep.domain.PublishEvent(ctx, key, event)
}

// PublishPurchaseRecorded publishes PurchaseRecorded event
func (ep *EventPublisher) PublishPurchaseRecorded(ctx context.Context, event *models.PurchaseRecordedEvent) error {
	key := fmt.Sprintf("purchase-%d", event.PurchaseID)
	return ep.domain.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderCompleted func(context.Context, *models.OrderCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCompleted registers a handler for OrderCompleted events
func (eh *EventHandler) OnOrderCompleted(handler func(context.Context, *models.OrderCompletedEvent) error) {
	eh.onOrderCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeOrderCompleted:
		if eh.onOrderCompleted != nil {
			var event models.OrderCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCompleted event: %w", err)
			}
			return eh.onOrderCompleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
