package models

import "time"

// Event types
const (
	EventTypeOrderCompleted   = "ORDER_COMPLETED"
	EventTypeOrderProcessed   = "ORDER_PROCESSED"
	EventTypeTransferResolved = "TRANSFER_RESOLVED"
	EventTypePaymentConfirmed = "PAYMENT_CONFIRMED"
	EventTypePurchaseRecorded = "PURCHASE_RECORDED"
	EventTypeOutboundMessage  = "OUTBOUND_MESSAGE"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent is consumed from the upstream shop system when an order
// finishes; it triggers the Confirm/Edit prompt to the owning seller.
type OrderCompletedEvent struct {
	BaseEvent
	OrderNumber string `json:"order_number"`
}

// OrderProcessedEvent is published once an order's stock deltas are committed
// and the stock_processed flag is set.
type OrderProcessedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SellerID    int64           `json:"seller_id"`
	Items       []ProcessedItem `json:"items"`
	Edited      bool            `json:"edited"`
}

// ProcessedItem is one committed line of a processed order.
type ProcessedItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// TransferResolvedEvent is published when the hub approves or rejects a
// transfer request.
type TransferResolvedEvent struct {
	BaseEvent
	RequestID  int64  `json:"request_id"`
	ToSellerID int64  `json:"to_seller_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	Status     string `json:"status"`
}

// PaymentConfirmedEvent is published when the admin confirms a payout.
type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID       int64 `json:"payment_id"`
	SellerID        int64 `json:"seller_id"`
	ConfirmedAmount int64 `json:"confirmed_amount"`
}

// PurchaseRecordedEvent is published when an admin restock is committed into
// hub stock.
type PurchaseRecordedEvent struct {
	BaseEvent
	PurchaseID int64 `json:"purchase_id"`
	Total      int64 `json:"total"`
}

// OutboundMessage is a chat message for the transport adapter to render:
// plain text plus an optional grid of buttons carrying routing tokens.
type OutboundMessage struct {
	BaseEvent
	ChatID  int64              `json:"chat_id"`
	Text    string             `json:"text"`
	Buttons [][]OutboundButton `json:"buttons,omitempty"`
}

// OutboundButton is one inline button; Token is an opaque routing token the
// adapter echoes back when the button is pressed.
type OutboundButton struct {
	Label string `json:"label"`
	Token string `json:"token"`
}
