package service

// Dialogue states shared by the multi-step flows. A session "suspends" at
// every user-input request; the next inbound event resumes it by user id.
const (
	StateSelectingProduct  = "selecting_product"
	StateEnteringQuantity  = "entering_quantity"
	StateConfirmingItem    = "confirming_item"
	StateReview            = "review"
	StateAwaitingAmount    = "awaiting_amount"
	StateCorrectingPayment = "correcting_payment"
)

// EditSession tracks one in-progress order reconciliation edit for a seller.
type EditSession struct {
	OrderNumber    string          `json:"order_number"`
	SellerID       int64           `json:"seller_id"`
	ChatID         int64           `json:"chat_id"`
	OriginalItems  map[int64]int64 `json:"original_items"`
	SelectedItems  map[int64]int64 `json:"selected_items"`
	PendingProduct int64           `json:"pending_product"`
	PendingQty     int64           `json:"pending_qty"`
	State          string          `json:"state"`
}

// TransferSession tracks a transfer request being composed by a seller.
type TransferSession struct {
	SellerID  int64  `json:"seller_id"`
	ChatID    int64  `json:"chat_id"`
	ProductID int64  `json:"product_id"`
	State     string `json:"state"`
}

// PaymentSession tracks either a seller entering a payout amount or the admin
// correcting the amount of a pending payout.
type PaymentSession struct {
	SellerID  int64  `json:"seller_id"`
	ChatID    int64  `json:"chat_id"`
	PaymentID int64  `json:"payment_id"`
	State     string `json:"state"`
}

// PurchaseLine is one confirmed line of a purchase being composed.
type PurchaseLine struct {
	ProductID    int64 `json:"product_id"`
	Quantity     int64 `json:"quantity"`
	PricePerUnit int64 `json:"price_per_unit"`
}

// PurchaseSession tracks an admin restock being composed.
type PurchaseSession struct {
	ChatID         int64          `json:"chat_id"`
	Lines          []PurchaseLine `json:"lines"`
	PendingProduct int64          `json:"pending_product"`
	PendingQty     int64          `json:"pending_qty"`
	PendingPrice   int64          `json:"pending_price"`
	State          string         `json:"state"`
}
