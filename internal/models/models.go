package models

import "time"

// Seller represents a selling party. One configured seller id is the hub,
// holding central warehouse stock; it is otherwise an ordinary row.
type Seller struct {
	ID         int64     `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"telegram_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Product represents a catalog product. Price is the buyer-facing price,
// PriceSeller the wholesale price a seller owes per unit sold. PurchasePrice
// is the acquisition cost; nil means no acquisition price is configured.
type Product struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Price         int64  `db:"price" json:"price"`
	PriceSeller   int64  `db:"price_seller" json:"price_seller"`
	PurchasePrice *int64 `db:"purchase_price" json:"purchase_price,omitempty"`
}

// Order represents a completed shop order awaiting reconciliation. Rows are
// created by the upstream shop system; this service only reads them and flips
// StockProcessed exactly once.
type Order struct {
	ID             int64     `db:"id" json:"id"`
	OrderNumber    string    `db:"order_number" json:"order_number"`
	SellerID       int64     `db:"seller_id" json:"seller_id"`
	Status         string    `db:"status" json:"status"`
	StockProcessed bool      `db:"stock_processed" json:"stock_processed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents a line item as submitted by the shop system.
type OrderItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// SellerStock is the materialized per-seller balance. Quantity is signed:
// negative means oversold inventory pending a transfer.
type SellerStock struct {
	SellerID  int64 `db:"seller_id" json:"seller_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int64 `db:"quantity" json:"quantity"`
}

// StockMovement is the immutable audit record behind every balance change.
// SellerStock is always reconstructible as the sum of movements per
// (seller, product).
type StockMovement struct {
	ID             int64     `db:"id" json:"id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	SellerID       int64     `db:"seller_id" json:"seller_id"`
	QuantityChange int64     `db:"quantity_change" json:"quantity_change"`
	Reason         string    `db:"reason" json:"reason"`
	OrderID        *int64    `db:"order_id" json:"order_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StockAdjustment is a pending delta handed to the store; it becomes one
// seller_stock upsert plus one stock_movements row in a single transaction.
type StockAdjustment struct {
	SellerID  int64
	ProductID int64
	Delta     int64
	Reason    string
	OrderID   *int64
}

// StockLine is a joined stock row for display.
type StockLine struct {
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int64  `db:"quantity" json:"quantity"`
}

// TransferRequest is a hub-to-seller stock relocation awaiting hub approval.
type TransferRequest struct {
	ID           int64      `db:"id" json:"id"`
	FromSellerID int64      `db:"from_seller_id" json:"from_seller_id"`
	ToSellerID   int64      `db:"to_seller_id" json:"to_seller_id"`
	ProductID    int64      `db:"product_id" json:"product_id"`
	Quantity     int64      `db:"quantity" json:"quantity"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// SellerPayment is a payout from a seller to the admin. ConfirmedAmount stays
// nil until the admin confirms or corrects the stated amount.
type SellerPayment struct {
	ID              int64      `db:"id" json:"id"`
	SellerID        int64      `db:"seller_id" json:"seller_id"`
	Amount          int64      `db:"amount" json:"amount"`
	ConfirmedAmount *int64     `db:"confirmed_amount" json:"confirmed_amount,omitempty"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Purchase is an admin restocking buy into the hub.
type Purchase struct {
	ID           int64     `db:"id" json:"id"`
	SellerID     *int64    `db:"seller_id" json:"seller_id,omitempty"`
	Total        int64     `db:"total" json:"total"`
	Comment      string    `db:"comment" json:"comment"`
	PurchaseDate time.Time `db:"purchase_date" json:"purchase_date"`
}

// PurchaseItem is one line of a purchase.
type PurchaseItem struct {
	ID           int64 `db:"id" json:"id"`
	PurchaseID   int64 `db:"purchase_id" json:"purchase_id"`
	ProductID    int64 `db:"product_id" json:"product_id"`
	Quantity     int64 `db:"quantity" json:"quantity"`
	PricePerUnit int64 `db:"price_per_unit" json:"price_per_unit"`
}

// Order statuses (set by the upstream shop system)
const (
	OrderStatusNotCompleted = "not_completed"
	OrderStatusCompleted    = "completed"
)

// Movement reasons
const (
	ReasonSale        = "sale"
	ReasonCorrection  = "correction"
	ReasonTransferIn  = "transfer_in"
	ReasonTransferOut = "transfer_out"
	ReasonPurchase    = "purchase"
)

// Transfer request statuses
const (
	TransferStatusPending  = "pending"
	TransferStatusApproved = "approved"
	TransferStatusRejected = "rejected"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
)
