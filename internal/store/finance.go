package store

import (
	"context"
	"fmt"
)

// PriceKind selects which product price column an aggregate uses.
type PriceKind string

const (
	// PriceBuyer is the buyer-facing retail price.
	PriceBuyer PriceKind = "price"
	// PriceWholesale is the seller-facing wholesale price.
	PriceWholesale PriceKind = "price_seller"
)

// SumProcessedSales totals price × quantity over all completed and
// stock-processed order items for one seller, using the chosen price column.
func (s *Store) SumProcessedSales(ctx context.Context, sellerID int64, kind PriceKind) (int64, error) {
	var column string
	switch kind {
	case PriceBuyer:
		column = "p.price"
	case PriceWholesale:
		column = "p.price_seller"
	default:
		return 0, fmt.Errorf("unknown price kind %q", kind)
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(%s * oi.quantity), 0)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE o.seller_id = $1 AND o.status = 'completed' AND o.stock_processed = TRUE`, column)

	var total int64
	err := s.db.GetContext(ctx, &total, query, sellerID)
	return total, err
}

// SumConfirmedPayments totals the confirmed amounts a seller has already paid.
func (s *Store) SumConfirmedPayments(ctx context.Context, sellerID int64) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(confirmed_amount), 0)
		FROM seller_payments
		WHERE seller_id = $1 AND status = 'confirmed'`,
		sellerID)
	return total, err
}
