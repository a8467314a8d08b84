package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-assistant/internal/models"
)

// GetOrderByNumber retrieves an order by its human-readable number.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", orderNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all line items for an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetPendingOrders lists a seller's completed orders that have not had their
// stock processed yet, newest first.
func (s *Store) GetPendingOrders(ctx context.Context, sellerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE seller_id = $1 AND status = $2 AND stock_processed = FALSE
		ORDER BY id DESC`,
		sellerID, models.OrderStatusCompleted)
	return orders, err
}

// FinalizeOrder commits a reconciliation: every line-item adjustment is
// applied, then the stock_processed flag is flipped with a conditional update.
// The flip is the last write and the commit marker; when another finalize got
// there first the conditional update matches no row and the whole transaction
// rolls back with ErrAlreadyProcessed, so deltas are applied at most once.
func (s *Store) FinalizeOrder(ctx context.Context, orderID int64, adjustments []models.StockAdjustment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, adj := range adjustments {
		if _, err := applyAdjustmentTx(ctx, tx, adj); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET stock_processed = TRUE, updated_at = NOW()
		WHERE id = $1 AND stock_processed = FALSE`, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d: %w", orderID, models.ErrAlreadyProcessed)
	}

	return tx.Commit()
}
