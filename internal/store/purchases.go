package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-assistant/internal/models"
)

// CreatePurchase persists a restocking purchase with its line items and
// applies the matching hub stock increases, all in one transaction. The
// purchase id and date are filled in on success.
func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase, items []models.PurchaseItem, adjustments []models.StockAdjustment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, purchase, `
		INSERT INTO purchases (seller_id, total, comment)
		VALUES ($1, $2, $3)
		RETURNING id, purchase_date`,
		purchase.SellerID, purchase.Total, purchase.Comment)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	for i := range items {
		items[i].PurchaseID = purchase.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO purchase_items (purchase_id, product_id, quantity, price_per_unit)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].PurchaseID, items[i].ProductID, items[i].Quantity, items[i].PricePerUnit)
		if err != nil {
			return fmt.Errorf("failed to create purchase item: %w", err)
		}
	}

	for _, adj := range adjustments {
		if _, err := applyAdjustmentTx(ctx, tx, adj); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPurchases lists the most recent purchases.
func (s *Store) GetPurchases(ctx context.Context, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.SelectContext(ctx, &purchases,
		"SELECT * FROM purchases ORDER BY id DESC LIMIT $1", limit)
	return purchases, err
}

// GetPurchase retrieves one purchase with its items.
func (s *Store) GetPurchase(ctx context.Context, id int64) (*models.Purchase, []models.PurchaseItem, error) {
	var purchase models.Purchase
	err := s.db.GetContext(ctx, &purchase, "SELECT * FROM purchases WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("purchase %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.PurchaseItem
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM purchase_items WHERE purchase_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}

	return &purchase, items, nil
}
