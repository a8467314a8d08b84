package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-assistant/internal/models"
)

// CreateTransferRequest inserts a pending transfer request and fills in its id
// and creation time.
func (s *Store) CreateTransferRequest(ctx context.Context, req *models.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (from_seller_id, to_seller_id, product_id, quantity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, req, query,
		req.FromSellerID, req.ToSellerID, req.ProductID, req.Quantity, models.TransferStatusPending)
}

// GetTransferRequest retrieves a transfer request by id.
func (s *Store) GetTransferRequest(ctx context.Context, id int64) (*models.TransferRequest, error) {
	var req models.TransferRequest
	err := s.db.GetContext(ctx, &req, "SELECT * FROM transfer_requests WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transfer request %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetPendingTransfers lists pending requests sourced from one seller
// (conventionally the hub), newest first.
func (s *Store) GetPendingTransfers(ctx context.Context, fromSellerID int64) ([]models.TransferRequest, error) {
	var reqs []models.TransferRequest
	err := s.db.SelectContext(ctx, &reqs, `
		SELECT * FROM transfer_requests
		WHERE from_seller_id = $1 AND status = $2
		ORDER BY id DESC`,
		fromSellerID, models.TransferStatusPending)
	return reqs, err
}

// ApproveTransfer moves a request to approved and applies the paired
// out/in stock adjustments in one transaction. The status change is a
// conditional update on pending, so a second approval (or an approval after a
// rejection) rolls everything back with ErrAlreadyProcessed.
func (s *Store) ApproveTransfer(ctx context.Context, id int64, adjustments []models.StockAdjustment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE transfer_requests SET status = $1, processed_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.TransferStatusApproved, id, models.TransferStatusPending)
	if err != nil {
		return fmt.Errorf("failed to approve transfer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transfer request %d: %w", id, models.ErrAlreadyProcessed)
	}

	for _, adj := range adjustments {
		if _, err := applyAdjustmentTx(ctx, tx, adj); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RejectTransfer moves a pending request to rejected; no stock mutation.
func (s *Store) RejectTransfer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transfer_requests SET status = $1, processed_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.TransferStatusRejected, id, models.TransferStatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject transfer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("transfer request %d: %w", id, models.ErrAlreadyProcessed)
	}
	return nil
}
