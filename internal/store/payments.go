package store

import (
	"context"
	"database/sql"
	"fmt"

	"stock-assistant/internal/models"
)

// CreatePaymentRequest inserts a pending payout request and fills in its id
// and creation time.
func (s *Store) CreatePaymentRequest(ctx context.Context, payment *models.SellerPayment) error {
	query := `
		INSERT INTO seller_payments (seller_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, payment, query,
		payment.SellerID, payment.Amount, models.PaymentStatusPending)
}

// GetPaymentRequest retrieves a payout request by id.
func (s *Store) GetPaymentRequest(ctx context.Context, id int64) (*models.SellerPayment, error) {
	var payment models.SellerPayment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM seller_payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPendingPayments lists all unconfirmed payout requests, oldest first.
func (s *Store) GetPendingPayments(ctx context.Context) ([]models.SellerPayment, error) {
	var payments []models.SellerPayment
	err := s.db.SelectContext(ctx, &payments, `
		SELECT * FROM seller_payments
		WHERE status = $1
		ORDER BY id`,
		models.PaymentStatusPending)
	return payments, err
}

// ConfirmPayment moves a pending payout to confirmed with the amount the
// admin actually received. The update is conditional on pending, so a second
// confirmation returns ErrAlreadyProcessed and changes nothing.
func (s *Store) ConfirmPayment(ctx context.Context, id, confirmedAmount int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE seller_payments SET status = $1, confirmed_amount = $2, processed_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.PaymentStatusConfirmed, confirmedAmount, id, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("payment %d: %w", id, models.ErrAlreadyProcessed)
	}
	return nil
}
