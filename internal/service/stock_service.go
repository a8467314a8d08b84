package service

import (
	"context"
	"fmt"
	"strings"

	"stock-assistant/internal/command"
	"stock-assistant/internal/models"
	"stock-assistant/internal/util"

	"go.uber.org/zap"
)

// StockStore is the ledger access the stock engine needs.
type StockStore interface {
	AdjustStock(ctx context.Context, adj models.StockAdjustment) (int64, error)
	GetSellerStock(ctx context.Context, sellerID, productID int64) (int64, error)
	GetStockBySeller(ctx context.Context, sellerID int64) ([]models.StockLine, error)
	GetNegativeStock(ctx context.Context, sellerID int64) ([]models.StockLine, error)
	SumMovements(ctx context.Context, sellerID, productID int64) (int64, error)
	GetSellerByTelegramID(ctx context.Context, telegramID int64) (*models.Seller, error)
	GetSellers(ctx context.Context) ([]models.Seller, error)
}

// StockService is the stock adjustment engine: the only place that mutates
// per-seller quantities. Every mutation is paired with a movement record by
// the store; callers state direction through Decrease/Increase rather than
// passing raw signed deltas.
type StockService struct {
	store  StockStore
	logger *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(store StockStore) *StockService {
	return &StockService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Decrease removes quantity units from a seller's stock. Zero quantity is a
// no-op. Going negative is permitted and expected; it is logged as a warning
// and later drives the transfer workflow, never a failure.
func (ss *StockService) Decrease(ctx context.Context, sellerID, productID, quantity int64, reason string, orderID *int64) error {
	if quantity == 0 {
		return nil
	}
	if quantity < 0 {
		return fmt.Errorf("%w: decrease quantity must be positive", models.ErrValidation)
	}

	remaining, err := ss.store.AdjustStock(ctx, models.StockAdjustment{
		SellerID:  sellerID,
		ProductID: productID,
		Delta:     -quantity,
		Reason:    reason,
		OrderID:   orderID,
	})
	if err != nil {
		return fmt.Errorf("failed to decrease stock: %w", err)
	}

	util.StockAdjustmentsTotal.WithLabelValues(reason).Inc()

	if remaining < 0 {
		ss.logger.Warn("Seller stock went negative",
			zap.Int64("seller_id", sellerID),
			zap.Int64("product_id", productID),
			zap.Int64("quantity", remaining))
	}
	return nil
}

// Increase adds quantity units to a seller's stock. Zero quantity is a no-op.
func (ss *StockService) Increase(ctx context.Context, sellerID, productID, quantity int64, reason string, orderID *int64) error {
	if quantity == 0 {
		return nil
	}
	if quantity < 0 {
		return fmt.Errorf("%w: increase quantity must be positive", models.ErrValidation)
	}

	_, err := ss.store.AdjustStock(ctx, models.StockAdjustment{
		SellerID:  sellerID,
		ProductID: productID,
		Delta:     quantity,
		Reason:    reason,
		OrderID:   orderID,
	})
	if err != nil {
		return fmt.Errorf("failed to increase stock: %w", err)
	}

	util.StockAdjustmentsTotal.WithLabelValues(reason).Inc()
	return nil
}

// NegativeStockWarning builds the oversold warning for a seller, offering to
// open the transfer workflow. Returns nil when nothing is negative.
func (ss *StockService) NegativeStockWarning(ctx context.Context, sellerID int64) (*Reply, error) {
	lines, err := ss.store.GetNegativeStock(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query negative stock: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Warning: you sold more than your warehouse held. Your balances are negative:\n")
	for _, line := range lines {
		fmt.Fprintf(&sb, "- %s: %d\n", line.ProductName, -line.Quantity)
	}
	sb.WriteString("Request a transfer to restock.")

	util.NegativeStockWarningsTotal.Inc()

	return &Reply{
		Text: sb.String(),
		Buttons: [][]Button{
			{button("Create transfer request", command.NewTransfer{})},
		},
	}, nil
}

// MyStock lists the invoking seller's balances.
func (ss *StockService) MyStock(ctx context.Context, userID int64) (*Reply, error) {
	seller, err := ss.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := ss.store.GetStockBySeller(ctx, seller.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return textReply("You have no stock."), nil
	}

	var sb strings.Builder
	sb.WriteString("Your stock:\n")
	for _, line := range lines {
		if line.Quantity < 0 {
			fmt.Fprintf(&sb, "- %s: %d (oversold)\n", line.ProductName, line.Quantity)
		} else {
			fmt.Fprintf(&sb, "- %s: %d\n", line.ProductName, line.Quantity)
		}
	}
	return textReply(strings.TrimRight(sb.String(), "\n")), nil
}

// AllStock renders the per-seller stock overview for the admin.
func (ss *StockService) AllStock(ctx context.Context) (*Reply, error) {
	sellers, err := ss.store.GetSellers(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("Stock by seller:\n")
	for _, seller := range sellers {
		lines, err := ss.store.GetStockBySeller(ctx, seller.ID)
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", seller.Name)
		for _, line := range lines {
			fmt.Fprintf(&sb, "- %s: %d\n", line.ProductName, line.Quantity)
		}
	}
	return textReply(strings.TrimRight(sb.String(), "\n")), nil
}

// decreaseOf builds one negative adjustment for a transactional batch.
func decreaseOf(sellerID, productID, quantity int64, reason string, orderID *int64) models.StockAdjustment {
	return models.StockAdjustment{
		SellerID:  sellerID,
		ProductID: productID,
		Delta:     -quantity,
		Reason:    reason,
		OrderID:   orderID,
	}
}

// increaseOf builds one positive adjustment for a transactional batch.
func increaseOf(sellerID, productID, quantity int64, reason string, orderID *int64) models.StockAdjustment {
	return models.StockAdjustment{
		SellerID:  sellerID,
		ProductID: productID,
		Delta:     quantity,
		Reason:    reason,
		OrderID:   orderID,
	}
}
