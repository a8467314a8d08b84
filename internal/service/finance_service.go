package service

import (
	"context"
	"fmt"
	"strings"

	"stock-assistant/internal/models"
	"stock-assistant/internal/store"
	"stock-assistant/internal/util"

	"go.uber.org/zap"
)

// FinanceStore is the store access debt and profit computation needs.
type FinanceStore interface {
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	GetSellers(ctx context.Context) ([]models.Seller, error)
	SumProcessedSales(ctx context.Context, sellerID int64, kind store.PriceKind) (int64, error)
	SumConfirmedPayments(ctx context.Context, sellerID int64) (int64, error)
}

// FinanceService derives money figures from processed orders and confirmed
// payments; it never stores a running balance.
type FinanceService struct {
	store       FinanceStore
	hubSellerID int64
	logger      *zap.Logger
}

// NewFinanceService creates a new finance service
func NewFinanceService(store FinanceStore, hubSellerID int64) *FinanceService {
	return &FinanceService{
		store:       store,
		hubSellerID: hubSellerID,
		logger:      util.GetLogger(),
	}
}

// Debt is what the seller currently owes: processed sales priced at the
// wholesale price, minus confirmed payments. The hub is the exception and is
// priced at the buyer price, since hub sales carry no reseller margin.
func (fs *FinanceService) Debt(ctx context.Context, sellerID int64) (int64, error) {
	kind := store.PriceWholesale
	if sellerID == fs.hubSellerID {
		kind = store.PriceBuyer
	}

	sales, err := fs.store.SumProcessedSales(ctx, sellerID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	payments, err := fs.store.SumConfirmedPayments(ctx, sellerID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sales - payments, nil
}

// Profit is the seller's margin on processed sales: buyer price minus
// wholesale price, for every seller including the hub.
func (fs *FinanceService) Profit(ctx context.Context, sellerID int64) (int64, error) {
	buyer, err := fs.store.SumProcessedSales(ctx, sellerID, store.PriceBuyer)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	wholesale, err := fs.store.SumProcessedSales(ctx, sellerID, store.PriceWholesale)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	return buyer - wholesale, nil
}

// SellerSummary renders one seller's account: debt, profit, payments made.
func (fs *FinanceService) SellerSummary(ctx context.Context, sellerID int64) (string, error) {
	debt, err := fs.Debt(ctx, sellerID)
	if err != nil {
		return "", err
	}
	profit, err := fs.Profit(ctx, sellerID)
	if err != nil {
		return "", err
	}
	payments, err := fs.store.SumConfirmedPayments(ctx, sellerID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Your account\n\nOwed: %d\nPaid so far: %d\nYour profit: %d", debt, payments, profit), nil
}

// AdminTotals renders per-seller debt across all non-hub sellers plus the
// grand totals of what is owed and what has been paid.
func (fs *FinanceService) AdminTotals(ctx context.Context) (string, error) {
	sellers, err := fs.store.GetSellers(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Outstanding balances\n\n")
	var totalOwed, totalPaid int64
	for _, seller := range sellers {
		if seller.ID == fs.hubSellerID {
			continue
		}
		debt, err := fs.Debt(ctx, seller.ID)
		if err != nil {
			fs.logger.Error("Failed to compute seller debt",
				zap.Int64("seller_id", seller.ID), zap.Error(err))
			return "", err
		}
		paid, err := fs.store.SumConfirmedPayments(ctx, seller.ID)
		if err != nil {
			fs.logger.Error("Failed to sum seller payments",
				zap.Int64("seller_id", seller.ID), zap.Error(err))
			return "", err
		}
		fmt.Fprintf(&sb, "%s: %d\n", seller.Name, debt)
		totalOwed += debt
		totalPaid += paid
	}
	fmt.Fprintf(&sb, "\nTotal owed: %d\nTotal paid: %d", totalOwed, totalPaid)
	return sb.String(), nil
}
