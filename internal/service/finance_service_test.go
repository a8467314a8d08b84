package service

import (
	"context"
	"testing"

	"stock-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prices from the fixture: Face Cream 500/400, Hand Soap 200/150.

func processedOrder(f *fakeStore, id int64, number string, seller int64, items map[int64]int) {
	f.addOrder(id, number, seller, items)
	f.orders[id].StockProcessed = true
}

func confirmedPayment(seller, amount int64, confirmed *int64) *models.SellerPayment {
	p := &models.SellerPayment{SellerID: seller, Amount: amount, Status: models.PaymentStatusPending}
	if confirmed != nil {
		p.Status = models.PaymentStatusConfirmed
		p.ConfirmedAmount = confirmed
	}
	return p
}

func TestDebtUsesWholesaleForOrdinarySellers(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3, soapID: 2})
	fs := NewFinanceService(f, hubID)

	debt, err := fs.Debt(context.Background(), sellerID)
	require.NoError(t, err)
	// 3*400 + 2*150
	assert.Equal(t, int64(1500), debt)
}

func TestDebtUsesBuyerPriceForHub(t *testing.T) {
	f := seededStore()
	// identical order history for both parties
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	processedOrder(f, 11, "B100", hubID, map[int64]int{creamID: 3})
	fs := NewFinanceService(f, hubID)
	ctx := context.Background()

	sellerDebt, err := fs.Debt(ctx, sellerID)
	require.NoError(t, err)
	hubDebt, err := fs.Debt(ctx, hubID)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), sellerDebt)
	assert.Equal(t, int64(1500), hubDebt)
	assert.NotEqual(t, sellerDebt, hubDebt)
}

func TestDebtIgnoresUnprocessedOrders(t *testing.T) {
	f := seededStore()
	f.addOrder(10, "A100", sellerID, map[int64]int{creamID: 3})
	fs := NewFinanceService(f, hubID)

	debt, err := fs.Debt(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Zero(t, debt)
}

func TestConfirmedPaymentsReduceDebt(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	confirmed := int64(700)
	f.payments[1] = confirmedPayment(sellerID, 700, &confirmed)
	fs := NewFinanceService(f, hubID)

	debt, err := fs.Debt(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), debt)
}

func TestPendingPaymentsDoNotReduceDebt(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	f.payments[1] = confirmedPayment(sellerID, 700, nil)
	fs := NewFinanceService(f, hubID)

	debt, err := fs.Debt(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), debt)
}

func TestProfitIsRetailMinusWholesale(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3, soapID: 2})
	fs := NewFinanceService(f, hubID)

	profit, err := fs.Profit(context.Background(), sellerID)
	require.NoError(t, err)
	// 3*(500-400) + 2*(200-150)
	assert.Equal(t, int64(400), profit)
}

func TestAdminTotalsSkipHub(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 1})
	processedOrder(f, 11, "B100", hubID, map[int64]int{creamID: 1})
	fs := NewFinanceService(f, hubID)

	text, err := fs.AdminTotals(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Dana: 400")
	assert.Contains(t, text, "Total owed: 400")
	assert.NotContains(t, text, "Warehouse")
}

func TestAdminTotalsReportPaidAggregate(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	confirmed := int64(700)
	f.payments[1] = confirmedPayment(sellerID, 700, &confirmed)
	fs := NewFinanceService(f, hubID)

	text, err := fs.AdminTotals(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Dana: 500")
	assert.Contains(t, text, "Total owed: 500")
	assert.Contains(t, text, "Total paid: 700")
}
