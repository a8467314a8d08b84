package service

import (
	"context"
	"testing"
	"time"

	"stock-assistant/internal/models"
	"stock-assistant/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentFixture(t *testing.T, f *fakeStore) (*PaymentService, *fakeNotifier, *fakePublisher) {
	t.Helper()
	sessions := session.NewMemory[PaymentSession](time.Minute)
	t.Cleanup(sessions.Close)
	notifier := newFakeNotifier()
	publisher := &fakePublisher{}
	finance := NewFinanceService(f, hubID)
	return NewPaymentService(f, sessions, finance, notifier, publisher, adminChatID), notifier, publisher
}

func reportPayment(t *testing.T, ps *PaymentService, f *fakeStore, amount string) *models.SellerPayment {
	t.Helper()
	ctx := context.Background()

	_, err := ps.StartPayment(ctx, sellerTgID, sellerChat)
	require.NoError(t, err)
	_, handled, err := ps.HandleText(ctx, sellerTgID, amount)
	require.NoError(t, err)
	require.True(t, handled)

	pending, err := f.GetPendingPayments(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	return &pending[0]
}

func TestAccountSummaryShowsDebtAndProfit(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 2})
	ps, _, _ := newPaymentFixture(t, f)

	reply, err := ps.AccountSummary(context.Background(), sellerTgID)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Owed: 800")
	assert.Contains(t, reply.Text, "profit: 200")
	require.Len(t, reply.Buttons, 1)
}

func TestReportedPaymentPromptsAdmin(t *testing.T) {
	f := seededStore()
	ps, notifier, _ := newPaymentFixture(t, f)

	payment := reportPayment(t, ps, f, "700")
	assert.Equal(t, sellerID, payment.SellerID)
	assert.Equal(t, int64(700), payment.Amount)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	sent := notifier.sentTo(adminChatID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Dana")
	assert.Contains(t, sent[0].Text, "700")
	require.Len(t, sent[0].Buttons, 1)
	require.Len(t, sent[0].Buttons[0], 2)
}

func TestConfirmRecordsStatedAmount(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	ps, notifier, publisher := newPaymentFixture(t, f)
	ctx := context.Background()

	payment := reportPayment(t, ps, f, "700")

	_, err := ps.Confirm(ctx, adminChatID, payment.ID)
	require.NoError(t, err)

	stored, err := f.GetPaymentRequest(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAmount)
	assert.Equal(t, int64(700), *stored.ConfirmedAmount)

	// seller learns the recomputed balance: 3*400 - 700
	sent := notifier.sentTo(sellerTgID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "owe 500")
	assert.Equal(t, []string{models.EventTypePaymentConfirmed}, publisher.events)
}

func TestEditConfirmsCorrectedAmount(t *testing.T) {
	f := seededStore()
	processedOrder(f, 10, "A100", sellerID, map[int64]int{creamID: 3})
	ps, _, _ := newPaymentFixture(t, f)
	ctx := context.Background()

	payment := reportPayment(t, ps, f, "700")

	reply, err := ps.Edit(ctx, adminChatID, payment.ID)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "700")

	_, handled, err := ps.HandleText(ctx, adminChatID, "650")
	require.NoError(t, err)
	require.True(t, handled)

	stored, err := f.GetPaymentRequest(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ConfirmedAmount)
	assert.Equal(t, int64(650), *stored.ConfirmedAmount)
}

func TestConfirmIsTerminal(t *testing.T) {
	f := seededStore()
	ps, _, _ := newPaymentFixture(t, f)
	ctx := context.Background()

	payment := reportPayment(t, ps, f, "700")
	_, err := ps.Confirm(ctx, adminChatID, payment.ID)
	require.NoError(t, err)

	_, err = ps.Confirm(ctx, adminChatID, payment.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
	_, err = ps.Edit(ctx, adminChatID, payment.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyProcessed)
}

func TestOnlyAdminMayResolvePayments(t *testing.T) {
	f := seededStore()
	ps, _, _ := newPaymentFixture(t, f)
	ctx := context.Background()

	payment := reportPayment(t, ps, f, "700")

	_, err := ps.Confirm(ctx, sellerChat, payment.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = ps.Edit(ctx, sellerChat, payment.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = ps.ListPending(ctx, sellerChat)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPaymentRejectsNonPositiveAmount(t *testing.T) {
	f := seededStore()
	ps, _, _ := newPaymentFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartPayment(ctx, sellerTgID, sellerChat)
	require.NoError(t, err)

	for _, input := range []string{"0", "-50", "lots"} {
		reply, handled, err := ps.HandleText(ctx, sellerTgID, input)
		require.NoError(t, err)
		require.True(t, handled)
		assert.Contains(t, reply.Text, "positive")
	}

	pending, err := f.GetPendingPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListPendingPayments(t *testing.T) {
	f := seededStore()
	ps, _, _ := newPaymentFixture(t, f)
	ctx := context.Background()

	reportPayment(t, ps, f, "700")

	replies, err := ps.ListPending(ctx, adminChatID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Dana")
}
