package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-assistant/internal/models"
	"stock-assistant/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchaseFixture(t *testing.T, f *fakeStore) (*PurchaseService, *fakePublisher) {
	t.Helper()
	sessions := session.NewMemory[PurchaseSession](time.Minute)
	t.Cleanup(sessions.Close)
	publisher := &fakePublisher{}
	return NewPurchaseService(f, sessions, publisher, hubID, adminChatID, 10), publisher
}

func addPurchaseLine(t *testing.T, ps *PurchaseService, productID int64, qty string) {
	t.Helper()
	ctx := context.Background()
	_, err := ps.SelectProduct(ctx, adminChatID, productID)
	require.NoError(t, err)
	_, handled, err := ps.HandleText(ctx, adminChatID, qty)
	require.NoError(t, err)
	require.True(t, handled)
	_, err = ps.ConfirmItem(ctx, adminChatID, productID)
	require.NoError(t, err)
}

func TestPurchaseIncreasesHubStock(t *testing.T) {
	f := seededStore()
	f.setStock(hubID, creamID, 2)
	ps, publisher := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")

	reply, err := ps.Finish(ctx, adminChatID)
	require.NoError(t, err)
	// 10 units at the 300 acquisition price
	assert.Contains(t, reply.Text, "Total: 3000")

	_, err = ps.Confirm(ctx, adminChatID)
	require.NoError(t, err)

	qty, _ := f.GetSellerStock(ctx, hubID, creamID)
	assert.Equal(t, int64(12), qty)
	assert.Len(t, f.movementsFor(hubID, creamID, models.ReasonPurchase), 1)
	assert.Equal(t, []string{models.EventTypePurchaseRecorded}, publisher.events)

	purchases, err := f.GetPurchases(ctx, 10)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(3000), purchases[0].Total)
}

func TestPurchaseRejectsProductWithoutAcquisitionPrice(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)

	reply, err := ps.SelectProduct(ctx, adminChatID, soapID)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "no acquisition price")

	// quantity input is not expected, the session is still picking
	_, handled, err := ps.HandleText(ctx, adminChatID, "5")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestFailedRecordKeepsPurchaseSession(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")
	_, err = ps.Finish(ctx, adminChatID)
	require.NoError(t, err)

	f.commitErr = errors.New("connection reset")
	_, err = ps.Confirm(ctx, adminChatID)
	require.Error(t, err)

	// the composed lines survive the failure and the retry records them
	f.commitErr = nil
	_, err = ps.Confirm(ctx, adminChatID)
	require.NoError(t, err)

	qty, _ := f.GetSellerStock(ctx, hubID, creamID)
	assert.Equal(t, int64(10), qty)
	purchases, err := f.GetPurchases(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestStartNewKeepsExistingLines(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")

	// entering the flow again must not wipe the composed lines
	reply, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Face Cream")
	assert.Contains(t, reply.Text, "Total: 3000")
}

func TestRepeatedProductReplacesLine(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")
	addPurchaseLine(t, ps, creamID, "4")

	_, err = ps.Finish(ctx, adminChatID)
	require.NoError(t, err)
	_, err = ps.Confirm(ctx, adminChatID)
	require.NoError(t, err)

	qty, _ := f.GetSellerStock(ctx, hubID, creamID)
	assert.Equal(t, int64(4), qty)
}

func TestAbortDiscardsEverything(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")

	_, err = ps.Abort(ctx, adminChatID)
	require.NoError(t, err)

	qty, _ := f.GetSellerStock(ctx, hubID, creamID)
	assert.Zero(t, qty)
	purchases, err := f.GetPurchases(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, purchases)

	_, err = ps.Finish(ctx, adminChatID)
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestPurchaseIsAdminOnly(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.Menu(ctx, sellerChat)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = ps.StartNew(ctx, sellerChat)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = ps.History(ctx, sellerChat)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestHistoryAndView(t *testing.T) {
	f := seededStore()
	ps, _ := newPurchaseFixture(t, f)
	ctx := context.Background()

	_, err := ps.StartNew(ctx, adminChatID)
	require.NoError(t, err)
	addPurchaseLine(t, ps, creamID, "10")
	_, err = ps.Finish(ctx, adminChatID)
	require.NoError(t, err)
	_, err = ps.Confirm(ctx, adminChatID)
	require.NoError(t, err)

	history, err := ps.History(ctx, adminChatID)
	require.NoError(t, err)
	require.Len(t, history.Buttons, 1)

	purchases, err := f.GetPurchases(ctx, 10)
	require.NoError(t, err)
	view, err := ps.View(ctx, adminChatID, purchases[0].ID)
	require.NoError(t, err)
	assert.Contains(t, view.Text, "Face Cream")
	assert.Contains(t, view.Text, "Total: 3000")
}
