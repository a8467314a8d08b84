package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock-assistant/internal/command"
	"stock-assistant/internal/models"
	"stock-assistant/internal/session"
	"stock-assistant/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileStore is the store access the reconciliation state machine needs.
type ReconcileStore interface {
	GetSellerByTelegramID(ctx context.Context, telegramID int64) (*models.Seller, error)
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetPendingOrders(ctx context.Context, sellerID int64) ([]models.Order, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	FinalizeOrder(ctx context.Context, orderID int64, adjustments []models.StockAdjustment) error
}

// ReconcileService drives the order reconciliation state machine: a seller
// either confirms an order's original quantities or edits them per product in
// a multi-step session, ending in exactly one finalize transaction.
type ReconcileService struct {
	store     ReconcileStore
	sessions  session.Store[EditSession]
	stock     *StockService
	notifier  Notifier
	publisher Publisher
	logger    *zap.Logger
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(
	store ReconcileStore,
	sessions session.Store[EditSession],
	stock *StockService,
	notifier Notifier,
	publisher Publisher,
) *ReconcileService {
	return &ReconcileService{
		store:     store,
		sessions:  sessions,
		stock:     stock,
		notifier:  notifier,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// loadOrderForSeller runs the finalize guards in their required order:
// not-found, then not-yours, then already-processed.
func (rs *ReconcileService) loadOrderForSeller(ctx context.Context, userID int64, orderNumber string) (*models.Order, *models.Seller, error) {
	order, err := rs.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, nil, err
	}

	seller, err := rs.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrUnauthorized)
		}
		return nil, nil, err
	}
	if order.SellerID != seller.ID {
		return nil, nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrUnauthorized)
	}

	if order.StockProcessed {
		return nil, nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrAlreadyProcessed)
	}

	return order, seller, nil
}

// PromptOrderCompleted surfaces a freshly completed order to its owning
// seller with Confirm/Edit actions. Called from the shop webhook and the
// Kafka consumer; already-processed orders are skipped.
func (rs *ReconcileService) PromptOrderCompleted(ctx context.Context, orderNumber string) error {
	ctx, span := util.StartSpan(ctx, "ReconcileService.PromptOrderCompleted")
	defer span.End()

	order, err := rs.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.StockProcessed {
		return fmt.Errorf("order %s: %w", orderNumber, models.ErrAlreadyProcessed)
	}

	seller, err := rs.store.GetSellerByID(ctx, order.SellerID)
	if err != nil {
		return err
	}

	itemsText, err := rs.itemsText(ctx, order.ID)
	if err != nil {
		return err
	}

	reply := Reply{
		Text: fmt.Sprintf("Order %s completed!\n\n%s\nRecord the sale:", orderNumber, itemsText),
		Buttons: [][]Button{{
			button("Confirm", command.ConfirmOrder{OrderNumber: orderNumber}),
			button("Edit", command.EditOrder{OrderNumber: orderNumber}),
		}},
	}
	if err := rs.notifier.Send(ctx, seller.TelegramID, reply); err != nil {
		return fmt.Errorf("failed to notify seller: %w", err)
	}

	rs.logger.Info("Order prompt sent",
		zap.String("order_number", orderNumber),
		zap.Int64("seller_id", seller.ID))
	return nil
}

// Confirm is the direct-confirm path: every original line item is decreased
// as sold and the order is marked processed, all in one transaction.
func (rs *ReconcileService) Confirm(ctx context.Context, userID, chatID int64, orderNumber string) (*Reply, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.Confirm")
	defer span.End()

	order, seller, err := rs.loadOrderForSeller(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	items, err := rs.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	quantities := make(map[int64]int64, len(items))
	for _, item := range items {
		quantities[item.ProductID] = int64(item.Quantity)
	}

	if err := rs.finalize(ctx, order, seller, chatID, quantities, "direct"); err != nil {
		return nil, err
	}

	return textReply(fmt.Sprintf("Order %s processed.", orderNumber)), nil
}

// StartEdit opens an edit session recording the order's original items and
// shows the product picker.
func (rs *ReconcileService) StartEdit(ctx context.Context, userID, chatID int64, orderNumber string) (*Reply, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.StartEdit")
	defer span.End()

	order, seller, err := rs.loadOrderForSeller(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	items, err := rs.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	sess := EditSession{
		OrderNumber:   orderNumber,
		SellerID:      seller.ID,
		ChatID:        chatID,
		OriginalItems: make(map[int64]int64, len(items)),
		SelectedItems: make(map[int64]int64),
		State:         StateSelectingProduct,
	}
	for _, item := range items {
		sess.OriginalItems[item.ProductID] = int64(item.Quantity)
	}

	if err := rs.sessions.Put(ctx, userID, sess); err != nil {
		return nil, fmt.Errorf("failed to open edit session: %w", err)
	}

	rs.logger.Info("Edit session opened",
		zap.Int64("user_id", userID),
		zap.String("order_number", orderNumber))

	return rs.productPicker(ctx, &sess)
}

// SelectProduct suspends the session awaiting a quantity for one product.
func (rs *ReconcileService) SelectProduct(ctx context.Context, userID int64, orderNumber string, productID int64) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	sess.PendingProduct = productID
	sess.State = StateEnteringQuantity
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	name, err := rs.productName(ctx, productID)
	if err != nil {
		return nil, err
	}
	return textReply(fmt.Sprintf("Enter the quantity sold for %s:", name)), nil
}

// HandleText resumes a session suspended on quantity input. Returns
// handled=false when the user has no edit session awaiting text.
func (rs *ReconcileService) HandleText(ctx context.Context, userID int64, text string) (*Reply, bool, error) {
	sess, ok, err := rs.sessions.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok || sess.State != StateEnteringQuantity {
		return nil, false, nil
	}

	qty, parseErr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if parseErr != nil || qty < 0 {
		// invalid input is rejected in place; nothing is recorded and the
		// picker is shown again
		picker, err := rs.productPicker(ctx, &sess)
		if err != nil {
			return nil, true, err
		}
		picker.Text = "Enter a non-negative whole number.\n\n" + picker.Text
		sess.State = StateSelectingProduct
		if err := rs.sessions.Put(ctx, userID, sess); err != nil {
			return nil, true, err
		}
		return picker, true, nil
	}

	sess.PendingQty = qty
	sess.State = StateConfirmingItem
	if err := rs.sessions.Put(ctx, userID, sess); err != nil {
		return nil, true, err
	}

	name, err := rs.productName(ctx, sess.PendingProduct)
	if err != nil {
		return nil, true, err
	}

	return &Reply{
		Text: fmt.Sprintf("Order %s\nYou sold %s – %d, correct?", sess.OrderNumber, name, qty),
		Buttons: [][]Button{{
			button("Confirm", command.ConfirmItem{OrderNumber: sess.OrderNumber, ProductID: sess.PendingProduct}),
			button("Change", command.ChangeItem{OrderNumber: sess.OrderNumber, ProductID: sess.PendingProduct}),
			button("Cancel", command.CancelItem{OrderNumber: sess.OrderNumber}),
		}},
	}, true, nil
}

// ConfirmItem records the pending quantity as the override for its product
// and returns to the picker. Re-selecting a product overwrites its override.
func (rs *ReconcileService) ConfirmItem(ctx context.Context, userID int64, orderNumber string, productID int64) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if sess.State != StateConfirmingItem || sess.PendingProduct != productID {
		return nil, fmt.Errorf("edit flow: %w", models.ErrSessionExpired)
	}

	sess.SelectedItems[productID] = sess.PendingQty
	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.State = StateSelectingProduct
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	return rs.productPicker(ctx, sess)
}

// ChangeItem re-asks for the quantity of the line just entered.
func (rs *ReconcileService) ChangeItem(ctx context.Context, userID int64, orderNumber string, productID int64) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	sess.PendingProduct = productID
	sess.PendingQty = 0
	sess.State = StateEnteringQuantity
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	name, err := rs.productName(ctx, productID)
	if err != nil {
		return nil, err
	}
	return textReply(fmt.Sprintf("Enter the new quantity for %s:", name)), nil
}

// CancelItem discards the pending line and returns to the picker.
func (rs *ReconcileService) CancelItem(ctx context.Context, userID int64, orderNumber string) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.State = StateSelectingProduct
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	return rs.productPicker(ctx, sess)
}

// Finish leaves the edit loop: with no overrides the seller may confirm the
// order unchanged; otherwise a review of the overrides is shown.
func (rs *ReconcileService) Finish(ctx context.Context, userID int64, orderNumber string) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	if len(sess.SelectedItems) == 0 {
		return &Reply{
			Text: fmt.Sprintf("Order %s\n\nYou did not change any items. Confirm the order as is?", orderNumber),
			Buttons: [][]Button{{
				button("Confirm unchanged", command.NoChanges{OrderNumber: orderNumber}),
				button("Cancel", command.CancelEdit{OrderNumber: orderNumber}),
			}},
		}, nil
	}

	summary, err := rs.selectedSummary(ctx, sess)
	if err != nil {
		return nil, err
	}

	sess.State = StateReview
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	return &Reply{
		Text: fmt.Sprintf("Order %s\n\nYou sold:\n%s\nIs everything correct?", orderNumber, summary),
		Buttons: [][]Button{{
			button("Apply", command.ApplyEdit{OrderNumber: orderNumber}),
			button("Edit again", command.RestartEdit{OrderNumber: orderNumber}),
			button("Cancel", command.CancelEdit{OrderNumber: orderNumber}),
		}},
	}, nil
}

// Apply commits the edited reconciliation. The effective quantity for every
// product in the union of original and overridden items is the override when
// present, the original otherwise; each line is decreased once as sold, so
// originals are never double counted.
func (rs *ReconcileService) Apply(ctx context.Context, userID, chatID int64, orderNumber string) (*Reply, error) {
	ctx, span := util.StartSpan(ctx, "ReconcileService.Apply")
	defer span.End()

	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	order, seller, err := rs.loadOrderForSeller(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	quantities := make(map[int64]int64, len(sess.OriginalItems)+len(sess.SelectedItems))
	for productID, qty := range sess.OriginalItems {
		quantities[productID] = qty
	}
	for productID, qty := range sess.SelectedItems {
		quantities[productID] = qty
	}

	if err := rs.finalize(ctx, order, seller, chatID, quantities, "edited"); err != nil {
		return nil, err
	}

	// Drop the session only once the order is committed, so a failed commit
	// leaves the composed edit intact for a retry.
	if err := rs.sessions.Delete(ctx, userID); err != nil {
		rs.logger.Warn("Failed to delete edit session",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	return textReply(fmt.Sprintf("Order %s processed.", orderNumber)), nil
}

// ConfirmNoChanges commits the original quantities from within an edit
// session, behaving exactly like direct confirm.
func (rs *ReconcileService) ConfirmNoChanges(ctx context.Context, userID, chatID int64, orderNumber string) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	order, seller, err := rs.loadOrderForSeller(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	if err := rs.finalize(ctx, order, seller, chatID, sess.OriginalItems, "no_changes"); err != nil {
		return nil, err
	}

	if err := rs.sessions.Delete(ctx, userID); err != nil {
		rs.logger.Warn("Failed to delete edit session",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	return textReply(fmt.Sprintf("Order %s processed without changes.", orderNumber)), nil
}

// Restart clears the overrides and re-enters the edit loop.
func (rs *ReconcileService) Restart(ctx context.Context, userID int64, orderNumber string) (*Reply, error) {
	sess, err := rs.session(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	sess.SelectedItems = make(map[int64]int64)
	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.State = StateSelectingProduct
	if err := rs.sessions.Put(ctx, userID, *sess); err != nil {
		return nil, err
	}

	return rs.productPicker(ctx, sess)
}

// CancelEdit discards the session with no stock mutation.
func (rs *ReconcileService) CancelEdit(ctx context.Context, userID int64, orderNumber string) (*Reply, error) {
	sess, ok, err := rs.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok && sess.OrderNumber == orderNumber {
		if err := rs.sessions.Delete(ctx, userID); err != nil {
			return nil, err
		}
	}
	return textReply("Editing cancelled."), nil
}

// ListPending re-renders the Confirm/Edit prompt for every unprocessed
// completed order of the invoking seller.
func (rs *ReconcileService) ListPending(ctx context.Context, userID int64) ([]Reply, error) {
	seller, err := rs.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	orders, err := rs.store.GetPendingOrders(ctx, seller.ID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []Reply{{Text: "No orders awaiting processing."}}, nil
	}

	replies := make([]Reply, 0, len(orders))
	for _, order := range orders {
		itemsText, err := rs.itemsText(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		replies = append(replies, Reply{
			Text: fmt.Sprintf("Order %s\n\n%s", order.OrderNumber, itemsText),
			Buttons: [][]Button{{
				button("Confirm", command.ConfirmOrder{OrderNumber: order.OrderNumber}),
				button("Edit", command.EditOrder{OrderNumber: order.OrderNumber}),
			}},
		})
	}
	return replies, nil
}

// finalize commits one reconciliation batch: all sale decreases plus the
// stock_processed flip in a single transaction, then the post-commit side
// effects (metrics, event, oversold warning).
func (rs *ReconcileService) finalize(ctx context.Context, order *models.Order, seller *models.Seller, chatID int64, quantities map[int64]int64, mode string) error {
	start := time.Now()
	defer func() {
		util.FinalizeLatency.Observe(time.Since(start).Seconds())
	}()

	adjustments := make([]models.StockAdjustment, 0, len(quantities))
	processed := make([]models.ProcessedItem, 0, len(quantities))
	for productID, qty := range quantities {
		if qty == 0 {
			continue
		}
		adjustments = append(adjustments, decreaseOf(seller.ID, productID, qty, models.ReasonSale, &order.ID))
		processed = append(processed, models.ProcessedItem{ProductID: productID, Quantity: qty})
	}

	if err := rs.store.FinalizeOrder(ctx, order.ID, adjustments); err != nil {
		return err
	}

	util.OrdersReconciledTotal.WithLabelValues(mode).Inc()
	for range adjustments {
		util.StockAdjustmentsTotal.WithLabelValues(models.ReasonSale).Inc()
	}
	rs.logger.Info("Order finalized",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("seller_id", seller.ID),
		zap.String("mode", mode),
		zap.Int("items", len(adjustments)))

	event := &models.OrderProcessedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderProcessed,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SellerID:    seller.ID,
		Items:       processed,
		Edited:      mode == "edited",
	}
	if err := rs.publisher.PublishOrderProcessed(ctx, event); err != nil {
		rs.logger.Error("Failed to publish OrderProcessed event", zap.Error(err))
	}

	warning, err := rs.stock.NegativeStockWarning(ctx, seller.ID)
	if err != nil {
		rs.logger.Error("Failed to check negative stock", zap.Error(err))
		return nil
	}
	if warning != nil {
		if err := rs.notifier.Send(ctx, chatID, *warning); err != nil {
			rs.logger.Error("Failed to send negative stock warning", zap.Error(err))
		}
	}
	return nil
}

// session fetches the caller's edit session and checks it still refers to the
// same order.
func (rs *ReconcileService) session(ctx context.Context, userID int64, orderNumber string) (*EditSession, error) {
	sess, ok, err := rs.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok || sess.OrderNumber != orderNumber {
		util.SessionsExpiredTotal.WithLabelValues("edit").Inc()
		return nil, fmt.Errorf("edit flow: %w", models.ErrSessionExpired)
	}
	return &sess, nil
}

func (rs *ReconcileService) productPicker(ctx context.Context, sess *EditSession) (*Reply, error) {
	products, err := rs.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	buttons := make([]Button, 0, len(products))
	for _, p := range products {
		buttons = append(buttons, button(p.Name, command.SelectProduct{
			OrderNumber: sess.OrderNumber,
			ProductID:   p.ID,
		}))
	}
	rows := buttonGrid(buttons, 2)
	rows = append(rows, []Button{button("Finish", command.FinishEdit{OrderNumber: sess.OrderNumber})})

	text := fmt.Sprintf("Editing order %s\n\n", sess.OrderNumber)
	if len(sess.SelectedItems) > 0 {
		summary, err := rs.selectedSummary(ctx, sess)
		if err != nil {
			return nil, err
		}
		text += "You sold:\n" + summary + "\n"
	}
	text += "Pick a product to set the quantity sold:"

	return &Reply{Text: text, Buttons: rows}, nil
}

func (rs *ReconcileService) selectedSummary(ctx context.Context, sess *EditSession) (string, error) {
	names, err := rs.productNames(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for productID, qty := range sess.SelectedItems {
		name, ok := names[productID]
		if !ok {
			name = fmt.Sprintf("product %d", productID)
		}
		fmt.Fprintf(&sb, "- %s: %d\n", name, qty)
	}
	return sb.String(), nil
}

func (rs *ReconcileService) itemsText(ctx context.Context, orderID int64) (string, error) {
	items, err := rs.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return "", err
	}
	names, err := rs.productNames(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range items {
		name, ok := names[item.ProductID]
		if !ok {
			name = fmt.Sprintf("product %d", item.ProductID)
		}
		fmt.Fprintf(&sb, "- %s: %d\n", name, item.Quantity)
	}
	return sb.String(), nil
}

func (rs *ReconcileService) productName(ctx context.Context, productID int64) (string, error) {
	names, err := rs.productNames(ctx)
	if err != nil {
		return "", err
	}
	if name, ok := names[productID]; ok {
		return name, nil
	}
	return fmt.Sprintf("product %d", productID), nil
}

func (rs *ReconcileService) productNames(ctx context.Context) (map[int64]string, error) {
	products, err := rs.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
