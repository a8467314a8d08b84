package service

import (
	"context"
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

// PurchaseStore is the store access the restock workflow needs.
type PurchaseStore interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase, items []models.PurchaseItem, adjustments []models.StockAdjustment) error
	GetPurchases(ctx context.Context, limit int) ([]models.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*models.Purchase, []models.PurchaseItem, error)
}

// PurchaseService implements admin restocking: the admin composes a multi-line
// purchase at acquisition prices, and confirming it increases hub stock.
type PurchaseService struct {
	store        PurchaseStore
	sessions     session.Store[PurchaseSession]
	publisher    Publisher
	hubSellerID  int64
	adminChatID  int64
	historyLimit int
	logger       *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(
	store PurchaseStore,
	sessions session.Store[PurchaseSession],
	publisher Publisher,
	hubSellerID, adminChatID int64,
	historyLimit int,
) *PurchaseService {
	return &PurchaseService{
		store:        store,
		sessions:     sessions,
		publisher:    publisher,
		hubSellerID:  hubSellerID,
		adminChatID:  adminChatID,
		historyLimit: historyLimit,
		logger:       util.GetLogger(),
	}
}

// Menu shows the restock entry points. Admin only, like every purchase
// operation.
func (ps *PurchaseService) Menu(ctx context.Context, chatID int64) (*Reply, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}
	return &Reply{
		Text: "Restocking",
		Buttons: [][]Button{{
			button("New purchase", command.NewPurchase{}),
			button("History", command.PurchaseHistory{}),
		}},
	}, nil
}

// History lists recent purchases, newest first.
func (ps *PurchaseService) History(ctx context.Context, chatID int64) (*Reply, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}

	purchases, err := ps.store.GetPurchases(ctx, ps.historyLimit)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return textReply("No purchases recorded yet."), nil
	}

	buttons := make([]Button, 0, len(purchases))
	for _, p := range purchases {
		label := fmt.Sprintf("#%d %s – %d", p.ID, p.PurchaseDate.Format("2006-01-02"), p.Total)
		buttons = append(buttons, button(label, command.PurchaseView{PurchaseID: p.ID}))
	}
	return &Reply{Text: "Recent purchases:", Buttons: buttonGrid(buttons, 1)}, nil
}

// View renders one recorded purchase with its line items.
func (ps *PurchaseService) View(ctx context.Context, chatID, purchaseID int64) (*Reply, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}

	purchase, items, err := ps.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	names, err := ps.productNames(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Purchase #%d (%s)\n\n", purchase.ID, purchase.PurchaseDate.Format("2006-01-02"))
	for _, item := range items {
		name, ok := names[item.ProductID]
		if !ok {
			name = fmt.Sprintf("product %d", item.ProductID)
		}
		fmt.Fprintf(&sb, "- %s: %d x %d = %d\n", name, item.Quantity, item.PricePerUnit, item.Quantity*item.PricePerUnit)
	}
	fmt.Fprintf(&sb, "\nTotal: %d", purchase.Total)
	return textReply(sb.String()), nil
}

// StartNew opens a purchase session, or resumes one already in progress so
// previously entered lines are kept.
func (ps *PurchaseService) StartNew(ctx context.Context, chatID int64) (*Reply, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}

	sess, ok, err := ps.sessions.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		sess = PurchaseSession{ChatID: chatID}
	}
	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.PendingPrice = 0
	sess.State = StateSelectingProduct
	if err := ps.sessions.Put(ctx, chatID, sess); err != nil {
		return nil, fmt.Errorf("failed to open purchase session: %w", err)
	}

	return ps.productPicker(ctx, &sess)
}

// SelectProduct suspends the session awaiting a quantity. A product without
// a configured acquisition price cannot be restocked through the bot.
func (ps *PurchaseService) SelectProduct(ctx context.Context, chatID, productID int64) (*Reply, error) {
	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}

	product, err := ps.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.PurchasePrice == nil {
		return textReply(fmt.Sprintf("%s has no acquisition price configured. Pick another product.", product.Name)), nil
	}

	sess.PendingProduct = productID
	sess.PendingPrice = *product.PurchasePrice
	sess.State = StateEnteringQuantity
	if err := ps.sessions.Put(ctx, chatID, *sess); err != nil {
		return nil, err
	}

	return textReply(fmt.Sprintf("How many units of %s at %d each?", product.Name, sess.PendingPrice)), nil
}

// HandleText resumes a purchase session suspended on quantity input. Returns
// handled=false when the chat has no such session.
func (ps *PurchaseService) HandleText(ctx context.Context, chatID int64, text string) (*Reply, bool, error) {
	sess, ok, err := ps.sessions.Get(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if !ok || sess.State != StateEnteringQuantity {
		return nil, false, nil
	}

	qty, parseErr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if parseErr != nil || qty <= 0 {
		return textReply("Enter a positive whole number of units."), true, nil
	}

	sess.PendingQty = qty
	sess.State = StateConfirmingItem
	if err := ps.sessions.Put(ctx, chatID, sess); err != nil {
		return nil, true, err
	}

	name, err := ps.productName(ctx, sess.PendingProduct)
	if err != nil {
		return nil, true, err
	}

	return &Reply{
		Text: fmt.Sprintf("%s: %d x %d = %d. Correct?", name, qty, sess.PendingPrice, qty*sess.PendingPrice),
		Buttons: [][]Button{{
			button("Confirm", command.PurchaseConfirmItem{ProductID: sess.PendingProduct}),
			button("Change", command.PurchaseChangeItem{ProductID: sess.PendingProduct}),
			button("Cancel", command.PurchaseCancelItem{}),
		}},
	}, true, nil
}

// ConfirmItem records the pending line and returns to the picker. A repeated
// product replaces its earlier line.
func (ps *PurchaseService) ConfirmItem(ctx context.Context, chatID, productID int64) (*Reply, error) {
	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess.State != StateConfirmingItem || sess.PendingProduct != productID {
		return nil, fmt.Errorf("purchase flow: %w", models.ErrSessionExpired)
	}

	line := PurchaseLine{
		ProductID:    productID,
		Quantity:     sess.PendingQty,
		PricePerUnit: sess.PendingPrice,
	}
	replaced := false
	for i := range sess.Lines {
		if sess.Lines[i].ProductID == productID {
			sess.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		sess.Lines = append(sess.Lines, line)
	}

	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.PendingPrice = 0
	sess.State = StateSelectingProduct
	if err := ps.sessions.Put(ctx, chatID, *sess); err != nil {
		return nil, err
	}

	return ps.productPicker(ctx, sess)
}

// ChangeItem re-asks for the quantity of the pending line.
func (ps *PurchaseService) ChangeItem(ctx context.Context, chatID, productID int64) (*Reply, error) {
	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}

	product, err := ps.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.PurchasePrice == nil {
		return textReply(fmt.Sprintf("%s has no acquisition price configured.", product.Name)), nil
	}

	sess.PendingProduct = productID
	sess.PendingPrice = *product.PurchasePrice
	sess.PendingQty = 0
	sess.State = StateEnteringQuantity
	if err := ps.sessions.Put(ctx, chatID, *sess); err != nil {
		return nil, err
	}

	return textReply(fmt.Sprintf("How many units of %s at %d each?", product.Name, sess.PendingPrice)), nil
}

// CancelItem discards the pending line and returns to the picker.
func (ps *PurchaseService) CancelItem(ctx context.Context, chatID int64) (*Reply, error) {
	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}

	sess.PendingProduct = 0
	sess.PendingQty = 0
	sess.PendingPrice = 0
	sess.State = StateSelectingProduct
	if err := ps.sessions.Put(ctx, chatID, *sess); err != nil {
		return nil, err
	}

	return ps.productPicker(ctx, sess)
}

// Finish shows the review with the computed total.
func (ps *PurchaseService) Finish(ctx context.Context, chatID int64) (*Reply, error) {
	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if len(sess.Lines) == 0 {
		return &Reply{
			Text: "No items added yet. Pick a product first or abort.",
			Buttons: [][]Button{{
				button("Abort", command.PurchaseAbort{}),
			}},
		}, nil
	}

	summary, total, err := ps.linesSummary(ctx, sess)
	if err != nil {
		return nil, err
	}

	sess.State = StateReview
	if err := ps.sessions.Put(ctx, chatID, *sess); err != nil {
		return nil, err
	}

	return &Reply{
		Text: fmt.Sprintf("Purchase review\n\n%s\nTotal: %d\n\nRecord it?", summary, total),
		Buttons: [][]Button{{
			button("Record", command.PurchaseConfirm{}),
			button("Abort", command.PurchaseAbort{}),
		}},
	}, nil
}

// Confirm commits the composed purchase: the rows plus one hub stock increase
// per line, all in one transaction.
func (ps *PurchaseService) Confirm(ctx context.Context, chatID int64) (*Reply, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Confirm")
	defer span.End()

	sess, err := ps.session(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(sess.Lines) == 0 {
		return nil, fmt.Errorf("purchase has no items: %w", models.ErrValidation)
	}

	var total int64
	items := make([]models.PurchaseItem, 0, len(sess.Lines))
	adjustments := make([]models.StockAdjustment, 0, len(sess.Lines))
	for _, line := range sess.Lines {
		total += line.Quantity * line.PricePerUnit
		items = append(items, models.PurchaseItem{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit,
		})
		adjustments = append(adjustments, increaseOf(ps.hubSellerID, line.ProductID, line.Quantity, models.ReasonPurchase, nil))
	}

	purchase := &models.Purchase{
		SellerID: &ps.hubSellerID,
		Total:    total,
	}
	if err := ps.store.CreatePurchase(ctx, purchase, items, adjustments); err != nil {
		return nil, err
	}

	// The session outlives a failed commit so the composed lines survive a
	// retry; it is only dropped after the purchase is stored.
	if err := ps.sessions.Delete(ctx, chatID); err != nil {
		ps.logger.Warn("Failed to delete purchase session",
			zap.Int64("chat_id", chatID), zap.Error(err))
	}

	util.PurchasesRecordedTotal.Inc()
	for range adjustments {
		util.StockAdjustmentsTotal.WithLabelValues(models.ReasonPurchase).Inc()
	}
	ps.logger.Info("Purchase recorded",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("total", total),
		zap.Int("items", len(items)))

	event := &models.PurchaseRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseRecorded,
			Timestamp: time.Now(),
		},
		PurchaseID: purchase.ID,
		Total:      total,
	}
	if err := ps.publisher.PublishPurchaseRecorded(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PurchaseRecorded event", zap.Error(err))
	}

	return textReply(fmt.Sprintf("Purchase #%d recorded, total %d. Warehouse stock updated.", purchase.ID, total)), nil
}

// Abort discards the session with nothing recorded.
func (ps *PurchaseService) Abort(ctx context.Context, chatID int64) (*Reply, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}
	if err := ps.sessions.Delete(ctx, chatID); err != nil {
		return nil, err
	}
	return textReply("Purchase discarded."), nil
}

func (ps *PurchaseService) authorize(chatID int64) error {
	if chatID != ps.adminChatID {
		return fmt.Errorf("purchases: %w", models.ErrUnauthorized)
	}
	return nil
}

func (ps *PurchaseService) session(ctx context.Context, chatID int64) (*PurchaseSession, error) {
	if err := ps.authorize(chatID); err != nil {
		return nil, err
	}
	sess, ok, err := ps.sessions.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		util.SessionsExpiredTotal.WithLabelValues("purchase").Inc()
		return nil, fmt.Errorf("purchase flow: %w", models.ErrSessionExpired)
	}
	return &sess, nil
}

func (ps *PurchaseService) productPicker(ctx context.Context, sess *PurchaseSession) (*Reply, error) {
	products, err := ps.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	buttons := make([]Button, 0, len(products))
	for _, p := range products {
		buttons = append(buttons, button(p.Name, command.PurchaseProduct{ProductID: p.ID}))
	}
	rows := buttonGrid(buttons, 2)
	rows = append(rows, []Button{button("Finish", command.PurchaseFinish{})})

	text := "New purchase\n\n"
	if len(sess.Lines) > 0 {
		summary, total, err := ps.linesSummary(ctx, sess)
		if err != nil {
			return nil, err
		}
		text += fmt.Sprintf("Added so far:\n%sTotal: %d\n\n", summary, total)
	}
	text += "Pick a product to add:"

	return &Reply{Text: text, Buttons: rows}, nil
}

func (ps *PurchaseService) linesSummary(ctx context.Context, sess *PurchaseSession) (string, int64, error) {
	names, err := ps.productNames(ctx)
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	var total int64
	for _, line := range sess.Lines {
		name, ok := names[line.ProductID]
		if !ok {
			name = fmt.Sprintf("product %d", line.ProductID)
		}
		cost := line.Quantity * line.PricePerUnit
		fmt.Fprintf(&sb, "- %s: %d x %d = %d\n", name, line.Quantity, line.PricePerUnit, cost)
		total += cost
	}
	return sb.String(), total, nil
}

func (ps *PurchaseService) productName(ctx context.Context, productID int64) (string, error) {
	names, err := ps.productNames(ctx)
	if err != nil {
		return "", err
	}
	if name, ok := names[productID]; ok {
		return name, nil
	}
	return fmt.Sprintf("product %d", productID), nil
}

func (ps *PurchaseService) productNames(ctx context.Context) (map[int64]string, error) {
	products, err := ps.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
