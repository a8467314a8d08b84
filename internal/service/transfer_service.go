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

// TransferStore is the store access the transfer workflow needs.
type TransferStore interface {
	GetSellerByTelegramID(ctx context.Context, telegramID int64) (*models.Seller, error)
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetSellerStock(ctx context.Context, sellerID, productID int64) (int64, error)
	CreateTransferRequest(ctx context.Context, req *models.TransferRequest) error
	GetTransferRequest(ctx context.Context, id int64) (*models.TransferRequest, error)
	GetPendingTransfers(ctx context.Context, fromSellerID int64) ([]models.TransferRequest, error)
	ApproveTransfer(ctx context.Context, id int64, adjustments []models.StockAdjustment) error
	RejectTransfer(ctx context.Context, id int64) error
}

// TransferService implements the hub transfer workflow: any seller requests
// product from the hub, the hub approves or rejects, approval moves stock
// atomically from hub to requester.
type TransferService struct {
	store       TransferStore
	sessions    session.Store[TransferSession]
	notifier    Notifier
	publisher   Publisher
	hubSellerID int64
	logger      *zap.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	store TransferStore,
	sessions session.Store[TransferSession],
	notifier Notifier,
	publisher Publisher,
	hubSellerID int64,
) *TransferService {
	return &TransferService{
		store:       store,
		sessions:    sessions,
		notifier:    notifier,
		publisher:   publisher,
		hubSellerID: hubSellerID,
		logger:      util.GetLogger(),
	}
}

// Start opens a transfer session and shows the product picker.
func (ts *TransferService) Start(ctx context.Context, userID, chatID int64) (*Reply, error) {
	seller, err := ts.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := TransferSession{
		SellerID: seller.ID,
		ChatID:   chatID,
		State:    StateSelectingProduct,
	}
	if err := ts.sessions.Put(ctx, userID, sess); err != nil {
		return nil, fmt.Errorf("failed to open transfer session: %w", err)
	}

	products, err := ts.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	buttons := make([]Button, 0, len(products))
	for _, p := range products {
		buttons = append(buttons, button(p.Name, command.TransferProduct{ProductID: p.ID}))
	}

	return &Reply{
		Text:    "Which product do you need from the warehouse?",
		Buttons: buttonGrid(buttons, 2),
	}, nil
}

// SelectProduct suspends the session awaiting a quantity.
func (ts *TransferService) SelectProduct(ctx context.Context, userID, productID int64) (*Reply, error) {
	sess, ok, err := ts.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		util.SessionsExpiredTotal.WithLabelValues("transfer").Inc()
		return nil, fmt.Errorf("transfer flow: %w", models.ErrSessionExpired)
	}

	sess.ProductID = productID
	sess.State = StateEnteringQuantity
	if err := ts.sessions.Put(ctx, userID, sess); err != nil {
		return nil, err
	}

	product, err := ts.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return textReply(fmt.Sprintf("How many units of %s do you need?", product.Name)), nil
}

// HandleText resumes a transfer session suspended on quantity input. The
// request is created pending and the hub is notified with Approve/Reject
// actions. Returns handled=false when the user has no such session.
func (ts *TransferService) HandleText(ctx context.Context, userID int64, text string) (*Reply, bool, error) {
	sess, ok, err := ts.sessions.Get(ctx, userID)
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

	req := &models.TransferRequest{
		FromSellerID: ts.hubSellerID,
		ToSellerID:   sess.SellerID,
		ProductID:    sess.ProductID,
		Quantity:     qty,
		Status:       models.TransferStatusPending,
	}
	if err := ts.store.CreateTransferRequest(ctx, req); err != nil {
		return nil, true, err
	}
	if err := ts.sessions.Delete(ctx, userID); err != nil {
		return nil, true, err
	}

	util.TransfersRequestedTotal.Inc()
	ts.logger.Info("Transfer requested",
		zap.Int64("request_id", req.ID),
		zap.Int64("to_seller_id", req.ToSellerID),
		zap.Int64("product_id", req.ProductID),
		zap.Int64("quantity", qty))

	if err := ts.notifyHub(ctx, req); err != nil {
		ts.logger.Error("Failed to notify hub about transfer request", zap.Error(err))
	}

	return textReply("Request sent to the warehouse. You will be notified once it is reviewed."), true, nil
}

// Approve resolves a pending request in the requester's favor: stock moves
// from hub to requester in one transaction. Only the hub seller may approve;
// a second resolution attempt fails without mutating stock.
func (ts *TransferService) Approve(ctx context.Context, userID, requestID int64) (*Reply, error) {
	ctx, span := util.StartSpan(ctx, "TransferService.Approve")
	defer span.End()

	req, err := ts.authorizeResolution(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	adjustments := []models.StockAdjustment{
		decreaseOf(req.FromSellerID, req.ProductID, req.Quantity, models.ReasonTransferOut, nil),
		increaseOf(req.ToSellerID, req.ProductID, req.Quantity, models.ReasonTransferIn, nil),
	}
	if err := ts.store.ApproveTransfer(ctx, requestID, adjustments); err != nil {
		return nil, err
	}

	util.TransfersResolvedTotal.WithLabelValues("approved").Inc()
	util.StockAdjustmentsTotal.WithLabelValues(models.ReasonTransferOut).Inc()
	util.StockAdjustmentsTotal.WithLabelValues(models.ReasonTransferIn).Inc()

	// the hub may legitimately go negative; worth an operator's attention
	balance, err := ts.store.GetSellerStock(ctx, req.FromSellerID, req.ProductID)
	if err != nil {
		ts.logger.Error("Failed to read hub balance after transfer", zap.Error(err))
	} else if balance < 0 {
		util.NegativeStockWarningsTotal.Inc()
		ts.logger.Warn("Hub stock negative after transfer",
			zap.Int64("product_id", req.ProductID),
			zap.Int64("balance", balance))
	}

	ts.publishResolved(ctx, req, models.TransferStatusApproved)
	ts.notifyRequester(ctx, req, true)

	product, err := ts.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	return textReply(fmt.Sprintf("Transfer #%d approved: %s x%d issued.", req.ID, product.Name, req.Quantity)), nil
}

// Reject resolves a pending request without moving stock.
func (ts *TransferService) Reject(ctx context.Context, userID, requestID int64) (*Reply, error) {
	req, err := ts.authorizeResolution(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	if err := ts.store.RejectTransfer(ctx, requestID); err != nil {
		return nil, err
	}

	util.TransfersResolvedTotal.WithLabelValues("rejected").Inc()
	ts.publishResolved(ctx, req, models.TransferStatusRejected)
	ts.notifyRequester(ctx, req, false)

	return textReply(fmt.Sprintf("Transfer #%d rejected.", req.ID)), nil
}

// ListPending re-renders the Approve/Reject prompt for every request still
// awaiting the hub's decision.
func (ts *TransferService) ListPending(ctx context.Context, userID int64) ([]Reply, error) {
	seller, err := ts.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if seller.ID != ts.hubSellerID {
		return nil, fmt.Errorf("pending transfers: %w", models.ErrUnauthorized)
	}

	requests, err := ts.store.GetPendingTransfers(ctx, ts.hubSellerID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []Reply{{Text: "No transfer requests awaiting review."}}, nil
	}

	replies := make([]Reply, 0, len(requests))
	for i := range requests {
		reply, err := ts.reviewPrompt(ctx, &requests[i])
		if err != nil {
			return nil, err
		}
		replies = append(replies, *reply)
	}
	return replies, nil
}

// authorizeResolution checks the caller is the hub seller and the request is
// still pending.
func (ts *TransferService) authorizeResolution(ctx context.Context, userID, requestID int64) (*models.TransferRequest, error) {
	seller, err := ts.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if seller.ID != ts.hubSellerID {
		return nil, fmt.Errorf("transfer %d: %w", requestID, models.ErrUnauthorized)
	}

	req, err := ts.store.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.TransferStatusPending {
		return nil, fmt.Errorf("transfer %d: %w", requestID, models.ErrAlreadyProcessed)
	}
	return req, nil
}

func (ts *TransferService) notifyHub(ctx context.Context, req *models.TransferRequest) error {
	hub, err := ts.store.GetSellerByID(ctx, ts.hubSellerID)
	if err != nil {
		return err
	}
	reply, err := ts.reviewPrompt(ctx, req)
	if err != nil {
		return err
	}
	return ts.notifier.Send(ctx, hub.TelegramID, *reply)
}

func (ts *TransferService) reviewPrompt(ctx context.Context, req *models.TransferRequest) (*Reply, error) {
	requester, err := ts.store.GetSellerByID(ctx, req.ToSellerID)
	if err != nil {
		return nil, err
	}
	product, err := ts.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text: fmt.Sprintf("Transfer request #%d\n%s asks for %s x%d.", req.ID, requester.Name, product.Name, req.Quantity),
		Buttons: [][]Button{{
			button("Approve", command.ApproveTransfer{RequestID: req.ID}),
			button("Reject", command.RejectTransfer{RequestID: req.ID}),
		}},
	}, nil
}

func (ts *TransferService) notifyRequester(ctx context.Context, req *models.TransferRequest, approved bool) {
	requester, err := ts.store.GetSellerByID(ctx, req.ToSellerID)
	if err != nil {
		ts.logger.Error("Failed to load transfer requester", zap.Error(err))
		return
	}
	product, err := ts.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		ts.logger.Error("Failed to load transfer product", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Your request for %s x%d was rejected.", product.Name, req.Quantity)
	if approved {
		text = fmt.Sprintf("Your request for %s x%d was approved. The stock is on its way.", product.Name, req.Quantity)
	}
	if err := ts.notifier.Send(ctx, requester.TelegramID, *textReply(text)); err != nil {
		ts.logger.Error("Failed to notify transfer requester", zap.Error(err))
	}
}

func (ts *TransferService) publishResolved(ctx context.Context, req *models.TransferRequest, status string) {
	event := &models.TransferResolvedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTransferResolved,
			Timestamp: time.Now(),
		},
		RequestID:  req.ID,
		ToSellerID: req.ToSellerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Status:     status,
	}
	if err := ts.publisher.PublishTransferResolved(ctx, event); err != nil {
		ts.logger.Error("Failed to publish TransferResolved event", zap.Error(err))
	}
}
