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

// PaymentStore is the store access the payment confirmation workflow needs.
type PaymentStore interface {
	GetSellerByTelegramID(ctx context.Context, telegramID int64) (*models.Seller, error)
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	CreatePaymentRequest(ctx context.Context, payment *models.SellerPayment) error
	GetPaymentRequest(ctx context.Context, id int64) (*models.SellerPayment, error)
	GetPendingPayments(ctx context.Context) ([]models.SellerPayment, error)
	ConfirmPayment(ctx context.Context, id, confirmedAmount int64) error
}

// PaymentService implements payout confirmation: a seller states an amount
// paid, the admin confirms it as stated or corrects it, and only the
// confirmed amount reduces debt.
type PaymentService struct {
	store       PaymentStore
	sessions    session.Store[PaymentSession]
	finance     *FinanceService
	notifier    Notifier
	publisher   Publisher
	adminChatID int64
	logger      *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store PaymentStore,
	sessions session.Store[PaymentSession],
	finance *FinanceService,
	notifier Notifier,
	publisher Publisher,
	adminChatID int64,
) *PaymentService {
	return &PaymentService{
		store:       store,
		sessions:    sessions,
		finance:     finance,
		notifier:    notifier,
		publisher:   publisher,
		adminChatID: adminChatID,
		logger:      util.GetLogger(),
	}
}

// AccountSummary shows the caller's debt and profit with a button to report
// a payment.
func (ps *PaymentService) AccountSummary(ctx context.Context, userID int64) (*Reply, error) {
	seller, err := ps.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	text, err := ps.finance.SellerSummary(ctx, seller.ID)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Text: text,
		Buttons: [][]Button{{
			button("I made a payment", command.MakePayment{}),
		}},
	}, nil
}

// StartPayment suspends the seller on amount input.
func (ps *PaymentService) StartPayment(ctx context.Context, userID, chatID int64) (*Reply, error) {
	seller, err := ps.store.GetSellerByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := PaymentSession{
		SellerID: seller.ID,
		ChatID:   chatID,
		State:    StateAwaitingAmount,
	}
	if err := ps.sessions.Put(ctx, userID, sess); err != nil {
		return nil, fmt.Errorf("failed to open payment session: %w", err)
	}

	return textReply("Enter the amount you paid:"), nil
}

// HandleText resumes a payment session suspended on amount input. A seller's
// amount creates a pending request and prompts the admin; an admin's amount
// is a correction that confirms an existing request at the corrected figure.
// Returns handled=false when the user has no such session.
func (ps *PaymentService) HandleText(ctx context.Context, userID int64, text string) (*Reply, bool, error) {
	sess, ok, err := ps.sessions.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	amount, parseErr := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if parseErr != nil || amount <= 0 {
		return textReply("Enter a positive whole amount."), true, nil
	}

	switch sess.State {
	case StateAwaitingAmount:
		reply, err := ps.submitAmount(ctx, userID, &sess, amount)
		return reply, true, err
	case StateCorrectingPayment:
		reply, err := ps.correctAmount(ctx, userID, &sess, amount)
		return reply, true, err
	default:
		return nil, false, nil
	}
}

func (ps *PaymentService) submitAmount(ctx context.Context, userID int64, sess *PaymentSession, amount int64) (*Reply, error) {
	payment := &models.SellerPayment{
		SellerID: sess.SellerID,
		Amount:   amount,
		Status:   models.PaymentStatusPending,
	}
	if err := ps.store.CreatePaymentRequest(ctx, payment); err != nil {
		return nil, err
	}
	if err := ps.sessions.Delete(ctx, userID); err != nil {
		return nil, err
	}

	util.PaymentsRequestedTotal.Inc()
	ps.logger.Info("Payment reported",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("seller_id", payment.SellerID),
		zap.Int64("amount", amount))

	if err := ps.notifyAdmin(ctx, payment); err != nil {
		ps.logger.Error("Failed to notify admin about payment", zap.Error(err))
	}

	return textReply("Payment reported. It will reduce your balance once confirmed."), nil
}

func (ps *PaymentService) correctAmount(ctx context.Context, userID int64, sess *PaymentSession, amount int64) (*Reply, error) {
	if err := ps.sessions.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return ps.confirm(ctx, sess.PaymentID, amount)
}

// Confirm records the payment at the amount the seller stated. Admin only.
func (ps *PaymentService) Confirm(ctx context.Context, chatID, paymentID int64) (*Reply, error) {
	if chatID != ps.adminChatID {
		return nil, fmt.Errorf("payment %d: %w", paymentID, models.ErrUnauthorized)
	}

	payment, err := ps.store.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return ps.confirm(ctx, paymentID, payment.Amount)
}

// Edit suspends the admin on a corrected amount for a pending payment.
func (ps *PaymentService) Edit(ctx context.Context, chatID, paymentID int64) (*Reply, error) {
	if chatID != ps.adminChatID {
		return nil, fmt.Errorf("payment %d: %w", paymentID, models.ErrUnauthorized)
	}

	payment, err := ps.store.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("payment %d: %w", paymentID, models.ErrAlreadyProcessed)
	}

	sess := PaymentSession{
		SellerID:  payment.SellerID,
		ChatID:    chatID,
		PaymentID: paymentID,
		State:     StateCorrectingPayment,
	}
	if err := ps.sessions.Put(ctx, chatID, sess); err != nil {
		return nil, err
	}

	return textReply(fmt.Sprintf("Payment #%d: stated %d. Enter the actual amount:", paymentID, payment.Amount)), nil
}

// ListPending re-renders the Confirm/Edit prompt for every payment awaiting
// the admin's decision.
func (ps *PaymentService) ListPending(ctx context.Context, chatID int64) ([]Reply, error) {
	if chatID != ps.adminChatID {
		return nil, fmt.Errorf("pending payments: %w", models.ErrUnauthorized)
	}

	payments, err := ps.store.GetPendingPayments(ctx)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return []Reply{{Text: "No payments awaiting confirmation."}}, nil
	}

	replies := make([]Reply, 0, len(payments))
	for i := range payments {
		reply, err := ps.reviewPrompt(ctx, &payments[i])
		if err != nil {
			return nil, err
		}
		replies = append(replies, *reply)
	}
	return replies, nil
}

// confirm flips the payment to confirmed at the given amount and notifies
// the seller with the recomputed balance. A second confirmation attempt
// fails without touching the recorded amount.
func (ps *PaymentService) confirm(ctx context.Context, paymentID, confirmedAmount int64) (*Reply, error) {
	payment, err := ps.store.GetPaymentRequest(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := ps.store.ConfirmPayment(ctx, paymentID, confirmedAmount); err != nil {
		return nil, err
	}

	util.PaymentsConfirmedTotal.Inc()
	ps.logger.Info("Payment confirmed",
		zap.Int64("payment_id", paymentID),
		zap.Int64("seller_id", payment.SellerID),
		zap.Int64("confirmed_amount", confirmedAmount))

	event := &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now(),
		},
		PaymentID:       paymentID,
		SellerID:        payment.SellerID,
		ConfirmedAmount: confirmedAmount,
	}
	if err := ps.publisher.PublishPaymentConfirmed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentConfirmed event", zap.Error(err))
	}

	ps.notifySeller(ctx, payment.SellerID, confirmedAmount)

	return textReply(fmt.Sprintf("Payment #%d confirmed at %d.", paymentID, confirmedAmount)), nil
}

func (ps *PaymentService) notifyAdmin(ctx context.Context, payment *models.SellerPayment) error {
	reply, err := ps.reviewPrompt(ctx, payment)
	if err != nil {
		return err
	}
	return ps.notifier.Send(ctx, ps.adminChatID, *reply)
}

func (ps *PaymentService) reviewPrompt(ctx context.Context, payment *models.SellerPayment) (*Reply, error) {
	seller, err := ps.store.GetSellerByID(ctx, payment.SellerID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Text: fmt.Sprintf("Payment #%d\n%s reports paying %d.", payment.ID, seller.Name, payment.Amount),
		Buttons: [][]Button{{
			button("Confirm", command.ConfirmPayment{PaymentID: payment.ID, Amount: payment.Amount}),
			button("Edit amount", command.EditPayment{PaymentID: payment.ID}),
		}},
	}, nil
}

func (ps *PaymentService) notifySeller(ctx context.Context, sellerID, confirmedAmount int64) {
	seller, err := ps.store.GetSellerByID(ctx, sellerID)
	if err != nil {
		ps.logger.Error("Failed to load payment seller", zap.Error(err))
		return
	}
	debt, err := ps.finance.Debt(ctx, sellerID)
	if err != nil {
		ps.logger.Error("Failed to recompute seller debt", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Your payment of %d was confirmed. You now owe %d.", confirmedAmount, debt)
	if err := ps.notifier.Send(ctx, seller.TelegramID, *textReply(text)); err != nil {
		ps.logger.Error("Failed to notify seller about payment", zap.Error(err))
	}
}
