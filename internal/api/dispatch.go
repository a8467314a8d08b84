package api

import (
	"fmt"

	"stock-assistant/internal/command"
	"stock-assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// dispatch decodes a button token and routes the action to its service.
// Seller-scoped actions are keyed by user id, admin-scoped ones by chat id.
func (h *Handler) dispatch(c *gin.Context, userID, chatID int64, token string) ([]service.Reply, error) {
	action, err := command.Parse(token)
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()

	one := func(r *service.Reply, err error) ([]service.Reply, error) {
		if err != nil {
			return nil, err
		}
		return []service.Reply{*r}, nil
	}

	switch a := action.(type) {
	case command.ConfirmOrder:
		return one(h.reconcile.Confirm(ctx, userID, chatID, a.OrderNumber))
	case command.EditOrder:
		return one(h.reconcile.StartEdit(ctx, userID, chatID, a.OrderNumber))
	case command.SelectProduct:
		return one(h.reconcile.SelectProduct(ctx, userID, a.OrderNumber, a.ProductID))
	case command.ConfirmItem:
		return one(h.reconcile.ConfirmItem(ctx, userID, a.OrderNumber, a.ProductID))
	case command.ChangeItem:
		return one(h.reconcile.ChangeItem(ctx, userID, a.OrderNumber, a.ProductID))
	case command.CancelItem:
		return one(h.reconcile.CancelItem(ctx, userID, a.OrderNumber))
	case command.FinishEdit:
		return one(h.reconcile.Finish(ctx, userID, a.OrderNumber))
	case command.ApplyEdit:
		return one(h.reconcile.Apply(ctx, userID, chatID, a.OrderNumber))
	case command.NoChanges:
		return one(h.reconcile.ConfirmNoChanges(ctx, userID, chatID, a.OrderNumber))
	case command.RestartEdit:
		return one(h.reconcile.Restart(ctx, userID, a.OrderNumber))
	case command.CancelEdit:
		return one(h.reconcile.CancelEdit(ctx, userID, a.OrderNumber))
	case command.ListPending:
		return h.reconcile.ListPending(ctx, userID)

	case command.NewTransfer:
		return one(h.transfer.Start(ctx, userID, chatID))
	case command.TransferProduct:
		return one(h.transfer.SelectProduct(ctx, userID, a.ProductID))
	case command.ApproveTransfer:
		return one(h.transfer.Approve(ctx, userID, a.RequestID))
	case command.RejectTransfer:
		return one(h.transfer.Reject(ctx, userID, a.RequestID))

	case command.AccountSummary:
		return one(h.payment.AccountSummary(ctx, userID))
	case command.MakePayment:
		return one(h.payment.StartPayment(ctx, userID, chatID))
	case command.ConfirmPayment:
		return one(h.payment.Confirm(ctx, chatID, a.PaymentID))
	case command.EditPayment:
		return one(h.payment.Edit(ctx, chatID, a.PaymentID))
	case command.AdminPayments:
		return h.payment.ListPending(ctx, chatID)
	case command.AdminBalances:
		text, err := h.finance.AdminTotals(ctx)
		if err != nil {
			return nil, err
		}
		return []service.Reply{{Text: text}}, nil

	case command.PurchaseMenu:
		return one(h.purchase.Menu(ctx, chatID))
	case command.PurchaseHistory:
		return one(h.purchase.History(ctx, chatID))
	case command.PurchaseView:
		return one(h.purchase.View(ctx, chatID, a.PurchaseID))
	case command.NewPurchase:
		return one(h.purchase.StartNew(ctx, chatID))
	case command.PurchaseProduct:
		return one(h.purchase.SelectProduct(ctx, chatID, a.ProductID))
	case command.PurchaseConfirmItem:
		return one(h.purchase.ConfirmItem(ctx, chatID, a.ProductID))
	case command.PurchaseChangeItem:
		return one(h.purchase.ChangeItem(ctx, chatID, a.ProductID))
	case command.PurchaseCancelItem:
		return one(h.purchase.CancelItem(ctx, chatID))
	case command.PurchaseFinish:
		return one(h.purchase.Finish(ctx, chatID))
	case command.PurchaseConfirm:
		return one(h.purchase.Confirm(ctx, chatID))
	case command.PurchaseAbort:
		return one(h.purchase.Abort(ctx, chatID))

	case command.MyStock:
		return one(h.stock.MyStock(ctx, userID))
	case command.AdminStock:
		return one(h.stock.AllStock(ctx))
	}

	return nil, fmt.Errorf("no route for token %q", token)
}
