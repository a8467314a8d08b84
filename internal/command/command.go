// Package command defines the typed actions the chat transport can deliver.
// Button payloads travel as opaque tokens; they are decoded here exactly once,
// at the transport boundary, so the rest of the service never re-parses
// strings. Every id carried by a token is still validated against the store.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"stock-assistant/internal/models"
)

// Action is a decoded chat command.
type Action interface {
	// Token renders the action back into its wire form for button payloads.
	Token() string
}

// Order reconciliation actions. Order numbers must not contain underscores;
// the upstream shop system guarantees that.
type (
	ConfirmOrder struct{ OrderNumber string }
	EditOrder    struct{ OrderNumber string }
	SelectProduct struct {
		OrderNumber string
		ProductID   int64
	}
	ConfirmItem struct {
		OrderNumber string
		ProductID   int64
	}
	ChangeItem struct {
		OrderNumber string
		ProductID   int64
	}
	CancelItem  struct{ OrderNumber string }
	FinishEdit  struct{ OrderNumber string }
	ApplyEdit   struct{ OrderNumber string }
	NoChanges   struct{ OrderNumber string }
	RestartEdit struct{ OrderNumber string }
	CancelEdit  struct{ OrderNumber string }
)

// Transfer workflow actions.
type (
	NewTransfer     struct{}
	TransferProduct struct{ ProductID int64 }
	ApproveTransfer struct{ RequestID int64 }
	RejectTransfer  struct{ RequestID int64 }
)

// Payment actions.
type (
	AccountSummary struct{}
	MakePayment    struct{}
	ConfirmPayment struct {
		PaymentID int64
		Amount    int64
	}
	EditPayment struct{ PaymentID int64 }
)

// Purchase (admin restock) actions.
type (
	PurchaseMenu        struct{}
	PurchaseHistory     struct{}
	PurchaseView        struct{ PurchaseID int64 }
	NewPurchase         struct{}
	PurchaseProduct     struct{ ProductID int64 }
	PurchaseConfirmItem struct{ ProductID int64 }
	PurchaseChangeItem  struct{ ProductID int64 }
	PurchaseCancelItem  struct{}
	PurchaseFinish      struct{}
	PurchaseConfirm     struct{}
	PurchaseAbort       struct{}
)

// Menu actions mapped from reply-keyboard presses by the adapter.
type (
	ListPending   struct{}
	MyStock       struct{}
	AdminStock    struct{}
	AdminPayments struct{}
	AdminBalances struct{}
)

func (a ConfirmOrder) Token() string  { return "confirm_" + a.OrderNumber }
func (a EditOrder) Token() string     { return "edit_" + a.OrderNumber }
func (a SelectProduct) Token() string { return fmt.Sprintf("selprod_%s_%d", a.OrderNumber, a.ProductID) }
func (a ConfirmItem) Token() string   { return fmt.Sprintf("conf_%s_%d", a.OrderNumber, a.ProductID) }
func (a ChangeItem) Token() string    { return fmt.Sprintf("change_%s_%d", a.OrderNumber, a.ProductID) }
func (a CancelItem) Token() string    { return "cancel_" + a.OrderNumber }
func (a FinishEdit) Token() string    { return "finish_" + a.OrderNumber }
func (a ApplyEdit) Token() string     { return "apply_" + a.OrderNumber }
func (a NoChanges) Token() string     { return "nochanges_" + a.OrderNumber }
func (a RestartEdit) Token() string   { return "editagain_" + a.OrderNumber }
func (a CancelEdit) Token() string    { return "editcancel_" + a.OrderNumber }

func (NewTransfer) Token() string       { return "transfer_new" }
func (a TransferProduct) Token() string { return fmt.Sprintf("transfer_prod_%d", a.ProductID) }
func (a ApproveTransfer) Token() string { return fmt.Sprintf("transfer_approve_%d", a.RequestID) }
func (a RejectTransfer) Token() string  { return fmt.Sprintf("transfer_reject_%d", a.RequestID) }

func (AccountSummary) Token() string { return "account" }
func (MakePayment) Token() string    { return "make_payment" }
func (a ConfirmPayment) Token() string {
	return fmt.Sprintf("payment_confirm_%d_%d", a.PaymentID, a.Amount)
}
func (a EditPayment) Token() string { return fmt.Sprintf("payment_edit_%d", a.PaymentID) }

func (PurchaseMenu) Token() string      { return "purchase_menu" }
func (PurchaseHistory) Token() string   { return "purchase_history" }
func (a PurchaseView) Token() string    { return fmt.Sprintf("purchase_view_%d", a.PurchaseID) }
func (NewPurchase) Token() string       { return "purchase_new" }
func (a PurchaseProduct) Token() string { return fmt.Sprintf("purchase_prod_%d", a.ProductID) }
func (a PurchaseConfirmItem) Token() string {
	return fmt.Sprintf("purchase_confirm_item_%d", a.ProductID)
}
func (a PurchaseChangeItem) Token() string {
	return fmt.Sprintf("purchase_change_item_%d", a.ProductID)
}
func (PurchaseCancelItem) Token() string { return "purchase_cancel_item" }
func (PurchaseFinish) Token() string     { return "purchase_finish" }
func (PurchaseConfirm) Token() string    { return "purchase_confirm_final" }
func (PurchaseAbort) Token() string      { return "purchase_abort" }

func (ListPending) Token() string   { return "pending" }
func (MyStock) Token() string       { return "stock" }
func (AdminStock) Token() string    { return "admin_stock" }
func (AdminPayments) Token() string { return "admin_payments" }
func (AdminBalances) Token() string { return "admin_balances" }

// Parse decodes a wire token into an Action. Unknown or malformed tokens
// return ErrValidation; the ids inside are not checked against the store here.
func Parse(token string) (Action, error) {
	switch token {
	case "transfer_new":
		return NewTransfer{}, nil
	case "account":
		return AccountSummary{}, nil
	case "make_payment":
		return MakePayment{}, nil
	case "purchase_menu":
		return PurchaseMenu{}, nil
	case "purchase_history":
		return PurchaseHistory{}, nil
	case "purchase_new":
		return NewPurchase{}, nil
	case "purchase_cancel_item":
		return PurchaseCancelItem{}, nil
	case "purchase_finish":
		return PurchaseFinish{}, nil
	case "purchase_confirm_final":
		return PurchaseConfirm{}, nil
	case "purchase_abort":
		return PurchaseAbort{}, nil
	case "pending":
		return ListPending{}, nil
	case "stock":
		return MyStock{}, nil
	case "admin_stock":
		return AdminStock{}, nil
	case "admin_payments":
		return AdminPayments{}, nil
	case "admin_balances":
		return AdminBalances{}, nil
	}

	parts := strings.Split(token, "_")

	switch {
	case len(parts) == 2 && parts[0] == "confirm":
		return ConfirmOrder{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "edit":
		return EditOrder{OrderNumber: parts[1]}, nil
	case len(parts) == 3 && parts[0] == "selprod":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return SelectProduct{OrderNumber: parts[1], ProductID: id}, nil
	case len(parts) == 3 && parts[0] == "conf":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return ConfirmItem{OrderNumber: parts[1], ProductID: id}, nil
	case len(parts) == 3 && parts[0] == "change":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return ChangeItem{OrderNumber: parts[1], ProductID: id}, nil
	case len(parts) == 2 && parts[0] == "cancel":
		return CancelItem{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "finish":
		return FinishEdit{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "apply":
		return ApplyEdit{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "nochanges":
		return NoChanges{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "editagain":
		return RestartEdit{OrderNumber: parts[1]}, nil
	case len(parts) == 2 && parts[0] == "editcancel":
		return CancelEdit{OrderNumber: parts[1]}, nil

	case len(parts) == 3 && parts[0] == "transfer" && parts[1] == "prod":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return TransferProduct{ProductID: id}, nil
	case len(parts) == 3 && parts[0] == "transfer" && parts[1] == "approve":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return ApproveTransfer{RequestID: id}, nil
	case len(parts) == 3 && parts[0] == "transfer" && parts[1] == "reject":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return RejectTransfer{RequestID: id}, nil

	case len(parts) == 4 && parts[0] == "payment" && parts[1] == "confirm":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		amount, err := parseID(parts[3])
		if err != nil {
			return nil, err
		}
		return ConfirmPayment{PaymentID: id, Amount: amount}, nil
	case len(parts) == 3 && parts[0] == "payment" && parts[1] == "edit":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return EditPayment{PaymentID: id}, nil

	case len(parts) == 3 && parts[0] == "purchase" && parts[1] == "view":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return PurchaseView{PurchaseID: id}, nil
	case len(parts) == 3 && parts[0] == "purchase" && parts[1] == "prod":
		id, err := parseID(parts[2])
		if err != nil {
			return nil, err
		}
		return PurchaseProduct{ProductID: id}, nil
	case len(parts) == 4 && parts[0] == "purchase" && parts[1] == "confirm" && parts[2] == "item":
		id, err := parseID(parts[3])
		if err != nil {
			return nil, err
		}
		return PurchaseConfirmItem{ProductID: id}, nil
	case len(parts) == 4 && parts[0] == "purchase" && parts[1] == "change" && parts[2] == "item":
		id, err := parseID(parts[3])
		if err != nil {
			return nil, err
		}
		return PurchaseChangeItem{ProductID: id}, nil
	}

	return nil, fmt.Errorf("%w: unknown token %q", models.ErrValidation, token)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: bad id %q", models.ErrValidation, s)
	}
	return id, nil
}
