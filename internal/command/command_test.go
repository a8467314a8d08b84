package command

import (
	"testing"

	"stock-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	actions := []Action{
		ConfirmOrder{OrderNumber: "A1042"},
		EditOrder{OrderNumber: "A1042"},
		SelectProduct{OrderNumber: "A1042", ProductID: 7},
		ConfirmItem{OrderNumber: "A1042", ProductID: 7},
		ChangeItem{OrderNumber: "A1042", ProductID: 7},
		CancelItem{OrderNumber: "A1042"},
		FinishEdit{OrderNumber: "A1042"},
		ApplyEdit{OrderNumber: "A1042"},
		NoChanges{OrderNumber: "A1042"},
		RestartEdit{OrderNumber: "A1042"},
		CancelEdit{OrderNumber: "A1042"},
		NewTransfer{},
		TransferProduct{ProductID: 3},
		ApproveTransfer{RequestID: 15},
		RejectTransfer{RequestID: 15},
		AccountSummary{},
		MakePayment{},
		ConfirmPayment{PaymentID: 9, Amount: 5000},
		EditPayment{PaymentID: 9},
		PurchaseMenu{},
		PurchaseHistory{},
		PurchaseView{PurchaseID: 4},
		NewPurchase{},
		PurchaseProduct{ProductID: 2},
		PurchaseConfirmItem{ProductID: 2},
		PurchaseChangeItem{ProductID: 2},
		PurchaseCancelItem{},
		PurchaseFinish{},
		PurchaseConfirm{},
		PurchaseAbort{},
		ListPending{},
		MyStock{},
		AdminStock{},
		AdminPayments{},
		AdminBalances{},
	}

	for _, want := range actions {
		got, err := Parse(want.Token())
		require.NoError(t, err, "token %q", want.Token())
		assert.Equal(t, want, got, "token %q", want.Token())
	}
}

func TestParseRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{
		"",
		"bogus",
		"confirm",
		"selprod_A1042",
		"selprod_A1042_notanumber",
		"transfer_approve_-3",
		"payment_confirm_9",
	} {
		_, err := Parse(token)
		assert.ErrorIs(t, err, models.ErrValidation, "token %q", token)
	}
}
