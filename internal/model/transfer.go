package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/shopspring/decimal"
)

// TransferRequest describes money moving from one wallet to another.
type TransferRequest struct {
	Date        time.Time
	Amount      decimal.Decimal
	From        *Wallet
	To          *Wallet
	FromLogin   string
	ToLogin     string
	Description string
}

// TransferCategoryTo names the sender's expense category.
func TransferCategoryTo(login string) string { return "Transfer to " + login }

// TransferCategoryFrom names the recipient's income category.
func TransferCategoryFrom(login string) string { return "Transfer from " + login }

// Transfer moves money between two wallets as one operation. Everything is
// checked before either wallet changes: the sender gets an expense leg and
// the recipient an income leg dated the same day.
func Transfer(req TransferRequest) (sent, received Transaction, err error) {
	if req.From == nil || req.To == nil {
		return Transaction{}, Transaction{}, fmt.Errorf("%w: transfer needs two wallets", common.ErrInvalidArgument)
	}
	if req.From == req.To {
		return Transaction{}, Transaction{}, fmt.Errorf("%w: cannot transfer to the same wallet", common.ErrInvalidArgument)
	}
	if !req.Amount.IsPositive() {
		return Transaction{}, Transaction{}, fmt.Errorf("%w: transfer amount must be positive, got %s", common.ErrInvalidArgument, req.Amount)
	}
	if req.From.Balance().LessThan(req.Amount) {
		return Transaction{}, Transaction{}, fmt.Errorf("%w: balance %s is less than %s",
			common.ErrInsufficientFunds, req.From.Balance().StringFixed(2), req.Amount.StringFixed(2))
	}

	date := req.Date
	if date.IsZero() {
		date = Today()
	}
	description := strings.TrimSpace(req.Description)

	sent, err = NewTransaction(TransferCategoryTo(req.ToLogin), req.Amount, KindExpense,
		strings.TrimSpace(description+" → "+req.ToLogin), WithDate(date))
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	received, err = NewTransaction(TransferCategoryFrom(req.FromLogin), req.Amount, KindIncome,
		strings.TrimSpace(description+" ← "+req.FromLogin), WithDate(date))
	if err != nil {
		return Transaction{}, Transaction{}, err
	}

	// Fresh ids cannot collide, so neither leg can fail once checks pass.
	req.From.apply(sent)
	req.To.apply(received)
	return sent, received, nil
}
