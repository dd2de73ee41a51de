// Package notification evaluates budget and balance rules against a wallet
// and queues the resulting alerts for the session that triggered them.
package notification

import (
	"fmt"

	"github.com/Veraticus/purse/internal/model"
)

// Service is a rule evaluator plus an ordered alert queue. The zero value is ready to use.
type Service struct {
	queue []string
}

// New returns an empty notification service.
func New() *Service {
	return &Service{}
}

// CheckBudgetExceeded queues an alert when the category's budget is over its limit.
func (s *Service) CheckBudgetExceeded(wallet *model.Wallet, category string) {
	b, ok := wallet.Budget(category)
	if !ok || !b.Exceeded() {
		return
	}
	s.push(fmt.Sprintf("BUDGET EXCEEDED! Category: '%s'. Spent: %s, Limit: %s, Over by: %s",
		b.Category(), b.Spent().StringFixed(2), b.Limit().StringFixed(2), b.Spent().Sub(b.Limit()).StringFixed(2)))
}

// CheckBudgetThreshold queues an alert when the category's budget is near
// its limit but not yet over it.
func (s *Service) CheckBudgetThreshold(wallet *model.Wallet, category string) {
	b, ok := wallet.Budget(category)
	if !ok || !b.NearLimit() || b.Exceeded() {
		return
	}
	s.push(fmt.Sprintf("Approaching budget limit! Category: '%s'. Used: %.1f%% (%s of %s)",
		b.Category(), b.UsagePercentage(), b.Spent().StringFixed(2), b.Limit().StringFixed(2)))
}

// CheckBalanceStatus queues an alert when the balance is negative.
func (s *Service) CheckBalanceStatus(wallet *model.Wallet) {
	if !wallet.Balance().IsNegative() {
		return
	}
	s.push("NEGATIVE BALANCE! Current balance: " + wallet.Balance().StringFixed(2))
}

// CheckAfterExpense runs the checks that follow spending in category.
func (s *Service) CheckAfterExpense(wallet *model.Wallet, category string) {
	s.CheckBudgetExceeded(wallet, category)
	s.CheckBalanceStatus(wallet)
	s.CheckBudgetThreshold(wallet, category)
}

// CheckInitialNotifications re-evaluates every budget, in category order,
// and then the balance.
func (s *Service) CheckInitialNotifications(wallet *model.Wallet) {
	for _, b := range wallet.Budgets() {
		s.CheckBudgetExceeded(wallet, b.Category())
		s.CheckBudgetThreshold(wallet, b.Category())
	}
	s.CheckBalanceStatus(wallet)
}

// Notifications returns a copy of the queued alerts.
func (s *Service) Notifications() []string {
	out := make([]string, len(s.queue))
	copy(out, s.queue)
	return out
}

// Clear empties the queue.
func (s *Service) Clear() {
	s.queue = nil
}

func (s *Service) push(msg string) {
	s.queue = append(s.queue, msg)
}
