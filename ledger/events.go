package ledger

import "time"

const (
	EventExpenseCreated = "expense.created"
	EventDebtSettled    = "expense.debt_settled"
	EventExpenseDeleted = "expense.deleted"

	SettledByPayer  = "payer"
	SettledByDebtor = "debtor"
)

type ExpenseCreatedEvent struct {
	ExpenseID string    `json:"expense_id"`
	Payer     string    `json:"payer"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
	SplitType SplitType `json:"split_type"`
	Debtors   int       `json:"debtors"`
}

// DebtSettledEvent records who asserted a payment: the payer confirming
// receipt or the debtor confirming they paid.
type DebtSettledEvent struct {
	ExpenseID  string     `json:"expense_id"`
	DebtorName string     `json:"debtor_name"`
	Amount     string     `json:"amount"`
	Method     PaidMethod `json:"method"`
	SettledBy  string     `json:"settled_by"`
	PaidDate   time.Time  `json:"paid_date"`
}

type ExpenseDeletedEvent struct {
	ExpenseID string `json:"expense_id"`
	Payer     string `json:"payer"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
}
