package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
)

type SplitType string

const (
	SplitTypeEqual  SplitType = "equal"
	SplitTypeCustom SplitType = "custom"
)

type PaidMethod string

const (
	PaidMethodCash  PaidMethod = "cash"
	PaidMethodUPI   PaidMethod = "upi"
	PaidMethodOther PaidMethod = "other"
)

// MaxAmount is the first amount that no longer fits the NUMERIC(12,2)
// amount columns.
var MaxAmount = decimal.New(1, 10)

// amountExponentLimit bounds the decimal exponent accepted from callers so
// rounding never rescales by an unbounded power of ten.
const amountExponentLimit = 10

// SplitTolerance is the rounding slack allowed between a custom split's
// debtor amounts and the expense total.
var SplitTolerance = decimal.New(1, -2)

type Expense struct {
	ID        uuid.UUID       `json:"id"`
	HomeID    string          `json:"homeId"`
	Payer     string          `json:"payer"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	SplitType SplitType       `json:"splitType"`
	Debtors   []DebtorShare   `json:"debtors"`
	Date      time.Time       `json:"date"`
	CreatedBy string          `json:"createdBy"`
}

// DebtorShare is one member's portion of an expense. Paid never goes back
// to false once set.
type DebtorShare struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Paid       bool            `json:"paid"`
	PaidMethod PaidMethod      `json:"paidMethod,omitempty"`
	PaidDate   *time.Time      `json:"paidDate"`
}

// DebtorInput is a caller-supplied share.
type DebtorInput struct {
	Name   string
	Amount decimal.Decimal
	Paid   bool
}

type NewExpenseParams struct {
	HomeID    string
	Payer     string
	Amount    decimal.Decimal
	Reason    string
	SplitType SplitType
	Debtors   []DebtorInput
}

var (
	ErrEmptyHome   = errors.NotValidf("empty home id")
	ErrEmptyPayer  = errors.NotValidf("empty payer")
	ErrEmptyReason = errors.NotValidf("empty reason")
	ErrEmptyDebtor = errors.NotValidf("empty debtor name")
)

// Validate checks the required fields and normalizes the split type.
func (p *NewExpenseParams) Validate() error {
	p.HomeID = strings.TrimSpace(p.HomeID)
	p.Payer = strings.TrimSpace(p.Payer)
	p.Reason = strings.TrimSpace(p.Reason)

	if p.HomeID == "" {
		return ErrEmptyHome
	}
	if p.Payer == "" {
		return ErrEmptyPayer
	}
	if p.Reason == "" {
		return ErrEmptyReason
	}
	if err := checkAmount("amount", p.Amount); err != nil {
		return err
	}
	if !p.Amount.Round(2).IsPositive() {
		return errors.NotValidf("amount %s", p.Amount.String())
	}

	switch p.SplitType {
	case "":
		p.SplitType = SplitTypeEqual
	case SplitTypeEqual, SplitTypeCustom:
	default:
		return errors.NotValidf("split type %q", p.SplitType)
	}

	for _, d := range p.Debtors {
		if strings.TrimSpace(d.Name) == "" {
			return ErrEmptyDebtor
		}
		if err := checkAmount("amount for debtor "+d.Name, d.Amount); err != nil {
			return err
		}
		if d.Amount.IsNegative() {
			return errors.NotValidf("negative amount for debtor %q", d.Name)
		}
	}

	return nil
}

// checkAmount rejects amounts outside the storable range. The exponent is
// checked first because comparisons rescale both operands.
func checkAmount(what string, d decimal.Decimal) error {
	if exp := d.Exponent(); exp < -amountExponentLimit || exp > amountExponentLimit {
		return errors.NotValidf("%s out of range", what)
	}
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return errors.NotValidf("%s out of range", what)
	}
	return nil
}

// NewExpense validates p and builds the expense with its debtor shares.
// memberNames are the current home members in membership order. With
// strict set, supplied debtor amounts must add up to the total.
func NewExpense(p NewExpenseParams, memberNames []string, createdBy string, strict bool, now time.Time) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	amount := p.Amount.Round(2)
	debtors := ComputeDebtors(amount, p.Payer, p.SplitType, memberNames, p.Debtors)

	if strict && len(p.Debtors) > 0 {
		if err := ValidateSplitSum(amount, debtors); err != nil {
			return nil, err
		}
	}

	return &Expense{
		ID:        uuid.New(),
		HomeID:    p.HomeID,
		Payer:     p.Payer,
		Amount:    amount,
		Reason:    p.Reason,
		SplitType: p.SplitType,
		Debtors:   debtors,
		Date:      now.UTC(),
		CreatedBy: createdBy,
	}, nil
}

// ComputeDebtors decides who owes what:
//   - equal split without supplied debtors divides amount across every
//     member, each share rounded to cents;
//   - supplied debtors are kept in order with amounts rounded to cents;
//   - otherwise the payer alone carries the full amount.
//
// The payer's own share is always marked paid.
func ComputeDebtors(amount decimal.Decimal, payer string, splitType SplitType, memberNames []string, supplied []DebtorInput) []DebtorShare {
	var debtors []DebtorShare

	switch {
	case len(supplied) == 0 && splitType == SplitTypeEqual && len(memberNames) > 0:
		share := amount.Div(decimal.NewFromInt(int64(len(memberNames)))).Round(2)
		debtors = make([]DebtorShare, 0, len(memberNames))
		for _, name := range memberNames {
			debtors = append(debtors, DebtorShare{Name: name, Amount: share})
		}

	case len(supplied) > 0:
		debtors = make([]DebtorShare, 0, len(supplied))
		for _, d := range supplied {
			debtors = append(debtors, DebtorShare{
				Name:   strings.TrimSpace(d.Name),
				Amount: d.Amount.Round(2),
				Paid:   d.Paid,
			})
		}

	default:
		debtors = []DebtorShare{{Name: payer, Amount: amount.Round(2)}}
	}

	for i := range debtors {
		if debtors[i].Name == payer {
			debtors[i].Paid = true
		}
	}

	return debtors
}

// ValidateSplitSum checks that the debtor amounts add up to amount within
// SplitTolerance.
func ValidateSplitSum(amount decimal.Decimal, debtors []DebtorShare) error {
	sum := decimal.Zero
	for _, d := range debtors {
		sum = sum.Add(d.Amount)
	}
	if sum.Sub(amount).Abs().GreaterThan(SplitTolerance) {
		return errors.NotValidf("debtor amounts summing to %s for a total of %s", sum.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// ParsePaidMethod maps an empty method to fallback and rejects unknown ones.
func ParsePaidMethod(method string, fallback PaidMethod) (PaidMethod, error) {
	switch m := PaidMethod(strings.ToLower(strings.TrimSpace(method))); m {
	case "":
		return fallback, nil
	case PaidMethodCash, PaidMethodUPI, PaidMethodOther:
		return m, nil
	default:
		return "", errors.NotValidf("payment method %q", method)
	}
}

// DebtorIndex returns the position of the first share owed by name, or -1.
func (e *Expense) DebtorIndex(name string) int {
	for i, d := range e.Debtors {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Settle marks the share paid. Settling an already paid share only
// refreshes the method and date.
func (d *DebtorShare) Settle(method PaidMethod, at time.Time) {
	at = at.UTC()
	d.Paid = true
	d.PaidMethod = method
	d.PaidDate = &at
}

// Balance is a member's net position in a home.
type Balance struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"` // Positive = owed money, Negative = owes money
}

// CalculateBalances nets every unpaid share against its payer. Members
// appear in the given order, followed by any other names in expenses.
func CalculateBalances(expenses []Expense, memberNames []string) []Balance {
	balances := make(map[string]decimal.Decimal)

	for _, name := range memberNames {
		balances[name] = decimal.Zero
	}

	for _, expense := range expenses {
		for _, d := range expense.Debtors {
			if d.Paid || d.Name == expense.Payer {
				continue
			}
			balances[expense.Payer] = balances[expense.Payer].Add(d.Amount)
			balances[d.Name] = balances[d.Name].Sub(d.Amount)
		}
	}

	result := make([]Balance, 0, len(balances))
	seen := make(map[string]bool, len(memberNames))
	for _, name := range memberNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, Balance{Name: name, Amount: balances[name]})
	}

	var others []string
	for name := range balances {
		if !seen[name] {
			others = append(others, name)
		}
	}
	sort.Strings(others)
	for _, name := range others {
		result = append(result, Balance{Name: name, Amount: balances[name]})
	}

	return result
}
