package ledger

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeDebtorsEqualSplit(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		members   []string
		wantShare string
	}{
		{"two members", "100", []string{"Alice", "Bob"}, "50.00"},
		{"three members repeating", "100", []string{"Alice", "Bob", "Carol"}, "33.33"},
		{"rounds half up", "0.05", []string{"Alice", "Bob"}, "0.03"},
		{"seven members", "75.50", []string{"A", "B", "C", "D", "E", "F", "G"}, "10.79"},
		{"single member", "12.34", []string{"Alice"}, "12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := dec(tt.amount)
			debtors := ComputeDebtors(amount, "Alice", SplitTypeEqual, tt.members, nil)
			require.Len(t, debtors, len(tt.members))

			sum := decimal.Zero
			for i, d := range debtors {
				assert.Equal(t, tt.members[i], d.Name)
				assert.Equal(t, tt.wantShare, d.Amount.StringFixed(2))
				assert.Equal(t, d.Name == "Alice", d.Paid, "only the payer starts paid")
				sum = sum.Add(d.Amount)
			}

			slack := SplitTolerance.Mul(decimal.NewFromInt(int64(len(tt.members))))
			assert.True(t, sum.Sub(amount).Abs().LessThanOrEqual(slack),
				"sum %s drifts from %s by more than %s", sum, amount, slack)
		})
	}
}

func TestComputeDebtorsPayerNotAMember(t *testing.T) {
	debtors := ComputeDebtors(dec("10"), "Zed", SplitTypeEqual, []string{"Alice", "Bob"}, nil)
	for _, d := range debtors {
		assert.False(t, d.Paid)
	}
}

func TestComputeDebtorsSupplied(t *testing.T) {
	supplied := []DebtorInput{
		{Name: "Alice", Amount: dec("30")},
		{Name: " Bob ", Amount: dec("59.999")},
		{Name: "Carol", Amount: dec("0"), Paid: true},
	}

	debtors := ComputeDebtors(dec("90"), "Alice", SplitTypeCustom, []string{"Alice", "Bob", "Carol"}, supplied)
	require.Len(t, debtors, 3)

	assert.Equal(t, "Alice", debtors[0].Name)
	assert.Equal(t, "30.00", debtors[0].Amount.StringFixed(2))
	assert.True(t, debtors[0].Paid, "payer share is always paid")

	assert.Equal(t, "Bob", debtors[1].Name)
	assert.Equal(t, "60.00", debtors[1].Amount.StringFixed(2))
	assert.False(t, debtors[1].Paid)

	assert.True(t, debtors[2].Paid, "supplied paid flag is kept")
}

func TestComputeDebtorsFallsBackToPayer(t *testing.T) {
	tests := []struct {
		name      string
		splitType SplitType
		members   []string
	}{
		{"custom without debtors", SplitTypeCustom, []string{"Alice", "Bob"}},
		{"equal without members", SplitTypeEqual, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debtors := ComputeDebtors(dec("42.5"), "Alice", tt.splitType, tt.members, nil)
			require.Len(t, debtors, 1)
			assert.Equal(t, "Alice", debtors[0].Name)
			assert.Equal(t, "42.50", debtors[0].Amount.StringFixed(2))
			assert.True(t, debtors[0].Paid)
		})
	}
}

func TestNewExpenseValidation(t *testing.T) {
	valid := func() NewExpenseParams {
		return NewExpenseParams{HomeID: "ABC123", Payer: "Alice", Amount: dec("10"), Reason: "milk"}
	}

	tests := []struct {
		name   string
		mutate func(*NewExpenseParams)
	}{
		{"no home", func(p *NewExpenseParams) { p.HomeID = "" }},
		{"no payer", func(p *NewExpenseParams) { p.Payer = "  " }},
		{"no reason", func(p *NewExpenseParams) { p.Reason = "" }},
		{"zero amount", func(p *NewExpenseParams) { p.Amount = decimal.Zero }},
		{"negative amount", func(p *NewExpenseParams) { p.Amount = dec("-5") }},
		{"sub-cent amount", func(p *NewExpenseParams) { p.Amount = dec("0.001") }},
		{"huge exponent", func(p *NewExpenseParams) { p.Amount = dec("1e20000000") }},
		{"tiny exponent", func(p *NewExpenseParams) { p.Amount = dec("1e-20000000") }},
		{"too large for storage", func(p *NewExpenseParams) { p.Amount = dec("10000000000") }},
		{"huge debtor amount", func(p *NewExpenseParams) {
			p.Debtors = []DebtorInput{{Name: "Alice", Amount: dec("1e20000000")}}
		}},
		{"unknown split", func(p *NewExpenseParams) { p.SplitType = "percentage" }},
		{"unnamed debtor", func(p *NewExpenseParams) { p.Debtors = []DebtorInput{{Amount: dec("10")}} }},
		{"negative debtor", func(p *NewExpenseParams) {
			p.Debtors = []DebtorInput{{Name: "Alice", Amount: dec("20")}, {Name: "Bob", Amount: dec("-10")}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			_, err := NewExpense(p, []string{"Alice"}, "uid-alice", false, time.Now())
			assert.ErrorIs(t, err, errors.NotValid)
		})
	}
}

func TestValidateRejectsHugeExponentQuickly(t *testing.T) {
	p := NewExpenseParams{HomeID: "ABC123", Payer: "Alice", Amount: dec("1e20000000"), Reason: "milk"}

	start := time.Now()
	err := p.Validate()
	assert.ErrorIs(t, err, errors.NotValid)
	assert.Less(t, time.Since(start), time.Second)
}

func TestValidateAcceptsLargestStorableAmount(t *testing.T) {
	p := NewExpenseParams{HomeID: "ABC123", Payer: "Alice", Amount: dec("9999999999.99"), Reason: "house"}
	assert.NoError(t, p.Validate())
}

func TestNewExpenseDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	e, err := NewExpense(NewExpenseParams{
		HomeID: "ABC123",
		Payer:  "Alice",
		Amount: dec("100"),
		Reason: " rent ",
	}, []string{"Alice", "Bob"}, "uid-bob", true, now)
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, SplitTypeEqual, e.SplitType)
	assert.Equal(t, "rent", e.Reason)
	assert.Equal(t, now, e.Date)
	assert.Equal(t, "uid-bob", e.CreatedBy, "recorder may differ from payer")
	assert.Len(t, e.Debtors, 2)
}

func TestNewExpenseStrictSplit(t *testing.T) {
	p := NewExpenseParams{
		HomeID:    "ABC123",
		Payer:     "Alice",
		Amount:    dec("90"),
		Reason:    "groceries",
		SplitType: SplitTypeCustom,
		Debtors: []DebtorInput{
			{Name: "Alice", Amount: dec("30")},
			{Name: "Bob", Amount: dec("50")},
		},
	}

	_, err := NewExpense(p, nil, "uid-alice", true, time.Now())
	assert.ErrorIs(t, err, errors.NotValid)

	e, err := NewExpense(p, nil, "uid-alice", false, time.Now())
	require.NoError(t, err, "lenient mode keeps the amounts as given")
	assert.Equal(t, "50.00", e.Debtors[1].Amount.StringFixed(2))

	p.Debtors[1].Amount = dec("59.99")
	_, err = NewExpense(p, nil, "uid-alice", true, time.Now())
	assert.NoError(t, err, "a cent of rounding slack is accepted")
}

func TestParsePaidMethod(t *testing.T) {
	m, err := ParsePaidMethod("", PaidMethodCash)
	require.NoError(t, err)
	assert.Equal(t, PaidMethodCash, m)

	m, err = ParsePaidMethod(" UPI ", PaidMethodCash)
	require.NoError(t, err)
	assert.Equal(t, PaidMethodUPI, m)

	_, err = ParsePaidMethod("cheque", PaidMethodCash)
	assert.ErrorIs(t, err, errors.NotValid)
}

func TestSettleIsTerminal(t *testing.T) {
	d := DebtorShare{Name: "Bob", Amount: dec("50")}
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d.Settle(PaidMethodUPI, first)
	assert.True(t, d.Paid)
	assert.Equal(t, PaidMethodUPI, d.PaidMethod)
	assert.Equal(t, first, *d.PaidDate)

	second := first.Add(time.Hour)
	d.Settle(PaidMethodCash, second)
	assert.True(t, d.Paid)
	assert.Equal(t, PaidMethodCash, d.PaidMethod)
	assert.Equal(t, second, *d.PaidDate)
}

func TestDebtorIndexFirstMatch(t *testing.T) {
	e := Expense{Debtors: []DebtorShare{{Name: "Alice"}, {Name: "Bob"}, {Name: "Bob"}}}
	assert.Equal(t, 1, e.DebtorIndex("Bob"))
	assert.Equal(t, -1, e.DebtorIndex("Carol"))
}

func TestCalculateBalances(t *testing.T) {
	expenses := []Expense{
		{
			Payer: "Alice",
			Debtors: []DebtorShare{
				{Name: "Alice", Amount: dec("50"), Paid: true},
				{Name: "Bob", Amount: dec("50")},
			},
		},
		{
			Payer: "Bob",
			Debtors: []DebtorShare{
				{Name: "Alice", Amount: dec("10")},
				{Name: "Bob", Amount: dec("10"), Paid: true},
				{Name: "Carol", Amount: dec("10"), Paid: true},
				{Name: "Dave", Amount: dec("5")},
			},
		},
	}

	balances := CalculateBalances(expenses, []string{"Alice", "Bob", "Carol"})
	require.Len(t, balances, 4)

	got := make(map[string]string)
	for _, b := range balances {
		got[b.Name] = b.Amount.StringFixed(2)
	}
	assert.Equal(t, map[string]string{
		"Alice": "40.00",
		"Bob":   "-35.00",
		"Carol": "0.00",
		"Dave":  "-5.00",
	}, got)
	assert.Equal(t, "Dave", balances[3].Name, "non-members come last")
}
