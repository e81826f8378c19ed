package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/billbatista/easychore/eventlogger"
	"github.com/billbatista/easychore/home"
)

// Store persists expenses. Getters return nil, nil for missing records.
type Store interface {
	SaveExpense(ctx context.Context, expense *Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	ListExpenses(ctx context.Context, homeID string) ([]Expense, error)
	UpdateDebtor(ctx context.Context, expenseID uuid.UUID, position int, d DebtorShare) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}

// HomeFinder resolves homes for authorization. It returns nil, nil for a
// missing home.
type HomeFinder interface {
	GetByID(ctx context.Context, id string) (*home.Home, error)
}

type EventSink interface {
	Log(event eventlogger.Event)
}

// Ledger owns expenses and the rules deciding who may settle or delete them.
// Each operation is a plain read-modify-write against the store; membership
// is read separately from the expense and is not re-checked at write time.
type Ledger struct {
	store       Store
	homes       HomeFinder
	events      EventSink
	metrics     *Collector
	now         func() time.Time
	strictSplit bool
}

type Option func(*Ledger)

func WithEvents(sink EventSink) Option {
	return func(l *Ledger) {
		l.events = sink
	}
}

func WithMetrics(c *Collector) Option {
	return func(l *Ledger) {
		l.metrics = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithStrictSplit turns server-side validation of supplied debtor amounts
// on or off. It is on by default.
func WithStrictSplit(strict bool) Option {
	return func(l *Ledger) {
		l.strictSplit = strict
	}
}

func New(store Store, homes HomeFinder, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		homes:       homes,
		now:         time.Now,
		strictSplit: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create records a new expense in p.HomeID on behalf of requester, who must
// be a member of that home.
func (l *Ledger) Create(ctx context.Context, p NewExpenseParams, requester string) (*Expense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	h, err := l.getHome(ctx, p.HomeID)
	if err != nil {
		return nil, err
	}
	if !h.IsMember(requester) {
		l.metrics.denied("create")
		return nil, errors.Forbiddenf("user %q is not a member of home %q", requester, h.ID)
	}

	expense, err := NewExpense(p, h.MemberNames(), requester, l.strictSplit, l.now())
	if err != nil {
		return nil, err
	}

	if err := l.store.SaveExpense(ctx, expense); err != nil {
		return nil, storeErr("saving expense", err)
	}

	l.metrics.expenseCreated(expense.SplitType)
	l.log(eventlogger.NewEvent(
		eventlogger.WithType(EventExpenseCreated),
		eventlogger.WithActor(requester),
		eventlogger.WithHome(expense.HomeID),
		eventlogger.WithData(ExpenseCreatedEvent{
			ExpenseID: expense.ID.String(),
			Payer:     expense.Payer,
			Amount:    expense.Amount.StringFixed(2),
			Reason:    expense.Reason,
			SplitType: expense.SplitType,
			Debtors:   len(expense.Debtors),
		}),
	))

	return expense, nil
}

// Get returns the expense if requester belongs to its home.
func (l *Ledger) Get(ctx context.Context, expenseID string, requester string) (*Expense, error) {
	expense, h, err := l.getExpenseAndHome(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !h.IsMember(requester) {
		l.metrics.denied("get")
		return nil, errors.Forbiddenf("user %q viewing expense %s", requester, expense.ID)
	}
	return expense, nil
}

// List returns every expense of the home, newest first.
func (l *Ledger) List(ctx context.Context, homeID string) ([]Expense, error) {
	expenses, err := l.store.ListExpenses(ctx, homeID)
	if err != nil {
		return nil, storeErr("listing expenses", err)
	}
	return expenses, nil
}

// Balances nets the unpaid shares of a home per member name. Only members
// may read them.
func (l *Ledger) Balances(ctx context.Context, homeID string, requester string) ([]Balance, error) {
	h, err := l.getHome(ctx, homeID)
	if err != nil {
		return nil, err
	}
	if !h.IsMember(requester) {
		l.metrics.denied("balances")
		return nil, errors.Forbiddenf("user %q viewing balances of home %q", requester, h.ID)
	}

	expenses, err := l.List(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	return CalculateBalances(expenses, h.MemberNames()), nil
}

// MarkPaidByPayer lets the payer acknowledge that debtorName settled their
// share, typically in cash.
func (l *Ledger) MarkPaidByPayer(ctx context.Context, expenseID, debtorName, method, requester string) (*Expense, error) {
	return l.settle(ctx, expenseID, debtorName, method, requester, PaidMethodCash, SettledByPayer,
		func(member *home.Member, expense *Expense) error {
			if member.Name != expense.Payer {
				return errors.Forbiddenf("marking debts paid by anyone but the payer")
			}
			return nil
		})
}

// MarkPaidBySelf lets a debtor confirm their own payment, typically by UPI.
func (l *Ledger) MarkPaidBySelf(ctx context.Context, expenseID, debtorName, method, requester string) (*Expense, error) {
	return l.settle(ctx, expenseID, debtorName, method, requester, PaidMethodUPI, SettledByDebtor,
		func(member *home.Member, expense *Expense) error {
			if member.Name != debtorName {
				return errors.Forbiddenf("marking another member's debt paid")
			}
			return nil
		})
}

func (l *Ledger) settle(
	ctx context.Context,
	expenseID, debtorName, method, requester string,
	defaultMethod PaidMethod,
	actor string,
	authorize func(*home.Member, *Expense) error,
) (*Expense, error) {
	if debtorName == "" {
		return nil, ErrEmptyDebtor
	}
	paidMethod, err := ParsePaidMethod(method, defaultMethod)
	if err != nil {
		return nil, err
	}

	expense, h, err := l.getExpenseAndHome(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	member := h.Member(requester)
	if member == nil {
		l.metrics.denied("settle")
		return nil, errors.Forbiddenf("user %q is not a member of home %q", requester, h.ID)
	}
	if err := authorize(member, expense); err != nil {
		l.metrics.denied("settle")
		return nil, err
	}

	idx := expense.DebtorIndex(debtorName)
	if idx == -1 {
		return nil, errors.NotFoundf("debtor %q in expense %s", debtorName, expense.ID)
	}

	share := &expense.Debtors[idx]
	share.Settle(paidMethod, l.now())

	if err := l.store.UpdateDebtor(ctx, expense.ID, idx, *share); err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFoundf("expense %s", expense.ID)
		}
		return nil, storeErr("updating debtor", err)
	}

	l.metrics.debtSettled(actor, paidMethod)
	l.log(eventlogger.NewEvent(
		eventlogger.WithType(EventDebtSettled),
		eventlogger.WithActor(requester),
		eventlogger.WithHome(expense.HomeID),
		eventlogger.WithData(DebtSettledEvent{
			ExpenseID:  expense.ID.String(),
			DebtorName: share.Name,
			Amount:     share.Amount.StringFixed(2),
			Method:     paidMethod,
			SettledBy:  actor,
			PaidDate:   *share.PaidDate,
		}),
	))

	return expense, nil
}

// Delete permanently removes the expense. Only the home creator or the
// member named as payer may do so.
func (l *Ledger) Delete(ctx context.Context, expenseID string, requester string) error {
	expense, h, err := l.getExpenseAndHome(ctx, expenseID)
	if err != nil {
		return err
	}

	isCreator := h.CreatedBy == requester
	member := h.Member(requester)
	isPayer := member != nil && member.Name == expense.Payer
	if !isCreator && !isPayer {
		l.metrics.denied("delete")
		return errors.Forbiddenf("deleting an expense by anyone but its payer or the home creator")
	}

	if err := l.store.DeleteExpense(ctx, expense.ID); err != nil {
		if errors.Is(err, errors.NotFound) {
			return errors.NotFoundf("expense %s", expense.ID)
		}
		return storeErr("deleting expense", err)
	}

	l.metrics.expenseDeleted()
	l.log(eventlogger.NewEvent(
		eventlogger.WithType(EventExpenseDeleted),
		eventlogger.WithActor(requester),
		eventlogger.WithHome(expense.HomeID),
		eventlogger.WithData(ExpenseDeletedEvent{
			ExpenseID: expense.ID.String(),
			Payer:     expense.Payer,
			Amount:    expense.Amount.StringFixed(2),
			Reason:    expense.Reason,
		}),
	))

	return nil
}

func (l *Ledger) getHome(ctx context.Context, homeID string) (*home.Home, error) {
	h, err := l.homes.GetByID(ctx, homeID)
	if err != nil {
		return nil, storeErr("fetching home", err)
	}
	if h == nil {
		return nil, errors.NotFoundf("home %q", homeID)
	}
	return h, nil
}

func (l *Ledger) getExpenseAndHome(ctx context.Context, expenseID string) (*Expense, *home.Home, error) {
	id, err := uuid.Parse(expenseID)
	if err != nil {
		return nil, nil, errors.NotFoundf("expense %q", expenseID)
	}

	expense, err := l.store.GetExpense(ctx, id)
	if err != nil {
		return nil, nil, storeErr("fetching expense", err)
	}
	if expense == nil {
		return nil, nil, errors.NotFoundf("expense %q", expenseID)
	}

	h, err := l.getHome(ctx, expense.HomeID)
	if err != nil {
		return nil, nil, err
	}
	return expense, h, nil
}

func (l *Ledger) log(evt eventlogger.Event) {
	if l.events == nil {
		return
	}
	l.events.Log(evt)
}
