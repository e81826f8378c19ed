package ledger

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) SaveExpense(ctx context.Context, expense *Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer tx.Rollback()

	query := `INSERT INTO expenses (id, home_id, payer, amount, reason, split_type, expense_date, created_by) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.ExecContext(
		ctx,
		query,
		expense.ID,
		expense.HomeID,
		expense.Payer,
		expense.Amount.StringFixed(2),
		expense.Reason,
		expense.SplitType,
		expense.Date,
		expense.CreatedBy,
	)
	if err != nil {
		return errors.Annotate(err, "inserting expense")
	}

	for i, d := range expense.Debtors {
		query = `INSERT INTO expense_debtors (expense_id, position, name, amount, paid, paid_method, paid_date) VALUES ($1, $2, $3, $4, $5, $6, $7)`
		_, err = tx.ExecContext(ctx, query, expense.ID, i, d.Name, d.Amount.StringFixed(2), d.Paid, d.PaidMethod, paidDate(d))
		if err != nil {
			return errors.Annotate(err, "inserting expense debtor")
		}
	}

	return tx.Commit()
}

// GetExpense returns nil, nil when the expense does not exist.
func (r *repository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT id, home_id, payer, amount, reason, split_type, expense_date, created_by FROM expenses WHERE id = $1`

	var expense Expense
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&expense.ID,
		&expense.HomeID,
		&expense.Payer,
		&expense.Amount,
		&expense.Reason,
		&expense.SplitType,
		&expense.Date,
		&expense.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Annotate(err, "querying expense")
	}

	debtors, err := r.getDebtors(ctx, `WHERE d.expense_id = $1`, id)
	if err != nil {
		return nil, err
	}
	expense.Debtors = debtors[expense.ID]

	return &expense, nil
}

// ListExpenses returns the home's expenses newest first.
func (r *repository) ListExpenses(ctx context.Context, homeID string) ([]Expense, error) {
	query := `SELECT id, home_id, payer, amount, reason, split_type, expense_date, created_by
              FROM expenses
              WHERE home_id = $1
              ORDER BY expense_date DESC`

	rows, err := r.db.QueryContext(ctx, query, homeID)
	if err != nil {
		return nil, errors.Annotate(err, "querying expenses")
	}

	expenses := make([]Expense, 0)
	for rows.Next() {
		var expense Expense
		err := rows.Scan(
			&expense.ID,
			&expense.HomeID,
			&expense.Payer,
			&expense.Amount,
			&expense.Reason,
			&expense.SplitType,
			&expense.Date,
			&expense.CreatedBy,
		)
		if err != nil {
			rows.Close()
			return nil, errors.Trace(err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	debtors, err := r.getDebtors(ctx, `INNER JOIN expenses e ON d.expense_id = e.id WHERE e.home_id = $1`, homeID)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Debtors = debtors[expenses[i].ID]
	}

	return expenses, nil
}

func (r *repository) getDebtors(ctx context.Context, where string, arg any) (map[uuid.UUID][]DebtorShare, error) {
	query := `SELECT d.expense_id, d.name, d.amount, d.paid, d.paid_method, d.paid_date
              FROM expense_debtors d ` + where + `
              ORDER BY d.expense_id, d.position ASC`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, errors.Annotate(err, "querying expense debtors")
	}
	defer rows.Close()

	debtors := make(map[uuid.UUID][]DebtorShare)
	for rows.Next() {
		var (
			expenseID uuid.UUID
			d         DebtorShare
			method    string
			date      sql.NullTime
		)
		if err := rows.Scan(&expenseID, &d.Name, &d.Amount, &d.Paid, &method, &date); err != nil {
			return nil, errors.Trace(err)
		}
		d.PaidMethod = PaidMethod(method)
		if date.Valid {
			t := date.Time.UTC()
			d.PaidDate = &t
		}
		debtors[expenseID] = append(debtors[expenseID], d)
	}

	return debtors, rows.Err()
}

// UpdateDebtor overwrites the payment state of the share at position. Other
// shares of the same expense are not touched.
func (r *repository) UpdateDebtor(ctx context.Context, expenseID uuid.UUID, position int, d DebtorShare) error {
	query := `UPDATE expense_debtors SET paid = $1, paid_method = $2, paid_date = $3 WHERE expense_id = $4 AND position = $5`
	res, err := r.db.ExecContext(ctx, query, d.Paid, d.PaidMethod, paidDate(d), expenseID, position)
	if err != nil {
		return errors.Annotate(err, "updating expense debtor")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("debtor %d of expense %s", position, expenseID)
	}
	return nil
}

func (r *repository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_debtors WHERE expense_id = $1`, id); err != nil {
		return errors.Annotate(err, "deleting expense debtors")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return errors.Annotate(err, "deleting expense")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("expense %s", id)
	}

	return tx.Commit()
}

func paidDate(d DebtorShare) any {
	if d.PaidDate == nil {
		return nil
	}
	return d.PaidDate.UTC()
}
