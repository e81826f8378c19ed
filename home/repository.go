package home

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

// Create stores the home together with its initial members.
func (r *repository) Create(ctx context.Context, h *Home) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer tx.Rollback()

	insertHome := `INSERT INTO homes (id, name, access_code_hash, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, insertHome, h.ID, h.Name, h.AccessCodeHash, h.CreatedBy, h.CreatedAt)
	if err != nil {
		return errors.Annotate(err, "inserting home")
	}

	insertMember := `INSERT INTO home_members (home_id, identity, name, payment_ref, joined_at) VALUES ($1, $2, $3, $4, $5)`
	for _, m := range h.Members {
		_, err = tx.ExecContext(ctx, insertMember, h.ID, m.Identity, m.Name, m.PaymentRef, m.JoinedAt)
		if err != nil {
			return errors.Annotate(err, "inserting home member")
		}
	}

	return tx.Commit()
}

// GetByID returns nil, nil when the home does not exist.
func (r *repository) GetByID(ctx context.Context, id string) (*Home, error) {
	query := `SELECT id, name, access_code_hash, created_by, created_at FROM homes WHERE id = $1`

	var h Home
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&h.ID,
		&h.Name,
		&h.AccessCodeHash,
		&h.CreatedBy,
		&h.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Annotate(err, "querying home")
	}

	members, err := r.getMembers(ctx, `WHERE m.home_id = $1`, h.ID)
	if err != nil {
		return nil, err
	}
	h.Members = members[h.ID]
	if h.Members == nil {
		h.Members = make([]Member, 0)
	}

	return &h, nil
}

// getMembers loads the members of every home matched by where, keyed by
// home id and in joining order.
func (r *repository) getMembers(ctx context.Context, where string, arg any) (map[string][]Member, error) {
	query := `SELECT m.home_id, m.identity, m.name, m.payment_ref, m.joined_at
              FROM home_members m ` + where + `
              ORDER BY m.home_id, m.joined_at ASC, m.identity ASC`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, errors.Annotate(err, "querying home members")
	}
	defer rows.Close()

	members := make(map[string][]Member)
	for rows.Next() {
		var (
			homeID string
			m      Member
		)
		if err := rows.Scan(&homeID, &m.Identity, &m.Name, &m.PaymentRef, &m.JoinedAt); err != nil {
			return nil, errors.Trace(err)
		}
		members[homeID] = append(members[homeID], m)
	}

	return members, rows.Err()
}

// ListForMember returns every home identity belongs to, oldest first.
func (r *repository) ListForMember(ctx context.Context, identity string) ([]Home, error) {
	query := `SELECT h.id, h.name, h.access_code_hash, h.created_by, h.created_at
              FROM homes h
              INNER JOIN home_members m ON h.id = m.home_id
              WHERE m.identity = $1
              ORDER BY h.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, errors.Annotate(err, "querying member homes")
	}

	homes := make([]Home, 0)
	for rows.Next() {
		var h Home
		if err := rows.Scan(&h.ID, &h.Name, &h.AccessCodeHash, &h.CreatedBy, &h.CreatedAt); err != nil {
			rows.Close()
			return nil, errors.Trace(err)
		}
		homes = append(homes, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	members, err := r.getMembers(ctx, `INNER JOIN home_members mine ON m.home_id = mine.home_id WHERE mine.identity = $1`, identity)
	if err != nil {
		return nil, err
	}
	for i := range homes {
		homes[i].Members = members[homes[i].ID]
	}

	return homes, nil
}

func (r *repository) AddMember(ctx context.Context, homeID string, m Member) error {
	if m.Identity == "" {
		return ErrEmptyIdentity
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	query := `INSERT INTO home_members (home_id, identity, name, payment_ref, joined_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, homeID, m.Identity, m.Name, m.PaymentRef, m.JoinedAt)
	if err != nil {
		return errors.Annotate(err, "inserting home member")
	}
	return nil
}

// UpdateMember rewrites the display name and payment reference of identity
// in every home it belongs to, inside the caller's transaction.
func (r *repository) UpdateMember(ctx context.Context, tx *sql.Tx, identity string, name, paymentRef string) error {
	query := `UPDATE home_members SET name = $1, payment_ref = $2 WHERE identity = $3`
	_, err := tx.ExecContext(ctx, query, name, paymentRef, identity)
	if err != nil {
		return errors.Annotate(err, "updating home member")
	}
	return nil
}

// RemoveMember deletes identity from the home. Expenses keep the member's
// name.
func (r *repository) RemoveMember(ctx context.Context, homeID, identity string) error {
	query := `DELETE FROM home_members WHERE home_id = $1 AND identity = $2`
	res, err := r.db.ExecContext(ctx, query, homeID, identity)
	if err != nil {
		return errors.Annotate(err, "deleting home member")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("member %q of home %q", identity, homeID)
	}
	return nil
}

// Delete removes the home with its members and every expense recorded in it.
func (r *repository) Delete(ctx context.Context, homeID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer tx.Rollback()

	statements := []struct{ query, what string }{
		{`DELETE FROM expense_debtors WHERE expense_id IN (SELECT id FROM expenses WHERE home_id = $1)`, "deleting expense debtors"},
		{`DELETE FROM expenses WHERE home_id = $1`, "deleting expenses"},
		{`DELETE FROM home_members WHERE home_id = $1`, "deleting home members"},
	}
	for _, st := range statements {
		if _, err := tx.ExecContext(ctx, st.query, homeID); err != nil {
			return errors.Annotate(err, st.what)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM homes WHERE id = $1`, homeID)
	if err != nil {
		return errors.Annotate(err, "deleting home")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("home %q", homeID)
	}

	return tx.Commit()
}
