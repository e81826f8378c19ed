package user

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/billbatista/easychore/identity"
)

type repository struct {
	db      *sql.DB
	members MemberSync
}

func NewRepository(db *sql.DB, members MemberSync) *repository {
	return &repository{db: db, members: members}
}

// Ensure returns the profile for id, creating it on first sight.
func (r *repository) Ensure(ctx context.Context, id identity.Identity) (*User, error) {
	existing, err := r.GetByID(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = DefaultName
	}

	user := &User{
		ID:        id.ID,
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(id.Email)),
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO users (id, name, email, payment_ref, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PaymentRef, user.CreatedAt)
	if err != nil {
		return nil, errors.Annotate(err, "inserting user")
	}

	return user, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, name, email, payment_ref, created_at FROM users WHERE id = $1`

	var user User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PaymentRef,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Annotate(err, "querying user")
	}

	return &user, nil
}

// GetByEmail returns nil, nil when no profile has that email.
func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, name, email, payment_ref, created_at FROM users WHERE email = $1`

	var user User
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PaymentRef,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Annotate(err, "querying user by email")
	}

	return &user, nil
}

// UpdateProfile applies upd and propagates name and payment reference
// changes to the user's home memberships.
func (r *repository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.NotFoundf("user %q", id)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, errors.NotValidf("empty name")
		}
		user.Name = name
	}
	if upd.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*upd.Email)); email != "" {
			user.Email = email
		}
	}
	if upd.PaymentRef != nil {
		user.PaymentRef = strings.TrimSpace(*upd.PaymentRef)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer tx.Rollback()

	query := `UPDATE users SET name = $1, email = $2, payment_ref = $3 WHERE id = $4`
	if _, err := tx.ExecContext(ctx, query, user.Name, user.Email, user.PaymentRef, user.ID); err != nil {
		return nil, errors.Annotate(err, "updating user")
	}

	if r.members != nil && (upd.Name != nil || upd.PaymentRef != nil) {
		if err := r.members.UpdateMember(ctx, tx, user.ID, user.Name, user.PaymentRef); err != nil {
			return nil, errors.Annotate(err, "updating home memberships")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Trace(err)
	}

	return user, nil
}
