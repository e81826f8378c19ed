package user

import (
	"context"
	"database/sql"
	"time"
)

// DefaultName is used when the identity provider supplies no display name.
const DefaultName = "New User"

// User is the local profile of an identity. ID is the provider's subject.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	PaymentRef string    `json:"paymentRef"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProfileUpdate carries optional changes; nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	PaymentRef *string
}

// MemberSync receives profile changes that must follow the user into every
// home they belong to. It writes inside the profile update transaction.
type MemberSync interface {
	UpdateMember(ctx context.Context, tx *sql.Tx, identity string, name, paymentRef string) error
}
