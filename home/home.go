package home

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeLength   = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Home struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedBy      string    `json:"createdBy"`
	Members        []Member  `json:"members"`
	CreatedAt      time.Time `json:"createdAt"`
	AccessCodeHash string    `json:"-"`
}

// Member is one household member. Identity is the stable provider subject,
// Name is what expenses refer to.
type Member struct {
	Identity   string    `json:"identity"`
	Name       string    `json:"name"`
	PaymentRef string    `json:"paymentRef"`
	JoinedAt   time.Time `json:"joinedAt"`
}

var (
	ErrEmptyName     = errors.NotValidf("empty home name")
	ErrEmptyIdentity = errors.NotValidf("empty member identity")
)

// NewHome builds a home with a fresh join code and the creator as its
// first member. An empty accessCode leaves the home joinable by code alone.
func NewHome(name string, creator Member, accessCode string) (*Home, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if creator.Identity == "" {
		return nil, ErrEmptyIdentity
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, errors.Annotate(err, "generating home code")
	}

	now := time.Now().UTC()
	if creator.JoinedAt.IsZero() {
		creator.JoinedAt = now
	}

	h := &Home{
		ID:        code,
		Name:      name,
		CreatedBy: creator.Identity,
		Members:   []Member{creator},
		CreatedAt: now,
	}

	if accessCode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(accessCode), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Annotate(err, "hashing access code")
		}
		h.AccessCodeHash = string(hash)
	}

	return h, nil
}

// GenerateCode returns a random upper-case base36 home code.
func GenerateCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for range codeLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode makes user-typed codes comparable with generated ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckAccessCode reports whether code unlocks the home.
func (h *Home) CheckAccessCode(code string) bool {
	if h.AccessCodeHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(h.AccessCodeHash), []byte(code)) == nil
}

// Member returns the member with the given identity, or nil.
func (h *Home) Member(identity string) *Member {
	for i := range h.Members {
		if h.Members[i].Identity == identity {
			return &h.Members[i]
		}
	}
	return nil
}

func (h *Home) IsMember(identity string) bool {
	return h.Member(identity) != nil
}

// MemberNames lists display names in membership order.
func (h *Home) MemberNames() []string {
	names := make([]string, 0, len(h.Members))
	for _, m := range h.Members {
		names = append(names, m.Name)
	}
	return names
}

func (h *Home) IsCreator(identity string) bool {
	return h.CreatedBy == identity
}

// CheckAddition reports whether requester may add identity to the home.
func (h *Home) CheckAddition(requester, identity string) error {
	if !h.IsCreator(requester) {
		return errors.Forbiddenf("adding members by anyone but the home creator")
	}
	if h.IsMember(identity) {
		return errors.NotValidf("adding %q who is already a member", identity)
	}
	return nil
}

// CheckRemoval reports whether requester may remove identity from the home.
// The creator can never be removed.
func (h *Home) CheckRemoval(requester, identity string) error {
	if !h.IsCreator(requester) {
		return errors.Forbiddenf("removing members by anyone but the home creator")
	}
	if identity == h.CreatedBy {
		return errors.NotValidf("removing the home creator")
	}
	if !h.IsMember(identity) {
		return errors.NotFoundf("member %q in home %q", identity, h.ID)
	}
	return nil
}
