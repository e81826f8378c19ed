package home

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/billbatista/easychore/store"
)

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-Z]{6}$`)
	seen := make(map[string]bool)
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should not repeat constantly")
}

func TestNewHome(t *testing.T) {
	h, err := NewHome("  Flat 4B ", Member{Identity: "uid-alice", Name: "Alice"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Flat 4B", h.Name)
	assert.Equal(t, "uid-alice", h.CreatedBy)
	require.Len(t, h.Members, 1)
	assert.Equal(t, "Alice", h.Members[0].Name)
	assert.False(t, h.Members[0].JoinedAt.IsZero())
	assert.True(t, h.CheckAccessCode("anything"), "homes without an access code are open")

	_, err = NewHome(" ", Member{Identity: "uid-alice"}, "")
	assert.ErrorIs(t, err, errors.NotValid)

	_, err = NewHome("Flat", Member{}, "")
	assert.ErrorIs(t, err, errors.NotValid)
}

func TestAccessCode(t *testing.T) {
	h, err := NewHome("Flat", Member{Identity: "uid-alice", Name: "Alice"}, "letmein")
	require.NoError(t, err)
	assert.NotEqual(t, "letmein", h.AccessCodeHash)
	assert.True(t, h.CheckAccessCode("letmein"))
	assert.False(t, h.CheckAccessCode("wrong"))
}

func TestMemberLookup(t *testing.T) {
	h := &Home{Members: []Member{
		{Identity: "uid-alice", Name: "Alice"},
		{Identity: "uid-bob", Name: "Bob"},
	}}

	assert.Equal(t, "Bob", h.Member("uid-bob").Name)
	assert.Nil(t, h.Member("uid-carol"))
	assert.True(t, h.IsMember("uid-alice"))
	assert.Equal(t, []string{"Alice", "Bob"}, h.MemberNames())
	assert.Equal(t, "ABC123", NormalizeCode(" abc123 "))
}

func TestMembershipRules(t *testing.T) {
	h := &Home{ID: "ABC123", CreatedBy: "uid-alice", Members: []Member{
		{Identity: "uid-alice", Name: "Alice"},
		{Identity: "uid-bob", Name: "Bob"},
	}}

	assert.NoError(t, h.CheckAddition("uid-alice", "uid-carol"))
	assert.ErrorIs(t, h.CheckAddition("uid-bob", "uid-carol"), errors.Forbidden)
	assert.ErrorIs(t, h.CheckAddition("uid-alice", "uid-bob"), errors.NotValid)

	assert.NoError(t, h.CheckRemoval("uid-alice", "uid-bob"))
	assert.ErrorIs(t, h.CheckRemoval("uid-bob", "uid-bob"), errors.Forbidden)
	assert.ErrorIs(t, h.CheckRemoval("uid-alice", "uid-alice"), errors.NotValid)
	assert.ErrorIs(t, h.CheckRemoval("uid-alice", "uid-carol"), errors.NotFound)
}

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	db   *sql.DB
	repo *repository
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := store.OpenAndMigrate(s.ctx, "sqlite", ":memory:")
	require.NoError(s.T(), err, "failed to create test database")
	s.T().Cleanup(func() { db.Close() })
	s.db = db
	s.repo = NewRepository(db)
}

func (s *RepositoryTestSuite) TestCreateAndGet() {
	h, err := NewHome("Flat", Member{Identity: "uid-alice", Name: "Alice", PaymentRef: "alice@upi"}, "code")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Create(s.ctx, h))

	got, err := s.repo.GetByID(s.ctx, h.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got)
	assert.Equal(s.T(), "Flat", got.Name)
	assert.Equal(s.T(), "uid-alice", got.CreatedBy)
	require.Len(s.T(), got.Members, 1)
	assert.Equal(s.T(), "alice@upi", got.Members[0].PaymentRef)
	assert.True(s.T(), got.CheckAccessCode("code"))
}

func (s *RepositoryTestSuite) TestGetMissing() {
	got, err := s.repo.GetByID(s.ctx, "NOPE00")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), got)
}

func (s *RepositoryTestSuite) TestAddMemberAndList() {
	first, err := NewHome("First", Member{Identity: "uid-alice", Name: "Alice"}, "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Create(s.ctx, first))

	second, err := NewHome("Second", Member{Identity: "uid-carol", Name: "Carol"}, "")
	require.NoError(s.T(), err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(s.T(), s.repo.Create(s.ctx, second))

	require.NoError(s.T(), s.repo.AddMember(s.ctx, first.ID, Member{Identity: "uid-bob", Name: "Bob", JoinedAt: time.Now().UTC().Add(time.Second)}))
	require.NoError(s.T(), s.repo.AddMember(s.ctx, second.ID, Member{Identity: "uid-bob", Name: "Bob"}))

	got, err := s.repo.GetByID(s.ctx, first.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"Alice", "Bob"}, got.MemberNames())

	homes, err := s.repo.ListForMember(s.ctx, "uid-bob")
	require.NoError(s.T(), err)
	if assert.Len(s.T(), homes, 2) {
		assert.Equal(s.T(), "First", homes[0].Name)
		assert.Equal(s.T(), []string{"Alice", "Bob"}, homes[0].MemberNames())
		assert.Equal(s.T(), "Second", homes[1].Name)
		assert.Equal(s.T(), []string{"Carol", "Bob"}, homes[1].MemberNames())
	}

	none, err := s.repo.ListForMember(s.ctx, "uid-nobody")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)

	assert.ErrorIs(s.T(), s.repo.AddMember(s.ctx, first.ID, Member{Name: "Ghost"}), errors.NotValid)
}

func (s *RepositoryTestSuite) TestUpdateMember() {
	h, err := NewHome("Flat", Member{Identity: "uid-alice", Name: "Alice"}, "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Create(s.ctx, h))

	tx, err := s.db.BeginTx(s.ctx, nil)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.UpdateMember(s.ctx, tx, "uid-alice", "Alicia", "alicia@upi"))
	require.NoError(s.T(), tx.Commit())

	got, err := s.repo.GetByID(s.ctx, h.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Alicia", got.Members[0].Name)
	assert.Equal(s.T(), "alicia@upi", got.Members[0].PaymentRef)
}

func (s *RepositoryTestSuite) TestRemoveMember() {
	h, err := NewHome("Flat", Member{Identity: "uid-alice", Name: "Alice"}, "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Create(s.ctx, h))
	require.NoError(s.T(), s.repo.AddMember(s.ctx, h.ID, Member{Identity: "uid-bob", Name: "Bob"}))

	require.NoError(s.T(), s.repo.RemoveMember(s.ctx, h.ID, "uid-bob"))

	got, err := s.repo.GetByID(s.ctx, h.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"Alice"}, got.MemberNames())

	assert.ErrorIs(s.T(), s.repo.RemoveMember(s.ctx, h.ID, "uid-bob"), errors.NotFound)
}

func (s *RepositoryTestSuite) TestDeleteRemovesExpenses() {
	h, err := NewHome("Flat", Member{Identity: "uid-alice", Name: "Alice"}, "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.repo.Create(s.ctx, h))

	_, err = s.db.ExecContext(s.ctx, `INSERT INTO expenses (id, home_id, payer, amount, reason, split_type, expense_date, created_by)
		VALUES ('e1', $1, 'Alice', '10.00', 'milk', 'equal', $2, 'uid-alice')`, h.ID, time.Now().UTC())
	require.NoError(s.T(), err)
	_, err = s.db.ExecContext(s.ctx, `INSERT INTO expense_debtors (expense_id, position, name, amount, paid) VALUES ('e1', 0, 'Alice', '10.00', TRUE)`)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.repo.Delete(s.ctx, h.ID))

	got, err := s.repo.GetByID(s.ctx, h.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got)

	for _, table := range []string{"expenses", "expense_debtors", "home_members"} {
		var n int
		require.NoError(s.T(), s.db.QueryRowContext(s.ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(s.T(), n, table)
	}

	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, h.ID), errors.NotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
