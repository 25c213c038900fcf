package postgres

import (
	"context"
	"testing"
	"time"

	"cashback-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestToken(issuerID uuid.UUID) *domain.PaymentToken {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.PaymentToken{
		ID:          uuid.New(),
		Code:        "0123456789abcdef0123456789abcdef",
		IssuerID:    issuerID,
		Amount:      10000,
		Description: "Order #42",
		Status:      domain.TokenStatusActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}

func tokenColumns() []string {
	return []string{"id", "code", "issuer_id", "amount", "description", "status", "issued_at", "expires_at", "used_by", "used_at"}
}

func tokenRow(t *domain.PaymentToken) *pgxmock.Rows {
	return pgxmock.NewRows(tokenColumns()).AddRow(
		t.ID, t.Code, t.IssuerID, t.Amount, t.Description,
		t.Status, t.IssuedAt, t.ExpiresAt, t.UsedBy, t.UsedAt,
	)
}

func TestTokenRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	tok := newTestToken(uuid.New())

	mock.ExpectExec("INSERT INTO payment_tokens").
		WithArgs(tok.ID, tok.Code, tok.IssuerID, tok.Amount, tok.Description,
			tok.Status, tok.IssuedAt, tok.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), tok)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_GetByCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	tok := newTestToken(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM payment_tokens WHERE code").
		WithArgs(tok.Code).
		WillReturnRows(tokenRow(tok))

	result, err := repo.GetByCode(context.Background(), tok.Code)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tok.Code, result.Code)
	assert.Equal(t, domain.TokenStatusActive, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_GetByCode_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM payment_tokens WHERE code").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(tokenColumns()))

	result, err := repo.GetByCode(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_GetByCodeForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	tok := newTestToken(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM payment_tokens WHERE code .+ FOR UPDATE").
		WithArgs(tok.Code).
		WillReturnRows(tokenRow(tok))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByCodeForUpdate(context.Background(), tx, tok.Code)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tok.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_MarkUsed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	tok := newTestToken(uuid.New())
	usedBy := uuid.New()
	usedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_tokens SET status = 'USED'").
		WithArgs(usedBy, usedAt, tok.Code).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkUsed(context.Background(), tx, tok.Code, usedBy, usedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_MarkUsed_AlreadyConsumed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	tok := newTestToken(uuid.New())
	usedBy := uuid.New()
	usedAt := time.Now().UTC()

	mock.ExpectBegin()
	// Zero rows matched: the token is no longer ACTIVE
	mock.ExpectExec("UPDATE payment_tokens SET status = 'USED'").
		WithArgs(usedBy, usedAt, tok.Code).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkUsed(context.Background(), tx, tok.Code, usedBy, usedAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_MarkExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	code := "0123456789abcdef0123456789abcdef"

	mock.ExpectExec("UPDATE payment_tokens SET status = 'EXPIRED'").
		WithArgs(code).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.MarkExpired(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Cancel_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTokenRepo(mock)
	code := "0123456789abcdef0123456789abcdef"

	mock.ExpectExec("UPDATE payment_tokens SET status = 'CANCELLED'").
		WithArgs(code).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Cancel(context.Background(), code)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
