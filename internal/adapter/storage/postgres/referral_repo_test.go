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

func TestReferralRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReferralRepo(mock)
	ref := &domain.Referral{
		ID:         uuid.New(),
		ReferrerID: uuid.New(),
		ReferredID: uuid.New(),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO referrals").
		WithArgs(ref.ID, ref.ReferrerID, ref.ReferredID, ref.BonusClaimed, ref.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, ref)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepo_GetByReferred(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReferralRepo(mock)
	ref := &domain.Referral{
		ID:           uuid.New(),
		ReferrerID:   uuid.New(),
		ReferredID:   uuid.New(),
		BonusClaimed: true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectQuery("SELECT .+ FROM referrals WHERE referred_id").
		WithArgs(ref.ReferredID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "referrer_id", "referred_id", "bonus_claimed", "created_at"}).
			AddRow(ref.ID, ref.ReferrerID, ref.ReferredID, ref.BonusClaimed, ref.CreatedAt))

	result, err := repo.GetByReferred(context.Background(), ref.ReferredID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, ref.ReferrerID, result.ReferrerID)
	assert.True(t, result.BonusClaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepo_GetByReferred_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReferralRepo(mock)
	referredID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM referrals WHERE referred_id").
		WithArgs(referredID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "referrer_id", "referred_id", "bonus_claimed", "created_at"}))

	result, err := repo.GetByReferred(context.Background(), referredID)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepo_ClaimActivationBonus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReferralRepo(mock)
	referredID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE referrals SET bonus_claimed = TRUE").
		WithArgs(referredID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.ClaimActivationBonus(context.Background(), tx, referredID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepo_ClaimActivationBonus_AlreadyClaimed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReferralRepo(mock)
	referredID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE referrals SET bonus_claimed = TRUE").
		WithArgs(referredID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.ClaimActivationBonus(context.Background(), tx, referredID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
