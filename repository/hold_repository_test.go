package repository

import (
	"context"
	"testing"

	"codeclash/models"
	"codeclash/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	matchRepo := NewMatchRepository(testDB.DB)
	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewHoldRepository(testDB.DB)
	ctx := context.Background()

	nextUser := int64(100)
	setup := func(t *testing.T) (*models.CreditAccount, *models.Match) {
		account, err := accountRepo.Create(ctx, nextUser, 1000)
		require.NoError(t, err)
		nextUser++

		match := testutil.CreateTestMatch(account.UserID, models.MatchStatusOpen)
		require.NoError(t, matchRepo.Create(ctx, match))
		return account, match
	}

	t.Run("create and get", func(t *testing.T) {
		account, match := setup(t)

		hold := testutil.CreateTestHold(account.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, hold))
		assert.NotZero(t, hold.ID)
		assert.Equal(t, models.HoldStatusActive, hold.Status)

		loaded, err := repo.GetByID(ctx, hold.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, int64(100), loaded.AmountReserved)
		assert.Nil(t, loaded.AmountSettled)
	})

	t.Run("one active hold per account and match", func(t *testing.T) {
		account, match := setup(t)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestHold(account.ID, match.ID, 100)))
		err := repo.Create(ctx, testutil.CreateTestHold(account.ID, match.ID, 50))
		assert.Error(t, err)
	})

	t.Run("a released hold can be replaced", func(t *testing.T) {
		account, match := setup(t)

		first := testutil.CreateTestHold(account.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, first))
		released, err := repo.MarkReleased(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, released)

		err = repo.Create(ctx, testutil.CreateTestHold(account.ID, match.ID, 100))
		assert.NoError(t, err, "the partial index only guards active holds")
	})

	t.Run("release applies only once", func(t *testing.T) {
		account, match := setup(t)
		hold := testutil.CreateTestHold(account.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, hold))

		released, err := repo.MarkReleased(ctx, hold.ID)
		require.NoError(t, err)
		assert.True(t, released)

		released, err = repo.MarkReleased(ctx, hold.ID)
		require.NoError(t, err)
		assert.False(t, released)
	})

	t.Run("settle records the credited amount once", func(t *testing.T) {
		account, match := setup(t)
		hold := testutil.CreateTestHold(account.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, hold))

		settled, err := repo.MarkSettled(ctx, hold.ID, 180)
		require.NoError(t, err)
		assert.True(t, settled)

		loaded, err := repo.GetByID(ctx, hold.ID)
		require.NoError(t, err)
		assert.Equal(t, models.HoldStatusSettled, loaded.Status)
		require.NotNil(t, loaded.AmountSettled)
		assert.Equal(t, int64(180), *loaded.AmountSettled)

		settled, err = repo.MarkSettled(ctx, hold.ID, 999)
		require.NoError(t, err)
		assert.False(t, settled, "settled holds must not be re-settled")
	})

	t.Run("a released hold cannot be settled", func(t *testing.T) {
		account, match := setup(t)
		hold := testutil.CreateTestHold(account.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, hold))

		_, err := repo.MarkReleased(ctx, hold.ID)
		require.NoError(t, err)

		settled, err := repo.MarkSettled(ctx, hold.ID, 180)
		require.NoError(t, err)
		assert.False(t, settled)
	})

	t.Run("active lookup excludes released and settled holds", func(t *testing.T) {
		first, match := setup(t)
		second, err := accountRepo.Create(ctx, nextUser, 1000)
		require.NoError(t, err)
		nextUser++
		third, err := accountRepo.Create(ctx, nextUser, 1000)
		require.NoError(t, err)
		nextUser++

		active := testutil.CreateTestHold(first.ID, match.ID, 100)
		releasedHold := testutil.CreateTestHold(second.ID, match.ID, 100)
		settledHold := testutil.CreateTestHold(third.ID, match.ID, 100)
		require.NoError(t, repo.Create(ctx, active))
		require.NoError(t, repo.Create(ctx, releasedHold))
		require.NoError(t, repo.Create(ctx, settledHold))

		_, err = repo.MarkReleased(ctx, releasedHold.ID)
		require.NoError(t, err)
		_, err = repo.MarkSettled(ctx, settledHold.ID, 0)
		require.NoError(t, err)

		holds, err := repo.GetActiveByMatch(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, holds, 1)
		assert.Equal(t, active.ID, holds[0].ID)
	})
}
