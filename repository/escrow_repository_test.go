package repository_test

import (
	"context"
	"testing"

	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/repository"
	"wagerpay/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrowRepository(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewEscrowRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 3001, 10000)
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 3002, 10000)
	require.NoError(t, err)

	t.Run("CreatePair_LocksBothSides", func(t *testing.T) {
		escrows, err := repo.CreatePair(ctx, 8001, 3001, 3002, 1500)
		require.NoError(t, err)
		require.Len(t, escrows, 2)

		for _, e := range escrows {
			assert.Equal(t, int64(8001), e.ChallengeID)
			assert.Equal(t, int64(1500), e.Amount)
			assert.Equal(t, entities.EscrowStatusLocked, e.Status)
			assert.Nil(t, e.ReleasedAt)
		}
		assert.ElementsMatch(t, []int64{3001, 3002}, []int64{escrows[0].UserID, escrows[1].UserID})
	})

	t.Run("CreatePair_DuplicateChallengeIsConcurrentUpdate", func(t *testing.T) {
		_, err := repo.CreatePair(ctx, 8002, 3001, 3002, 500)
		require.NoError(t, err)

		_, err = repo.CreatePair(ctx, 8002, 3001, 3002, 500)
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	})

	t.Run("GetByChallenge_OrderedByUser", func(t *testing.T) {
		_, err := repo.CreatePair(ctx, 8003, 3002, 3001, 800)
		require.NoError(t, err)

		escrows, err := repo.GetByChallenge(ctx, 8003)
		require.NoError(t, err)
		require.Len(t, escrows, 2)
		assert.Equal(t, int64(3001), escrows[0].UserID)
		assert.Equal(t, int64(3002), escrows[1].UserID)
	})

	t.Run("MarkTerminal_FlipsExactlyOnce", func(t *testing.T) {
		escrows, err := repo.CreatePair(ctx, 8004, 3001, 3002, 600)
		require.NoError(t, err)

		flipped, err := repo.MarkTerminal(ctx, escrows[0].ID, entities.EscrowStatusReleased)
		require.NoError(t, err)
		assert.True(t, flipped)

		// Terminal rows never flip again, to either status
		flipped, err = repo.MarkTerminal(ctx, escrows[0].ID, entities.EscrowStatusRefunded)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("MarkTerminal_RejectsNonTerminalStatus", func(t *testing.T) {
		escrows, err := repo.CreatePair(ctx, 8005, 3001, 3002, 600)
		require.NoError(t, err)

		_, err = repo.MarkTerminal(ctx, escrows[0].ID, entities.EscrowStatusLocked)
		assert.Error(t, err)
	})

	t.Run("SumLockedByUser_CountsOnlyLocked", func(t *testing.T) {
		_, err := userRepo.Create(ctx, 3003, 10000)
		require.NoError(t, err)
		_, err = userRepo.Create(ctx, 3004, 10000)
		require.NoError(t, err)

		first, err := repo.CreatePair(ctx, 8006, 3003, 3004, 1000)
		require.NoError(t, err)
		_, err = repo.CreatePair(ctx, 8007, 3003, 3004, 250)
		require.NoError(t, err)

		total, err := repo.SumLockedByUser(ctx, 3003)
		require.NoError(t, err)
		assert.Equal(t, int64(1250), total)

		for _, e := range first {
			if e.UserID == 3003 {
				_, err = repo.MarkTerminal(ctx, e.ID, entities.EscrowStatusRefunded)
				require.NoError(t, err)
			}
		}

		total, err = repo.SumLockedByUser(ctx, 3003)
		require.NoError(t, err)
		assert.Equal(t, int64(250), total)
	})
}
