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

func TestChallengeRepository(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewChallengeRepository(testDB.DB)
	ctx := context.Background()

	t.Run("CreateAcceptedAndGetByID", func(t *testing.T) {
		created, err := repo.CreateAccepted(ctx, 9001, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(9001), created.ID)
		assert.Equal(t, entities.ChallengeStatusAccepted, created.Status)
		assert.Equal(t, int64(1000), created.Wager)
		assert.Nil(t, created.WinnerID)
		assert.Nil(t, created.SettledAt)

		fetched, err := repo.GetByID(ctx, 9001)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, created.Wager, fetched.Wager)
	})

	t.Run("GetByID_UnknownReturnsNil", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, fetched)
	})

	t.Run("CreateAccepted_DuplicateIsConcurrentUpdate", func(t *testing.T) {
		_, err := repo.CreateAccepted(ctx, 9002, 500)
		require.NoError(t, err)

		_, err = repo.CreateAccepted(ctx, 9002, 500)
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	})

	t.Run("RecordOutcome_WritesExactlyOnce", func(t *testing.T) {
		_, err := repo.CreateAccepted(ctx, 9003, 1000)
		require.NoError(t, err)

		winnerID := int64(42)
		recorded, err := repo.RecordOutcome(ctx, 9003, entities.ChallengeStatusSettled, &winnerID)
		require.NoError(t, err)
		assert.True(t, recorded)

		// A second resolution attempt must not revise the outcome
		otherWinner := int64(43)
		recorded, err = repo.RecordOutcome(ctx, 9003, entities.ChallengeStatusSettled, &otherWinner)
		require.NoError(t, err)
		assert.False(t, recorded)

		fetched, err := repo.GetByID(ctx, 9003)
		require.NoError(t, err)
		assert.Equal(t, entities.ChallengeStatusSettled, fetched.Status)
		require.NotNil(t, fetched.WinnerID)
		assert.Equal(t, int64(42), *fetched.WinnerID)
		assert.NotNil(t, fetched.SettledAt)
	})

	t.Run("RecordOutcome_CancelledHasNoWinner", func(t *testing.T) {
		_, err := repo.CreateAccepted(ctx, 9004, 1000)
		require.NoError(t, err)

		recorded, err := repo.RecordOutcome(ctx, 9004, entities.ChallengeStatusCancelled, nil)
		require.NoError(t, err)
		assert.True(t, recorded)

		fetched, err := repo.GetByID(ctx, 9004)
		require.NoError(t, err)
		assert.Equal(t, entities.ChallengeStatusCancelled, fetched.Status)
		assert.Nil(t, fetched.WinnerID)
	})
}
