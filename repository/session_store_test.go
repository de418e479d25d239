package repository_test

import (
	"context"
	"testing"
	"time"

	"wagerpay/domain/entities"
	"wagerpay/repository"
	"wagerpay/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	store := repository.NewSessionStore(testDB.DB)
	ctx := context.Background()

	t.Run("PutAndGetRoundtrip", func(t *testing.T) {
		session := &entities.AuthSession{
			SessionID:     "sess-1",
			UserID:        42,
			TransactionID: 7,
			Amount:        2500,
			State:         entities.AuthSessionChallengePending,
			ChallengeData: "acs-blob",
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, store.Put(ctx, "sess-1", session, time.Minute))

		var loaded entities.AuthSession
		found, err := store.Get(ctx, "sess-1", &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(42), loaded.UserID)
		assert.Equal(t, int64(7), loaded.TransactionID)
		assert.Equal(t, entities.AuthSessionChallengePending, loaded.State)
		assert.Equal(t, "acs-blob", loaded.ChallengeData)
	})

	t.Run("Put_OverwritesExistingEntry", func(t *testing.T) {
		session := &entities.AuthSession{SessionID: "sess-2", State: entities.AuthSessionMethodPending}
		require.NoError(t, store.Put(ctx, "sess-2", session, time.Minute))

		session.State = entities.AuthSessionApproved
		require.NoError(t, store.Put(ctx, "sess-2", session, time.Minute))

		var loaded entities.AuthSession
		found, err := store.Get(ctx, "sess-2", &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, entities.AuthSessionApproved, loaded.State)
	})

	t.Run("Get_ExpiredEntryIsGone", func(t *testing.T) {
		session := &entities.AuthSession{SessionID: "sess-3"}
		require.NoError(t, store.Put(ctx, "sess-3", session, -time.Second))

		var loaded entities.AuthSession
		found, err := store.Get(ctx, "sess-3", &loaded)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		session := &entities.AuthSession{SessionID: "sess-4"}
		require.NoError(t, store.Put(ctx, "sess-4", session, time.Minute))
		require.NoError(t, store.Delete(ctx, "sess-4"))

		var loaded entities.AuthSession
		found, err := store.Get(ctx, "sess-4", &loaded)
		require.NoError(t, err)
		assert.False(t, found)

		// Deleting a missing key is not an error
		require.NoError(t, store.Delete(ctx, "sess-4"))
	})

	t.Run("PurgeExpired_RemovesOnlyExpired", func(t *testing.T) {
		live := &entities.AuthSession{SessionID: "sess-live"}
		dead := &entities.AuthSession{SessionID: "sess-dead"}
		require.NoError(t, store.Put(ctx, "sess-live", live, time.Hour))
		require.NoError(t, store.Put(ctx, "sess-dead", dead, -time.Second))

		purged, err := store.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, purged, int64(1))

		var loaded entities.AuthSession
		found, err := store.Get(ctx, "sess-live", &loaded)
		require.NoError(t, err)
		assert.True(t, found)
	})
}
