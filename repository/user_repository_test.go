package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"wagerpay/domain"
	"wagerpay/repository"
	"wagerpay/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("CreateAndGetByID", func(t *testing.T) {
		user, err := repo.Create(ctx, 1001, 10000)
		require.NoError(t, err)
		assert.Equal(t, int64(1001), user.ID)
		assert.Equal(t, int64(10000), user.Balance)
		assert.Equal(t, int64(10000), user.AvailableBalance)

		fetched, err := repo.GetByID(ctx, 1001)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, int64(10000), fetched.Balance)
		assert.Equal(t, int64(0), fetched.Escrowed)
	})

	t.Run("GetByID_UnknownUserReturnsNil", func(t *testing.T) {
		user, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("CreditAndDebit", func(t *testing.T) {
		_, err := repo.Create(ctx, 1002, 10000)
		require.NoError(t, err)

		require.NoError(t, repo.Credit(ctx, 1002, 2500))
		require.NoError(t, repo.Debit(ctx, 1002, 5000))

		user, err := repo.GetByID(ctx, 1002)
		require.NoError(t, err)
		assert.Equal(t, int64(7500), user.Balance)
	})

	t.Run("Credit_UnknownUser", func(t *testing.T) {
		err := repo.Credit(ctx, 999999, 100)
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("Debit_InsufficientBalance", func(t *testing.T) {
		_, err := repo.Create(ctx, 1003, 500)
		require.NoError(t, err)

		err = repo.Debit(ctx, 1003, 600)
		var insufficientErr *domain.InsufficientFundsError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, int64(500), insufficientErr.Available)
		assert.Equal(t, int64(600), insufficientErr.Requested)

		// Balance is untouched after the rejected debit
		user, err := repo.GetByID(ctx, 1003)
		require.NoError(t, err)
		assert.Equal(t, int64(500), user.Balance)
	})

	t.Run("Debit_RespectsLockedEscrow", func(t *testing.T) {
		_, err := repo.Create(ctx, 1004, 2000)
		require.NoError(t, err)
		_, err = repo.Create(ctx, 1005, 2000)
		require.NoError(t, err)

		escrowRepo := repository.NewEscrowRepository(testDB.DB)
		_, err = escrowRepo.CreatePair(ctx, 7001, 1004, 1005, 1500)
		require.NoError(t, err)

		// Raw balance 2000, locked 1500, so only 500 is spendable
		err = repo.Debit(ctx, 1004, 600)
		var insufficientErr *domain.InsufficientFundsError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, int64(500), insufficientErr.Available)

		require.NoError(t, repo.Debit(ctx, 1004, 500))

		user, err := repo.GetByID(ctx, 1004)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), user.Balance)
		assert.Equal(t, int64(1500), user.Escrowed)
		assert.Equal(t, int64(0), user.AvailableBalance)
	})

	t.Run("Debit_ConcurrentOnlyOneSucceeds", func(t *testing.T) {
		_, err := repo.Create(ctx, 1006, 2000)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.Debit(ctx, 1006, 1500)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				var insufficientErr *domain.InsufficientFundsError
				assert.ErrorAs(t, err, &insufficientErr)
			}
		}
		assert.Equal(t, 1, succeeded)

		user, err := repo.GetByID(ctx, 1006)
		require.NoError(t, err)
		assert.Equal(t, int64(500), user.Balance)
	})

	t.Run("Debit_WaitsForInFlightEscrowLock", func(t *testing.T) {
		_, err := repo.Create(ctx, 1009, 2000)
		require.NoError(t, err)
		_, err = repo.Create(ctx, 1010, 2000)
		require.NoError(t, err)

		// Transaction 1 holds the wallet row lock with the escrow pair
		// inserted but not yet committed, the way a wager lock does
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		_, err = repository.NewUserRepositoryWithTx(tx).GetByIDForUpdate(ctx, 1009)
		require.NoError(t, err)
		_, err = repository.NewEscrowRepositoryWithTx(tx).CreatePair(ctx, 7003, 1009, 1010, 1500)
		require.NoError(t, err)

		// A concurrent debit must wait for that lock and honor the escrow
		// it finds once the lock holder commits
		debitErr := make(chan error, 1)
		go func() {
			tx2, err := testDB.DB.Begin(ctx)
			if err != nil {
				debitErr <- err
				return
			}
			defer tx2.Rollback(ctx)
			if err := repository.NewUserRepositoryWithTx(tx2).Debit(ctx, 1009, 600); err != nil {
				debitErr <- err
				return
			}
			debitErr <- tx2.Commit(ctx)
		}()

		time.Sleep(200 * time.Millisecond)
		require.NoError(t, tx.Commit(ctx))

		err = <-debitErr
		var insufficientErr *domain.InsufficientFundsError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, int64(500), insufficientErr.Available)

		user, err := repo.GetByID(ctx, 1009)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), user.Balance)
		assert.GreaterOrEqual(t, user.Balance, user.Escrowed)
	})

	t.Run("GetByIDForUpdate_PopulatesEscrowed", func(t *testing.T) {
		_, err := repo.Create(ctx, 1007, 3000)
		require.NoError(t, err)
		_, err = repo.Create(ctx, 1008, 3000)
		require.NoError(t, err)

		escrowRepo := repository.NewEscrowRepository(testDB.DB)
		_, err = escrowRepo.CreatePair(ctx, 7002, 1007, 1008, 1000)
		require.NoError(t, err)

		user, err := repo.GetByIDForUpdate(ctx, 1007)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(3000), user.Balance)
		assert.Equal(t, int64(1000), user.Escrowed)
		assert.Equal(t, int64(2000), user.AvailableBalance)
	})
}
