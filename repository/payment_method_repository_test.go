package repository_test

import (
	"context"
	"testing"

	"wagerpay/domain/entities"
	"wagerpay/repository"
	"wagerpay/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMethodRepository(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := repository.NewPaymentMethodRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 5001, 0)
	require.NoError(t, err)

	t.Run("CreateAndGetByID", func(t *testing.T) {
		method := &entities.PaymentMethod{
			UserID:       5001,
			Kind:         entities.PaymentMethodKindCard,
			GatewayToken: "tok_visa",
			LastFour:     "4242",
		}
		require.NoError(t, repo.Create(ctx, method))
		assert.NotZero(t, method.ID)

		fetched, err := repo.GetByID(ctx, method.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, entities.PaymentMethodKindCard, fetched.Kind)
		assert.Equal(t, "tok_visa", fetched.GatewayToken)
		assert.Equal(t, "4242", fetched.LastFour)
	})

	t.Run("GetByID_UnknownReturnsNil", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, fetched)
	})

	t.Run("GetByUser", func(t *testing.T) {
		_, err := userRepo.Create(ctx, 5002, 0)
		require.NoError(t, err)

		card := &entities.PaymentMethod{UserID: 5002, Kind: entities.PaymentMethodKindCard, GatewayToken: "tok_card", LastFour: "1111"}
		bank := &entities.PaymentMethod{UserID: 5002, Kind: entities.PaymentMethodKindBank, GatewayToken: "ba_tok", LastFour: "6789"}
		require.NoError(t, repo.Create(ctx, card))
		require.NoError(t, repo.Create(ctx, bank))

		methods, err := repo.GetByUser(ctx, 5002)
		require.NoError(t, err)
		assert.Len(t, methods, 2)
	})
}
