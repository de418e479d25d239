package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newWalletServiceForTest() (*testhelpers.MockUserRepository, *testhelpers.MockTransactionRepository, *testhelpers.MockEventPublisher, *walletService) {
	mockUserRepo := new(testhelpers.MockUserRepository)
	mockTxnRepo := new(testhelpers.MockTransactionRepository)
	mockPublisher := new(testhelpers.MockEventPublisher)
	svc := NewWalletService(mockUserRepo, mockTxnRepo, mockPublisher, "USD").(*walletService)
	return mockUserRepo, mockTxnRepo, mockPublisher, svc
}

func TestWalletService_CompleteCredit(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, mockPublisher, svc := newWalletServiceForTest()

	txn := &entities.Transaction{
		ID:     7,
		UserID: 123,
		Type:   entities.TransactionTypeDeposit,
		Amount: 2500,
		Status: entities.TransactionStatusPending3DS,
	}

	mockTxnRepo.On("MarkCompleted", ctx, int64(7)).Return(true, nil)
	mockUserRepo.On("Credit", ctx, int64(123), int64(2500)).Return(nil)
	mockUserRepo.On("GetByID", ctx, int64(123)).Return(&entities.User{ID: 123, Balance: 12500, AvailableBalance: 12500}, nil)
	mockPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)
	mockPublisher.On("Publish", mock.AnythingOfType("events.TransactionCompletedEvent")).Return(nil)

	applied, err := svc.CompleteCredit(ctx, txn)

	assert.NoError(t, err)
	assert.True(t, applied)
	mockTxnRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestWalletService_CompleteCredit_AlreadyFinalized(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	txn := &entities.Transaction{ID: 7, UserID: 123, Type: entities.TransactionTypeDeposit, Amount: 2500}

	mockTxnRepo.On("MarkCompleted", ctx, int64(7)).Return(false, nil)

	applied, err := svc.CompleteCredit(ctx, txn)

	assert.NoError(t, err)
	assert.False(t, applied)
	mockUserRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	mockTxnRepo.AssertExpectations(t)
}

func TestWalletService_BeginDebit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	mockTxnRepo.On("Create", ctx, mock.MatchedBy(func(txn *entities.Transaction) bool {
		return txn.UserID == 123 &&
			txn.Type == entities.TransactionTypeWithdrawal &&
			txn.Amount == 5000 &&
			txn.Status == entities.TransactionStatusPending
	})).Return(nil)
	mockUserRepo.On("Debit", ctx, int64(123), int64(5000)).
		Return(domain.NewInsufficientFundsError(123, 3000, 5000))

	txn, err := svc.BeginDebit(ctx, 123, 5000, "", nil)

	assert.Nil(t, txn)
	var insufficientErr *domain.InsufficientFundsError
	assert.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, int64(2000), insufficientErr.Shortfall())
	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestWalletService_BeginDebit_RejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	txn, err := svc.BeginDebit(ctx, 123, 0, "", nil)

	assert.Nil(t, txn)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	mockTxnRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockUserRepo.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletService_CompensateDebit(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, mockPublisher, svc := newWalletServiceForTest()

	txn := &entities.Transaction{
		ID:     9,
		UserID: 123,
		Type:   entities.TransactionTypeWithdrawal,
		Amount: 4000,
		Status: entities.TransactionStatusPending,
	}

	mockTxnRepo.On("MarkFailed", ctx, int64(9)).Return(true, nil)
	mockUserRepo.On("Credit", ctx, int64(123), int64(4000)).Return(nil)
	mockUserRepo.On("GetByID", ctx, int64(123)).Return(&entities.User{ID: 123, Balance: 10000}, nil)
	mockPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)

	err := svc.CompensateDebit(ctx, txn)

	assert.NoError(t, err)
	mockTxnRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestWalletService_CompensateDebit_AlreadyFinalized(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	txn := &entities.Transaction{ID: 9, UserID: 123, Type: entities.TransactionTypeWithdrawal, Amount: 4000}

	mockTxnRepo.On("MarkFailed", ctx, int64(9)).Return(false, nil)

	err := svc.CompensateDebit(ctx, txn)

	assert.NoError(t, err)
	mockUserRepo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	mockTxnRepo.AssertExpectations(t)
}

func TestWalletService_ProcessDeferred_WithdrawalFailsRevalidation(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	processAt := time.Now().Add(-time.Hour)
	txn := &entities.Transaction{
		ID:        11,
		UserID:    123,
		Type:      entities.TransactionTypeWithdrawal,
		Amount:    8000,
		Status:    entities.TransactionStatusPending,
		ProcessAt: &processAt,
	}

	mockUserRepo.On("Debit", ctx, int64(123), int64(8000)).
		Return(domain.NewInsufficientFundsError(123, 1000, 8000))
	mockTxnRepo.On("MarkFailed", ctx, int64(11)).Return(true, nil)

	err := svc.ProcessDeferred(ctx, txn)

	assert.NoError(t, err)
	mockTxnRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestWalletService_ProcessDeferred_ConcurrentSweepLosesClaim(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, mockTxnRepo, _, svc := newWalletServiceForTest()

	processAt := time.Now().Add(-time.Hour)
	txn := &entities.Transaction{
		ID:        12,
		UserID:    123,
		Type:      entities.TransactionTypeDeposit,
		Amount:    2500,
		Status:    entities.TransactionStatusPending,
		ProcessAt: &processAt,
	}

	mockUserRepo.On("Credit", ctx, int64(123), int64(2500)).Return(nil)
	mockTxnRepo.On("MarkCompleted", ctx, int64(12)).Return(false, nil)

	err := svc.ProcessDeferred(ctx, txn)

	assert.True(t, errors.Is(err, domain.ErrConcurrentUpdate))
	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestWalletService_GetBalance_UnknownUser(t *testing.T) {
	ctx := context.Background()
	mockUserRepo, _, _, svc := newWalletServiceForTest()

	mockUserRepo.On("GetByID", ctx, int64(999)).Return(nil, nil)

	summary, err := svc.GetBalance(ctx, 999)

	assert.Nil(t, summary)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestWalletService_GetTransactionHistory_ClampsPaging(t *testing.T) {
	ctx := context.Background()
	_, mockTxnRepo, _, svc := newWalletServiceForTest()

	mockTxnRepo.On("ListByUser", ctx, int64(123), 1, maxHistoryLimit, (*entities.TransactionType)(nil)).
		Return([]*entities.Transaction{}, nil)

	txns, err := svc.GetTransactionHistory(ctx, 123, 0, 5000, nil)

	assert.NoError(t, err)
	assert.Empty(t, txns)
	mockTxnRepo.AssertExpectations(t)
}
