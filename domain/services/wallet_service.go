package services

import (
	"context"
	"errors"
	"fmt"

	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/events"
	"wagerpay/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type walletService struct {
	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	eventPublisher  interfaces.EventPublisher
	currency        string
}

// NewWalletService creates a new wallet service bound to the caller's unit of work
func NewWalletService(userRepo interfaces.UserRepository, transactionRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher, currency string) interfaces.WalletService {
	return &walletService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		eventPublisher:  eventPublisher,
		currency:        currency,
	}
}

// GetBalance returns balance, available balance and escrowed total
func (s *walletService) GetBalance(ctx context.Context, userID int64) (*interfaces.BalanceSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewValidationError("userId", fmt.Sprintf("user %d not found", userID))
	}

	return &interfaces.BalanceSummary{
		UserID:           user.ID,
		Balance:          user.Balance,
		AvailableBalance: user.AvailableBalance,
		Escrowed:         user.Escrowed,
	}, nil
}

// GetTransactionHistory returns a page of the user's ledger, newest first
func (s *walletService) GetTransactionHistory(ctx context.Context, userID int64, page, limit int, typeFilter *entities.TransactionType) ([]*entities.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	txns, err := s.transactionRepo.ListByUser(ctx, userID, page, limit, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// CreatePendingCredit appends a pending credit-side ledger row without
// touching the balance
func (s *walletService) CreatePendingCredit(ctx context.Context, userID int64, txnType entities.TransactionType, amount int64, status entities.TransactionStatus, externalRef string, metadata map[string]any) (*entities.Transaction, error) {
	if !txnType.IsCredit() {
		return nil, domain.NewValidationError("type", fmt.Sprintf("%s is not a credit type", txnType))
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	txn := &entities.Transaction{
		UserID:   userID,
		Type:     txnType,
		Amount:   amount,
		Currency: s.currency,
		Status:   status,
		Metadata: metadata,
	}
	if externalRef != "" {
		txn.ExternalRef = &externalRef
	}

	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create pending credit: %w", err)
	}
	return txn, nil
}

// CreateDeferred appends a pending ledger row that settles at processAt
func (s *walletService) CreateDeferred(ctx context.Context, txn *entities.Transaction) (*entities.Transaction, error) {
	if txn.ProcessAt == nil {
		return nil, domain.NewValidationError("processAt", "deferred transaction requires a settlement time")
	}
	if txn.Currency == "" {
		txn.Currency = s.currency
	}
	txn.Status = entities.TransactionStatusPending
	if err := txn.Validate(); err != nil {
		return nil, domain.NewValidationError("transaction", err.Error())
	}

	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create deferred transaction: %w", err)
	}
	return txn, nil
}

// CompleteCredit flips the transaction to completed and credits the wallet as
// one unit. The status guard makes this idempotent: a second resolution of the
// same transaction reports false and leaves the balance alone.
func (s *walletService) CompleteCredit(ctx context.Context, txn *entities.Transaction) (bool, error) {
	flipped, err := s.transactionRepo.MarkCompleted(ctx, txn.ID)
	if err != nil {
		return false, err
	}
	if !flipped {
		log.WithFields(log.Fields{
			"transactionID": txn.ID,
			"userID":        txn.UserID,
		}).Info("Transaction already finalized, skipping credit")
		return false, nil
	}

	if err := s.userRepo.Credit(ctx, txn.UserID, txn.Amount); err != nil {
		return false, err
	}

	s.publishCompleted(ctx, txn, txn.Amount)
	return true, nil
}

// FailTransaction flips the transaction to failed with no balance change
func (s *walletService) FailTransaction(ctx context.Context, txn *entities.Transaction) (bool, error) {
	flipped, err := s.transactionRepo.MarkFailed(ctx, txn.ID)
	if err != nil {
		return false, err
	}
	return flipped, nil
}

// BeginDebit appends a pending withdrawal row and applies the atomic debit.
// The available-balance check happens inside the debit statement itself.
func (s *walletService) BeginDebit(ctx context.Context, userID int64, amount int64, externalRef string, metadata map[string]any) (*entities.Transaction, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	txn := &entities.Transaction{
		UserID:   userID,
		Type:     entities.TransactionTypeWithdrawal,
		Amount:   amount,
		Currency: s.currency,
		Status:   entities.TransactionStatusPending,
		Metadata: metadata,
	}
	if externalRef != "" {
		txn.ExternalRef = &externalRef
	}

	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal transaction: %w", err)
	}

	if err := s.userRepo.Debit(ctx, userID, amount); err != nil {
		return nil, err
	}

	s.publishBalanceChange(ctx, txn, -amount)
	return txn, nil
}

// CompleteDebit marks an already-debited withdrawal completed
func (s *walletService) CompleteDebit(ctx context.Context, txn *entities.Transaction) (bool, error) {
	flipped, err := s.transactionRepo.MarkCompleted(ctx, txn.ID)
	if err != nil {
		return false, err
	}
	if flipped {
		s.publishTransactionCompleted(txn)
	}
	return flipped, nil
}

// CompensateDebit reverses a withdrawal whose gateway call failed after the
// debit took effect. The failed flip guards the compensating credit so a
// duplicate compensation attempt is a no-op.
func (s *walletService) CompensateDebit(ctx context.Context, txn *entities.Transaction) error {
	flipped, err := s.transactionRepo.MarkFailed(ctx, txn.ID)
	if err != nil {
		return err
	}
	if !flipped {
		log.WithFields(log.Fields{
			"transactionID": txn.ID,
			"userID":        txn.UserID,
		}).Warn("Withdrawal already finalized, skipping compensation")
		return nil
	}

	if err := s.userRepo.Credit(ctx, txn.UserID, txn.Amount); err != nil {
		return fmt.Errorf("failed to apply compensating credit: %w", err)
	}

	log.WithFields(log.Fields{
		"transactionID": txn.ID,
		"userID":        txn.UserID,
		"amount":        txn.Amount,
	}).Info("Withdrawal reversed with compensating credit")

	s.publishBalanceChange(ctx, txn, txn.Amount)
	return nil
}

// ProcessDeferred settles one due deferred transaction. The completed flip is
// the claim: when an overlapping sweep already settled the row, the flip
// misses and the caller's unit of work rolls the mutation back.
func (s *walletService) ProcessDeferred(ctx context.Context, txn *entities.Transaction) error {
	switch {
	case txn.Type.IsCredit():
		if err := s.userRepo.Credit(ctx, txn.UserID, txn.Amount); err != nil {
			return err
		}
		flipped, err := s.transactionRepo.MarkCompleted(ctx, txn.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("deferred transaction %d: %w", txn.ID, domain.ErrConcurrentUpdate)
		}
		s.publishCompleted(ctx, txn, txn.Amount)
		return nil

	case txn.Type.IsDebit():
		err := s.userRepo.Debit(ctx, txn.UserID, txn.Amount)
		var insufficient *domain.InsufficientFundsError
		if errors.As(err, &insufficient) {
			// Re-validation failed: the wallet no longer covers the
			// withdrawal. Fail the row without mutation.
			flipped, ferr := s.transactionRepo.MarkFailed(ctx, txn.ID)
			if ferr != nil {
				return ferr
			}
			if !flipped {
				return fmt.Errorf("deferred transaction %d: %w", txn.ID, domain.ErrConcurrentUpdate)
			}
			log.WithFields(log.Fields{
				"transactionID": txn.ID,
				"userID":        txn.UserID,
				"available":     insufficient.Available,
				"requested":     insufficient.Requested,
			}).Warn("Deferred withdrawal failed re-validation")
			return nil
		}
		if err != nil {
			return err
		}
		flipped, err := s.transactionRepo.MarkCompleted(ctx, txn.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("deferred transaction %d: %w", txn.ID, domain.ErrConcurrentUpdate)
		}
		s.publishCompleted(ctx, txn, -txn.Amount)
		return nil
	}

	return domain.NewValidationError("type", fmt.Sprintf("transaction type %s cannot settle deferred", txn.Type))
}

func (s *walletService) publishCompleted(ctx context.Context, txn *entities.Transaction, delta int64) {
	s.publishBalanceChange(ctx, txn, delta)
	s.publishTransactionCompleted(txn)
}

func (s *walletService) publishBalanceChange(ctx context.Context, txn *entities.Transaction, delta int64) {
	user, err := s.userRepo.GetByID(ctx, txn.UserID)
	if err != nil || user == nil {
		log.WithError(err).WithField("userID", txn.UserID).Error("Failed to load user for balance change event")
		return
	}

	event := events.BalanceChangeEvent{
		UserID:          txn.UserID,
		OldBalance:      user.Balance - delta,
		NewBalance:      user.Balance,
		ChangeAmount:    delta,
		TransactionType: txn.Type,
		TransactionID:   txn.ID,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}
}

func (s *walletService) publishTransactionCompleted(txn *entities.Transaction) {
	ref := ""
	if txn.ExternalRef != nil {
		ref = *txn.ExternalRef
	}
	event := events.TransactionCompletedEvent{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Kind:          txn.Type,
		ExternalRef:   ref,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish transaction completed event")
	}
}
