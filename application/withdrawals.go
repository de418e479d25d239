package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wagerpay/config"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WithdrawRequest pays a user out to exactly one destination: a stored bank
// token (instant rail) or raw bank details (transfer rail, clears after
// ClearHours).
type WithdrawRequest struct {
	UserID        int64
	Amount        int64
	BankAccountID *int64
	BankAccount   *interfaces.BankAccount
}

// WithdrawResult reports the ledger row backing the withdrawal. Pending means
// the debit settles when the transfer rail clears.
type WithdrawResult struct {
	Transaction *entities.Transaction
	Pending     bool
}

// Withdraw pays out to a bank destination. The instant rail debits the wallet
// first and calls the gateway with no lock held; if the gateway declines or
// errors after the debit committed, the same amount is credited back and the
// transaction marked failed before the error returns.
func (c *Core) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if (req.BankAccountID == nil) == (req.BankAccount == nil) {
		return nil, domain.NewValidationError("destination", "exactly one of bankAccountId or bankAccount is required")
	}

	if req.BankAccount != nil {
		return c.withdrawDeferred(ctx, req)
	}
	return c.withdrawInstant(ctx, req)
}

func (c *Core) withdrawInstant(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	method, err := c.loadPaymentMethod(ctx, req.UserID, *req.BankAccountID, entities.PaymentMethodKindBank)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()

	// Unit 1: pending ledger row plus the atomic debit
	txn, err := c.beginWithdrawal(ctx, req, requestID, map[string]any{"rail": "bank", "payment_method_id": method.ID})
	if err != nil {
		return nil, err
	}

	result, gatewayErr := c.gateway.BankCredit(ctx, interfaces.BankRequest{
		RequestID: requestID,
		Token:     method.GatewayToken,
		Amount:    req.Amount,
		Currency:  config.Get().Currency,
	})
	if gatewayErr == nil && !result.Approved {
		gatewayErr = &domain.GatewayError{Operation: "bank_credit", Err: errors.New("bank credit declined")}
	}

	if gatewayErr != nil {
		// Unit 2a: the debit already committed, reverse it before surfacing
		// the gateway failure
		if err := c.compensateWithdrawal(ctx, txn); err != nil {
			log.WithError(err).WithField("transactionID", txn.ID).
				Error("Failed to compensate withdrawal after gateway failure")
			return nil, errors.Join(gatewayErr, err)
		}
		return nil, gatewayErr
	}

	// Unit 2b: gateway accepted, finalize the ledger row
	if err := c.completeWithdrawal(ctx, txn); err != nil {
		return nil, err
	}
	return &WithdrawResult{Transaction: txn}, nil
}

// withdrawDeferred submits a transfer-rail payout. The wallet is not touched
// now; the sweep debits it once the rail clears, re-validating available
// balance at that point.
func (c *Core) withdrawDeferred(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	cfg := config.Get()

	summary, err := c.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if summary.AvailableBalance < req.Amount {
		return nil, domain.NewInsufficientFundsError(req.UserID, summary.AvailableBalance, req.Amount)
	}

	requestID := uuid.New().String()
	result, err := c.gateway.BankCredit(ctx, interfaces.BankRequest{
		RequestID: requestID,
		Account:   req.BankAccount,
		Amount:    req.Amount,
		Currency:  cfg.Currency,
		Tokenize:  true,
	})
	if err != nil {
		return nil, err
	}
	if !result.Approved {
		// A declined push still leaves a failed ledger row behind
		if _, err := c.recordDeclinedWithdrawal(ctx, req.UserID, req.Amount, requestID); err != nil {
			return nil, err
		}
		return nil, &domain.GatewayError{Operation: "bank_credit", Err: errors.New("bank credit declined")}
	}

	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if result.Token != "" {
		if err := c.storeBankToken(ctx, uow, req.UserID, result.Token, req.BankAccount); err != nil {
			return nil, err
		}
	}

	processAt := time.Now().UTC().Add(time.Duration(cfg.ClearHours) * time.Hour)
	txn, err := c.walletService(uow).CreateDeferred(ctx, &entities.Transaction{
		UserID:      req.UserID,
		Type:        entities.TransactionTypeWithdrawal,
		Amount:      req.Amount,
		ExternalRef: &requestID,
		Metadata:    map[string]any{"rail": "bank_transfer", "auth_code": result.AuthCode},
		ProcessAt:   &processAt,
	})
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &WithdrawResult{Transaction: txn, Pending: true}, nil
}

// recordDeclinedWithdrawal appends a failed withdrawal row with no balance change
func (c *Core) recordDeclinedWithdrawal(ctx context.Context, userID, amount int64, externalRef string) (*entities.Transaction, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn := &entities.Transaction{
		UserID:      userID,
		Type:        entities.TransactionTypeWithdrawal,
		Amount:      amount,
		Currency:    config.Get().Currency,
		Status:      entities.TransactionStatusFailed,
		ExternalRef: &externalRef,
		Metadata:    map[string]any{"rail": "bank_transfer"},
	}
	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record declined withdrawal: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

func (c *Core) beginWithdrawal(ctx context.Context, req WithdrawRequest, externalRef string, metadata map[string]any) (*entities.Transaction, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := c.walletService(uow).BeginDebit(ctx, req.UserID, req.Amount, externalRef, metadata)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

func (c *Core) completeWithdrawal(ctx context.Context, txn *entities.Transaction) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := c.walletService(uow).CompleteDebit(ctx, txn); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Core) compensateWithdrawal(ctx context.Context, txn *entities.Transaction) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := c.walletService(uow).CompensateDebit(ctx, txn); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
