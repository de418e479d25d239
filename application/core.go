package application

import (
	"context"
	"fmt"

	"wagerpay/config"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"
	"wagerpay/domain/services"
)

// Core is the boundary the platform's outer layers call into. Every
// balance-affecting operation runs inside one unit of work; multi-step flows
// (gateway authentication, withdrawal compensation) span several units and
// live in their own files in this package.
type Core struct {
	uowFactory UnitOfWorkFactory
	gateway    interfaces.Gateway
	sessions   interfaces.SessionStore
}

// NewCore creates the transaction core facade. sessions is the shared keyed
// store holding in-flight authentication sessions outside any transaction.
func NewCore(uowFactory UnitOfWorkFactory, gateway interfaces.Gateway, sessions interfaces.SessionStore) *Core {
	return &Core{
		uowFactory: uowFactory,
		gateway:    gateway,
		sessions:   sessions,
	}
}

// walletService builds a wallet service bound to the given unit of work
func (c *Core) walletService(uow UnitOfWork) interfaces.WalletService {
	return services.NewWalletService(
		uow.UserRepository(),
		uow.TransactionRepository(),
		uow.EventBus(),
		config.Get().Currency,
	)
}

// escrowService builds an escrow service bound to the given unit of work
func (c *Core) escrowService(uow UnitOfWork) interfaces.EscrowService {
	cfg := config.Get()
	return services.NewEscrowService(
		uow.UserRepository(),
		uow.TransactionRepository(),
		uow.EscrowRepository(),
		uow.ChallengeRepository(),
		uow.EventBus(),
		cfg.PlatformFeeBasisPoints,
		cfg.Currency,
	)
}

// GetBalance returns the user's balance, available balance and escrowed total
func (c *Core) GetBalance(ctx context.Context, userID int64) (*interfaces.BalanceSummary, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return c.walletService(uow).GetBalance(ctx, userID)
}

// GetTransactionHistory returns a page of the user's ledger, newest first
func (c *Core) GetTransactionHistory(ctx context.Context, userID int64, page, limit int, typeFilter *entities.TransactionType) ([]*entities.Transaction, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return c.walletService(uow).GetTransactionHistory(ctx, userID, page, limit, typeFilter)
}

// LockEscrow reserves the wager from both participants for an accepted
// challenge. Either both escrow rows commit or neither does.
func (c *Core) LockEscrow(ctx context.Context, challengeID, challengerID, challengedID, wager int64) ([]*entities.Escrow, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	escrows, err := c.escrowService(uow).Lock(ctx, challengeID, challengerID, challengedID, wager)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return escrows, nil
}

// SettleChallenge resolves a challenge to exactly one winner
func (c *Core) SettleChallenge(ctx context.Context, challengeID, winnerID int64) (*interfaces.SettlementResult, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := c.escrowService(uow).Settle(ctx, challengeID, winnerID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// CancelChallenge refunds both sides of an accepted challenge symmetrically
func (c *Core) CancelChallenge(ctx context.Context, challengeID int64) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := c.escrowService(uow).Cancel(ctx, challengeID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
