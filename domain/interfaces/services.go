package interfaces

import (
	"context"

	"wagerpay/domain/entities"
	"wagerpay/domain/events"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the enclosing unit of work
// commits, then flushes them; rollback discards them
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

// BalanceSummary is the answer to a balance query
type BalanceSummary struct {
	UserID           int64
	Balance          int64
	AvailableBalance int64
	Escrowed         int64
}

// SettlementResult describes a settled challenge
type SettlementResult struct {
	Challenge         *entities.Challenge
	WinnerID          int64
	LoserID           int64
	WinnerPayout      int64
	LoserRefund       int64
	PlatformFee       int64
	PayoutTransaction *entities.Transaction
	RefundTransaction *entities.Transaction
}

// WalletService owns every wallet mutation. Each mutation pairs an atomic
// balance change with exactly one matching ledger row inside the caller's
// unit of work.
type WalletService interface {
	// GetBalance returns balance, available balance and escrowed total
	GetBalance(ctx context.Context, userID int64) (*BalanceSummary, error)

	// GetTransactionHistory returns a page of the user's ledger, newest first
	GetTransactionHistory(ctx context.Context, userID int64, page, limit int, typeFilter *entities.TransactionType) ([]*entities.Transaction, error)

	// CreatePendingCredit appends a pending credit-side ledger row without
	// touching the balance
	CreatePendingCredit(ctx context.Context, userID int64, txnType entities.TransactionType, amount int64, status entities.TransactionStatus, externalRef string, metadata map[string]any) (*entities.Transaction, error)

	// CreateDeferred appends a pending ledger row that settles at processAt
	CreateDeferred(ctx context.Context, txn *entities.Transaction) (*entities.Transaction, error)

	// CompleteCredit flips the transaction to completed and credits the
	// wallet, as one unit. It reports false without mutation when the
	// transaction was already finalized, which makes resolution idempotent.
	CompleteCredit(ctx context.Context, txn *entities.Transaction) (bool, error)

	// FailTransaction flips the transaction to failed with no balance change
	FailTransaction(ctx context.Context, txn *entities.Transaction) (bool, error)

	// BeginDebit appends a pending withdrawal row and applies the
	// available-balance-checked atomic debit
	BeginDebit(ctx context.Context, userID int64, amount int64, externalRef string, metadata map[string]any) (*entities.Transaction, error)

	// CompleteDebit marks an already-debited withdrawal completed
	CompleteDebit(ctx context.Context, txn *entities.Transaction) (bool, error)

	// CompensateDebit reverses a withdrawal whose gateway call failed after
	// the debit took effect: the amount is credited back and the
	// transaction marked failed, in one unit
	CompensateDebit(ctx context.Context, txn *entities.Transaction) error

	// ProcessDeferred settles one due deferred transaction: deposits credit
	// the wallet, withdrawals re-validate available balance and debit, and
	// the status guard makes overlapping sweeps skip already-settled rows
	ProcessDeferred(ctx context.Context, txn *entities.Transaction) error
}

// EscrowService manages locked wager funds for head-to-head challenges
type EscrowService interface {
	// Lock reserves the wager from both participants' available balance,
	// creating the two locked escrow rows as one unit
	Lock(ctx context.Context, challengeID, challengerID, challengedID, wager int64) ([]*entities.Escrow, error)

	// Settle releases the winner's escrow, refunds the loser's, credits the
	// winner the pot less the platform fee and the loser their stake, and
	// records the challenge outcome, all as one unit
	Settle(ctx context.Context, challengeID, winnerID int64) (*SettlementResult, error)

	// Cancel refunds both sides symmetrically
	Cancel(ctx context.Context, challengeID int64) error
}
