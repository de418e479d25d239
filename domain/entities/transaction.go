package entities

import (
	"errors"
	"time"
)

// TransactionType represents the kind of balance-affecting event
type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeGamePayout      TransactionType = "game_payout"
	TransactionTypeChallengeRefund TransactionType = "challenge_refund"
)

// IsCredit returns true if the transaction type adds funds to the wallet
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeDeposit ||
		tt == TransactionTypeGamePayout ||
		tt == TransactionTypeChallengeRefund
}

// IsDebit returns true if the transaction type removes funds from the wallet
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeWithdrawal
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

// TransactionStatus represents the lifecycle state of a transaction.
// Transitions are monotonic: a completed or failed transaction never moves again.
type TransactionStatus string

const (
	TransactionStatusPending     TransactionStatus = "pending"
	TransactionStatusPending3DS  TransactionStatus = "pending_3ds"
	TransactionStatusCompleted   TransactionStatus = "completed"
	TransactionStatusFailed      TransactionStatus = "failed"
)

// IsTerminal returns true once the status can no longer change
func (ts TransactionStatus) IsTerminal() bool {
	return ts == TransactionStatusCompleted || ts == TransactionStatusFailed
}

// CanTransitionTo reports whether a status change is allowed
func (ts TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if ts.IsTerminal() {
		return false
	}
	switch ts {
	case TransactionStatusPending:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	case TransactionStatusPending3DS:
		return next == TransactionStatusCompleted || next == TransactionStatusFailed
	}
	return false
}

// Transaction is one append-only ledger row. Everything except status and
// completed_at is immutable after creation.
type Transaction struct {
	ID          int64             `db:"id"`
	UserID      int64             `db:"user_id"`
	Type        TransactionType   `db:"type"`
	Amount      int64             `db:"amount"`
	Currency    string            `db:"currency"`
	Status      TransactionStatus `db:"status"`
	ExternalRef *string           `db:"external_ref"`
	Metadata    map[string]any    `db:"metadata"`
	ProcessAt   *time.Time        `db:"process_at"`
	CreatedAt   time.Time         `db:"created_at"`
	CompletedAt *time.Time        `db:"completed_at"`
}

// WalletDelta returns the signed effect this transaction has on the wallet
// balance once completed.
func (t *Transaction) WalletDelta() int64 {
	if t.Type.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

// IsDeferred returns true if the transaction settles at a future time
func (t *Transaction) IsDeferred() bool {
	return t.ProcessAt != nil
}

// Validate performs basic validation on the transaction
func (t *Transaction) Validate() error {
	if t.Amount <= 0 {
		return errors.New("transaction amount must be positive")
	}
	if t.UserID == 0 {
		return errors.New("transaction requires a user")
	}
	if t.Currency == "" {
		return errors.New("transaction requires a currency")
	}
	return nil
}
