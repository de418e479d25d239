package events

import "wagerpay/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange        EventType = "balance_change"
	EventTypeTransactionCompleted EventType = "transaction_completed"
	EventTypeEscrowLocked         EventType = "escrow_locked"
	EventTypeChallengeSettled     EventType = "challenge_settled"
	EventTypeChallengeCancelled   EventType = "challenge_cancelled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a wallet balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType entities.TransactionType
	TransactionID   int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// TransactionCompletedEvent represents a ledger transaction reaching a
// terminal completed status
type TransactionCompletedEvent struct {
	TransactionID int64
	UserID        int64
	Amount        int64
	Currency      string
	Kind          entities.TransactionType
	ExternalRef   string
}

func (e TransactionCompletedEvent) Type() EventType {
	return EventTypeTransactionCompleted
}

// EscrowLockedEvent represents wager funds being locked for a challenge
type EscrowLockedEvent struct {
	ChallengeID  int64
	ChallengerID int64
	ChallengedID int64
	Amount       int64
}

func (e EscrowLockedEvent) Type() EventType {
	return EventTypeEscrowLocked
}

// ChallengeSettledEvent represents a challenge settling to exactly one winner
type ChallengeSettledEvent struct {
	ChallengeID  int64
	WinnerID     int64
	LoserID      int64
	WinnerPayout int64
	LoserRefund  int64
	PlatformFee  int64
}

func (e ChallengeSettledEvent) Type() EventType {
	return EventTypeChallengeSettled
}

// ChallengeCancelledEvent represents both sides of a challenge being refunded
type ChallengeCancelledEvent struct {
	ChallengeID int64
	UserIDs     []int64
	Amount      int64
}

func (e ChallengeCancelledEvent) Type() EventType {
	return EventTypeChallengeCancelled
}
