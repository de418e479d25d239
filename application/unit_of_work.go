package application

import (
	"context"

	"wagerpay/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations.
// Every balance-affecting operation runs inside exactly one of these.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	TransactionRepository() interfaces.TransactionRepository
	EscrowRepository() interfaces.EscrowRepository
	ChallengeRepository() interfaces.ChallengeRepository
	PaymentMethodRepository() interfaces.PaymentMethodRepository
	SessionStore() interfaces.SessionStore
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
