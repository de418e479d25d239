package interfaces

import (
	"context"
	"time"

	"wagerpay/domain/entities"
)

// UserRepository defines the interface for wallet data access
type UserRepository interface {
	// GetByID retrieves a user with balance, escrowed and available balance populated
	GetByID(ctx context.Context, userID int64) (*entities.User, error)

	// GetByIDForUpdate retrieves a user while holding a row lock for the
	// duration of the enclosing transaction
	GetByIDForUpdate(ctx context.Context, userID int64) (*entities.User, error)

	// Create creates a new user wallet with the given starting balance
	Create(ctx context.Context, userID int64, initialBalance int64) (*entities.User, error)

	// Credit atomically increments a user's balance
	Credit(ctx context.Context, userID int64, amount int64) error

	// Debit atomically decrements a user's balance. The available-balance
	// check (balance minus locked escrow) is re-validated inside the same
	// atomic statement; on shortfall an InsufficientFundsError is returned
	// and nothing changes.
	Debit(ctx context.Context, userID int64, amount int64) error
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Create appends a new transaction row
	Create(ctx context.Context, txn *entities.Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id int64) (*entities.Transaction, error)

	// GetByExternalRef retrieves a transaction by its gateway reference
	GetByExternalRef(ctx context.Context, externalRef string) (*entities.Transaction, error)

	// MarkCompleted flips a non-terminal transaction to completed. It reports
	// whether this call performed the flip; false means another caller
	// already finalized the row.
	MarkCompleted(ctx context.Context, id int64) (bool, error)

	// MarkFailed flips a non-terminal transaction to failed
	MarkFailed(ctx context.Context, id int64) (bool, error)

	// ListByUser returns a page of the user's transactions, newest first,
	// optionally filtered by type
	ListByUser(ctx context.Context, userID int64, page, limit int, typeFilter *entities.TransactionType) ([]*entities.Transaction, error)

	// ListDue returns pending deferred transactions whose process_at has
	// elapsed, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.Transaction, error)
}

// EscrowRepository defines the interface for locked wager funds
type EscrowRepository interface {
	// CreatePair inserts the two locked escrow rows for a challenge in one statement
	CreatePair(ctx context.Context, challengeID, userA, userB, amount int64) ([]*entities.Escrow, error)

	// GetByChallenge returns both escrow rows for a challenge
	GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.Escrow, error)

	// MarkTerminal flips a locked escrow to released or refunded. It reports
	// whether this call performed the flip.
	MarkTerminal(ctx context.Context, escrowID int64, status entities.EscrowStatus) (bool, error)

	// SumLockedByUser returns the total currently locked for a user
	SumLockedByUser(ctx context.Context, userID int64) (int64, error)
}

// ChallengeRepository defines the interface for challenge outcome fields
type ChallengeRepository interface {
	// CreateAccepted records an accepted challenge's wager
	CreateAccepted(ctx context.Context, challengeID, wager int64) (*entities.Challenge, error)

	// GetByID retrieves a challenge by its ID
	GetByID(ctx context.Context, challengeID int64) (*entities.Challenge, error)

	// RecordOutcome writes the settlement outcome exactly once; a second
	// write for the same challenge reports false
	RecordOutcome(ctx context.Context, challengeID int64, status entities.ChallengeStatus, winnerID *int64) (bool, error)
}

// PaymentMethodRepository defines the interface for gateway-issued tokens
type PaymentMethodRepository interface {
	// Create stores a new gateway token for a user
	Create(ctx context.Context, method *entities.PaymentMethod) error

	// GetByID retrieves a payment method by its ID
	GetByID(ctx context.Context, id int64) (*entities.PaymentMethod, error)

	// GetByUser returns all payment methods for a user
	GetByUser(ctx context.Context, userID int64) ([]*entities.PaymentMethod, error)
}

// SessionStore is a shared keyed store with TTL semantics. Authentication
// session state lives here rather than in process memory so the core survives
// restarts and runs across multiple instances.
type SessionStore interface {
	// Put stores a value under key with a time-to-live
	Put(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get loads the value for key into dest, reporting whether a live entry existed
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Delete removes the entry for key
	Delete(ctx context.Context, key string) error

	// PurgeExpired removes expired entries and returns how many were deleted
	PurgeExpired(ctx context.Context) (int64, error)
}
