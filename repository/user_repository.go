package repository

import (
	"context"
	"fmt"

	"wagerpay/database"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const lockedEscrowSubquery = `COALESCE(
		(SELECT SUM(e.amount) FROM escrows e
		 WHERE e.user_id = u.id AND e.status = 'locked'),
		0
	)`

type userRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) interfaces.UserRepository {
	return &userRepository{q: db.Pool}
}

// NewUserRepositoryWithTx creates a new user repository bound to a transaction
func NewUserRepositoryWithTx(tx Queryable) interfaces.UserRepository {
	return &userRepository{q: tx}
}

// GetByID retrieves a user with escrowed and available balance populated
func (r *userRepository) GetByID(ctx context.Context, userID int64) (*entities.User, error) {
	query := `
		SELECT u.id, u.balance, ` + lockedEscrowSubquery + ` AS escrowed,
		       u.created_at, u.updated_at
		FROM users u
		WHERE u.id = $1
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Balance,
		&user.Escrowed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	user.AvailableBalance = user.Balance - user.Escrowed
	return &user, nil
}

// GetByIDForUpdate locks the user row for the duration of the enclosing
// transaction, then computes the escrowed total under that lock.
func (r *userRepository) GetByIDForUpdate(ctx context.Context, userID int64) (*entities.User, error) {
	var user entities.User
	err := r.q.QueryRow(ctx, `
		SELECT id, balance, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&user.ID, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}

	err = r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM escrows
		WHERE user_id = $1 AND status = 'locked'
	`, userID).Scan(&user.Escrowed)
	if err != nil {
		return nil, fmt.Errorf("failed to sum locked escrow for user %d: %w", userID, err)
	}

	user.AvailableBalance = user.Balance - user.Escrowed
	return &user, nil
}

// Create creates a new user wallet with the given starting balance
func (r *userRepository) Create(ctx context.Context, userID int64, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (id, balance)
		VALUES ($1, $2)
		RETURNING id, balance, created_at, updated_at
	`

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, initialBalance).Scan(
		&user.ID,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
	}

	user.AvailableBalance = user.Balance
	return &user, nil
}

// Credit atomically increments a user's balance
func (r *userRepository) Credit(ctx context.Context, userID int64, amount int64) error {
	result, err := r.q.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewValidationError("userId", fmt.Sprintf("user %d not found", userID))
	}
	return nil
}

// Debit atomically decrements a user's balance. The user row is locked before
// the available-balance check: escrow locks are only ever written while
// holding this same row lock, so a debit that waited behind an in-flight
// wager lock re-reads the escrow sum after that lock committed instead of
// trusting a pre-wait snapshot. The UPDATE predicate re-states the check so
// the mutation stays guarded even outside an enclosing transaction.
func (r *userRepository) Debit(ctx context.Context, userID int64, amount int64) error {
	user, err := r.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.NewValidationError("userId", fmt.Sprintf("user %d not found", userID))
	}
	if user.AvailableBalance < amount {
		return &domain.InsufficientFundsError{
			UserID:    userID,
			Available: user.AvailableBalance,
			Requested: amount,
		}
	}

	result, err := r.q.Exec(ctx, `
		UPDATE users u
		SET balance = balance - $2, updated_at = NOW()
		WHERE u.id = $1
		  AND u.balance - $2 >= `+lockedEscrowSubquery+`
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NewValidationError("userId", fmt.Sprintf("user %d not found", userID))
		}
		return &domain.InsufficientFundsError{
			UserID:    userID,
			Available: current.AvailableBalance,
			Requested: amount,
		}
	}
	return nil
}
