package repository

import (
	"context"
	"errors"
	"fmt"

	"wagerpay/database"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5/pgconn"
)

type escrowRepository struct {
	q Queryable
}

// NewEscrowRepository creates a new escrow repository
func NewEscrowRepository(db *database.DB) interfaces.EscrowRepository {
	return &escrowRepository{q: db.Pool}
}

// NewEscrowRepositoryWithTx creates a new escrow repository bound to a transaction
func NewEscrowRepositoryWithTx(tx Queryable) interfaces.EscrowRepository {
	return &escrowRepository{q: tx}
}

// CreatePair inserts both locked escrow rows for a challenge in one statement.
// The unique (challenge_id, user_id) constraint turns a duplicate lock attempt
// into ErrConcurrentUpdate.
func (r *escrowRepository) CreatePair(ctx context.Context, challengeID, userA, userB, amount int64) ([]*entities.Escrow, error) {
	query := `
		INSERT INTO escrows (challenge_id, user_id, amount, status)
		VALUES ($1, $2, $4, 'locked'), ($1, $3, $4, 'locked')
		RETURNING id, challenge_id, user_id, amount, status, created_at, released_at
	`

	rows, err := r.q.Query(ctx, query, challengeID, userA, userB, amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("escrow already exists for challenge %d: %w", challengeID, domain.ErrConcurrentUpdate)
		}
		return nil, fmt.Errorf("failed to create escrow pair for challenge %d: %w", challengeID, err)
	}
	defer rows.Close()

	var escrows []*entities.Escrow
	for rows.Next() {
		var e entities.Escrow
		if err := rows.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.ReleasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escrow: %w", err)
		}
		escrows = append(escrows, &e)
	}
	if err := rows.Err(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("escrow already exists for challenge %d: %w", challengeID, domain.ErrConcurrentUpdate)
		}
		return nil, fmt.Errorf("failed to iterate escrows: %w", err)
	}

	return escrows, nil
}

// GetByChallenge returns both escrow rows for a challenge
func (r *escrowRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.Escrow, error) {
	query := `
		SELECT id, challenge_id, user_id, amount, status, created_at, released_at
		FROM escrows
		WHERE challenge_id = $1
		ORDER BY user_id ASC
	`

	rows, err := r.q.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get escrows for challenge %d: %w", challengeID, err)
	}
	defer rows.Close()

	var escrows []*entities.Escrow
	for rows.Next() {
		var e entities.Escrow
		if err := rows.Scan(&e.ID, &e.ChallengeID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.ReleasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escrow: %w", err)
		}
		escrows = append(escrows, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate escrows: %w", err)
	}

	return escrows, nil
}

// MarkTerminal flips a locked escrow to released or refunded
func (r *escrowRepository) MarkTerminal(ctx context.Context, escrowID int64, status entities.EscrowStatus) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("escrow status %s is not terminal", status)
	}

	result, err := r.q.Exec(ctx, `
		UPDATE escrows
		SET status = $2, released_at = NOW()
		WHERE id = $1 AND status = 'locked'
	`, escrowID, status)
	if err != nil {
		return false, fmt.Errorf("failed to mark escrow %d %s: %w", escrowID, status, err)
	}
	return result.RowsAffected() > 0, nil
}

// SumLockedByUser returns the total currently locked for a user
func (r *escrowRepository) SumLockedByUser(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM escrows
		WHERE user_id = $1 AND status = 'locked'
	`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum locked escrow for user %d: %w", userID, err)
	}
	return total, nil
}
