package repository

import (
	"context"
	"errors"
	"fmt"

	"wagerpay/database"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type challengeRepository struct {
	q Queryable
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.DB) interfaces.ChallengeRepository {
	return &challengeRepository{q: db.Pool}
}

// NewChallengeRepositoryWithTx creates a new challenge repository bound to a transaction
func NewChallengeRepositoryWithTx(tx Queryable) interfaces.ChallengeRepository {
	return &challengeRepository{q: tx}
}

// CreateAccepted records an accepted challenge's wager
func (r *challengeRepository) CreateAccepted(ctx context.Context, challengeID, wager int64) (*entities.Challenge, error) {
	query := `
		INSERT INTO challenges (id, status, wager)
		VALUES ($1, 'accepted', $2)
		RETURNING id, status, wager, winner_id, settled_at, created_at
	`

	var c entities.Challenge
	err := r.q.QueryRow(ctx, query, challengeID, wager).Scan(
		&c.ID, &c.Status, &c.Wager, &c.WinnerID, &c.SettledAt, &c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("challenge %d already recorded: %w", challengeID, domain.ErrConcurrentUpdate)
		}
		return nil, fmt.Errorf("failed to create challenge %d: %w", challengeID, err)
	}
	return &c, nil
}

// GetByID retrieves a challenge by its ID
func (r *challengeRepository) GetByID(ctx context.Context, challengeID int64) (*entities.Challenge, error) {
	query := `
		SELECT id, status, wager, winner_id, settled_at, created_at
		FROM challenges
		WHERE id = $1
	`

	var c entities.Challenge
	err := r.q.QueryRow(ctx, query, challengeID).Scan(
		&c.ID, &c.Status, &c.Wager, &c.WinnerID, &c.SettledAt, &c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", challengeID, err)
	}
	return &c, nil
}

// RecordOutcome writes the settlement outcome. The status guard means the
// outcome fields are written once and never revised.
func (r *challengeRepository) RecordOutcome(ctx context.Context, challengeID int64, status entities.ChallengeStatus, winnerID *int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE challenges
		SET status = $2, winner_id = $3, settled_at = NOW()
		WHERE id = $1 AND status = 'accepted'
	`, challengeID, status, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to record outcome for challenge %d: %w", challengeID, err)
	}
	return result.RowsAffected() > 0, nil
}
