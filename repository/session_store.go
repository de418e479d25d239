package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wagerpay/database"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type sessionStore struct {
	q Queryable
}

// NewSessionStore creates a session store backed by the shared database so
// authentication session state survives restarts and is visible to every
// instance.
func NewSessionStore(db *database.DB) interfaces.SessionStore {
	return &sessionStore{q: db.Pool}
}

// NewSessionStoreWithTx creates a session store bound to a transaction
func NewSessionStoreWithTx(tx Queryable) interfaces.SessionStore {
	return &sessionStore{q: tx}
}

// Put stores a value under key with a time-to-live
func (s *sessionStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal session value: %w", err)
	}

	query := `
		INSERT INTO gateway_sessions (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`

	if _, err := s.q.Exec(ctx, query, key, valueJSON, time.Now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("failed to put session %s: %w", key, err)
	}
	return nil
}

// Get loads the value for key into dest, reporting whether a live entry existed
func (s *sessionStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var valueJSON []byte
	err := s.q.QueryRow(ctx, `
		SELECT value FROM gateway_sessions
		WHERE key = $1 AND expires_at > NOW()
	`, key).Scan(&valueJSON)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get session %s: %w", key, err)
	}

	if err := json.Unmarshal(valueJSON, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal session %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the entry for key
func (s *sessionStore) Delete(ctx context.Context, key string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM gateway_sessions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes expired entries and returns how many were deleted
func (s *sessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.q.Exec(ctx, `DELETE FROM gateway_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
