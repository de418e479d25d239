package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wagerpay/database"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, type, amount, currency, status, external_ref, metadata, process_at, created_at, completed_at`

type transactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) interfaces.TransactionRepository {
	return &transactionRepository{q: db.Pool}
}

// NewTransactionRepositoryWithTx creates a new transaction repository bound to a transaction
func NewTransactionRepositoryWithTx(tx Queryable) interfaces.TransactionRepository {
	return &transactionRepository{q: tx}
}

// Create appends a new ledger row
func (r *transactionRepository) Create(ctx context.Context, txn *entities.Transaction) error {
	if txn.Metadata == nil {
		txn.Metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (user_id, type, amount, currency, status, external_ref, metadata, process_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.Currency,
		txn.Status,
		txn.ExternalRef,
		metadataJSON,
		txn.ProcessAt,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction for user %d: %w", txn.UserID, err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	txn, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return txn, nil
}

// GetByExternalRef retrieves a transaction by its gateway reference
func (r *transactionRepository) GetByExternalRef(ctx context.Context, externalRef string) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_ref = $1`

	txn, err := scanTransaction(r.q.QueryRow(ctx, query, externalRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by ref %s: %w", externalRef, err)
	}
	return txn, nil
}

// MarkCompleted flips a non-terminal transaction to completed. The status
// guard in the predicate is what makes resolution idempotent: only one caller
// ever observes the flip.
func (r *transactionRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE transactions
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'pending_3ds')
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction %d completed: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkFailed flips a non-terminal transaction to failed
func (r *transactionRepository) MarkFailed(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed', completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'pending_3ds')
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction %d failed: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// ListByUser returns a page of the user's transactions, newest first
func (r *transactionRepository) ListByUser(ctx context.Context, userID int64, page, limit int, typeFilter *entities.TransactionType) ([]*entities.Transaction, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1`
	args := []any{userID}

	if typeFilter != nil {
		query += ` AND type = $2`
		args = append(args, *typeFilter)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListDue returns pending deferred transactions whose process_at has elapsed,
// oldest first
func (r *transactionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'pending' AND process_at IS NOT NULL AND process_at <= $1
		ORDER BY process_at ASC, id ASC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var txn entities.Transaction
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Type,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.ExternalRef,
		&metadataJSON,
		&txn.ProcessAt,
		&txn.CreatedAt,
		&txn.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return &txn, nil
}

func collectTransactions(rows pgx.Rows) ([]*entities.Transaction, error) {
	var txns []*entities.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}
