package repository

import (
	"context"
	"fmt"

	"wagerpay/database"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type paymentMethodRepository struct {
	q Queryable
}

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(db *database.DB) interfaces.PaymentMethodRepository {
	return &paymentMethodRepository{q: db.Pool}
}

// NewPaymentMethodRepositoryWithTx creates a new payment method repository bound to a transaction
func NewPaymentMethodRepositoryWithTx(tx Queryable) interfaces.PaymentMethodRepository {
	return &paymentMethodRepository{q: tx}
}

// Create stores a new gateway token for a user
func (r *paymentMethodRepository) Create(ctx context.Context, method *entities.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (user_id, kind, gateway_token, last_four)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		method.UserID,
		method.Kind,
		method.GatewayToken,
		method.LastFour,
	).Scan(&method.ID, &method.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment method for user %d: %w", method.UserID, err)
	}
	return nil
}

// GetByID retrieves a payment method by its ID
func (r *paymentMethodRepository) GetByID(ctx context.Context, id int64) (*entities.PaymentMethod, error) {
	query := `
		SELECT id, user_id, kind, gateway_token, last_four, created_at
		FROM payment_methods
		WHERE id = $1
	`

	var m entities.PaymentMethod
	err := r.q.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.UserID, &m.Kind, &m.GatewayToken, &m.LastFour, &m.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method %d: %w", id, err)
	}
	return &m, nil
}

// GetByUser returns all payment methods for a user
func (r *paymentMethodRepository) GetByUser(ctx context.Context, userID int64) ([]*entities.PaymentMethod, error) {
	query := `
		SELECT id, user_id, kind, gateway_token, last_four, created_at
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment methods for user %d: %w", userID, err)
	}
	defer rows.Close()

	var methods []*entities.PaymentMethod
	for rows.Next() {
		var m entities.PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.GatewayToken, &m.LastFour, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment methods: %w", err)
	}

	return methods, nil
}
