package entities

import "time"

// PaymentMethodKind distinguishes card tokens from bank account tokens
type PaymentMethodKind string

const (
	PaymentMethodKindCard PaymentMethodKind = "card"
	PaymentMethodKindBank PaymentMethodKind = "bank"
)

// PaymentMethod is a gateway-issued token bound to a user for repeat charges
// and payouts without resubmitting raw card or bank data.
type PaymentMethod struct {
	ID           int64             `db:"id"`
	UserID       int64             `db:"user_id"`
	Kind         PaymentMethodKind `db:"kind"`
	GatewayToken string            `db:"gateway_token"`
	LastFour     string            `db:"last_four"`
	CreatedAt    time.Time         `db:"created_at"`
}
