package entities

import (
	"errors"
	"time"
)

// User represents a platform user's wallet view
type User struct {
	ID               int64     `db:"id"`
	Balance          int64     `db:"balance"`
	AvailableBalance int64     `db:"-"` // Calculated field: balance minus locked escrow
	Escrowed         int64     `db:"-"` // Sum of currently locked escrow
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// CanAfford checks if the user has sufficient available balance for an amount
func (u *User) CanAfford(amount int64) bool {
	return u.AvailableBalance >= amount
}

// HasSufficientBalance checks if the user has sufficient total balance for an amount
func (u *User) HasSufficientBalance(amount int64) bool {
	return u.Balance >= amount
}

// ValidateAmount checks if an amount is valid (positive and affordable)
func (u *User) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !u.CanAfford(amount) {
		return errors.New("insufficient available balance")
	}
	return nil
}
