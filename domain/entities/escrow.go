package entities

import "time"

// EscrowStatus represents the lifecycle state of an escrow record
type EscrowStatus string

const (
	EscrowStatusLocked   EscrowStatus = "locked"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

// IsTerminal returns true once the escrow can no longer change
func (es EscrowStatus) IsTerminal() bool {
	return es == EscrowStatusReleased || es == EscrowStatusRefunded
}

// Escrow is one side of a wager challenge's locked funds. Escrow is a logical
// lock: it reduces the user's available balance without moving the wallet
// balance itself.
type Escrow struct {
	ID          int64        `db:"id"`
	ChallengeID int64        `db:"challenge_id"`
	UserID      int64        `db:"user_id"`
	Amount      int64        `db:"amount"`
	Status      EscrowStatus `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ReleasedAt  *time.Time   `db:"released_at"`
}

// IsLocked returns true while the escrow still gates the user's available balance
func (e *Escrow) IsLocked() bool {
	return e.Status == EscrowStatusLocked
}
