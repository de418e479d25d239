package entities

import "time"

// ChallengeStatus represents the settlement state of a wager challenge
type ChallengeStatus string

const (
	ChallengeStatusAccepted  ChallengeStatus = "accepted"
	ChallengeStatusSettled   ChallengeStatus = "settled"
	ChallengeStatusCancelled ChallengeStatus = "cancelled"
)

// Challenge holds the wager outcome fields this core owns. The rest of the
// challenge (participants, matchmaking, chat) lives with the application layer.
type Challenge struct {
	ID        int64           `db:"id"`
	Status    ChallengeStatus `db:"status"`
	Wager     int64           `db:"wager"`
	WinnerID  *int64          `db:"winner_id"`
	SettledAt *time.Time      `db:"settled_at"`
	CreatedAt time.Time       `db:"created_at"`
}

// WinnerPayout returns the winner's credit for a settled challenge: the full
// pot of 2x wager less the platform fee in basis points.
func (c *Challenge) WinnerPayout(feeBasisPoints int64) int64 {
	pot := 2 * c.Wager
	return pot - pot*feeBasisPoints/10000
}

// IsSettled returns true once an outcome has been recorded
func (c *Challenge) IsSettled() bool {
	return c.Status != ChallengeStatusAccepted
}
