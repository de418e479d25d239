package entities

import (
	"fmt"
	"time"
)

// AuthSessionState represents where a gateway authentication session is in
// the card-network step-up protocol.
type AuthSessionState string

const (
	AuthSessionInitiated        AuthSessionState = "initiated"
	AuthSessionMethodPending    AuthSessionState = "method_pending"
	AuthSessionChallengePending AuthSessionState = "challenge_pending"
	AuthSessionApproved         AuthSessionState = "approved"
	AuthSessionDeclined         AuthSessionState = "declined"
)

// IsTerminal returns true once the session has a final decision
func (s AuthSessionState) IsTerminal() bool {
	return s == AuthSessionApproved || s == AuthSessionDeclined
}

// AuthSession tracks one deposit's progress through gateway authentication.
// The gateway session id is the idempotency key: crediting happens at most
// once per session id no matter how often resolution is invoked.
type AuthSession struct {
	SessionID     string           `json:"session_id"`
	UserID        int64            `json:"user_id"`
	TransactionID int64            `json:"transaction_id"`
	Amount        int64            `json:"amount"`
	State         AuthSessionState `json:"state"`
	MethodURL     string           `json:"method_url,omitempty"`
	ChallengeData string           `json:"challenge_data,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Transition moves the session to a new state, enforcing the protocol order:
// initiated -> method_pending -> challenge_pending -> approved|declined.
// A method step may resolve straight to a decision (frictionless after
// fingerprinting), and initiation may land on any state.
func (a *AuthSession) Transition(next AuthSessionState) error {
	if a.State.IsTerminal() {
		return fmt.Errorf("authentication session %s already resolved as %s", a.SessionID, a.State)
	}
	switch a.State {
	case AuthSessionInitiated:
		// Any step can follow initiation
	case AuthSessionMethodPending:
		if next == AuthSessionMethodPending {
			return fmt.Errorf("authentication session %s cannot repeat the method step", a.SessionID)
		}
	case AuthSessionChallengePending:
		if !next.IsTerminal() {
			return fmt.Errorf("authentication session %s awaits a decision, not %s", a.SessionID, next)
		}
	}
	a.State = next
	return nil
}
