package interfaces

import "context"

// AuthorizeOutcome is the gateway's answer to a card authorization attempt
type AuthorizeOutcome string

const (
	AuthorizeOutcomeApproved  AuthorizeOutcome = "approved"
	AuthorizeOutcomeDeclined  AuthorizeOutcome = "declined"
	AuthorizeOutcomeMethod    AuthorizeOutcome = "method_required"
	AuthorizeOutcomeChallenge AuthorizeOutcome = "challenge_required"
)

// BankAccount carries raw bank details for a first-time debit or credit
type BankAccount struct {
	RoutingNumber string
	AccountNumber string
	AccountName   string
}

// AuthorizeRequest submits a card charge for authentication and capture
type AuthorizeRequest struct {
	RequestID string
	CardToken string
	Amount    int64
	Currency  string
}

// AuthorizeResult carries the gateway decision for one authorization step.
// SessionID identifies the authentication session across subsequent steps.
type AuthorizeResult struct {
	SessionID     string
	Outcome       AuthorizeOutcome
	MethodURL     string
	ChallengeData string
	AuthCode      string
}

// ChallengeDecision is the final result of an interactive challenge
type ChallengeDecision struct {
	Approved bool
	AuthCode string
}

// BankRequest submits a bank debit (pull) or credit (push). Exactly one of
// Token or Account is set; Tokenize asks the gateway to issue a token for
// future on-file use.
type BankRequest struct {
	RequestID string
	Token     string
	Account   *BankAccount
	Amount    int64
	Currency  string
	Tokenize  bool
}

// BankResult carries the gateway decision for a bank operation
type BankResult struct {
	Approved bool
	AuthCode string
	Token    string
}

// Gateway abstracts the external payment gateway. Implementations never
// retry: retries belong to callers such as the authentication polling loop.
// A challenge result that does not exist yet surfaces as domain.ErrNotReady.
type Gateway interface {
	// Authorize submits a card charge; the reply is an immediate decision,
	// a method-notification step, or interactive challenge data
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)

	// ResolveMethod completes the silent fingerprinting step for a session
	ResolveMethod(ctx context.Context, sessionID string) (*AuthorizeResult, error)

	// PollChallenge fetches the decision for an interactive challenge
	PollChallenge(ctx context.Context, sessionID string) (*ChallengeDecision, error)

	// BankDebit pulls funds from a bank account
	BankDebit(ctx context.Context, req BankRequest) (*BankResult, error)

	// BankCredit pushes funds to a bank account
	BankCredit(ctx context.Context, req BankRequest) (*BankResult, error)
}
