package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wagerpay/config"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/interfaces"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AddFundsRequest funds a wallet from exactly one source: a stored card
// payment method (instant, subject to gateway authentication) or raw bank
// details (transfer rail, clears after ClearHours).
type AddFundsRequest struct {
	UserID          int64
	Amount          int64
	PaymentMethodID *int64
	BankAccount     *interfaces.BankAccount
}

// DepositResult reports how far a deposit got. Pending means an
// authentication step or a deferred clearing window is still outstanding.
type DepositResult struct {
	Transaction   *entities.Transaction
	Session       *entities.AuthSession
	Approved      bool
	Pending       bool
	MethodURL     string
	ChallengeData string
}

// AddFunds starts a deposit. Card deposits go through the gateway's step-up
// authentication protocol; the wallet is credited only once a terminal
// approval is known, and at most once per gateway session id.
func (c *Core) AddFunds(ctx context.Context, req AddFundsRequest) (*DepositResult, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if (req.PaymentMethodID == nil) == (req.BankAccount == nil) {
		return nil, domain.NewValidationError("source", "exactly one of paymentMethodId or bankAccount is required")
	}

	if req.BankAccount != nil {
		return c.addBankFunds(ctx, req)
	}
	return c.addCardFunds(ctx, req)
}

// addCardFunds charges a stored card. The gateway call happens with no
// database lock held; the ledger row is written afterwards, keyed by the
// gateway session id.
func (c *Core) addCardFunds(ctx context.Context, req AddFundsRequest) (*DepositResult, error) {
	method, err := c.loadPaymentMethod(ctx, req.UserID, *req.PaymentMethodID, entities.PaymentMethodKindCard)
	if err != nil {
		return nil, err
	}

	result, err := c.gateway.Authorize(ctx, interfaces.AuthorizeRequest{
		RequestID: uuid.New().String(),
		CardToken: method.GatewayToken,
		Amount:    req.Amount,
		Currency:  config.Get().Currency,
	})
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case interfaces.AuthorizeOutcomeApproved:
		return c.creditApprovedDeposit(ctx, req.UserID, req.Amount, result.SessionID, result.AuthCode)

	case interfaces.AuthorizeOutcomeDeclined:
		txn, err := c.recordDeclinedDeposit(ctx, req.UserID, req.Amount, result.SessionID, map[string]any{"rail": "card"})
		if err != nil {
			return nil, err
		}
		return &DepositResult{Transaction: txn}, nil

	case interfaces.AuthorizeOutcomeMethod, interfaces.AuthorizeOutcomeChallenge:
		return c.beginAuthentication(ctx, req, result)
	}

	return nil, fmt.Errorf("unexpected authorization outcome %q", result.Outcome)
}

// beginAuthentication records the pending_3ds ledger row and persists the
// session so any instance can resume resolution later.
func (c *Core) beginAuthentication(ctx context.Context, req AddFundsRequest, result *interfaces.AuthorizeResult) (*DepositResult, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := c.walletService(uow).CreatePendingCredit(ctx, req.UserID, entities.TransactionTypeDeposit,
		req.Amount, entities.TransactionStatusPending3DS, result.SessionID, map[string]any{"rail": "card"})
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	session := &entities.AuthSession{
		SessionID:     result.SessionID,
		UserID:        req.UserID,
		TransactionID: txn.ID,
		Amount:        req.Amount,
		State:         entities.AuthSessionInitiated,
		MethodURL:     result.MethodURL,
		ChallengeData: result.ChallengeData,
		CreatedAt:     time.Now().UTC(),
	}
	next := entities.AuthSessionMethodPending
	if result.Outcome == interfaces.AuthorizeOutcomeChallenge {
		next = entities.AuthSessionChallengePending
	}
	if err := session.Transition(next); err != nil {
		return nil, err
	}
	if err := c.sessions.Put(ctx, session.SessionID, session, c.sessionTTL()); err != nil {
		return nil, fmt.Errorf("failed to store authentication session: %w", err)
	}

	log.WithFields(log.Fields{
		"sessionID": session.SessionID,
		"userID":    req.UserID,
		"state":     session.State,
	}).Info("Deposit awaiting gateway authentication")

	return &DepositResult{
		Transaction:   txn,
		Session:       session,
		Pending:       true,
		MethodURL:     result.MethodURL,
		ChallengeData: result.ChallengeData,
	}, nil
}

// ResolveDeposit advances a pending authentication session to its next step
// and, once a terminal decision exists, settles the deposit. Safe to invoke
// any number of times for the same session: the status-guarded flip credits
// at most once.
func (c *Core) ResolveDeposit(ctx context.Context, sessionID string) (*DepositResult, error) {
	var session entities.AuthSession
	found, err := c.sessions.Get(ctx, sessionID, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to load authentication session: %w", err)
	}
	if !found {
		return nil, domain.NewValidationError("sessionId", fmt.Sprintf("no pending authentication session %s", sessionID))
	}

	switch session.State {
	case entities.AuthSessionMethodPending:
		return c.resolveMethodStep(ctx, &session)
	case entities.AuthSessionChallengePending:
		decision, err := c.pollChallenge(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return c.finalizeDeposit(ctx, &session, decision.Approved)
	}

	return nil, domain.NewValidationError("sessionId", fmt.Sprintf("session %s is in state %s", sessionID, session.State))
}

// resolveMethodStep completes the silent fingerprinting step. The gateway may
// answer with a decision or escalate to an interactive challenge.
func (c *Core) resolveMethodStep(ctx context.Context, session *entities.AuthSession) (*DepositResult, error) {
	result, err := c.gateway.ResolveMethod(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case interfaces.AuthorizeOutcomeApproved:
		return c.finalizeDeposit(ctx, session, true)
	case interfaces.AuthorizeOutcomeDeclined:
		return c.finalizeDeposit(ctx, session, false)
	case interfaces.AuthorizeOutcomeChallenge:
		if err := session.Transition(entities.AuthSessionChallengePending); err != nil {
			return nil, err
		}
		session.ChallengeData = result.ChallengeData
		if err := c.sessions.Put(ctx, session.SessionID, session, c.sessionTTL()); err != nil {
			return nil, fmt.Errorf("failed to store authentication session: %w", err)
		}
		return &DepositResult{Session: session, Pending: true, ChallengeData: result.ChallengeData}, nil
	}

	return nil, fmt.Errorf("unexpected method resolution outcome %q", result.Outcome)
}

// pollChallenge fetches the interactive challenge decision under bounded
// exponential backoff. A result that does not exist yet retries; any other
// failure is terminal. Exhausting the retry budget surfaces as a GatewayError.
func (c *Core) pollChallenge(ctx context.Context, sessionID string) (*interfaces.ChallengeDecision, error) {
	cfg := config.Get()

	var decision *interfaces.ChallengeDecision
	operation := func() error {
		d, err := c.gateway.PollChallenge(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotReady) {
				return err
			}
			return backoff.Permanent(err)
		}
		decision = d
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(cfg.ChallengePollDelay) * time.Millisecond

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, cfg.ChallengeMaxPolls), ctx))
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			return nil, &domain.GatewayError{Operation: "poll_challenge", Err: fmt.Errorf("no result after %d polls: %w", cfg.ChallengeMaxPolls, err)}
		}
		return nil, err
	}
	return decision, nil
}

// finalizeDeposit settles an authenticated deposit: one unit of work flips
// the pending_3ds transaction and, on approval, credits the wallet. The flip
// reports whether this call won; a duplicate resolution changes nothing.
func (c *Core) finalizeDeposit(ctx context.Context, session *entities.AuthSession, approved bool) (*DepositResult, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := uow.TransactionRepository().GetByExternalRef(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.NewValidationError("sessionId", fmt.Sprintf("no transaction for session %s", session.SessionID))
	}

	walletSvc := c.walletService(uow)
	var flipped bool
	if approved {
		flipped, err = walletSvc.CompleteCredit(ctx, txn)
	} else {
		flipped, err = walletSvc.FailTransaction(ctx, txn)
	}
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if flipped {
		txn.Status = entities.TransactionStatusFailed
		if approved {
			txn.Status = entities.TransactionStatusCompleted
		}
	}

	next := entities.AuthSessionDeclined
	if approved {
		next = entities.AuthSessionApproved
	}
	if err := session.Transition(next); err != nil {
		log.WithError(err).WithField("sessionID", session.SessionID).Warn("Authentication session state out of order")
	}
	if err := c.sessions.Delete(ctx, session.SessionID); err != nil {
		log.WithError(err).WithField("sessionID", session.SessionID).Warn("Failed to delete resolved authentication session")
	}

	log.WithFields(log.Fields{
		"sessionID":     session.SessionID,
		"transactionID": txn.ID,
		"approved":      approved,
	}).Info("Deposit authentication resolved")

	return &DepositResult{Transaction: txn, Session: session, Approved: approved}, nil
}

// creditApprovedDeposit handles the frictionless path: the ledger row and the
// credit commit together.
func (c *Core) creditApprovedDeposit(ctx context.Context, userID, amount int64, sessionID, authCode string) (*DepositResult, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	walletSvc := c.walletService(uow)
	txn, err := walletSvc.CreatePendingCredit(ctx, userID, entities.TransactionTypeDeposit,
		amount, entities.TransactionStatusPending, sessionID, map[string]any{"rail": "card", "auth_code": authCode})
	if err != nil {
		return nil, err
	}
	if _, err := walletSvc.CompleteCredit(ctx, txn); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	txn.Status = entities.TransactionStatusCompleted
	return &DepositResult{Transaction: txn, Approved: true}, nil
}

// recordDeclinedDeposit appends a failed ledger row for the audit trail
func (c *Core) recordDeclinedDeposit(ctx context.Context, userID, amount int64, externalRef string, metadata map[string]any) (*entities.Transaction, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := c.walletService(uow).CreatePendingCredit(ctx, userID, entities.TransactionTypeDeposit,
		amount, entities.TransactionStatusFailed, externalRef, metadata)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// addBankFunds starts a transfer-rail deposit: the gateway pull is submitted
// now with tokenization, the wallet credit lands once the rail clears.
func (c *Core) addBankFunds(ctx context.Context, req AddFundsRequest) (*DepositResult, error) {
	cfg := config.Get()
	requestID := uuid.New().String()

	result, err := c.gateway.BankDebit(ctx, interfaces.BankRequest{
		RequestID: requestID,
		Account:   req.BankAccount,
		Amount:    req.Amount,
		Currency:  cfg.Currency,
		Tokenize:  true,
	})
	if err != nil {
		return nil, err
	}
	if !result.Approved {
		// A declined pull still leaves a failed ledger row behind
		if _, err := c.recordDeclinedDeposit(ctx, req.UserID, req.Amount, requestID, map[string]any{"rail": "bank_transfer"}); err != nil {
			return nil, err
		}
		return nil, &domain.GatewayError{Operation: "bank_debit", Err: errors.New("bank debit declined")}
	}

	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if result.Token != "" {
		if err := c.storeBankToken(ctx, uow, req.UserID, result.Token, req.BankAccount); err != nil {
			return nil, err
		}
	}

	processAt := time.Now().UTC().Add(time.Duration(cfg.ClearHours) * time.Hour)
	txn, err := c.walletService(uow).CreateDeferred(ctx, &entities.Transaction{
		UserID:      req.UserID,
		Type:        entities.TransactionTypeDeposit,
		Amount:      req.Amount,
		ExternalRef: &requestID,
		Metadata:    map[string]any{"rail": "bank_transfer", "auth_code": result.AuthCode},
		ProcessAt:   &processAt,
	})
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &DepositResult{Transaction: txn, Pending: true}, nil
}

// loadPaymentMethod fetches a stored payment method and verifies ownership and kind
func (c *Core) loadPaymentMethod(ctx context.Context, userID, methodID int64, kind entities.PaymentMethodKind) (*entities.PaymentMethod, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	method, err := uow.PaymentMethodRepository().GetByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if method == nil || method.UserID != userID {
		return nil, domain.NewValidationError("paymentMethodId", fmt.Sprintf("payment method %d not found", methodID))
	}
	if method.Kind != kind {
		return nil, domain.NewValidationError("paymentMethodId", fmt.Sprintf("payment method %d is not a %s", methodID, kind))
	}
	return method, nil
}

// storeBankToken keeps a gateway-issued token for future on-file use
func (c *Core) storeBankToken(ctx context.Context, uow UnitOfWork, userID int64, token string, account *interfaces.BankAccount) error {
	lastFour := account.AccountNumber
	if len(lastFour) > 4 {
		lastFour = lastFour[len(lastFour)-4:]
	}
	return uow.PaymentMethodRepository().Create(ctx, &entities.PaymentMethod{
		UserID:       userID,
		Kind:         entities.PaymentMethodKindBank,
		GatewayToken: token,
		LastFour:     lastFour,
	})
}

func (c *Core) sessionTTL() time.Duration {
	return time.Duration(config.Get().SessionTTLMinutes) * time.Minute
}
