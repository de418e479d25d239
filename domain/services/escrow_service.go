package services

import (
	"context"
	"fmt"

	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/events"
	"wagerpay/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type escrowService struct {
	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	escrowRepo      interfaces.EscrowRepository
	challengeRepo   interfaces.ChallengeRepository
	eventPublisher  interfaces.EventPublisher
	feeBasisPoints  int64
	currency        string
}

// NewEscrowService creates a new escrow service bound to the caller's unit of work
func NewEscrowService(
	userRepo interfaces.UserRepository,
	transactionRepo interfaces.TransactionRepository,
	escrowRepo interfaces.EscrowRepository,
	challengeRepo interfaces.ChallengeRepository,
	eventPublisher interfaces.EventPublisher,
	feeBasisPoints int64,
	currency string,
) interfaces.EscrowService {
	return &escrowService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		escrowRepo:      escrowRepo,
		challengeRepo:   challengeRepo,
		eventPublisher:  eventPublisher,
		feeBasisPoints:  feeBasisPoints,
		currency:        currency,
	}
}

// Lock reserves the wager from both participants' available balance. Both
// wallet rows are locked in ascending user id order so two overlapping locks
// involving the same pair cannot deadlock.
func (s *escrowService) Lock(ctx context.Context, challengeID, challengerID, challengedID, wager int64) ([]*entities.Escrow, error) {
	if wager <= 0 {
		return nil, domain.NewValidationError("wager", "must be positive")
	}
	if challengerID == challengedID {
		return nil, domain.NewValidationError("challengedId", "cannot wager against yourself")
	}

	first, second := challengerID, challengedID
	if second < first {
		first, second = second, first
	}

	for _, userID := range []int64{first, second} {
		user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock user %d: %w", userID, err)
		}
		if user == nil {
			return nil, domain.NewValidationError("userId", fmt.Sprintf("user %d not found", userID))
		}
		if !user.CanAfford(wager) {
			return nil, domain.NewInsufficientFundsError(userID, user.AvailableBalance, wager)
		}
	}

	if _, err := s.challengeRepo.CreateAccepted(ctx, challengeID, wager); err != nil {
		return nil, fmt.Errorf("failed to record challenge %d: %w", challengeID, err)
	}

	escrows, err := s.escrowRepo.CreatePair(ctx, challengeID, challengerID, challengedID, wager)
	if err != nil {
		return nil, fmt.Errorf("failed to lock escrow for challenge %d: %w", challengeID, err)
	}

	log.WithFields(log.Fields{
		"challengeID":  challengeID,
		"challengerID": challengerID,
		"challengedID": challengedID,
		"wager":        wager,
	}).Info("Escrow locked for challenge")

	event := events.EscrowLockedEvent{
		ChallengeID:  challengeID,
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Amount:       wager,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish escrow locked event")
	}

	return escrows, nil
}

// Settle resolves a challenge to exactly one winner. The outcome write is the
// guard: a second settle of the same challenge misses it and the whole unit
// rolls back untouched.
func (s *escrowService) Settle(ctx context.Context, challengeID, winnerID int64) (*interfaces.SettlementResult, error) {
	challenge, winnerEscrow, loserEscrow, err := s.loadForResolution(ctx, challengeID, &winnerID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.challengeRepo.RecordOutcome(ctx, challengeID, entities.ChallengeStatusSettled, &winnerID)
	if err != nil {
		return nil, err
	}
	if !recorded {
		return nil, fmt.Errorf("challenge %d already resolved: %w", challengeID, domain.ErrConcurrentUpdate)
	}

	if err := s.flipEscrow(ctx, winnerEscrow, entities.EscrowStatusReleased); err != nil {
		return nil, err
	}
	if err := s.flipEscrow(ctx, loserEscrow, entities.EscrowStatusRefunded); err != nil {
		return nil, err
	}

	payout := challenge.WinnerPayout(s.feeBasisPoints)
	fee := 2*challenge.Wager - payout

	payoutTxn, err := s.creditWithLedgerRow(ctx, winnerID, entities.TransactionTypeGamePayout, payout, challengeID)
	if err != nil {
		return nil, err
	}
	refundTxn, err := s.creditWithLedgerRow(ctx, loserEscrow.UserID, entities.TransactionTypeChallengeRefund, challenge.Wager, challengeID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challengeID": challengeID,
		"winnerID":    winnerID,
		"loserID":     loserEscrow.UserID,
		"payout":      payout,
		"platformFee": fee,
	}).Info("Challenge settled")

	event := events.ChallengeSettledEvent{
		ChallengeID:  challengeID,
		WinnerID:     winnerID,
		LoserID:      loserEscrow.UserID,
		WinnerPayout: payout,
		LoserRefund:  challenge.Wager,
		PlatformFee:  fee,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish challenge settled event")
	}

	return &interfaces.SettlementResult{
		Challenge:         challenge,
		WinnerID:          winnerID,
		LoserID:           loserEscrow.UserID,
		WinnerPayout:      payout,
		LoserRefund:       challenge.Wager,
		PlatformFee:       fee,
		PayoutTransaction: payoutTxn,
		RefundTransaction: refundTxn,
	}, nil
}

// Cancel refunds both sides symmetrically. The locked funds were never moved,
// so unlocking restores each side's available balance without a wallet
// mutation; the refund rows record the unlock in the ledger.
func (s *escrowService) Cancel(ctx context.Context, challengeID int64) error {
	challenge, sideA, sideB, err := s.loadForResolution(ctx, challengeID, nil)
	if err != nil {
		return err
	}

	recorded, err := s.challengeRepo.RecordOutcome(ctx, challengeID, entities.ChallengeStatusCancelled, nil)
	if err != nil {
		return err
	}
	if !recorded {
		return fmt.Errorf("challenge %d already resolved: %w", challengeID, domain.ErrConcurrentUpdate)
	}

	for _, escrow := range []*entities.Escrow{sideA, sideB} {
		if err := s.flipEscrow(ctx, escrow, entities.EscrowStatusRefunded); err != nil {
			return err
		}
		if _, err := s.appendLedgerRow(ctx, escrow.UserID, entities.TransactionTypeChallengeRefund, challenge.Wager, challengeID); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"challengeID": challengeID,
		"wager":       challenge.Wager,
	}).Info("Challenge cancelled, both sides refunded")

	event := events.ChallengeCancelledEvent{
		ChallengeID: challengeID,
		UserIDs:     []int64{sideA.UserID, sideB.UserID},
		Amount:      challenge.Wager,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish challenge cancelled event")
	}

	return nil
}

// loadForResolution fetches the challenge and its escrow pair. When winnerID is
// set, the first escrow returned is the winner's and the second the loser's.
func (s *escrowService) loadForResolution(ctx context.Context, challengeID int64, winnerID *int64) (*entities.Challenge, *entities.Escrow, *entities.Escrow, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get challenge %d: %w", challengeID, err)
	}
	if challenge == nil {
		return nil, nil, nil, domain.NewValidationError("challengeId", fmt.Sprintf("challenge %d not found", challengeID))
	}

	escrows, err := s.escrowRepo.GetByChallenge(ctx, challengeID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get escrows for challenge %d: %w", challengeID, err)
	}
	if len(escrows) != 2 {
		return nil, nil, nil, fmt.Errorf("challenge %d has %d escrow rows, expected 2", challengeID, len(escrows))
	}

	if winnerID == nil {
		return challenge, escrows[0], escrows[1], nil
	}

	switch *winnerID {
	case escrows[0].UserID:
		return challenge, escrows[0], escrows[1], nil
	case escrows[1].UserID:
		return challenge, escrows[1], escrows[0], nil
	}
	return nil, nil, nil, domain.NewValidationError("winnerId", fmt.Sprintf("user %d is not a participant of challenge %d", *winnerID, challengeID))
}

func (s *escrowService) flipEscrow(ctx context.Context, escrow *entities.Escrow, status entities.EscrowStatus) error {
	flipped, err := s.escrowRepo.MarkTerminal(ctx, escrow.ID, status)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("escrow %d already terminal: %w", escrow.ID, domain.ErrConcurrentUpdate)
	}
	return nil
}

func (s *escrowService) appendLedgerRow(ctx context.Context, userID int64, txnType entities.TransactionType, amount, challengeID int64) (*entities.Transaction, error) {
	txn := &entities.Transaction{
		UserID:   userID,
		Type:     txnType,
		Amount:   amount,
		Currency: s.currency,
		Status:   entities.TransactionStatusCompleted,
		Metadata: map[string]any{"challenge_id": challengeID},
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create %s transaction: %w", txnType, err)
	}
	return txn, nil
}

func (s *escrowService) creditWithLedgerRow(ctx context.Context, userID int64, txnType entities.TransactionType, amount, challengeID int64) (*entities.Transaction, error) {
	txn, err := s.appendLedgerRow(ctx, userID, txnType, amount, challengeID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Credit(ctx, userID, amount); err != nil {
		return nil, err
	}
	return txn, nil
}
