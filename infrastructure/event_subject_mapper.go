package infrastructure

import (
	"fmt"

	"wagerpay/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "wallet.balance_changed"
	case events.EventTypeTransactionCompleted:
		return "wallet.transaction_completed"
	case events.EventTypeEscrowLocked:
		return "escrow.locked"
	case events.EventTypeChallengeSettled:
		return "challenges.settled"
	case events.EventTypeChallengeCancelled:
		return "challenges.cancelled"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"wallet.balance_changed",
		"wallet.transaction_completed",
		"escrow.locked",
		"challenges.settled",
		"challenges.cancelled",
	}
}
