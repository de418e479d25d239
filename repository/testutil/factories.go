package testutil

import (
	"time"

	"wagerpay/domain/entities"
)

// CreateTestTransaction creates a pending deposit transaction with defaults
func CreateTestTransaction(userID int64) *entities.Transaction {
	return &entities.Transaction{
		UserID:   userID,
		Type:     entities.TransactionTypeDeposit,
		Amount:   2500,
		Currency: "USD",
		Status:   entities.TransactionStatusPending,
		Metadata: map[string]any{"test": true},
	}
}

// CreateTestWithdrawal creates a pending withdrawal transaction
func CreateTestWithdrawal(userID, amount int64) *entities.Transaction {
	txn := CreateTestTransaction(userID)
	txn.Type = entities.TransactionTypeWithdrawal
	txn.Amount = amount
	return txn
}

// CreateTestDeferred creates a pending transaction due at processAt
func CreateTestDeferred(userID, amount int64, txnType entities.TransactionType, processAt time.Time) *entities.Transaction {
	txn := CreateTestTransaction(userID)
	txn.Type = txnType
	txn.Amount = amount
	txn.ProcessAt = &processAt
	return txn
}

// WithExternalRef sets the gateway reference on a transaction
func WithExternalRef(txn *entities.Transaction, ref string) *entities.Transaction {
	txn.ExternalRef = &ref
	return txn
}
