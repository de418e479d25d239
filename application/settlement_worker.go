package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wagerpay/config"
	"wagerpay/domain"
	"wagerpay/domain/entities"
	"wagerpay/domain/services"

	log "github.com/sirupsen/logrus"
)

// SettlementWorker sweeps deferred transactions whose clearing window has
// elapsed. Each transaction settles in its own unit of work behind a
// status-guarded claim, so overlapping sweeps skip rows the other already
// took and one bad row never blocks the rest of the batch.
type SettlementWorker struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementWorker creates a new deferred settlement worker
func NewSettlementWorker(uowFactory UnitOfWorkFactory) *SettlementWorker {
	return &SettlementWorker{uowFactory: uowFactory}
}

// Start begins the periodic sweep. The returned function stops the worker.
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	interval := time.Duration(config.Get().SweepIntervalSeconds) * time.Second

	go func() {
		log.Info("Settlement worker started")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				if _, err := w.Tick(ctx); err != nil {
					log.Errorf("Settlement sweep failed: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// Tick runs one sweep and returns how many transactions settled. Exposed so
// tests can drive the worker synchronously.
func (w *SettlementWorker) Tick(ctx context.Context) (int, error) {
	due, err := w.listDue(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, txn := range due {
		if err := w.processOne(ctx, txn); err != nil {
			if errors.Is(err, domain.ErrConcurrentUpdate) {
				log.WithField("transactionID", txn.ID).Debug("Deferred transaction claimed by another sweep")
				continue
			}
			log.WithError(err).WithField("transactionID", txn.ID).
				Error("Failed to settle deferred transaction")
			continue
		}
		processed++
	}

	if processed > 0 {
		log.WithField("count", processed).Info("Settled deferred transactions")
	}
	return processed, nil
}

// listDue reads the due batch, oldest first
func (w *SettlementWorker) listDue(ctx context.Context) ([]*entities.Transaction, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().ListDue(ctx, time.Now().UTC(), config.Get().SweepBatchSize)
}

// processOne settles a single deferred transaction inside its own unit of work
func (w *SettlementWorker) processOne(ctx context.Context, txn *entities.Transaction) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	walletSvc := services.NewWalletService(
		uow.UserRepository(),
		uow.TransactionRepository(),
		uow.EventBus(),
		config.Get().Currency,
	)
	if err := walletSvc.ProcessDeferred(ctx, txn); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
