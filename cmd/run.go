package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"wagerpay/application"
	"wagerpay/config"
	"wagerpay/database"
	"wagerpay/domain/interfaces"
	"wagerpay/infrastructure"
	"wagerpay/repository"
)

// Run initializes and starts the transaction core daemon: it migrates the
// schema, sweeps deferred settlements and purges expired authentication
// sessions. The application.Core facade itself is embedded by the serving
// layer, which constructs it against the same database and gateway.
func Run(ctx context.Context) error {
	log.Println("Starting wagerpay transaction core...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Run pending migrations
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize NATS event publishing
	log.Println("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := natsClient.EnsureWalletEventStream(); err != nil {
		return fmt.Errorf("failed to ensure event stream: %w", err)
	}
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())

	// Initialize unit of work factory with per-unit transactional buffering
	uowFactory := repository.NewUnitOfWorkFactory(db, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewNATSTransactionalPublisher(eventPublisher)
	})

	// Start the deferred settlement sweep
	settlementWorker := application.NewSettlementWorker(uowFactory)
	stopWorker := settlementWorker.Start(ctx)

	// Purge expired authentication sessions in the background
	sessions := repository.NewSessionStore(db)
	go purgeSessionsLoop(ctx, sessions)

	log.Printf("Transaction core is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")
	stopWorker()

	if err := natsClient.Close(); err != nil {
		log.Printf("Error closing NATS connection: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

// purgeSessionsLoop deletes expired authentication sessions once a minute
func purgeSessionsLoop(ctx context.Context, sessions interfaces.SessionStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := sessions.PurgeExpired(ctx)
			if err != nil {
				log.Printf("Failed to purge expired sessions: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("Purged %d expired authentication sessions", purged)
			}
		}
	}
}
