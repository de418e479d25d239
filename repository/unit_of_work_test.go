package repository_test

import (
	"context"
	"testing"

	"wagerpay/application"
	"wagerpay/domain/events"
	"wagerpay/domain/interfaces"
	"wagerpay/repository"
	"wagerpay/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher buffers events and records flush/discard calls
type recordingPublisher struct {
	buffered  []events.Event
	flushed   []events.Event
	discarded int
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.buffered = append(p.buffered, event)
	return nil
}

func (p *recordingPublisher) Flush(ctx context.Context) error {
	p.flushed = append(p.flushed, p.buffered...)
	p.buffered = nil
	return nil
}

func (p *recordingPublisher) Discard() {
	p.buffered = nil
	p.discarded++
}

func TestUnitOfWork(t *testing.T) {
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	newFactory := func() (application.UnitOfWorkFactory, *recordingPublisher) {
		publisher := &recordingPublisher{}
		factory := repository.NewUnitOfWorkFactory(testDB.DB, func() interfaces.TransactionalEventPublisher {
			return publisher
		})
		return factory, publisher
	}

	t.Run("CommitPersistsAndFlushesEvents", func(t *testing.T) {
		factory, publisher := newFactory()
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.UserRepository().Create(ctx, 4001, 1000)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{UserID: 4001, NewBalance: 1000}))

		require.NoError(t, uow.Commit())

		user, err := repository.NewUserRepository(testDB.DB).GetByID(ctx, 4001)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(1000), user.Balance)

		require.Len(t, publisher.flushed, 1)
		assert.Equal(t, events.EventTypeBalanceChange, publisher.flushed[0].Type())
	})

	t.Run("RollbackDiscardsWritesAndEvents", func(t *testing.T) {
		factory, publisher := newFactory()
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.UserRepository().Create(ctx, 4002, 1000)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{UserID: 4002}))

		require.NoError(t, uow.Rollback())

		user, err := repository.NewUserRepository(testDB.DB).GetByID(ctx, 4002)
		require.NoError(t, err)
		assert.Nil(t, user)

		assert.Empty(t, publisher.flushed)
		assert.Equal(t, 1, publisher.discarded)
	})

	t.Run("RollbackAfterCommitIsNoOp", func(t *testing.T) {
		factory, publisher := newFactory()
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.UserRepository().Create(ctx, 4003, 1000)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{UserID: 4003}))
		require.NoError(t, uow.Commit())

		// Typical defer-Rollback pattern after a successful commit
		require.NoError(t, uow.Rollback())

		user, err := repository.NewUserRepository(testDB.DB).GetByID(ctx, 4003)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Len(t, publisher.flushed, 1)
	})

	t.Run("BeginTwiceFails", func(t *testing.T) {
		factory, _ := newFactory()
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		assert.Error(t, uow.Begin(ctx))
	})

	t.Run("RepositoryAccessBeforeBeginPanics", func(t *testing.T) {
		factory, _ := newFactory()
		uow := factory.Create()

		assert.Panics(t, func() { uow.UserRepository() })
	})
}
