package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const durableSnapshotTimeout = 5 * time.Second

// GameStateManagerImpl implements ports.GameStateManager. Intermediate state
// lives in the fast tier; durable snapshots are written behind the caller.
type GameStateManagerImpl struct {
	cache    ports.BalanceCache
	accounts ports.AccountRepository
	metrics  *observability.Metrics
	log      zerolog.Logger

	mu sync.Mutex
	// pending holds the done channel of the newest snapshot write per user.
	// Writes for one user run in submission order.
	pending map[uuid.UUID]chan struct{}
	wg      sync.WaitGroup

	// clearWait bounds how long Clear waits for an in-flight snapshot.
	clearWait time.Duration
}

// NewGameStateManager creates a new GameStateManagerImpl.
func NewGameStateManager(
	cache ports.BalanceCache,
	accounts ports.AccountRepository,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *GameStateManagerImpl {
	return &GameStateManagerImpl{
		cache:    cache,
		accounts: accounts,
		metrics:  metrics,
		log:      log,
		pending:  make(map[uuid.UUID]chan struct{}),

		clearWait: durableSnapshotTimeout + time.Second,
	}
}

// Save caches state and, when persist is set, queues a durable snapshot.
// It never blocks on the durable store.
func (m *GameStateManagerImpl) Save(ctx context.Context, userID uuid.UUID, state domain.ActiveGame, persist bool) {
	m.cache.SetGameState(ctx, userID, state)
	if !persist {
		return
	}

	m.mu.Lock()
	prev := m.pending[userID]
	done := make(chan struct{})
	m.pending[userID] = done
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.finish(userID, done)

		if prev != nil {
			<-prev
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durableSnapshotTimeout)
		defer cancel()

		if err := m.accounts.SetActiveGame(writeCtx, userID, state); err != nil {
			m.metrics.GameStateDurable.WithLabelValues("error").Inc()
			m.metrics.GameStateWritesLost.Inc()
			m.log.Warn().Err(err).Str("user_id", userID.String()).Msg("write-behind game state snapshot failed")
			return
		}
		m.metrics.GameStateDurable.WithLabelValues("ok").Inc()
	}()
}

func (m *GameStateManagerImpl) finish(userID uuid.UUID, done chan struct{}) {
	close(done)
	m.mu.Lock()
	if m.pending[userID] == done {
		delete(m.pending, userID)
	}
	m.mu.Unlock()
}

// Get reads the fast tier only. A miss means no recoverable round.
func (m *GameStateManagerImpl) Get(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, bool) {
	return m.cache.GetGameState(ctx, userID)
}

// Clear drops the cached state and synchronously resets the durable field,
// after any queued snapshot for the user has landed.
func (m *GameStateManagerImpl) Clear(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	prev := m.pending[userID]
	m.mu.Unlock()
	if prev != nil {
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.clearWait)
		select {
		case <-prev:
		case <-waitCtx.Done():
			m.log.Warn().Str("user_id", userID.String()).Msg("clearing game state before its snapshot landed")
		}
		cancel()
	}

	m.cache.DeleteGameState(ctx, userID)

	if err := m.accounts.ResetActiveGame(context.WithoutCancel(ctx), userID); err != nil {
		return apperror.ErrLedgerUnavailable(fmt.Errorf("reset active game: %w", err))
	}
	return nil
}

// Wait blocks until every queued snapshot has finished.
func (m *GameStateManagerImpl) Wait() {
	m.wg.Wait()
}
