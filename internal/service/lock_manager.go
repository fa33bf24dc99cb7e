package service

import (
	"context"
	"time"

	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LockManagerImpl implements ports.LockManager on top of the durable lock table.
// The row's expiry is the failsafe for holders that crash before releasing.
type LockManagerImpl struct {
	repo           ports.LockRepository
	ttl            time.Duration
	releaseTimeout time.Duration
	metrics        *observability.Metrics
	log            zerolog.Logger
	now            func() time.Time
}

// NewLockManager creates a new LockManagerImpl.
func NewLockManager(
	repo ports.LockRepository,
	ttl, releaseTimeout time.Duration,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *LockManagerImpl {
	return &LockManagerImpl{
		repo:           repo,
		ttl:            ttl,
		releaseTimeout: releaseTimeout,
		metrics:        metrics,
		log:            log,
		now:            time.Now,
	}
}

// Acquire tries once to take the user's lock. It never waits.
func (m *LockManagerImpl) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := m.repo.TryInsert(ctx, userID, m.now().Add(m.ttl))
	switch {
	case err != nil:
		m.metrics.LockAcquire.WithLabelValues("error").Inc()
		return false, err
	case !ok:
		m.metrics.LockAcquire.WithLabelValues("contended").Inc()
	default:
		m.metrics.LockAcquire.WithLabelValues("acquired").Inc()
	}
	return ok, nil
}

// Release deletes the lock row. A failed delete leaves the lock to expire.
func (m *LockManagerImpl) Release(ctx context.Context, userID uuid.UUID) {
	if err := m.repo.Delete(ctx, userID); err != nil {
		m.metrics.LockReleaseFailures.Inc()
		m.log.Warn().Err(err).Str("user_id", userID.String()).Msg("lock release failed, waiting for expiry")
	}
}

// WithLock runs fn under the user's lock. The release runs on every exit path,
// including a cancelled ctx, with its own short deadline.
func (m *LockManagerImpl) WithLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error {
	ok, err := m.Acquire(ctx, userID)
	if err != nil {
		return apperror.ErrLedgerUnavailable(err)
	}
	if !ok {
		return apperror.ErrLockContended()
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.releaseTimeout)
		defer cancel()
		m.Release(releaseCtx, userID)
	}()

	return fn(ctx)
}

// RunJanitor purges expired locks every interval until ctx is done.
func (m *LockManagerImpl) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.repo.PurgeExpired(ctx, m.now())
			if err != nil {
				m.log.Warn().Err(err).Msg("purging expired locks failed")
				continue
			}
			if n > 0 {
				m.metrics.LocksPurged.Add(float64(n))
				m.log.Info().Int64("purged", n).Msg("expired action locks removed")
			}
		}
	}
}
