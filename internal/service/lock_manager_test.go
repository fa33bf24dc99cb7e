package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"casino-ledger/internal/core/ports/mocks"
	"casino-ledger/internal/testutil/memstore"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLockManager_AcquireIsExclusive(t *testing.T) {
	store := memstore.New()
	lm := NewLockManager(store, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())
	userID := uuid.New()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := lm.Acquire(context.Background(), userID)
			assert.NoError(t, err)
			if ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
	assert.Equal(t, float64(49), counterValue(t, lm.metrics.LockAcquire.WithLabelValues("contended")))
}

func TestLockManager_ExpiredLockCanBeRetaken(t *testing.T) {
	store := memstore.New()
	lm := NewLockManager(store, time.Millisecond, time.Second, newTestMetrics(), newTestLogger())
	userID := uuid.New()

	ok, err := lm.Acquire(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)

	ok, err = lm.Acquire(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, ok, "a holder that never released must not block forever")
}

func TestLockManager_WithLock_ReleasesOnEveryExitPath(t *testing.T) {
	store := memstore.New()
	lm := NewLockManager(store, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		err := lm.WithLock(context.Background(), userID, func(ctx context.Context) error {
			assert.True(t, store.LockHeld(userID))
			return nil
		})
		require.NoError(t, err)
		assert.False(t, store.LockHeld(userID))
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		err := lm.WithLock(context.Background(), userID, func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, store.LockHeld(userID))
	})

	t.Run("panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = lm.WithLock(context.Background(), userID, func(ctx context.Context) error { panic("kaboom") })
		})
		assert.False(t, store.LockHeld(userID))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := lm.WithLock(ctx, userID, func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, store.LockHeld(userID))
	})
}

func TestLockManager_WithLock_Contended(t *testing.T) {
	store := memstore.New()
	lm := NewLockManager(store, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())
	userID := uuid.New()

	ok, err := lm.Acquire(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, ok)

	called := false
	err = lm.WithLock(context.Background(), userID, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.Equal(t, apperror.CodeLockContended, apperror.CodeOf(err))
	assert.False(t, called)
	assert.True(t, store.LockHeld(userID), "a contended caller must not release the holder's lock")
}

func TestLockManager_WithLock_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLockRepository(ctrl)
	lm := NewLockManager(repo, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())

	repo.EXPECT().TryInsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused"))

	err := lm.WithLock(context.Background(), uuid.New(), func(ctx context.Context) error { return nil })
	assert.Equal(t, apperror.CodeLedgerUnavailable, apperror.CodeOf(err))
	assert.Equal(t, float64(1), counterValue(t, lm.metrics.LockAcquire.WithLabelValues("error")))
}

func TestLockManager_ReleaseFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLockRepository(ctrl)
	lm := NewLockManager(repo, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())
	userID := uuid.New()

	repo.EXPECT().TryInsert(gomock.Any(), userID, gomock.Any()).Return(true, nil)
	repo.EXPECT().Delete(gomock.Any(), userID).Return(errors.New("timeout"))

	err := lm.WithLock(context.Background(), userID, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, float64(1), counterValue(t, lm.metrics.LockReleaseFailures))
}

func TestLockManager_RunJanitor(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLockRepository(ctrl)
	lm := NewLockManager(repo, 10*time.Second, time.Second, newTestMetrics(), newTestLogger())

	purged := make(chan struct{})
	var once sync.Once
	repo.EXPECT().PurgeExpired(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, now time.Time) (int64, error) {
			once.Do(func() { close(purged) })
			return 3, nil
		},
	).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		lm.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-purged:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor never ran")
	}
	cancel()
	<-done

	assert.GreaterOrEqual(t, counterValue(t, lm.metrics.LocksPurged), float64(3))
}
