package service

import (
	"context"
	"io"
	"testing"
	"time"

	"casino-ledger/internal/adapter/storage/nocache"
	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/observability"
	"casino-ledger/internal/testutil/memstore"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// ledgerFixture wires the real services over an in-memory store.
type ledgerFixture struct {
	store   *memstore.Store
	metrics *observability.Metrics
	cache   *TieredCache
	locks   *LockManagerImpl
	ledger  *LedgerServiceImpl
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := memstore.New()
	metrics := newTestMetrics()
	log := newTestLogger()

	cache := NewTieredCache(nocache.New(), store, time.Hour, time.Hour, metrics, log)
	return &ledgerFixture{
		store:   store,
		metrics: metrics,
		cache:   cache,
		locks:   NewLockManager(store, 10*time.Second, time.Second, metrics, log),
		ledger:  NewLedgerService(store, store.Ledger(), store, cache, metrics, log),
	}
}

// newAccount registers an account holding balance (via a real deposit).
func (f *ledgerFixture) newAccount(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	account := domain.NewAccount("user-"+uuid.NewString()[:8], "hash")
	require.NoError(t, f.store.Create(context.Background(), account))
	if balance > 0 {
		_, err := f.ledger.Apply(context.Background(), applyDeposit(account.ID, balance))
		require.NoError(t, err)
	}
	return account.ID
}

func (f *ledgerFixture) account(t *testing.T, id uuid.UUID) *domain.Account {
	t.Helper()
	a, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}
