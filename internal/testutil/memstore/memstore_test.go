package memstore

import (
	"context"
	"testing"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededAccount(t *testing.T, s *Store, balance int64) *domain.Account {
	t.Helper()
	a := domain.NewAccount("player-"+uuid.NewString()[:8], "hash")
	a.Balance = balance
	require.NoError(t, s.Create(context.Background(), a))
	return a
}

func debit(a *domain.Account, amount int64) domain.AccountMutation {
	return domain.AccountMutation{UserID: a.ID, BalanceDelta: -amount, MinBalance: amount}
}

type mutationResult struct {
	account *domain.Account
	err     error
}

func TestStore_ConcurrentDebitWaitsAndRechecksAfterCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seededAccount(t, s, 1_000)

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	second, err := s.Begin(ctx)
	require.NoError(t, err)

	got, err := s.ApplyMutation(ctx, first, debit(a, 600))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(400), got.Balance)

	// Uncommitted work is private to its transaction.
	committed, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), committed.Balance)
	assert.True(t, s.RowLocked(a.ID))

	done := make(chan mutationResult, 1)
	go func() {
		acc, err := s.ApplyMutation(ctx, second, debit(a, 600))
		done <- mutationResult{acc, err}
	}()

	select {
	case <-done:
		t.Fatal("second debit must wait for the first transaction's row lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Commit(ctx))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Nil(t, res.account, "the precondition is evaluated against the committed 400")
	case <-time.After(time.Second):
		t.Fatal("second debit never resumed")
	}
	require.NoError(t, second.Rollback(ctx))

	final, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), final.Balance)
	assert.False(t, s.RowLocked(a.ID))
}

func TestStore_WaiterProceedsWhenHolderRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seededAccount(t, s, 1_000)

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	second, err := s.Begin(ctx)
	require.NoError(t, err)

	_, err = s.ApplyMutation(ctx, first, debit(a, 600))
	require.NoError(t, err)

	done := make(chan mutationResult, 1)
	go func() {
		acc, err := s.ApplyMutation(ctx, second, debit(a, 600))
		done <- mutationResult{acc, err}
	}()

	require.NoError(t, first.Rollback(ctx))

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.account)
	assert.Equal(t, int64(400), res.account.Balance)
	require.NoError(t, second.Commit(ctx))

	final, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), final.Balance)
}

func TestStore_LedgerAppendsBecomeVisibleOnCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seededAccount(t, s, 0)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	entry := &domain.LedgerEntry{UserID: a.ID, Type: domain.TransactionTypeDeposit, Amount: 100, BalanceAfter: 100}
	entry.Seal(domain.GenesisHash)
	require.NoError(t, s.Ledger().Create(ctx, tx, entry))
	assert.Positive(t, entry.Seq)

	head, err := s.Ledger().LastHash(ctx, tx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.IntegrityHash, head, "a transaction sees its own appends")

	head, err = s.Ledger().LastHash(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenesisHash, head)

	require.NoError(t, tx.Commit(ctx))
	entries, total, err := s.Ledger().ListByUser(ctx, ports.LedgerListParams{UserID: a.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, entry.IntegrityHash, entries[0].IntegrityHash)

	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
}
