package service

import (
	"context"
	"fmt"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. Each Apply is one
// database transaction: conditional balance update, chain append, commit.
type LedgerServiceImpl struct {
	accounts   ports.AccountRepository
	entries    ports.LedgerRepository
	transactor ports.DBTransactor
	cache      ports.BalanceCache
	metrics    *observability.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accounts ports.AccountRepository,
	entries ports.LedgerRepository,
	transactor ports.DBTransactor,
	cache ports.BalanceCache,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accounts:   accounts,
		entries:    entries,
		transactor: transactor,
		cache:      cache,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
	}
}

// Apply moves req.Amount and appends the matching ledger entry atomically.
// A request cancelled before the transaction opens is not applied; once it
// opens, it runs to commit or rollback regardless of ctx.
func (s *LedgerServiceImpl) Apply(ctx context.Context, req ports.ApplyRequest) (*ports.ApplyResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Type.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction type %q", req.Type))
	}
	if req.Game == "" {
		req.Game = domain.GameTypeWallet
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.ErrLedgerUnavailable(err)
	}

	start := s.now()
	result, err := s.apply(context.WithoutCancel(ctx), req)
	s.metrics.LedgerApplyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.LedgerRejected.WithLabelValues(apperror.CodeOf(err)).Inc()
		return nil, err
	}
	s.metrics.LedgerApplied.WithLabelValues(string(req.Type)).Inc()

	// The entry is committed; the write-through must not be lost to the caller's cancellation.
	s.cache.SetBalance(context.WithoutCancel(ctx), req.UserID, result.Account.Balance)

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("type", string(req.Type)).
		Int64("amount", result.Entry.Amount).
		Int64("balance_after", result.Entry.BalanceAfter).
		Int64("seq", result.Entry.Seq).
		Msg("ledger entry committed")

	return result, nil
}

func (s *LedgerServiceImpl) apply(ctx context.Context, req ports.ApplyRequest) (*ports.ApplyResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accounts.ApplyMutation(ctx, dbTx, mutationFor(req))
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("update account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrInsufficientFundsOrConflict()
	}

	prevHash, err := s.entries.LastHash(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("read chain head: %w", err))
	}

	amount := req.Amount
	if req.Type.IsDebit() {
		amount = -amount
	}
	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		UserID:       req.UserID,
		Type:         req.Type,
		Amount:       amount,
		BalanceAfter: account.Balance,
		Game:         req.Game,
		ReferenceID:  req.ReferenceID,
		CreatedAt:    s.now(),
	}
	entry.Seal(prevHash)

	if err := s.entries.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("append entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	return &ports.ApplyResult{Account: account, Entry: entry}, nil
}

// mutationFor maps a ledger request to the account update it implies.
func mutationFor(req ports.ApplyRequest) domain.AccountMutation {
	m := domain.AccountMutation{UserID: req.UserID}

	switch req.Type {
	case domain.TransactionTypeDeposit:
		m.BalanceDelta = req.Amount
		m.DepositDelta = req.Amount
		m.ResetSession = true
	case domain.TransactionTypeWithdraw:
		m.BalanceDelta = -req.Amount
		m.MinBalance = req.Amount
		m.ResetSession = true
	case domain.TransactionTypeBet:
		m.BalanceDelta = -req.Amount
		m.MinBalance = req.Amount
		m.ProfitDelta = -req.Amount
		m.BetDelta = req.Amount
		bet := req.Amount
		m.PreviousBet = &bet
	case domain.TransactionTypeWin:
		m.BalanceDelta = req.Amount
		m.ProfitDelta = req.Amount
		m.Win = true
		m.ClearActiveGame = true
	case domain.TransactionTypeRefund:
		m.BalanceDelta = req.Amount
		m.ClearActiveGame = true
	}

	if req.Game != domain.GameTypeWallet && req.Game != domain.GameTypeNone {
		game := req.Game
		m.LastGamePlayed = &game
	}
	if req.NewGameState != nil {
		m.SetActiveGame = req.NewGameState
		m.ClearActiveGame = false
	}
	return m
}

// RecordLoss closes a lost round: no money moves, so no ledger entry is written.
func (s *LedgerServiceImpl) RecordLoss(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.ApplyMutation(ctx, nil, domain.AccountMutation{
		UserID:          userID,
		Loss:            true,
		ClearActiveGame: true,
	})
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("record loss: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}
