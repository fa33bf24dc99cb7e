package service

import (
	"context"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	locks  ports.LockManager
	ledger ports.LedgerService
	log    zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(locks ports.LockManager, ledger ports.LedgerService, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{locks: locks, ledger: ledger, log: log}
}

// Deposit credits amount and starts a fresh session.
func (s *WalletServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount int64, referenceID *string) (*ports.ApplyResult, error) {
	return s.move(ctx, userID, amount, referenceID, domain.TransactionTypeDeposit)
}

// Withdraw debits amount if the balance covers it and starts a fresh session.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, userID uuid.UUID, amount int64, referenceID *string) (*ports.ApplyResult, error) {
	return s.move(ctx, userID, amount, referenceID, domain.TransactionTypeWithdraw)
}

func (s *WalletServiceImpl) move(
	ctx context.Context,
	userID uuid.UUID,
	amount int64,
	referenceID *string,
	txType domain.TransactionType,
) (*ports.ApplyResult, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	var result *ports.ApplyResult
	err := s.locks.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		result, err = s.ledger.Apply(ctx, ports.ApplyRequest{
			UserID:      userID,
			Amount:      amount,
			Type:        txType,
			Game:        domain.GameTypeWallet,
			ReferenceID: referenceID,
		})
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", string(txType)).
			Msg("wallet operation rejected")
		return nil, err
	}

	return result, nil
}
