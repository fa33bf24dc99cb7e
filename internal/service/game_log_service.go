package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxGameLogLimit = 200

// GameLogServiceImpl implements ports.GameLogService. Records are written
// off the request path; a failed write is logged and dropped.
type GameLogServiceImpl struct {
	repo ports.GameLogRepository
	log  zerolog.Logger
	wg   sync.WaitGroup
}

// NewGameLogService creates a new GameLogServiceImpl.
func NewGameLogService(repo ports.GameLogRepository, log zerolog.Logger) *GameLogServiceImpl {
	return &GameLogServiceImpl{repo: repo, log: log}
}

// Record persists a completed round asynchronously.
func (s *GameLogServiceImpl) Record(ctx context.Context, entry *domain.GameLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
			s.log.Warn().Err(err).
				Str("user_id", entry.UserID.String()).
				Str("round_id", entry.RoundID.String()).
				Msg("failed to persist game log")
		}
	}()
}

// List returns the newest rounds first, capped at maxGameLogLimit.
func (s *GameLogServiceImpl) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameLog, error) {
	if limit <= 0 || limit > maxGameLogLimit {
		limit = maxGameLogLimit
	}
	logs, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("list game logs: %w", err))
	}
	return logs, nil
}

// Wait blocks until all in-flight writes finish.
func (s *GameLogServiceImpl) Wait() {
	s.wg.Wait()
}
