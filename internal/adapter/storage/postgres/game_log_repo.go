package postgres

import (
	"context"
	"fmt"

	"casino-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// GameLogRepo implements ports.GameLogRepository.
type GameLogRepo struct {
	pool Pool
}

// NewGameLogRepo creates a new GameLogRepo.
func NewGameLogRepo(pool Pool) *GameLogRepo {
	return &GameLogRepo{pool: pool}
}

func (r *GameLogRepo) Create(ctx context.Context, l *domain.GameLog) error {
	query := `INSERT INTO game_logs (id, user_id, game, round_id, bet, payout, profit, result,
		risk_level, adjustment, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.UserID, string(l.Game), l.RoundID, l.Bet, l.Payout, l.Profit, []byte(l.Result),
		string(l.RiskLevel), l.Adjustment, l.TransactionID, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game log: %w", err)
	}
	return nil
}

// ListByUser returns the most recent rounds first.
func (r *GameLogRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameLog, error) {
	query := `SELECT id, user_id, game, round_id, bet, payout, profit, result, risk_level,
		adjustment, transaction_id, created_at
		FROM game_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list game logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.GameLog
	for rows.Next() {
		var (
			l      domain.GameLog
			game   string
			level  string
			result []byte
		)
		err := rows.Scan(
			&l.ID, &l.UserID, &game, &l.RoundID, &l.Bet, &l.Payout, &l.Profit, &result, &level,
			&l.Adjustment, &l.TransactionID, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan game log row: %w", err)
		}
		l.Game = domain.GameType(game)
		l.RiskLevel = domain.RiskLevel(level)
		l.Result = result
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game log rows: %w", err)
	}
	return logs, nil
}
