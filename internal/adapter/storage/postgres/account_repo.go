package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"casino-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateUsername is returned by Create when the username is taken.
var ErrDuplicateUsername = domain.ErrDuplicateUsername

const accountColumns = `id, username, password_hash, balance, total_deposits, session_profit,
	session_total_bets, consecutive_wins, consecutive_losses, last_bet_result, previous_bet,
	active_game, last_game_played, status, created_at, updated_at`

const noActiveGameJSON = `{"type":"NONE"}`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account with a zero balance and no active game.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO users (id, username, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID. Returns (nil, nil) if absent.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByUsername fetches an account by login name. Returns (nil, nil) if absent.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE username = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by username: %w", err)
	}
	return a, nil
}

// ApplyMutation runs m as one conditional UPDATE ... RETURNING. The balance
// precondition lives in the WHERE clause, so a short balance or a lost race
// matches no row and yields (nil, nil) without writing anything.
func (r *AccountRepo) ApplyMutation(ctx context.Context, tx pgx.Tx, m domain.AccountMutation) (*domain.Account, error) {
	query, args, err := buildMutation(m)
	if err != nil {
		return nil, err
	}

	a, err := scanAccount(on(r.pool, tx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("apply account mutation: %w", err)
	}
	return a, nil
}

func buildMutation(m domain.AccountMutation) (string, []any, error) {
	args := []any{m.UserID, m.BalanceDelta}
	sets := []string{"balance = balance + $2", "updated_at = NOW()"}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if m.DepositDelta != 0 {
		sets = append(sets, "total_deposits = total_deposits + "+arg(m.DepositDelta))
	}

	if m.ResetSession {
		sets = append(sets,
			"session_profit = 0",
			"session_total_bets = 0",
			"consecutive_wins = 0",
			"consecutive_losses = 0",
			"last_bet_result = 'NONE'",
			"previous_bet = 0",
		)
	} else {
		if m.ProfitDelta != 0 {
			sets = append(sets, "session_profit = session_profit + "+arg(m.ProfitDelta))
		}
		if m.BetDelta != 0 {
			sets = append(sets, "session_total_bets = session_total_bets + "+arg(m.BetDelta))
		}
		switch {
		case m.Win:
			sets = append(sets, "consecutive_wins = consecutive_wins + 1", "consecutive_losses = 0", "last_bet_result = 'WIN'")
		case m.Loss:
			sets = append(sets, "consecutive_losses = consecutive_losses + 1", "consecutive_wins = 0", "last_bet_result = 'LOSS'")
		}
		if m.PreviousBet != nil {
			sets = append(sets, "previous_bet = "+arg(*m.PreviousBet))
		}
	}

	if m.LastGamePlayed != nil {
		sets = append(sets, "last_game_played = "+arg(string(*m.LastGamePlayed)))
	}

	switch {
	case m.SetActiveGame != nil:
		raw, err := json.Marshal(m.SetActiveGame)
		if err != nil {
			return "", nil, fmt.Errorf("marshal active game: %w", err)
		}
		sets = append(sets, "active_game = "+arg(raw))
	case m.ClearActiveGame:
		sets = append(sets, "active_game = '"+noActiveGameJSON+"'::jsonb")
	}

	where := "id = $1"
	if m.MinBalance > 0 {
		where += " AND balance >= " + arg(m.MinBalance)
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE %s RETURNING %s",
		strings.Join(sets, ", "), where, accountColumns)
	return query, args, nil
}

// SetActiveGame replaces the durable active-game snapshot.
func (r *AccountRepo) SetActiveGame(ctx context.Context, id uuid.UUID, game domain.ActiveGame) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal active game: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET active_game = $1, updated_at = NOW() WHERE id = $2`, raw, id)
	if err != nil {
		return fmt.Errorf("set active game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// ResetActiveGame writes the NONE sentinel. Resetting an unknown account is a no-op.
func (r *AccountRepo) ResetActiveGame(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET active_game = '`+noActiveGameJSON+`'::jsonb, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset active game: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var (
		lastResult string
		status     string
		activeRaw  []byte
		lastGame   *string
	)
	err := row.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.TotalDeposits, &a.SessionProfit,
		&a.SessionTotalBets, &a.ConsecutiveWins, &a.ConsecutiveLosses, &lastResult, &a.PreviousBet,
		&activeRaw, &lastGame, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.LastBetResult = domain.BetResult(lastResult)
	a.Status = domain.AccountStatus(status)
	if lastGame != nil {
		g := domain.GameType(*lastGame)
		a.LastGamePlayed = &g
	}
	a.ActiveGame = domain.NoActiveGame()
	if len(activeRaw) > 0 {
		if err := json.Unmarshal(activeRaw, &a.ActiveGame); err != nil {
			return nil, fmt.Errorf("decode active game: %w", err)
		}
	}
	return a, nil
}
