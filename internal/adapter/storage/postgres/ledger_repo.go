package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `seq, id, user_id, type, amount, balance_after, game, reference_id,
	integrity_hash, prev_hash, created_at`

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// LastHash returns the integrity hash at the head of the user's chain.
// Called after the account row is locked by its UPDATE, so the head cannot move.
func (r *LedgerRepo) LastHash(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (string, error) {
	query := `SELECT integrity_hash FROM ledger_entries WHERE user_id = $1 ORDER BY seq DESC LIMIT 1`

	var hash string
	err := on(r.pool, tx).QueryRow(ctx, query, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GenesisHash, nil
		}
		return "", fmt.Errorf("get last ledger hash: %w", err)
	}
	return hash, nil
}

// Create appends a sealed entry and fills in its sequence number.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, user_id, type, amount, balance_after, game, reference_id,
		integrity_hash, prev_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`

	err := on(r.pool, tx).QueryRow(ctx, query,
		e.ID, e.UserID, string(e.Type), e.Amount, e.BalanceAfter, string(e.Game), e.ReferenceID,
		e.IntegrityHash, e.PrevHash, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns the user's entries oldest first with the total count.
func (r *LedgerRepo) ListByUser(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, params.UserID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, string(*params.Type))
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	dataQuery := fmt.Sprintf("SELECT %s FROM ledger_entries %s ORDER BY seq ASC", ledgerColumns, where)
	if params.PageSize > 0 {
		page := params.Page
		if page < 1 {
			page = 1
		}
		dataQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, params.PageSize, (page-1)*params.PageSize)
	}

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e      domain.LedgerEntry
			txType string
			game   string
		)
		err := rows.Scan(
			&e.Seq, &e.ID, &e.UserID, &txType, &e.Amount, &e.BalanceAfter, &game, &e.ReferenceID,
			&e.IntegrityHash, &e.PrevHash, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Type = domain.TransactionType(txType)
		e.Game = domain.GameType(game)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, total, nil
}
