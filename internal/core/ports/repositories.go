package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"casino-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for player accounts.
// Methods accepting pgx.Tx are used inside the ledger's transaction block.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// ApplyMutation runs a single conditional update. It returns (nil, nil)
	// when the precondition did not match: short balance or unknown user.
	ApplyMutation(ctx context.Context, tx pgx.Tx, m domain.AccountMutation) (*domain.Account, error)
	SetActiveGame(ctx context.Context, id uuid.UUID, game domain.ActiveGame) error
	ResetActiveGame(ctx context.Context, id uuid.UUID) error
}

// LedgerRepository defines persistence for the per-account hash chain.
type LedgerRepository interface {
	// LastHash returns the newest entry's hash, or domain.GenesisHash for an empty chain.
	LastHash(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (string, error)
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// ListByUser returns entries oldest first.
	ListByUser(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
// PageSize <= 0 returns the whole chain.
type LedgerListParams struct {
	UserID   uuid.UUID
	Type     *domain.TransactionType
	Page     int
	PageSize int
}

// GameLogRepository persists completed-round audit records.
type GameLogRepository interface {
	Create(ctx context.Context, log *domain.GameLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameLog, error)
}

// AuditRepository persists account-level audit records.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// LockRepository is the durable store behind the per-user action lock.
type LockRepository interface {
	// TryInsert atomically inserts the lock row, taking over an expired one.
	// Returns false when a live lock already exists.
	TryInsert(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	// PurgeExpired deletes locks whose failsafe expiry has passed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
