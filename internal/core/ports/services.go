package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"casino-ledger/internal/core/baccarat"
	"casino-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// --- Infrastructure Ports ---

// CacheStore is the fast tier. Implementations exist for Redis and for an
// absent tier; the choice is made once at startup.
type CacheStore interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Enabled reports whether a real fast tier is behind this store.
	Enabled() bool
}

// RateLimitStore counts requests per fixed window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// EncryptionService seals secrets with AES-256-GCM. The binding is
// authenticated but not stored; Decrypt fails unless it gets the same one.
type EncryptionService interface {
	Encrypt(plaintext, binding string) (string, error)
	Decrypt(ciphertext, binding string) (string, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
}

// --- Service Ports (Business Logic) ---

// LockManager serializes actions per user.
type LockManager interface {
	// Acquire returns false, not an error, when the lock is held.
	Acquire(ctx context.Context, userID uuid.UUID) (bool, error)
	// Release is best-effort; failures are logged, never returned.
	Release(ctx context.Context, userID uuid.UUID)
	// WithLock runs fn while holding the lock and releases it on every exit path.
	WithLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) error
}

// BalanceCache is the tiered read path for balances and in-progress state.
type BalanceCache interface {
	// GetBalance errors only when the durable tier fails; an unknown user reads as zero.
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	SetBalance(ctx context.Context, userID uuid.UUID, balance int64)
	InvalidateBalance(ctx context.Context, userID uuid.UUID)
	GetGameState(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, bool)
	SetGameState(ctx context.Context, userID uuid.UUID, state domain.ActiveGame)
	DeleteGameState(ctx context.Context, userID uuid.UUID)
}

// LedgerService is the transaction engine.
type LedgerService interface {
	Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error)
	RecordLoss(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}

// ApplyRequest is one balance movement. Amount is always positive; Type
// decides the sign.
type ApplyRequest struct {
	UserID       uuid.UUID
	Amount       int64
	Type         domain.TransactionType
	Game         domain.GameType
	ReferenceID  *string
	NewGameState *domain.ActiveGame
}

// ApplyResult carries the post-commit account and its new ledger entry.
type ApplyResult struct {
	Account *domain.Account
	Entry   *domain.LedgerEntry
}

// GameStateManager keeps in-progress rounds in the fast tier and writes
// durable snapshots only at session boundaries.
type GameStateManager interface {
	Save(ctx context.Context, userID uuid.UUID, state domain.ActiveGame, persist bool)
	Get(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, bool)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// RiskService classifies a wager and records trigger metrics.
type RiskService interface {
	Assess(ctx context.Context, account *domain.Account, bet int64) domain.RiskAssessment
}

// GameLogService records completed rounds without blocking the caller.
type GameLogService interface {
	Record(ctx context.Context, log *domain.GameLog)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameLog, error)
}

// AuditService records account actions without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// WalletService moves money in and out of an account.
type WalletService interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, referenceID *string) (*ApplyResult, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64, referenceID *string) (*ApplyResult, error)
}

// ReportingService serves read-only views of an account.
type ReportingService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	ListEntries(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	VerifyChain(ctx context.Context, userID uuid.UUID) (*ChainReport, error)
}

// ChainReport is the result of replaying an account's hash chain.
type ChainReport struct {
	Entries     int    `json:"entries"`
	Valid       bool   `json:"valid"`
	FirstBroken int    `json:"first_broken"`
	HeadHash    string `json:"head_hash"`
}

// BaccaratService plays complete Punto Banco rounds against the ledger.
type BaccaratService interface {
	Play(ctx context.Context, userID uuid.UUID, bet baccarat.Bet) (*RoundOutcome, error)
	ActiveGame(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, error)
}

// RoundOutcome is everything the player sees once a round has settled.
// Seed is revealed only after settlement; SeedHash was committed before the deal.
type RoundOutcome struct {
	RoundID    uuid.UUID             `json:"round_id"`
	Bet        baccarat.Bet          `json:"bet"`
	Result     baccarat.Result       `json:"result"`
	Settlement baccarat.Settlement   `json:"settlement"`
	Risk       domain.RiskAssessment `json:"risk"`
	Balance    int64                 `json:"balance"`
	SeedHash   string                `json:"seed_hash"`
	Seed       string                `json:"seed"`
}
