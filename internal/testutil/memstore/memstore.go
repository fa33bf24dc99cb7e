// Package memstore is an in-memory stand-in for the Postgres adapter, used by
// service and HTTP tests. Transactions behave like READ COMMITTED with
// row-level locks: an account update locks the row until commit or rollback,
// uncommitted versions are private to their transaction, and an update that
// waited on a lock evaluates its precondition against the newly committed row.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errForeignTx = errors.New("memstore: transaction was not opened by this store")

// Store implements every repository port plus ports.DBTransactor.
type Store struct {
	mu      sync.Mutex
	release *sync.Cond // broadcast whenever row locks are released

	accounts map[uuid.UUID]*domain.Account // committed rows
	rowLocks map[uuid.UUID]*memTx
	entries  map[uuid.UUID][]domain.LedgerEntry
	locks    map[uuid.UUID]time.Time
	gameLogs []domain.GameLog
	audits   []domain.AuditLog
	seq      int64

	// Fault injection. Set before the call that should fail.
	BeginErr           error
	CreateEntryErr     error
	SetActiveGameErr   error
	ResetActiveGameErr error
	LockErr            error
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		accounts: make(map[uuid.UUID]*domain.Account),
		rowLocks: make(map[uuid.UUID]*memTx),
		entries:  make(map[uuid.UUID][]domain.LedgerEntry),
		locks:    make(map[uuid.UUID]time.Time),
	}
	s.release = sync.NewCond(&s.mu)
	return s
}

var (
	_ ports.AccountRepository = (*Store)(nil)
	_ ports.LockRepository    = (*Store)(nil)
	_ ports.DBTransactor      = (*Store)(nil)
)

// --- Transactions ---

// Begin opens a transaction. Any number may be open at once.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return s.newTx(), nil
}

func (s *Store) newTx() *memTx {
	return &memTx{store: s, accounts: make(map[uuid.UUID]domain.Account)}
}

// txFor returns the transaction a repository call runs in. A nil tx gets an
// implicit one that the caller must finish with autocommit.
func (s *Store) txFor(tx pgx.Tx) (*memTx, bool, error) {
	if tx == nil {
		return s.newTx(), true, nil
	}
	t, ok := tx.(*memTx)
	if !ok || t.store != s {
		return nil, false, errForeignTx
	}
	if t.done {
		return nil, false, pgx.ErrTxClosed
	}
	return t, false, nil
}

func autocommit(t *memTx, implicit bool) {
	if implicit {
		_ = t.Commit(context.Background())
	}
}

// lockRowLocked blocks until t owns the row lock on id. s.mu must be held.
func (s *Store) lockRowLocked(id uuid.UUID, t *memTx) {
	for {
		owner, held := s.rowLocks[id]
		if !held || owner == t {
			s.rowLocks[id] = t
			return
		}
		s.release.Wait()
	}
}

func (s *Store) releaseLocked(t *memTx) {
	for id, owner := range s.rowLocks {
		if owner == t {
			delete(s.rowLocks, id)
		}
	}
	s.release.Broadcast()
}

// RowLocked reports whether an open transaction holds the row lock on id.
func (s *Store) RowLocked(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.rowLocks[id]
	return held
}

// memTx is a pgx.Tx carrying its uncommitted account versions and ledger
// appends. Only Commit and Rollback are meaningful on the pgx surface.
type memTx struct {
	store    *Store
	accounts map[uuid.UUID]domain.Account
	entries  []domain.LedgerEntry
	done     bool
}

// rowLocked returns the version of id visible to t. s.mu must be held.
func (t *memTx) rowLocked(id uuid.UUID) (domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.store.accounts[id]
	if !ok {
		return domain.Account{}, false
	}
	return *a, true
}

func (t *memTx) Commit(ctx context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for id, a := range t.accounts {
		a := a
		s.accounts[id] = &a
	}
	for _, e := range t.entries {
		s.entries[e.UserID] = append(s.entries[e.UserID], e)
	}
	s.releaseLocked(t)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.accounts, t.entries = nil, nil
	s.releaseLocked(t)
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Accounts ---

func (s *Store) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == account.Username {
			return domain.ErrDuplicateUsername
		}
	}
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// ApplyMutation mirrors the conditional UPDATE the Postgres adapter builds.
// It waits for the row lock, so the precondition always sees the latest
// committed balance.
func (s *Store) ApplyMutation(ctx context.Context, tx pgx.Tx, m domain.AccountMutation) (*domain.Account, error) {
	t, implicit, err := s.txFor(tx)
	if err != nil {
		return nil, err
	}
	defer autocommit(t, implicit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[m.UserID]; !ok {
		if _, pending := t.accounts[m.UserID]; !pending {
			return nil, nil
		}
	}
	s.lockRowLocked(m.UserID, t)

	a, _ := t.rowLocked(m.UserID)
	if m.MinBalance > 0 && a.Balance < m.MinBalance {
		return nil, nil
	}

	a.Balance += m.BalanceDelta
	a.TotalDeposits += m.DepositDelta
	if m.ResetSession {
		a.SessionProfit, a.SessionTotalBets = 0, 0
		a.ConsecutiveWins, a.ConsecutiveLosses = 0, 0
		a.LastBetResult = domain.BetResultNone
		a.PreviousBet = 0
	} else {
		a.SessionProfit += m.ProfitDelta
		a.SessionTotalBets += m.BetDelta
		switch {
		case m.Win:
			a.ConsecutiveWins++
			a.ConsecutiveLosses = 0
			a.LastBetResult = domain.BetResultWin
		case m.Loss:
			a.ConsecutiveLosses++
			a.ConsecutiveWins = 0
			a.LastBetResult = domain.BetResultLoss
		}
		if m.PreviousBet != nil {
			a.PreviousBet = *m.PreviousBet
		}
	}
	if m.LastGamePlayed != nil {
		g := *m.LastGamePlayed
		a.LastGamePlayed = &g
	}
	switch {
	case m.SetActiveGame != nil:
		a.ActiveGame = cloneGame(*m.SetActiveGame)
	case m.ClearActiveGame:
		a.ActiveGame = domain.NoActiveGame()
	}
	a.UpdatedAt = time.Now().UTC()

	t.accounts[m.UserID] = a
	cp := a
	return &cp, nil
}

func (s *Store) SetActiveGame(ctx context.Context, id uuid.UUID, game domain.ActiveGame) error {
	if s.SetActiveGameErr != nil {
		return s.SetActiveGameErr
	}
	s.setActiveGame(id, game)
	return nil
}

func (s *Store) ResetActiveGame(ctx context.Context, id uuid.UUID) error {
	if s.ResetActiveGameErr != nil {
		return s.ResetActiveGameErr
	}
	s.setActiveGame(id, domain.NoActiveGame())
	return nil
}

// setActiveGame is a single-statement UPDATE: it takes the row lock too.
func (s *Store) setActiveGame(id uuid.UUID, game domain.ActiveGame) {
	t := s.newTx()
	defer autocommit(t, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return
	}
	s.lockRowLocked(id, t)
	a, _ := t.rowLocked(id)
	a.ActiveGame = cloneGame(game)
	t.accounts[id] = a
}

// cloneGame round-trips through JSON the way the jsonb column does.
func cloneGame(g domain.ActiveGame) domain.ActiveGame {
	raw, err := json.Marshal(g)
	if err != nil {
		return g
	}
	var out domain.ActiveGame
	if err := json.Unmarshal(raw, &out); err != nil {
		return g
	}
	return out
}

// --- Ledger ---

// Ledger returns the LedgerRepository view of the store.
func (s *Store) Ledger() ports.LedgerRepository { return ledgerView{s} }

type ledgerView struct{ s *Store }

func (v ledgerView) LastHash(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (string, error) {
	t, implicit, err := v.s.txFor(tx)
	if err != nil {
		return "", err
	}
	defer autocommit(t, implicit)

	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].UserID == userID {
			return t.entries[i].IntegrityHash, nil
		}
	}
	chain := v.s.entries[userID]
	if len(chain) == 0 {
		return domain.GenesisHash, nil
	}
	return chain[len(chain)-1].IntegrityHash, nil
}

// Create buffers the entry in its transaction; it becomes visible on commit.
func (v ledgerView) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	if v.s.CreateEntryErr != nil {
		return v.s.CreateEntryErr
	}
	t, implicit, err := v.s.txFor(tx)
	if err != nil {
		return err
	}
	defer autocommit(t, implicit)

	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.seq++
	entry.Seq = v.s.seq
	t.entries = append(t.entries, *entry)
	return nil
}

func (v ledgerView) ListByUser(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range v.s.entries[params.UserID] {
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		out = append(out, e)
	}
	total := int64(len(out))
	if params.PageSize > 0 {
		start := (params.Page - 1) * params.PageSize
		if start < 0 {
			start = 0
		}
		if start >= len(out) {
			return []domain.LedgerEntry{}, total, nil
		}
		end := start + params.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

// TamperEntry overwrites the amount of the i-th entry in userID's chain.
func (s *Store) TamperEntry(userID uuid.UUID, i int, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID][i].Amount = amount
}

// --- Locks ---

func (s *Store) TryInsert(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (bool, error) {
	if s.LockErr != nil {
		return false, s.LockErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.locks[userID]; ok && time.Now().Before(exp) {
		return false, nil
	}
	s.locks[userID] = expiresAt
	return true, nil
}

// Delete removes the lock row. It is the LockRepository Delete.
func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, userID)
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, exp := range s.locks {
		if !now.Before(exp) {
			delete(s.locks, id)
			n++
		}
	}
	return n, nil
}

// LockHeld reports whether a live lock row exists for userID.
func (s *Store) LockHeld(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.locks[userID]
	return ok && time.Now().Before(exp)
}

// --- Game logs & audit ---

// GameLogs returns the GameLogRepository view of the store.
func (s *Store) GameLogs() ports.GameLogRepository { return gameLogView{s} }

type gameLogView struct{ s *Store }

func (v gameLogView) Create(ctx context.Context, log *domain.GameLog) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.gameLogs = append(v.s.gameLogs, *log)
	return nil
}

func (v gameLogView) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.GameLog, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []domain.GameLog
	for _, l := range v.s.gameLogs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Audits returns the AuditRepository view of the store.
func (s *Store) Audits() ports.AuditRepository { return auditView{s} }

type auditView struct{ s *Store }

func (v auditView) Create(ctx context.Context, log *domain.AuditLog) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.audits = append(v.s.audits, *log)
	return nil
}

// AuditCount returns how many audit records were persisted.
func (s *Store) AuditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

// AuditActions returns the persisted audit actions in persistence order.
func (s *Store) AuditActions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, len(s.audits))
	for i, a := range s.audits {
		out[i] = a.Action
	}
	return out
}
