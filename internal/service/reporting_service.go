package service

import (
"context"
"fmt"

"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports"
"casino-ledger/pkg/apperror"

"github.com/google/uuid"
)

const maxPageSize = 100

// reportingService implements ports.ReportingService.
type reportingService struct {
accounts ports.AccountRepository
entries  ports.LedgerRepository
cache    ports.BalanceCache
}

// NewReportingService creates a new reporting service.
func NewReportingService(
accounts ports.AccountRepository,
entries ports.LedgerRepository,
cache ports.BalanceCache,
) ports.ReportingService {
return &reportingService{
accounts: accounts,
entries:  entries,
cache:    cache,
}
}

// GetBalance reads through the tiered cache.
func (s *reportingService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
balance, err := s.cache.GetBalance(ctx, userID)
if err != nil {
return 0, apperror.ErrLedgerUnavailable(err)
}
return balance, nil
}

// GetAccount returns the durable account with the active game made player-safe.
func (s *reportingService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
account, err := s.accounts.GetByID(ctx, userID)
if err != nil {
return nil, apperror.ErrLedgerUnavailable(err)
}
if account == nil {
return nil, apperror.ErrAccountNotFound()
}
account.ActiveGame = account.ActiveGame.Public()
return account, nil
}

// ListEntries returns a page of the account's ledger, oldest first.
func (s *reportingService) ListEntries(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
if params.Page < 1 {
params.Page = 1
}
if params.PageSize < 1 || params.PageSize > maxPageSize {
params.PageSize = 20
}
if params.Type != nil && !params.Type.IsValid() {
return nil, 0, apperror.Validation(fmt.Sprintf("unknown transaction type %q", *params.Type))
}

entries, total, err := s.entries.ListByUser(ctx, params)
if err != nil {
return nil, 0, apperror.ErrLedgerUnavailable(err)
}
return entries, total, nil
}

// VerifyChain replays the whole chain from GENESIS.
func (s *reportingService) VerifyChain(ctx context.Context, userID uuid.UUID) (*ports.ChainReport, error) {
entries, _, err := s.entries.ListByUser(ctx, ports.LedgerListParams{UserID: userID})
if err != nil {
return nil, apperror.ErrLedgerUnavailable(err)
}

report := &ports.ChainReport{
Entries:     len(entries),
Valid:       true,
FirstBroken: -1,
HeadHash:    domain.GenesisHash,
}
if len(entries) > 0 {
report.HeadHash = entries[len(entries)-1].IntegrityHash
}
if idx := domain.VerifyChain(entries); idx >= 0 {
report.Valid = false
report.FirstBroken = idx
}
return report, nil
}
