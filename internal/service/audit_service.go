package service

import (
"context"
"encoding/json"
"sync"
"time"

"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports"

"github.com/google/uuid"
"github.com/rs/zerolog"
)

const auditWriteTimeout = 3 * time.Second

// AuditServiceImpl implements ports.AuditService. Every record goes to the
// structured log; the repository copy is best effort.
type AuditServiceImpl struct {
repo ports.AuditRepository
log  zerolog.Logger
wg   sync.WaitGroup
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
return &AuditServiceImpl{repo: repo, log: log}
}

// Log records an audit entry without blocking the caller.
func (s *AuditServiceImpl) Log(ctx context.Context, entry *domain.AuditLog) {
if entry.ID == uuid.Nil {
entry.ID = uuid.New()
}
if entry.CreatedAt.IsZero() {
entry.CreatedAt = time.Now().UTC()
}

s.emit(entry)
if s.repo == nil {
return
}

s.wg.Add(1)
go func() {
defer s.wg.Done()
wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
defer cancel()
if err := s.repo.Create(wctx, entry); err != nil {
s.log.Warn().Err(err).
Str("audit_id", entry.ID.String()).
Str("action", string(entry.Action)).
Msg("failed to persist audit log")
}
}()
}

func (s *AuditServiceImpl) emit(entry *domain.AuditLog) {
ev := s.log.Info().
Str("audit_id", entry.ID.String()).
Str("action", string(entry.Action)).
Str("resource_type", entry.ResourceType).
Str("resource_id", entry.ResourceID).
Str("ip", entry.IPAddress)
if entry.UserID != nil {
ev = ev.Str("user_id", entry.UserID.String())
}
if entry.Details != "" && json.Valid([]byte(entry.Details)) {
ev = ev.RawJSON("details", []byte(entry.Details))
}
ev.Msg("audit")
}

// Wait blocks until all in-flight audit writes finish.
func (s *AuditServiceImpl) Wait() {
s.wg.Wait()
}
