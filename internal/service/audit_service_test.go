package service

import (
"bytes"
"context"
"encoding/json"
"errors"
"testing"
"time"

"casino-ledger/internal/core/domain"
"casino-ledger/internal/core/ports/mocks"

"github.com/google/uuid"
"github.com/rs/zerolog"
"github.com/stretchr/testify/assert"
"github.com/stretchr/testify/require"
"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
ctrl := gomock.NewController(t)
mockRepo := mocks.NewMockAuditRepository(ctrl)
svc := NewAuditService(mockRepo, newTestLogger())

userID := uuid.New()
mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
func(ctx context.Context, log *domain.AuditLog) error {
assert.Equal(t, domain.AuditActionDeposit, log.Action)
assert.Equal(t, userID, *log.UserID)
_, hasDeadline := ctx.Deadline()
assert.True(t, hasDeadline)
return nil
},
)

svc.Log(context.Background(), &domain.AuditLog{
ID:           uuid.New(),
UserID:       &userID,
Action:       domain.AuditActionDeposit,
ResourceType: "ledger_entry",
ResourceID:   uuid.New().String(),
IPAddress:    "127.0.0.1",
CreatedAt:    time.Now(),
})
svc.Wait()
}

func TestAuditService_Log_SurvivesCanceledRequest(t *testing.T) {
ctrl := gomock.NewController(t)
mockRepo := mocks.NewMockAuditRepository(ctrl)
svc := NewAuditService(mockRepo, newTestLogger())

mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
func(ctx context.Context, _ *domain.AuditLog) error {
return ctx.Err()
},
)

ctx, cancel := context.WithCancel(context.Background())
cancel()
var buf bytes.Buffer
svc.log = zerolog.New(&buf)
svc.Log(ctx, &domain.AuditLog{Action: domain.AuditActionWithdraw, ResourceType: "ledger_entry"})
svc.Wait()

assert.NotContains(t, buf.String(), "failed to persist")
}

func TestAuditService_Log_FillsIDAndTimestamp(t *testing.T) {
svc := NewAuditService(nil, newTestLogger())

entry := &domain.AuditLog{Action: domain.AuditActionLogin, ResourceType: "session"}
svc.Log(context.Background(), entry)
svc.Wait()

assert.NotEqual(t, uuid.Nil, entry.ID)
assert.False(t, entry.CreatedAt.IsZero())
}

func TestAuditService_Log_EmitsStructuredRecord(t *testing.T) {
var buf bytes.Buffer
svc := NewAuditService(nil, zerolog.New(&buf))
userID := uuid.New()

svc.Log(context.Background(), &domain.AuditLog{
UserID:       &userID,
Action:       domain.AuditActionRound,
ResourceType: "round",
ResourceID:   "r-1",
IPAddress:    "10.0.0.1",
Details:      `{"net_minor":950}`,
})
svc.Wait()

var line map[string]interface{}
require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
assert.Equal(t, "audit", line["message"])
assert.Equal(t, "ROUND", line["action"])
assert.Equal(t, userID.String(), line["user_id"])
assert.Equal(t, map[string]interface{}{"net_minor": float64(950)}, line["details"])
}

func TestAuditService_Log_RepoFailureIsLogged(t *testing.T) {
ctrl := gomock.NewController(t)
mockRepo := mocks.NewMockAuditRepository(ctrl)
var buf bytes.Buffer
svc := NewAuditService(mockRepo, zerolog.New(&buf))

mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

svc.Log(context.Background(), &domain.AuditLog{Action: domain.AuditActionRegister, ResourceType: "account", Details: "not json"})
svc.Wait()

assert.Contains(t, buf.String(), "failed to persist audit log")
assert.Contains(t, buf.String(), "db down")
}
