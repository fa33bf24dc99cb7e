package middleware_test

import (
"errors"
"net/http"
"net/http/httptest"
"strings"
"testing"
"time"

"casino-ledger/internal/adapter/http/middleware"
"casino-ledger/internal/adapter/storage/nocache"
redisStore "casino-ledger/internal/adapter/storage/redis"
"casino-ledger/internal/core/ports"
"casino-ledger/internal/core/ports/mocks"
"casino-ledger/internal/observability"

"github.com/alicebob/miniredis/v2"
"github.com/gin-gonic/gin"
"github.com/google/uuid"
"github.com/prometheus/client_golang/prometheus"
dto "github.com/prometheus/client_model/go"
goredis "github.com/redis/go-redis/v9"
"github.com/rs/zerolog"
"github.com/stretchr/testify/assert"
"github.com/stretchr/testify/require"
"go.uber.org/mock/gomock"
)

const testGroup = "test"

func newLimiter(store ports.RateLimitStore, metrics *observability.Metrics) *middleware.Limiter {
rules := map[string]middleware.RateLimitRule{
testGroup: {Limit: 3, Window: time.Minute},
}
return middleware.NewLimiter(store, rules, metrics, zerolog.Nop())
}

func setupRateLimitRouter(limiter *middleware.Limiter, group string) *gin.Engine {
gin.SetMode(gin.TestMode)
r := gin.New()
r.GET("/test", func(c *gin.Context) {
if u := c.GetHeader("X-Test-User"); u != "" {
c.Set(middleware.CtxUserID, uuid.MustParse(u))
}
c.Next()
}, limiter.For(group), func(c *gin.Context) {
c.JSON(200, gin.H{"status": "ok"})
})
return r
}

func redisLimitStore(t *testing.T) (*miniredis.Miniredis, ports.RateLimitStore) {
mr := miniredis.RunT(t)
client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
t.Cleanup(func() { client.Close() })
return mr, redisStore.NewRateLimitStore(client)
}

func hit(router *gin.Engine, user string) *httptest.ResponseRecorder {
w := httptest.NewRecorder()
req := httptest.NewRequest(http.MethodGet, "/test", nil)
if user != "" {
req.Header.Set("X-Test-User", user)
}
router.ServeHTTP(w, req)
return w
}

func limitEvents(t *testing.T, m *observability.Metrics, outcome string) float64 {
t.Helper()
var out dto.Metric
require.NoError(t, m.RateLimited.WithLabelValues(testGroup, outcome).Write(&out))
return out.GetCounter().GetValue()
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
_, store := redisLimitStore(t)
router := setupRateLimitRouter(newLimiter(store, nil), testGroup)

for i := 0; i < 3; i++ {
w := hit(router, "")
assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
_, store := redisLimitStore(t)
metrics := observability.NewMetrics(prometheus.NewRegistry())
router := setupRateLimitRouter(newLimiter(store, metrics), testGroup)

for i := 0; i < 3; i++ {
assert.Equal(t, 200, hit(router, "").Code)
}

w := hit(router, "")
assert.Equal(t, 429, w.Code)
assert.Contains(t, w.Body.String(), "RATE_001")
assert.NotEmpty(t, w.Header().Get("Retry-After"))
assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
assert.Equal(t, float64(1), limitEvents(t, metrics, "rejected"))
}

func TestRateLimiter_WindowExpires(t *testing.T) {
mr, store := redisLimitStore(t)
router := setupRateLimitRouter(newLimiter(store, nil), testGroup)
for i := 0; i < 4; i++ {
hit(router, "")
}

mr.FastForward(time.Minute + 2*time.Second)

assert.Equal(t, 200, hit(router, "").Code)
}

func TestRateLimiter_KeysByAuthenticatedUser(t *testing.T) {
_, store := redisLimitStore(t)
router := setupRateLimitRouter(newLimiter(store, nil), testGroup)
userA, userB := uuid.NewString(), uuid.NewString()

for i := 0; i < 3; i++ {
assert.Equal(t, 200, hit(router, userA).Code)
}
assert.Equal(t, 429, hit(router, userA).Code)

// independent counter
assert.Equal(t, 200, hit(router, userB).Code)
}

func TestRateLimiter_KeyLayout(t *testing.T) {
mr, store := redisLimitStore(t)
router := setupRateLimitRouter(newLimiter(store, nil), testGroup)
user := uuid.NewString()

hit(router, user)
keys := mr.Keys()
require.Len(t, keys, 1)
assert.True(t, strings.HasPrefix(keys[0], "ratelimit:"+testGroup+":user:"+user+":"), keys[0])
}

func TestRateLimiter_StoreFailureAllowsRequest(t *testing.T) {
ctrl := gomock.NewController(t)
store := mocks.NewMockRateLimitStore(ctrl)
store.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(3), time.Minute).Return(nil, errors.New("redis down")).Times(5)
metrics := observability.NewMetrics(prometheus.NewRegistry())

router := setupRateLimitRouter(newLimiter(store, metrics), testGroup)
for i := 0; i < 5; i++ {
w := hit(router, "")
assert.Equal(t, 200, w.Code)
assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
assert.Equal(t, float64(5), limitEvents(t, metrics, "degraded"))
assert.Equal(t, float64(0), limitEvents(t, metrics, "rejected"))
}

func TestRateLimiter_UnknownGroupPassesThrough(t *testing.T) {
ctrl := gomock.NewController(t)
store := mocks.NewMockRateLimitStore(ctrl) // no calls expected

router := setupRateLimitRouter(newLimiter(store, nil), "unknown")
for i := 0; i < 5; i++ {
assert.Equal(t, 200, hit(router, "").Code)
}
}

func TestRateLimiter_NilStoreDisablesLimiting(t *testing.T) {
router := setupRateLimitRouter(newLimiter(nil, nil), testGroup)
for i := 0; i < 5; i++ {
assert.Equal(t, 200, hit(router, "").Code)
}

var nilLimiter *middleware.Limiter
router = setupRateLimitRouter(nilLimiter, testGroup)
assert.Equal(t, 200, hit(router, "").Code)
}

func TestRateLimiter_NoCacheTierNeverLimits(t *testing.T) {
router := setupRateLimitRouter(newLimiter(nocache.RateLimitStore{}, nil), testGroup)
for i := 0; i < 10; i++ {
assert.Equal(t, 200, hit(router, "").Code)
}
}

func TestDefaultRateLimitRules(t *testing.T) {
rules := middleware.DefaultRateLimitRules()
assert.Equal(t, int64(10), rules[middleware.GroupLogin].Limit)
assert.Equal(t, int64(5), rules[middleware.GroupRegister].Limit)
assert.Equal(t, time.Hour, rules[middleware.GroupRegister].Window)
assert.Equal(t, int64(20), rules[middleware.GroupWallet].Limit)
assert.Equal(t, int64(120), rules[middleware.GroupBaccarat].Limit)
assert.Equal(t, int64(60), rules[middleware.GroupReporting].Limit)
}
