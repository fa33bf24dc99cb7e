package middleware

import (
"strconv"
"time"

"casino-ledger/internal/core/ports"
"casino-ledger/internal/observability"
"casino-ledger/pkg/apperror"
"casino-ledger/pkg/response"

"github.com/gin-gonic/gin"
"github.com/rs/zerolog"
)

// Rate limit groups. Each group has its own counter per caller.
const (
GroupLogin     = "auth_login"
GroupRegister  = "auth_register"
GroupWallet    = "wallet"
GroupBaccarat  = "baccarat"
GroupReporting = "reporting"
)

// RateLimitRule defines a fixed-window limit for an endpoint group.
type RateLimitRule struct {
Limit  int64
Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
return map[string]RateLimitRule{
GroupLogin:     {Limit: 10, Window: time.Minute},
GroupRegister:  {Limit: 5, Window: time.Hour},
GroupWallet:    {Limit: 20, Window: time.Minute},
GroupBaccarat:  {Limit: 120, Window: time.Minute},
GroupReporting: {Limit: 60, Window: time.Minute},
}
}

// Limiter hands out per-group middleware over one counter store.
type Limiter struct {
store   ports.RateLimitStore
rules   map[string]RateLimitRule
metrics *observability.Metrics
log     zerolog.Logger
}

// NewLimiter creates a Limiter. A nil store disables limiting entirely;
// metrics may be nil.
func NewLimiter(store ports.RateLimitStore, rules map[string]RateLimitRule, metrics *observability.Metrics, log zerolog.Logger) *Limiter {
return &Limiter{store: store, rules: rules, metrics: metrics, log: log}
}

// For returns the middleware for group. Groups without a rule pass through.
func (l *Limiter) For(group string) gin.HandlerFunc {
if l == nil || l.store == nil {
return passThrough
}
rule, ok := l.rules[group]
if !ok {
return passThrough
}
return l.limit(group, rule)
}

func passThrough(c *gin.Context) { c.Next() }

func (l *Limiter) limit(group string, rule RateLimitRule) gin.HandlerFunc {
return func(c *gin.Context) {
key := group + ":" + callerKey(c)

result, err := l.store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
if err != nil {
// A failing counter store must not take the ledger down with it.
l.count(group, "degraded")
l.log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request")
c.Next()
return
}

c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

if !result.Allowed {
l.count(group, "rejected")
retryAfter := result.ResetAt - time.Now().Unix()
if retryAfter < 1 {
retryAfter = 1
}
c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
response.Error(c, apperror.ErrRateLimitExceeded())
c.Abort()
return
}

c.Next()
}
}

func (l *Limiter) count(group, outcome string) {
if l.metrics != nil {
l.metrics.RateLimited.WithLabelValues(group, outcome).Inc()
}
}

// callerKey keys authenticated routes by account, public ones by client IP.
func callerKey(c *gin.Context) string {
if id, ok := UserID(c); ok {
return "user:" + id.String()
}
return "ip:" + c.ClientIP()
}
