package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func balanceKey(userID uuid.UUID) string   { return "balance:" + userID.String() }
func gameStateKey(userID uuid.UUID) string { return "game:" + userID.String() }

// TieredCache implements ports.BalanceCache. The fast tier is advisory: every
// failure there degrades to the durable tier and is only logged.
type TieredCache struct {
	store        ports.CacheStore
	accounts     ports.AccountRepository
	balanceTTL   time.Duration
	gameStateTTL time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

// NewTieredCache creates a new TieredCache.
func NewTieredCache(
	store ports.CacheStore,
	accounts ports.AccountRepository,
	balanceTTL, gameStateTTL time.Duration,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *TieredCache {
	return &TieredCache{
		store:        store,
		accounts:     accounts,
		balanceTTL:   balanceTTL,
		gameStateTTL: gameStateTTL,
		metrics:      metrics,
		log:          log,
	}
}

// GetBalance reads the fast tier first, then the account row, repopulating
// the fast tier on the way back.
func (c *TieredCache) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	raw, err := c.store.Get(ctx, balanceKey(userID))
	switch {
	case err != nil:
		c.fastTierFailed("get_balance", userID, err)
	case raw != nil:
		if balance, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
			c.metrics.CacheOps.WithLabelValues("get_balance", "hit").Inc()
			return balance, nil
		}
		c.log.Warn().Str("user_id", userID.String()).Msg("discarding malformed cached balance")
	default:
		c.metrics.CacheOps.WithLabelValues("get_balance", "miss").Inc()
	}

	account, err := c.accounts.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	if account == nil {
		return 0, nil
	}

	c.SetBalance(ctx, userID, account.Balance)
	return account.Balance, nil
}

// SetBalance writes through to the fast tier. When the write fails the cached
// value is evicted instead, so the next read falls through to the account row.
func (c *TieredCache) SetBalance(ctx context.Context, userID uuid.UUID, balance int64) {
	err := c.store.Set(ctx, balanceKey(userID), []byte(strconv.FormatInt(balance, 10)), c.balanceTTL)
	if err == nil {
		return
	}
	c.fastTierFailed("set_balance", userID, err)
	c.InvalidateBalance(context.WithoutCancel(ctx), userID)
}

func (c *TieredCache) InvalidateBalance(ctx context.Context, userID uuid.UUID) {
	if err := c.store.Delete(ctx, balanceKey(userID)); err != nil {
		c.fastTierFailed("invalidate_balance", userID, err)
	}
}

// GetGameState returns the cached in-progress round, if any. It never reads
// the durable tier.
func (c *TieredCache) GetGameState(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, bool) {
	raw, err := c.store.Get(ctx, gameStateKey(userID))
	if err != nil {
		c.fastTierFailed("get_game_state", userID, err)
		return nil, false
	}
	if raw == nil {
		c.metrics.CacheOps.WithLabelValues("get_game_state", "miss").Inc()
		return nil, false
	}

	var state domain.ActiveGame
	if err := json.Unmarshal(raw, &state); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID.String()).Msg("discarding malformed cached game state")
		return nil, false
	}
	c.metrics.CacheOps.WithLabelValues("get_game_state", "hit").Inc()
	return &state, true
}

func (c *TieredCache) SetGameState(ctx context.Context, userID uuid.UUID, state domain.ActiveGame) {
	raw, err := json.Marshal(state)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", userID.String()).Msg("encoding game state")
		return
	}
	if err := c.store.Set(ctx, gameStateKey(userID), raw, c.gameStateTTL); err != nil {
		c.fastTierFailed("set_game_state", userID, err)
	}
}

func (c *TieredCache) DeleteGameState(ctx context.Context, userID uuid.UUID) {
	if err := c.store.Delete(ctx, gameStateKey(userID)); err != nil {
		c.fastTierFailed("delete_game_state", userID, err)
	}
}

func (c *TieredCache) fastTierFailed(op string, userID uuid.UUID, err error) {
	c.metrics.CacheOps.WithLabelValues(op, "error").Inc()
	c.log.Warn().Err(err).Str("op", op).Str("user_id", userID.String()).Msg("fast tier unavailable, continuing without it")
}
