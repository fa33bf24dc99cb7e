package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"casino-ledger/internal/core/baccarat"
	"casino-ledger/internal/core/cards"
	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/core/ports/mocks"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testTableMax int64 = 50_000

type baccaratFixture struct {
	*ledgerFixture
	gameState *GameStateManagerImpl
	gameLogs  *GameLogServiceImpl
	enc       *AESEncryptionService
	svc       *BaccaratServiceImpl
}

func newBaccaratFixture(t *testing.T) *baccaratFixture {
	t.Helper()
	f := newLedgerFixture(t)
	log := newTestLogger()

	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	gameState := NewGameStateManager(f.cache, f.store, f.metrics, log)
	gameLogs := NewGameLogService(f.store.GameLogs(), log)
	svc := NewBaccaratService(
		f.locks, f.store, f.ledger, gameState,
		NewRiskService(f.metrics, true, log), gameLogs, enc,
		testTableMax, f.metrics, log,
	)
	return &baccaratFixture{ledgerFixture: f, gameState: gameState, gameLogs: gameLogs, enc: enc, svc: svc}
}

// withSeed makes the next rounds deal from a known shoe.
func (f *baccaratFixture) withSeed(seed string) {
	f.svc.newSeed = func() (string, error) { return seed, nil }
}

func expectedSettlement(t *testing.T, seed string, bet baccarat.Bet) (baccarat.Result, baccarat.Settlement) {
	t.Helper()
	result, err := baccarat.Resolve(cards.NewShoe(seed, cards.DecksPerShoe))
	require.NoError(t, err)
	return result, baccarat.Settle(bet, result)
}

func (f *baccaratFixture) chain(t *testing.T, userID uuid.UUID) []domain.LedgerEntry {
	t.Helper()
	entries, _, err := f.store.Ledger().ListByUser(context.Background(), ports.LedgerListParams{UserID: userID})
	require.NoError(t, err)
	return entries
}

func TestBaccaratService_Play_SettlesAgainstSeededShoe(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 1_000_000)

	balance := int64(1_000_000)
	entries := 1
	for i := 0; i < 25; i++ {
		seed := fmt.Sprintf("round-%02d", i)
		f.withSeed(seed)
		bet := baccarat.Bet{Side: []baccarat.Side{baccarat.SidePlayer, baccarat.SideBanker, baccarat.SideTie}[i%3], Amount: 1_000, PlayerPair: 100}
		result, want := expectedSettlement(t, seed, bet)

		outcome, err := f.svc.Play(ctx, userID, bet)
		require.NoError(t, err, seed)

		balance += want.Net()
		entries++ // the debit
		if want.Payout > 0 {
			entries++
		}

		assert.Equal(t, result, outcome.Result, seed)
		assert.Equal(t, want, outcome.Settlement, seed)
		assert.Equal(t, balance, outcome.Balance, seed)
		assert.Equal(t, seed, outcome.Seed)
		assert.Equal(t, cards.SeedCommitment(seed), outcome.SeedHash)
	}

	account := f.account(t, userID)
	assert.Equal(t, balance, account.Balance)
	assert.True(t, account.ActiveGame.IsNone(), "no round left open")
	require.NotNil(t, account.LastGamePlayed)
	assert.Equal(t, domain.GameTypeBaccarat, *account.LastGamePlayed)
	assert.Equal(t, int64(25*1_100), account.SessionTotalBets)

	chain := f.chain(t, userID)
	assert.Len(t, chain, entries)
	assert.Equal(t, -1, domain.VerifyChain(chain))
	assert.False(t, f.store.LockHeld(userID), "lock released after every round")
}

func TestBaccaratService_Play_RecordsGameLog(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 100_000)

	seed := "game-log-seed"
	f.withSeed(seed)
	bet := baccarat.Bet{Side: baccarat.SideBanker, Amount: 2_000}
	_, want := expectedSettlement(t, seed, bet)

	outcome, err := f.svc.Play(ctx, userID, bet)
	require.NoError(t, err)
	f.gameLogs.Wait()

	logs, err := f.gameLogs.List(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, outcome.RoundID, entry.RoundID)
	assert.Equal(t, domain.GameTypeBaccarat, entry.Game)
	assert.Equal(t, want.Stake, entry.Bet)
	assert.Equal(t, want.Payout, entry.Payout)
	assert.Equal(t, want.Net(), entry.Profit)
	assert.Equal(t, domain.RiskLevelNormal, entry.RiskLevel)
	assert.Nil(t, entry.Adjustment)
	require.NotNil(t, entry.TransactionID)

	var stored struct {
		Bet    baccarat.Bet    `json:"bet"`
		Result baccarat.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(entry.Result, &stored))
	assert.Equal(t, bet, stored.Bet)
	assert.Equal(t, outcome.Result.Winner, stored.Result.Winner)
}

func TestBaccaratService_Play_SnapshotsResolvedRoundThenClears(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	f.withSeed("snapshot-seed")
	_, err := f.svc.Play(ctx, userID, baccarat.Bet{Side: baccarat.SidePlayer, Amount: 1_000})
	require.NoError(t, err)
	f.gameState.Wait()

	assert.Equal(t, float64(1), counterValue(t, f.metrics.GameStateDurable.WithLabelValues("ok")))
	assert.True(t, f.account(t, userID).ActiveGame.IsNone(), "the snapshot lands before the round is cleared")
	_, ok := f.gameState.Get(ctx, userID)
	assert.False(t, ok)
}

func TestBaccaratService_Play_ExtremeRiskIsFlaggedNotBlocked(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	f.withSeed("all-in")
	outcome, err := f.svc.Play(ctx, userID, baccarat.Bet{Side: baccarat.SidePlayer, Amount: 10_000})
	require.NoError(t, err)
	f.gameLogs.Wait()

	assert.Equal(t, domain.RiskLevelExtreme, outcome.Risk.Level)
	assert.Contains(t, outcome.Risk.Triggers, domain.TriggerHighExposure)

	logs, err := f.gameLogs.List(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Adjustment)
	assert.Equal(t, AdjustmentReview, *logs[0].Adjustment)
	assert.Equal(t, float64(1), counterValue(t, f.metrics.RiskTriggers.WithLabelValues("HIGH_EXPOSURE")))
}

func TestBaccaratService_Play_Validation(t *testing.T) {
	f := newBaccaratFixture(t)
	userID := f.newAccount(t, 100_000)

	tests := []struct {
		name string
		bet  baccarat.Bet
		code string
	}{
		{"unknown side", baccarat.Bet{Side: "DRAGON", Amount: 100}, apperror.CodeInvalidBet},
		{"zero amount", baccarat.Bet{Side: baccarat.SidePlayer}, apperror.CodeInvalidBet},
		{"negative side bet", baccarat.Bet{Side: baccarat.SidePlayer, Amount: 100, BankerPair: -1}, apperror.CodeInvalidBet},
		{"over table max", baccarat.Bet{Side: baccarat.SideBanker, Amount: testTableMax, PlayerPair: 1}, apperror.CodeBetLimitExceeded},
		{
			"stakes that wrap to a small total",
			baccarat.Bet{Side: baccarat.SideBanker, Amount: math.MaxInt64, PlayerPair: 1921535841011411627, BankerPair: 7301836195843364682},
			apperror.CodeBetLimitExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Play(context.Background(), userID, tt.bet)
			assert.Equal(t, tt.code, apperror.CodeOf(err))
		})
	}
	assert.Equal(t, int64(100_000), f.account(t, userID).Balance)
}

func TestBaccaratService_Play_InsufficientFunds(t *testing.T) {
	f := newBaccaratFixture(t)
	userID := f.newAccount(t, 500)

	_, err := f.svc.Play(context.Background(), userID, baccarat.Bet{Side: baccarat.SidePlayer, Amount: 400, PlayerPair: 200})
	assert.Equal(t, apperror.CodeInsufficientFunds, apperror.CodeOf(err))

	assert.Equal(t, int64(500), f.account(t, userID).Balance)
	assert.Len(t, f.chain(t, userID), 1)
}

func TestBaccaratService_Play_UnknownAndInactiveAccounts(t *testing.T) {
	f := newBaccaratFixture(t)
	bet := baccarat.Bet{Side: baccarat.SidePlayer, Amount: 100}

	_, err := f.svc.Play(context.Background(), uuid.New(), bet)
	assert.Equal(t, apperror.CodeAccountNotFound, apperror.CodeOf(err))

	suspended := domain.NewAccount("suspended", "hash")
	suspended.Status = domain.AccountStatusSuspended
	require.NoError(t, f.store.Create(context.Background(), suspended))

	_, err = f.svc.Play(context.Background(), suspended.ID, bet)
	assert.Equal(t, apperror.CodeAccountInactive, apperror.CodeOf(err))
}

func TestBaccaratService_Play_LockContended(t *testing.T) {
	f := newBaccaratFixture(t)
	userID := f.newAccount(t, 10_000)

	ok, err := f.store.TryInsert(context.Background(), userID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Play(context.Background(), userID, baccarat.Bet{Side: baccarat.SidePlayer, Amount: 100})
	assert.Equal(t, apperror.CodeLockContended, apperror.CodeOf(err))
	assert.Equal(t, int64(10_000), f.account(t, userID).Balance)
}

// abandonRound debits a round the way play does, then stops before settling.
func (f *baccaratFixture) abandonRound(t *testing.T, userID, roundID uuid.UUID, bet baccarat.Bet, seed string, seedEnc string) {
	t.Helper()
	progress, err := json.Marshal(baccaratProgress{Side: bet.Side, Risk: domain.RiskLevelNormal})
	require.NoError(t, err)

	started := time.Now().UTC()
	ref := roundID.String()
	_, err = f.ledger.Apply(context.Background(), ports.ApplyRequest{
		UserID:      userID,
		Amount:      bet.Total(),
		Type:        domain.TransactionTypeBet,
		Game:        domain.GameTypeBaccarat,
		ReferenceID: &ref,
		NewGameState: &domain.ActiveGame{
			Type:        domain.GameTypeBaccarat,
			RoundID:     &roundID,
			Bet:         bet.Amount,
			SideBets:    bet.SideBets(),
			Progress:    progress,
			ShoeSeedEnc: seedEnc,
			SeedHash:    cards.SeedCommitment(seed),
			StartedAt:   &started,
		},
	})
	require.NoError(t, err)
}

func TestBaccaratService_Play_ReplaysAbandonedRound(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	oldSeed := "abandoned-seed"
	oldBet := baccarat.Bet{Side: baccarat.SideBanker, Amount: 1_000}
	oldRound := uuid.New()
	seedEnc, err := f.enc.Encrypt(oldSeed, oldRound.String())
	require.NoError(t, err)
	f.abandonRound(t, userID, oldRound, oldBet, oldSeed, seedEnc)
	require.False(t, f.account(t, userID).ActiveGame.IsNone())

	_, oldWant := expectedSettlement(t, oldSeed, oldBet)

	newSeed := "fresh-seed"
	newBet := baccarat.Bet{Side: baccarat.SidePlayer, Amount: 500}
	_, newWant := expectedSettlement(t, newSeed, newBet)
	f.withSeed(newSeed)

	outcome, err := f.svc.Play(ctx, userID, newBet)
	require.NoError(t, err)
	f.gameLogs.Wait()

	want := int64(10_000) + oldWant.Net() + newWant.Net()
	assert.Equal(t, want, outcome.Balance)
	assert.Equal(t, want, f.account(t, userID).Balance)

	logs, err := f.gameLogs.List(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	rounds := []uuid.UUID{logs[0].RoundID, logs[1].RoundID}
	assert.Contains(t, rounds, oldRound)
	assert.Contains(t, rounds, outcome.RoundID)
	assert.Equal(t, -1, domain.VerifyChain(f.chain(t, userID)))
}

func TestBaccaratService_Play_RefundsUnrecoverableRound(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	oldBet := baccarat.Bet{Side: baccarat.SideTie, Amount: 1_000, BankerPair: 250}
	f.abandonRound(t, userID, uuid.New(), oldBet, "lost-seed", "not-a-ciphertext")
	assert.Equal(t, int64(8_750), f.account(t, userID).Balance)

	newSeed := "after-refund"
	newBet := baccarat.Bet{Side: baccarat.SidePlayer, Amount: 500}
	_, newWant := expectedSettlement(t, newSeed, newBet)
	f.withSeed(newSeed)

	outcome, err := f.svc.Play(ctx, userID, newBet)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000)+newWant.Net(), outcome.Balance)

	chain := f.chain(t, userID)
	assert.Equal(t, domain.TransactionTypeRefund, chain[2].Type)
	assert.Equal(t, int64(1_250), chain[2].Amount)
}

func TestBaccaratService_Play_RefundClearFailureIsLogged(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	var buf bytes.Buffer
	f.svc.log = zerolog.New(&buf)

	f.abandonRound(t, userID, uuid.New(), baccarat.Bet{Side: baccarat.SidePlayer, Amount: 1_000}, "lost-seed", "not-a-ciphertext")
	f.store.ResetActiveGameErr = errors.New("db down")

	f.withSeed("refund-then-play")
	_, err := f.svc.Play(ctx, userID, baccarat.Bet{Side: baccarat.SidePlayer, Amount: 500})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "clearing refunded round failed")
	assert.Contains(t, buf.String(), "db down")
}

func TestBaccaratService_Play_RefundsSeedSealedToAnotherRound(t *testing.T) {
	f := newBaccaratFixture(t)
	ctx := context.Background()
	userID := f.newAccount(t, 10_000)

	// A valid ciphertext copied from a different round must not replay.
	seed := "moved-seed"
	seedEnc, err := f.enc.Encrypt(seed, uuid.NewString())
	require.NoError(t, err)
	oldBet := baccarat.Bet{Side: baccarat.SidePlayer, Amount: 2_000}
	f.abandonRound(t, userID, uuid.New(), oldBet, seed, seedEnc)

	newSeed := "next-round"
	newBet := baccarat.Bet{Side: baccarat.SideBanker, Amount: 100}
	_, newWant := expectedSettlement(t, newSeed, newBet)
	f.withSeed(newSeed)

	outcome, err := f.svc.Play(ctx, userID, newBet)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000)+newWant.Net(), outcome.Balance)

	chain := f.chain(t, userID)
	assert.Equal(t, domain.TransactionTypeRefund, chain[2].Type)
	assert.Equal(t, int64(2_000), chain[2].Amount)
}

func TestBaccaratService_ActiveGame(t *testing.T) {
	ctrl := gomock.NewController(t)
	gameState := mocks.NewMockGameStateManager(ctrl)
	svc := NewBaccaratService(nil, nil, nil, gameState, nil, nil, nil, testTableMax, newTestMetrics(), newTestLogger())
	userID := uuid.New()
	roundID := uuid.New()

	gameState.EXPECT().Get(gomock.Any(), userID).Return(&domain.ActiveGame{
		Type:        domain.GameTypeBaccarat,
		RoundID:     &roundID,
		Bet:         100,
		ShoeSeedEnc: "secret",
		SeedHash:    "commitment",
	}, true)

	got, err := svc.ActiveGame(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, got.ShoeSeedEnc, "seed never leaves the server mid-round")
	assert.Equal(t, "commitment", got.SeedHash)

	gameState.EXPECT().Get(gomock.Any(), userID).Return(nil, false)
	_, err = svc.ActiveGame(context.Background(), userID)
	assert.Equal(t, apperror.CodeGameStateNotFound, apperror.CodeOf(err))
}
