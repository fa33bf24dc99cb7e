package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casino-ledger/internal/core/baccarat"
	"casino-ledger/internal/core/cards"
	"casino-ledger/internal/core/domain"
	"casino-ledger/internal/core/ports"
	"casino-ledger/internal/observability"
	"casino-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdjustmentReview tags rounds played at EXTREME risk for manual review.
const AdjustmentReview = "REVIEW"

// baccaratProgress is the game-specific part of a BACCARAT active game.
type baccaratProgress struct {
	Side   baccarat.Side    `json:"side"`
	Risk   domain.RiskLevel `json:"risk"`
	Result *baccarat.Result `json:"result,omitempty"`
}

// BaccaratServiceImpl implements ports.BaccaratService. A round is debited,
// resolved and settled inside a single request while the user's lock is held.
type BaccaratServiceImpl struct {
	locks     ports.LockManager
	accounts  ports.AccountRepository
	ledger    ports.LedgerService
	gameState ports.GameStateManager
	risk      ports.RiskService
	gameLogs  ports.GameLogService
	encSvc    ports.EncryptionService
	maxBet    int64
	metrics   *observability.Metrics
	log       zerolog.Logger
	now       func() time.Time
	newSeed   func() (string, error)
}

// NewBaccaratService creates a new BaccaratServiceImpl.
func NewBaccaratService(
	locks ports.LockManager,
	accounts ports.AccountRepository,
	ledger ports.LedgerService,
	gameState ports.GameStateManager,
	risk ports.RiskService,
	gameLogs ports.GameLogService,
	encSvc ports.EncryptionService,
	maxBet int64,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *BaccaratServiceImpl {
	return &BaccaratServiceImpl{
		locks:     locks,
		accounts:  accounts,
		ledger:    ledger,
		gameState: gameState,
		risk:      risk,
		gameLogs:  gameLogs,
		encSvc:    encSvc,
		maxBet:    maxBet,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
		newSeed:   cards.GenerateSeed,
	}
}

// Play runs one complete round for userID.
func (s *BaccaratServiceImpl) Play(ctx context.Context, userID uuid.UUID, bet baccarat.Bet) (*ports.RoundOutcome, error) {
	if err := bet.Validate(s.maxBet); err != nil {
		if errors.Is(err, baccarat.ErrAboveTableMax) {
			return nil, apperror.ErrBetLimitExceeded()
		}
		return nil, apperror.ErrInvalidBet(err.Error())
	}

	var outcome *ports.RoundOutcome
	err := s.locks.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		outcome, err = s.play(ctx, userID, bet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *BaccaratServiceImpl) play(ctx context.Context, userID uuid.UUID, bet baccarat.Bet) (*ports.RoundOutcome, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("load account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if !account.IsActive() {
		return nil, apperror.ErrAccountInactive()
	}

	if !account.ActiveGame.IsNone() {
		if account, err = s.finishAbandoned(ctx, account); err != nil {
			return nil, err
		}
	}

	stake := bet.Total()
	if account.Balance < stake {
		return nil, apperror.ErrInsufficientFundsOrConflict()
	}

	snapshot := *account
	snapshot.Balance -= stake
	assessment := s.risk.Assess(ctx, &snapshot, stake)

	seed, err := s.newSeed()
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	roundID := uuid.New()
	seedEnc, err := s.encSvc.Encrypt(seed, roundID.String())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt seed: %w", err))
	}
	progress, err := json.Marshal(baccaratProgress{Side: bet.Side, Risk: assessment.Level})
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	startedAt := s.now().UTC()
	state := domain.ActiveGame{
		Type:        domain.GameTypeBaccarat,
		RoundID:     &roundID,
		Bet:         bet.Amount,
		SideBets:    bet.SideBets(),
		Progress:    progress,
		ShoeSeedEnc: seedEnc,
		SeedHash:    cards.SeedCommitment(seed),
		StartedAt:   &startedAt,
	}

	ref := roundID.String()
	placed, err := s.ledger.Apply(ctx, ports.ApplyRequest{
		UserID:       userID,
		Amount:       stake,
		Type:         domain.TransactionTypeBet,
		Game:         domain.GameTypeBaccarat,
		ReferenceID:  &ref,
		NewGameState: &state,
	})
	if err != nil {
		return nil, err
	}
	s.gameState.Save(ctx, userID, state, false)

	return s.settle(ctx, userID, state, bet, seed, assessment, placed.Entry.ID)
}

// settle resolves a debited round from its seed and books the payout.
// state is the round as stored when the stake was debited.
func (s *BaccaratServiceImpl) settle(
	ctx context.Context,
	userID uuid.UUID,
	state domain.ActiveGame,
	bet baccarat.Bet,
	seed string,
	assessment domain.RiskAssessment,
	betEntryID uuid.UUID,
) (*ports.RoundOutcome, error) {
	result, err := baccarat.Resolve(cards.NewShoe(seed, cards.DecksPerShoe))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve round: %w", err))
	}
	settlement := baccarat.Settle(bet, result)

	// End of the round: snapshot the dealt hands before the payout is booked.
	if progress, err := json.Marshal(baccaratProgress{Side: bet.Side, Risk: assessment.Level, Result: &result}); err == nil {
		state.Progress = progress
		s.gameState.Save(ctx, userID, state, true)
	}

	roundID := *state.RoundID
	ref := roundID.String()
	txID := betEntryID
	var balance int64
	var kind string

	switch {
	case settlement.Push || settlement.Payout > 0:
		txType, label := domain.TransactionTypeWin, "win"
		if settlement.Push {
			txType, label = domain.TransactionTypeRefund, "push"
		}
		applied, err := s.ledger.Apply(ctx, ports.ApplyRequest{
			UserID:      userID,
			Amount:      settlement.Payout,
			Type:        txType,
			Game:        domain.GameTypeBaccarat,
			ReferenceID: &ref,
		})
		if err != nil {
			return nil, err
		}
		balance, txID, kind = applied.Account.Balance, applied.Entry.ID, label
	default:
		account, err := s.ledger.RecordLoss(ctx, userID)
		if err != nil {
			return nil, err
		}
		balance, kind = account.Balance, "loss"
	}

	if err := s.gameState.Clear(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("clearing settled round failed")
	}

	s.metrics.RoundsSettled.WithLabelValues(string(domain.GameTypeBaccarat), kind).Inc()
	s.recordRound(ctx, userID, roundID, bet, result, settlement, assessment, txID)

	return &ports.RoundOutcome{
		RoundID:    roundID,
		Bet:        bet,
		Result:     result,
		Settlement: settlement,
		Risk:       assessment,
		Balance:    balance,
		SeedHash:   cards.SeedCommitment(seed),
		Seed:       seed,
	}, nil
}

func (s *BaccaratServiceImpl) recordRound(
	ctx context.Context,
	userID, roundID uuid.UUID,
	bet baccarat.Bet,
	result baccarat.Result,
	settlement baccarat.Settlement,
	assessment domain.RiskAssessment,
	txID uuid.UUID,
) {
	raw, err := json.Marshal(struct {
		Bet    baccarat.Bet    `json:"bet"`
		Result baccarat.Result `json:"result"`
	}{bet, result})
	if err != nil {
		s.log.Error().Err(err).Str("round_id", roundID.String()).Msg("encoding round result")
		return
	}

	entry := &domain.GameLog{
		UserID:    userID,
		Game:      domain.GameTypeBaccarat,
		RoundID:   roundID,
		Bet:       settlement.Stake,
		Payout:    settlement.Payout,
		Profit:    settlement.Net(),
		Result:    raw,
		RiskLevel: assessment.Level,
	}
	if txID != uuid.Nil {
		entry.TransactionID = &txID
	}
	if assessment.Level == domain.RiskLevelExtreme {
		adj := AdjustmentReview
		entry.Adjustment = &adj
	}
	s.gameLogs.Record(ctx, entry)
}

// finishAbandoned settles a round whose debit committed but whose payout
// never did. The stored seed replays the same shoe; without it the stake is refunded.
func (s *BaccaratServiceImpl) finishAbandoned(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	game := account.ActiveGame
	log := s.log.With().Str("user_id", account.ID.String()).Logger()

	if game.Type != domain.GameTypeBaccarat || game.RoundID == nil {
		if err := s.gameState.Clear(ctx, account.ID); err != nil {
			return nil, err
		}
		return s.reload(ctx, account.ID)
	}

	var progress baccaratProgress
	seed, decErr := s.encSvc.Decrypt(game.ShoeSeedEnc, game.RoundID.String())
	jsonErr := json.Unmarshal(game.Progress, &progress)

	if decErr == nil && jsonErr == nil && cards.SeedCommitment(seed) == game.SeedHash {
		bet := baccarat.Bet{
			Side:       progress.Side,
			Amount:     game.Bet,
			PlayerPair: game.SideBets["PLAYER_PAIR"],
			BankerPair: game.SideBets["BANKER_PAIR"],
		}
		log.Warn().Str("round_id", game.RoundID.String()).Msg("settling abandoned round from stored seed")
		assessment := domain.RiskAssessment{Level: progress.Risk, Triggers: []domain.RiskTrigger{}}
		if _, err := s.settle(ctx, account.ID, game, bet, seed, assessment, uuid.Nil); err != nil {
			return nil, err
		}
		return s.reload(ctx, account.ID)
	}

	stake := game.Bet
	for _, v := range game.SideBets {
		stake += v
	}
	log.Warn().Str("round_id", game.RoundID.String()).Msg("abandoned round is unrecoverable, refunding stake")
	if stake <= 0 {
		if err := s.gameState.Clear(ctx, account.ID); err != nil {
			return nil, err
		}
		return s.reload(ctx, account.ID)
	}
	ref := game.RoundID.String()
	applied, err := s.ledger.Apply(ctx, ports.ApplyRequest{
		UserID:      account.ID,
		Amount:      stake,
		Type:        domain.TransactionTypeRefund,
		Game:        domain.GameTypeBaccarat,
		ReferenceID: &ref,
	})
	if err != nil {
		return nil, err
	}
	if err := s.gameState.Clear(ctx, account.ID); err != nil {
		log.Warn().Err(err).Str("round_id", ref).Msg("clearing refunded round failed")
	}
	return applied.Account, nil
}

func (s *BaccaratServiceImpl) reload(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(fmt.Errorf("reload account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return account, nil
}

// ActiveGame returns the player-safe view of the round in progress.
func (s *BaccaratServiceImpl) ActiveGame(ctx context.Context, userID uuid.UUID) (*domain.ActiveGame, error) {
	state, ok := s.gameState.Get(ctx, userID)
	if !ok || state.IsNone() {
		return nil, apperror.ErrGameStateNotFound()
	}
	public := state.Public()
	return &public, nil
}
