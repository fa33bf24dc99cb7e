package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeBet      TransactionType = "BET"
	TransactionTypeWin      TransactionType = "WIN"
	TransactionTypeRefund   TransactionType = "REFUND"
)

// IsValid returns true for the five known types.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeBet,
		TransactionTypeWin, TransactionTypeRefund:
		return true
	}
	return false
}

// IsDebit returns true if the type subtracts from the balance.
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeBet || t == TransactionTypeWithdraw
}

// GenesisHash is the previous-hash value of the first entry in every chain.
const GenesisHash = "GENESIS"

// hashTimeLayout is fixed at millisecond precision so the hash survives a
// round trip through a timestamptz column.
const hashTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// LedgerEntry is an immutable, hash-chained record of one balance change.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	Seq           int64           `json:"seq"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          TransactionType `json:"type"`
	Amount        int64           `json:"amount"` // signed, minor units
	BalanceAfter  int64           `json:"balance_after"`
	Game          GameType        `json:"game"`
	ReferenceID   *string         `json:"reference_id,omitempty"`
	IntegrityHash string          `json:"integrity_hash"`
	PrevHash      string          `json:"prev_hash"`
	CreatedAt     time.Time       `json:"created_at"`
}

// hashPayload fixes the field order of the hashed JSON document.
type hashPayload struct {
	UserID       string          `json:"userId"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balanceAfter"`
	Game         GameType        `json:"game"`
	ReferenceID  *string         `json:"referenceId"`
	Timestamp    string          `json:"timestamp"`
	PrevHash     string          `json:"prevHash"`
}

// ComputeHash returns the hex sha256 of the entry's canonical form chained to prevHash.
func (e *LedgerEntry) ComputeHash(prevHash string) string {
	payload, _ := json.Marshal(hashPayload{
		UserID:       e.UserID.String(),
		Type:         e.Type,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Game:         e.Game,
		ReferenceID:  e.ReferenceID,
		Timestamp:    e.CreatedAt.UTC().Format(hashTimeLayout),
		PrevHash:     prevHash,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Seal links the entry to prevHash and stamps its integrity hash.
// CreatedAt is truncated to the precision the hash encodes.
func (e *LedgerEntry) Seal(prevHash string) {
	if prevHash == "" {
		prevHash = GenesisHash
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)
	e.PrevHash = prevHash
	e.IntegrityHash = e.ComputeHash(prevHash)
}

// BrokenEntries replays entries oldest first, recomputing every hash from
// the recomputed hash of its predecessor, and returns the indices whose stored
// hash does not match. Tampering with entry k breaks k and everything after it.
func BrokenEntries(entries []LedgerEntry) []int {
	var broken []int
	prev := GenesisHash
	for i := range entries {
		sum := entries[i].ComputeHash(prev)
		if entries[i].PrevHash != prev || sum != entries[i].IntegrityHash {
			broken = append(broken, i)
		}
		prev = sum
	}
	return broken
}

// VerifyChain returns the index of the first broken entry, or -1 if the chain is intact.
func VerifyChain(entries []LedgerEntry) int {
	if broken := BrokenEntries(entries); len(broken) > 0 {
		return broken[0]
	}
	return -1
}
