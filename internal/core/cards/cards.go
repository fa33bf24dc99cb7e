// Package cards provides playing cards, provably fair seeds and a
// deterministic multi-deck shoe.
package cards

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// DecksPerShoe is the standard Punto Banco shoe size.
const DecksPerShoe = 8

// SeedBytes is the entropy drawn for each shoe seed.
const SeedBytes = 32

// ErrShoeEmpty is returned when Draw is called on an exhausted shoe.
var ErrShoeEmpty = errors.New("shoe is empty")

type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

var suitLetters = [...]string{"C", "D", "H", "S"}

// Rank runs from Ace (1) to King (13).
type Rank uint8

const (
	Ace   Rank = 1
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

type Card struct {
	Rank Rank
	Suit Suit
}

// String renders the card as rank then suit, e.g. "AS", "10H", "KD".
func (c Card) String() string {
	var r string
	switch c.Rank {
	case Ace:
		r = "A"
	case Jack:
		r = "J"
	case Queen:
		r = "Q"
	case King:
		r = "K"
	default:
		r = strconv.Itoa(int(c.Rank))
	}
	return r + suitLetters[c.Suit%4]
}

// MarshalJSON encodes the card in its short string form.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the short string form written by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("card: %w", err)
	}
	parsed, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard is the inverse of Card.String.
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("card %q: too short", s)
	}
	rankPart, suitPart := s[:len(s)-1], s[len(s)-1:]

	suit := -1
	for i, l := range suitLetters {
		if l == suitPart {
			suit = i
		}
	}
	if suit < 0 {
		return Card{}, fmt.Errorf("card %q: unknown suit", s)
	}

	var rank Rank
	switch rankPart {
	case "A":
		rank = Ace
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	default:
		n, err := strconv.Atoi(rankPart)
		if err != nil || n < 2 || n > 10 {
			return Card{}, fmt.Errorf("card %q: unknown rank", s)
		}
		rank = Rank(n)
	}
	return Card{Rank: rank, Suit: Suit(suit)}, nil
}

// BaccaratValue is the card's point value: tens and faces count zero, ace one.
func (c Card) BaccaratValue() int {
	if c.Rank >= Ten {
		return 0
	}
	return int(c.Rank)
}

// NewDeck returns decks ordered 52-card decks.
func NewDeck(decks int) []Card {
	out := make([]Card, 0, decks*52)
	for d := 0; d < decks; d++ {
		for s := Clubs; s <= Spades; s++ {
			for r := Ace; r <= King; r++ {
				out = append(out, Card{Rank: r, Suit: s})
			}
		}
	}
	return out
}

// GenerateSeed returns a hex-encoded random server seed.
func GenerateSeed() (string, error) {
	b := make([]byte, SeedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SeedCommitment is the public sha256 of a seed, published before the round
// so the shuffle can be verified once the seed is revealed.
func SeedCommitment(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// stream is an HMAC-SHA256 counter-mode byte source keyed by the seed.
type stream struct {
	key     []byte
	counter uint64
	buf     []byte
}

func newStream(seed string) *stream {
	return &stream{key: []byte(seed)}
}

func (s *stream) uint64() uint64 {
	if len(s.buf) < 8 {
		h := hmac.New(sha256.New, s.key)
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], s.counter)
		s.counter++
		h.Write(ctr[:])
		s.buf = h.Sum(nil)
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}

// intn returns a uniform value in [0, n) by rejection sampling.
func (s *stream) intn(n uint64) uint64 {
	threshold := -n % n
	for {
		if v := s.uint64(); v >= threshold {
			return v % n
		}
	}
}

// Shuffle permutes cards in place with Fisher-Yates driven by seed.
// The same seed always yields the same order.
func Shuffle(cards []Card, seed string) {
	st := newStream(seed)
	for i := len(cards) - 1; i > 0; i-- {
		j := st.intn(uint64(i + 1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// Shoe is a depleting source of cards. It is not safe for concurrent use;
// each round owns its own shoe.
type Shoe struct {
	cards []Card
	pos   int
}

// NewShoe builds and shuffles a shoe of the given number of decks.
func NewShoe(seed string, decks int) *Shoe {
	c := NewDeck(decks)
	Shuffle(c, seed)
	return &Shoe{cards: c}
}

// NewStackedShoe returns a shoe that deals cards in the given order.
func NewStackedShoe(cards ...Card) *Shoe {
	return &Shoe{cards: cards}
}

// Draw deals the next card.
func (s *Shoe) Draw() (Card, error) {
	if s.pos >= len(s.cards) {
		return Card{}, ErrShoeEmpty
	}
	c := s.cards[s.pos]
	s.pos++
	return c, nil
}

// Remaining returns the number of undealt cards.
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.pos
}
