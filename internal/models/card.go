// internal/models/card.go
package models

import (
	"errors"
	"fmt"
)

const (
	// MinRank is the strongest numbered rank.
	MinRank = 1
	// MaxRank is the weakest numbered rank. A lone joker also plays at this rank.
	MaxRank = 13
)

// ErrInvalidRank is returned by NewCard for ranks outside MinRank..MaxRank.
var ErrInvalidRank = errors.New("invalid card rank")

// Card is an immutable playing card. Lower ranks are stronger.
type Card struct {
	rank  int
	joker bool
}

// NewCard builds a numbered card, failing for ranks outside 1..13.
func NewCard(rank int) (Card, error) {
	if rank < MinRank || rank > MaxRank {
		return Card{}, fmt.Errorf("%w: %d", ErrInvalidRank, rank)
	}
	return Card{rank: rank}, nil
}

// MustCard is NewCard for compile-time constant ranks; it panics on an invalid rank.
func MustCard(rank int) Card {
	c, err := NewCard(rank)
	if err != nil {
		panic(err)
	}
	return c
}

// NewJoker builds a joker. Jokers carry the weakest rank.
func NewJoker() Card {
	return Card{rank: MaxRank, joker: true}
}

// Rank returns the card's rank, 1..13.
func (c Card) Rank() int { return c.rank }

// IsJoker reports whether the card is a joker.
func (c Card) IsJoker() bool { return c.joker }

// Strength returns the value used for comparisons; lower is stronger.
// A joker played on its own counts as rank 13.
func (c Card) Strength() int {
	if c.joker {
		return MaxRank
	}
	return c.rank
}

// Beats reports whether c is strictly stronger than other.
func (c Card) Beats(other Card) bool {
	return c.Strength() < other.Strength()
}

// Equal reports whether both cards have the same rank and joker flag.
func (c Card) Equal(other Card) bool {
	return c.rank == other.rank && c.joker == other.joker
}

func (c Card) String() string {
	if c.joker {
		return "JK"
	}
	return fmt.Sprintf("%d", c.rank)
}

// cardJSON is the persisted shape of a Card.
type cardJSON struct {
	Rank  int  `json:"rank"`
	Joker bool `json:"isJoker"`
}

// MarshalJSON implements json.Marshaler.
func (c Card) MarshalJSON() ([]byte, error) {
	return jsonMarshal(cardJSON{Rank: c.rank, Joker: c.joker})
}

// UnmarshalJSON implements json.Unmarshaler and re-validates the rank.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := jsonUnmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Joker {
		*c = NewJoker()
		return nil
	}
	card, err := NewCard(raw.Rank)
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// CloneCards returns an owned copy of cards.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
