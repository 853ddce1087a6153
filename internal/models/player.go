package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyNickname = errors.New("nickname must not be empty")
	ErrCardNotInHand = errors.New("card not in hand")
)

// Player is a participant in a room. Rank 1 is the top of the standings;
// zero Role or Rank means unset.
type Player struct {
	ID             PlayerID `json:"id"`
	Nickname       string   `json:"nickname"`
	Hand           []Card   `json:"hand"`
	Role           int      `json:"role,omitempty"`
	Rank           int      `json:"rank,omitempty"`
	IsPassed       bool     `json:"isPassed"`
	IsReady        bool     `json:"isReady"`
	HasDoubleJoker bool     `json:"hasDoubleJoker,omitempty"`

	// RevolutionChoice is nil until the double-joker holder decides.
	RevolutionChoice *bool `json:"revolutionChoice,omitempty"`
}

// NewPlayer validates the nickname and returns a player with an empty hand.
func NewPlayer(id PlayerID, nickname string) (*Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrEmptyNickname
	}
	if _, err := ParsePlayerID(string(id)); err != nil {
		return nil, err
	}
	return &Player{ID: id, Nickname: nickname, Hand: []Card{}}, nil
}

// Clone returns a deep copy safe to hand to callers.
func (p *Player) Clone() Player {
	out := *p
	out.Hand = CloneCards(p.Hand)
	if p.RevolutionChoice != nil {
		choice := *p.RevolutionChoice
		out.RevolutionChoice = &choice
	}
	return out
}

// AddCards appends cards to the hand.
func (p *Player) AddCards(cards ...Card) {
	p.Hand = append(p.Hand, cards...)
}

// HasCards reports whether every card (counted with multiplicity) is in the hand.
func (p *Player) HasCards(cards []Card) bool {
	need := make(map[Card]int, len(cards))
	for _, c := range cards {
		need[c]++
	}
	for _, c := range p.Hand {
		if need[c] > 0 {
			need[c]--
		}
	}
	for _, n := range need {
		if n > 0 {
			return false
		}
	}
	return true
}

// RemoveCards takes cards out of the hand, one instance each. The hand is
// left untouched if any card is missing.
func (p *Player) RemoveCards(cards []Card) error {
	if !p.HasCards(cards) {
		return fmt.Errorf("%w: player %s", ErrCardNotInHand, p.ID)
	}
	remove := make(map[Card]int, len(cards))
	for _, c := range cards {
		remove[c]++
	}
	kept := make([]Card, 0, len(p.Hand))
	for _, c := range p.Hand {
		if remove[c] > 0 {
			remove[c]--
			continue
		}
		kept = append(kept, c)
	}
	p.Hand = kept
	return nil
}

// HasFinished reports whether the player has emptied their hand.
func (p *Player) HasFinished() bool {
	return len(p.Hand) == 0
}

// CountJokers counts jokers in hand.
func (p *Player) CountJokers() int {
	n := 0
	for _, c := range p.Hand {
		if c.IsJoker() {
			n++
		}
	}
	return n
}

// ResetForMatch clears per-match state. Rank survives because it carries the
// previous standings into the next match.
func (p *Player) ResetForMatch() {
	p.Hand = []Card{}
	p.Role = 0
	p.IsPassed = false
	p.IsReady = false
	p.HasDoubleJoker = false
	p.RevolutionChoice = nil
}
