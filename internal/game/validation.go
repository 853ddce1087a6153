package game

import (
	"fmt"

	"github.com/jason-s-yu/daifugo/internal/models"
)

// Validation predicates return nil on success, or an error wrapping one of the
// package sentinels. They never mutate the game.

// ValidateGameState checks that the game is in the expected phase.
func ValidateGameState(g *Game, expected models.Phase) error {
	if g.phase != expected {
		return fmt.Errorf("%w: in %s, need %s", ErrWrongPhase, g.phase, expected)
	}
	return nil
}

// ValidatePlayerAction checks the player exists, holds the turn, and is still in the round.
func ValidatePlayerAction(g *Game, id models.PlayerID) error {
	p := g.findPlayer(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if g.currentTurn != id {
		return fmt.Errorf("%w: %s", ErrNotYourTurn, id)
	}
	if p.IsPassed {
		return fmt.Errorf("%w: %s", ErrAlreadyPassed, id)
	}
	if g.isFinished(id) {
		return fmt.Errorf("%w: %s", ErrAlreadyFinished, id)
	}
	return nil
}

// ValidateSameRank checks that every non-joker card shares one rank.
func ValidateSameRank(cards []models.Card) error {
	rank := 0
	for _, c := range cards {
		if c.IsJoker() {
			continue
		}
		if rank == 0 {
			rank = c.Rank()
			continue
		}
		if c.Rank() != rank {
			return fmt.Errorf("%w: %d and %d", ErrMixedRanks, rank, c.Rank())
		}
	}
	return nil
}

// LeadRank is the rank a set of cards plays at: the shared rank of its
// numbered cards, or the joker rank for jokers alone.
func LeadRank(cards []models.Card) int {
	for _, c := range cards {
		if !c.IsJoker() {
			return c.Rank()
		}
	}
	return models.NewJoker().Strength()
}

// ValidateCards checks a proposed play. With a last play on the table the
// count must match and the lead rank must be strictly stronger (lower).
func ValidateCards(cards []models.Card, lastPlay *LastPlay) error {
	if len(cards) == 0 {
		return ErrNoCards
	}
	if err := ValidateSameRank(cards); err != nil {
		return err
	}
	if lastPlay == nil || len(lastPlay.Cards) == 0 {
		return nil
	}
	if len(cards) != len(lastPlay.Cards) {
		return fmt.Errorf("%w: played %d, table has %d", ErrCardCountMismatch, len(cards), len(lastPlay.Cards))
	}
	if LeadRank(cards) >= LeadRank(lastPlay.Cards) {
		return fmt.Errorf("%w: %d does not beat %d", ErrNotStronger, LeadRank(cards), LeadRank(lastPlay.Cards))
	}
	return nil
}

// ValidatePlayerHasCards checks the player's hand holds every card.
func ValidatePlayerHasCards(p *models.Player, cards []models.Card) error {
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.HasCards(cards) {
		return fmt.Errorf("%w: %s", ErrCardsNotInHand, p.ID)
	}
	return nil
}

// ValidateMinPlayers fails when count is below minPlayers.
func ValidateMinPlayers(count, minPlayers int) error {
	if count < minPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrTooFewPlayers, count, minPlayers)
	}
	return nil
}

// ValidateMaxPlayers fails when count has reached maxPlayers. Call it with the
// count before adding a player.
func ValidateMaxPlayers(count, maxPlayers int) error {
	if count >= maxPlayers {
		return fmt.Errorf("%w: %d of %d seats taken", ErrRoomFull, count, maxPlayers)
	}
	return nil
}

// ValidateAllPlayersReady requires at least one player and every player ready.
func ValidateAllPlayersReady(players []*models.Player) error {
	if len(players) == 0 {
		return fmt.Errorf("%w: room is empty", ErrPlayersNotReady)
	}
	for _, p := range players {
		if !p.IsReady {
			return fmt.Errorf("%w: %s", ErrPlayersNotReady, p.ID)
		}
	}
	return nil
}
