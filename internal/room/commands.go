package room

import (
	"context"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
)

func (s *Service) SetReady(ctx context.Context, code models.RoomCode, id models.PlayerID, ready bool) error {
	return s.action(ctx, code, id, "ready", func(g *game.Game) error {
		return g.SetReady(id, ready)
	})
}

// Start opens the role draft. Only the owner may start.
func (s *Service) Start(ctx context.Context, code models.RoomCode, id models.PlayerID) error {
	return s.action(ctx, code, id, "start", func(g *game.Game) error {
		return g.StartGame(id)
	})
}

// SelectRole claims a role card; the last claim closes the draft and shows the standings.
func (s *Service) SelectRole(ctx context.Context, code models.RoomCode, id models.PlayerID, role int) error {
	return s.action(ctx, code, id, "select_role", func(g *game.Game) error {
		done, err := g.SelectRole(id, role)
		if err != nil {
			return err
		}
		if done {
			return g.CompleteRoleSelection()
		}
		return nil
	})
}

func (s *Service) SelectDeck(ctx context.Context, code models.RoomCode, id models.PlayerID, index int) error {
	return s.action(ctx, code, id, "select_deck", func(g *game.Game) error {
		_, err := g.SelectDeck(id, index)
		return err
	})
}

// ChooseRevolution applies the double-joker holder's choice. Declining runs
// the tax exchange at once.
func (s *Service) ChooseRevolution(ctx context.Context, code models.RoomCode, id models.PlayerID, accept bool) error {
	return s.action(ctx, code, id, "revolution", func(g *game.Game) error {
		outcome, err := g.ProcessRevolutionChoice(id, accept)
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			_, err = g.CollectTax()
		}
		return err
	})
}

func (s *Service) Play(ctx context.Context, code models.RoomCode, id models.PlayerID, cards []models.Card) error {
	return s.action(ctx, code, id, "play", func(g *game.Game) error {
		return g.PlayCards(id, cards)
	})
}

func (s *Service) Pass(ctx context.Context, code models.RoomCode, id models.PlayerID) error {
	return s.action(ctx, code, id, "pass", func(g *game.Game) error {
		return g.Pass(id)
	})
}

// Vote records a next-match vote. Once everyone has voted the room starts the
// next match if nobody said no, and returns to the lobby otherwise.
func (s *Service) Vote(ctx context.Context, code models.RoomCode, id models.PlayerID, approve bool) error {
	return s.action(ctx, code, id, "vote", func(g *game.Game) error {
		if err := g.RegisterVote(id, approve); err != nil {
			return err
		}
		return settleVote(g)
	})
}

// settleVote acts once every seated player has voted: an approved vote starts
// the next match, anything else returns the room to the lobby. A room too
// small for another match goes back to the lobby either way.
func settleVote(g *game.Game) error {
	res := g.GetVoteResult()
	switch {
	case !res.AllVoted:
		return nil
	case res.Approved && game.ValidateMinPlayers(g.PlayerCount(), g.Rules().MinPlayers) == nil:
		return g.StartNextGame()
	default:
		return g.ResetToLobby()
	}
}
