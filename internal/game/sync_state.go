// internal/game/sync_state.go
package game

import (
	"github.com/jason-s-yu/daifugo/internal/models"
)

// PlayerView is one player as seen by another. Hands are only revealed to their owner.
type PlayerView struct {
	ID             models.PlayerID `json:"id"`
	Nickname       string          `json:"nickname"`
	HandSize       int             `json:"handSize"`
	Hand           []models.Card   `json:"hand,omitempty"`
	Role           int             `json:"role,omitempty"`
	Rank           int             `json:"rank,omitempty"`
	IsPassed       bool            `json:"isPassed"`
	IsReady        bool            `json:"isReady"`
	IsOwner        bool            `json:"isOwner"`
	IsCurrentTurn  bool            `json:"isCurrentTurn"`
	IsFinished     bool            `json:"isFinished"`
	HasDoubleJoker bool            `json:"hasDoubleJoker,omitempty"`
}

// PoolView describes a draft pool without revealing its cards.
type PoolView struct {
	Index     int             `json:"index"`
	Size      int             `json:"size"`
	Claimed   bool            `json:"claimed"`
	ClaimedBy models.PlayerID `json:"claimedBy,omitempty"`
}

// View is the room state sent to a single player after every change.
type View struct {
	RoomCode      models.RoomCode    `json:"roomCode"`
	Private       bool               `json:"private"`
	Phase         models.Phase       `json:"phase"`
	Round         int                `json:"round"`
	GameCount     int                `json:"gameCount"`
	CurrentTurn   models.PlayerID    `json:"currentTurn,omitempty"`
	LastPlay      *LastPlay          `json:"lastPlay,omitempty"`
	Players       []PlayerView       `json:"players"`
	FinishedOrder []models.PlayerID  `json:"finishedPlayers"`
	Pools         []PoolView         `json:"selectableDecks,omitempty"`
	RolePool      []int              `json:"availableRoles,omitempty"`
	Revolution    *RevolutionOutcome `json:"revolutionResult,omitempty"`
	TaxExchanges  []TaxExchange      `json:"taxExchanges,omitempty"`
	Votes         VoteResult         `json:"votes"`
	History       []MatchRecord      `json:"gameHistory,omitempty"`
}

// ViewFor builds the state forUser is allowed to see.
func (g *Game) ViewFor(forUser models.PlayerID) View {
	v := View{
		RoomCode:      g.code,
		Private:       g.Private(),
		Phase:         g.phase,
		Round:         g.round,
		GameCount:     g.matchCount,
		CurrentTurn:   g.currentTurn,
		LastPlay:      g.lastPlay.clone(),
		FinishedOrder: g.FinishedOrder(),
		Votes:         g.GetVoteResult(),
		History:       g.History(),
	}

	for _, p := range g.players {
		pv := PlayerView{
			ID:             p.ID,
			Nickname:       p.Nickname,
			HandSize:       len(p.Hand),
			Role:           p.Role,
			Rank:           p.Rank,
			IsPassed:       p.IsPassed,
			IsReady:        p.IsReady,
			IsOwner:        p.ID == g.ownerID,
			IsCurrentTurn:  p.ID == g.currentTurn,
			IsFinished:     g.isFinished(p.ID),
			HasDoubleJoker: p.HasDoubleJoker,
		}
		if p.ID == forUser {
			pv.Hand = models.CloneCards(p.Hand)
		}
		v.Players = append(v.Players, pv)
	}

	for i, pool := range g.pools {
		v.Pools = append(v.Pools, PoolView{Index: i, Size: len(pool.Cards), Claimed: pool.Claimed, ClaimedBy: pool.ClaimedBy})
	}
	for _, rc := range g.rolePool {
		if !rc.Claimed {
			v.RolePool = append(v.RolePool, rc.Number)
		}
	}
	if rev, ok := g.Revolution(); ok {
		v.Revolution = &rev
	}
	// Exchanged cards are private to the two parties.
	for _, ex := range g.taxExchanges {
		shown := TaxExchange{From: ex.From, To: ex.To, Count: ex.Count}
		if ex.From == forUser || ex.To == forUser {
			shown.Cards = models.CloneCards(ex.Cards)
		}
		v.TaxExchanges = append(v.TaxExchanges, shown)
	}
	return v
}
