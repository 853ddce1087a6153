package game

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/daifugo/internal/deck"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// Snapshot is the plain-data projection of a Game used for persistence.
type Snapshot struct {
	RoomCode        models.RoomCode                 `json:"roomCode"`
	OwnerID         models.PlayerID                 `json:"ownerId"`
	Players         []models.Player                 `json:"players"`
	Phase           models.Phase                    `json:"phase"`
	CurrentTurn     *models.PlayerID                `json:"currentTurn"`
	LastPlay        *LastPlay                       `json:"lastPlay,omitempty"`
	DrawDeck        []models.Card                   `json:"deck"`
	Round           int                             `json:"round"`
	FinishedPlayers []models.PlayerID               `json:"finishedPlayers"`
	SelectableDecks []deck.SelectablePool           `json:"selectableDecks"`
	RoleSelection   []deck.RoleCard                 `json:"roleSelectionCards"`
	Votes           map[models.PlayerID]bool        `json:"votes"`
	Revolution      *RevolutionOutcome              `json:"revolutionResult,omitempty"`
	TaxExchanges    []TaxExchange                   `json:"taxExchanges"`
	GameCount       int                             `json:"gameCount"`
	History         []MatchRecord                   `json:"gameHistory"`
	PlayerStats     map[models.PlayerID]PlayerStats `json:"playerStats"`
	RoundPlays      []RoundPlay                     `json:"roundPlays"`
	Rules           Rules                           `json:"rules"`
	PasswordHash    string                          `json:"passwordHash,omitempty"`
}

// Snapshot captures every field of the game. The result shares nothing with g.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		RoomCode:        g.code,
		OwnerID:         g.ownerID,
		Players:         g.Players(),
		Phase:           g.phase,
		LastPlay:        g.lastPlay.clone(),
		DrawDeck:        g.DrawDeck(),
		Round:           g.round,
		FinishedPlayers: g.FinishedOrder(),
		SelectableDecks: g.SelectablePools(),
		RoleSelection:   g.RolePool(),
		Votes:           g.Votes(),
		TaxExchanges:    g.TaxExchanges(),
		GameCount:       g.matchCount,
		History:         g.History(),
		PlayerStats:     g.Stats(),
		RoundPlays:      g.RoundLog(),
		Rules:           g.rules,
		PasswordHash:    g.passwordHash,
	}
	if g.currentTurn != "" {
		turn := g.currentTurn
		s.CurrentTurn = &turn
	}
	if rev, ok := g.Revolution(); ok {
		s.Revolution = &rev
	}
	return s
}

// Restore rebuilds a Game from a snapshot, checking the references the
// aggregate relies on.
func Restore(s Snapshot, rng *rand.Rand) (*Game, error) {
	if _, err := models.ParseRoomCode(string(s.RoomCode)); err != nil {
		return nil, err
	}
	if !s.Phase.Valid() {
		return nil, fmt.Errorf("restore %s: unknown phase %q", s.RoomCode, s.Phase)
	}

	g := NewGame(s.RoomCode, s.Rules, rng)
	g.ownerID = s.OwnerID
	g.phase = s.Phase
	g.passwordHash = s.PasswordHash

	seen := make(map[models.PlayerID]bool, len(s.Players))
	for _, p := range s.Players {
		if seen[p.ID] {
			return nil, fmt.Errorf("restore %s: %w: %s", s.RoomCode, ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
		clone := p.Clone()
		if clone.Hand == nil {
			clone.Hand = []models.Card{}
		}
		g.players = append(g.players, &clone)
	}

	if s.CurrentTurn != nil {
		if !seen[*s.CurrentTurn] {
			return nil, fmt.Errorf("restore %s: current turn %w: %s", s.RoomCode, ErrPlayerNotFound, *s.CurrentTurn)
		}
		g.currentTurn = *s.CurrentTurn
	}
	for _, id := range s.FinishedPlayers {
		if !seen[id] {
			return nil, fmt.Errorf("restore %s: finished %w: %s", s.RoomCode, ErrPlayerNotFound, id)
		}
		if g.isFinished(id) {
			return nil, fmt.Errorf("restore %s: %s finished twice", s.RoomCode, id)
		}
		g.finishedOrder = append(g.finishedOrder, id)
	}

	g.lastPlay = s.LastPlay.clone()
	if s.DrawDeck != nil {
		g.drawDeck = models.CloneCards(s.DrawDeck)
	}
	if s.Round > 0 {
		g.round = s.Round
	}
	for _, pool := range s.SelectableDecks {
		g.pools = append(g.pools, pool.Clone())
	}
	if s.RoleSelection != nil {
		g.rolePool = append([]deck.RoleCard{}, s.RoleSelection...)
	}
	for id, v := range s.Votes {
		g.votes[id] = v
	}
	if s.Revolution != nil {
		rev := *s.Revolution
		g.revolution = &rev
	}
	g.taxExchanges = cloneExchanges(s.TaxExchanges)
	g.matchCount = s.GameCount
	for _, rec := range s.History {
		g.history = append(g.history, rec.clone())
	}
	for id, st := range s.PlayerStats {
		g.stats[id] = st
	}
	for _, rp := range s.RoundPlays {
		rp.Cards = models.CloneCards(rp.Cards)
		g.roundLog = append(g.roundLog, rp)
	}
	return g, nil
}

// Marshal encodes the game's snapshot as JSON.
func Marshal(g *Game) ([]byte, error) {
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal room %s: %w", g.code, err)
	}
	return data, nil
}

// Unmarshal decodes a JSON snapshot and restores the game.
func Unmarshal(data []byte, rng *rand.Rand) (*Game, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal room snapshot: %w", err)
	}
	return Restore(s, rng)
}
