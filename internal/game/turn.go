package game

import (
	"sort"

	"github.com/jason-s-yu/daifugo/internal/models"
)

// rankKey sorts unranked players (rank 0) after every ranked one.
func rankKey(p *models.Player) int {
	if p.Rank <= 0 {
		return int(^uint(0) >> 1)
	}
	return p.Rank
}

func sortStable(players []*models.Player, less func(a, b *models.Player) bool) {
	sort.SliceStable(players, func(i, j int) bool { return less(players[i], players[j]) })
}

// sortedPlayers returns the live players ordered by ascending rank, ties in join order.
func sortedPlayers(g *Game) []*models.Player {
	out := append([]*models.Player{}, g.players...)
	sortStable(out, func(a, b *models.Player) bool { return rankKey(a) < rankKey(b) })
	return out
}

// cycleAfter returns every player in rank order starting just after from and
// wrapping around; from itself comes last. An unknown from starts at the top.
func cycleAfter(g *Game, from models.PlayerID) []*models.Player {
	sorted := sortedPlayers(g)
	start := 0
	for i, p := range sorted {
		if p.ID == from {
			start = i + 1
			break
		}
	}
	out := make([]*models.Player, 0, len(sorted))
	for i := 0; i < len(sorted); i++ {
		out = append(out, sorted[(start+i)%len(sorted)])
	}
	return out
}

// GetSortedPlayers returns copies of the players in ascending rank order.
func GetSortedPlayers(g *Game) []models.Player {
	sorted := sortedPlayers(g)
	out := make([]models.Player, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, p.Clone())
	}
	return out
}

// CountActivePlayers counts players who have not finished the match.
func CountActivePlayers(g *Game) int {
	n := 0
	for _, p := range g.players {
		if !g.isFinished(p.ID) {
			n++
		}
	}
	return n
}

// FindFirstActivePlayer returns the best-ranked player still in the match.
func FindFirstActivePlayer(g *Game) (models.PlayerID, bool) {
	for _, p := range sortedPlayers(g) {
		if !g.isFinished(p.ID) {
			return p.ID, true
		}
	}
	return "", false
}

// FindNextPlayer walks the rank order after fromID, wrapping around, and
// returns the first other active player. It returns false when fewer than two
// players are active, which signals the end of the match.
func FindNextPlayer(g *Game, fromID models.PlayerID) (models.PlayerID, bool) {
	if CountActivePlayers(g) <= 1 {
		return "", false
	}
	for _, p := range cycleAfter(g, fromID) {
		if p.ID != fromID && !g.isFinished(p.ID) {
			return p.ID, true
		}
	}
	return "", false
}

// AllPlayersPassedExceptLast reports whether every active player other than
// the author of the last play has passed.
func AllPlayersPassedExceptLast(g *Game) bool {
	var author models.PlayerID
	if g.lastPlay != nil {
		author = g.lastPlay.PlayerID
	}
	for _, p := range g.players {
		if p.ID == author || g.isFinished(p.ID) {
			continue
		}
		if !p.IsPassed {
			return false
		}
	}
	return true
}

// GetLastActivePlayer returns the only player still in the match, if exactly one remains.
func GetLastActivePlayer(g *Game) (models.PlayerID, bool) {
	var last models.PlayerID
	n := 0
	for _, p := range g.players {
		if !g.isFinished(p.ID) {
			last = p.ID
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return last, true
}

// StartNewRound clears the table and hands the lead to the active player after
// the last play's author, or to the best-ranked active player if nobody played.
func StartNewRound(g *Game) {
	var author models.PlayerID
	if g.lastPlay != nil {
		author = g.lastPlay.PlayerID
	}
	g.round++
	g.lastPlay = nil
	for _, p := range g.players {
		if !g.isFinished(p.ID) {
			p.IsPassed = false
		}
	}

	if author != "" {
		if next, ok := FindNextPlayer(g, author); ok {
			g.currentTurn = next
			return
		}
	}
	g.currentTurn, _ = FindFirstActivePlayer(g)
}
