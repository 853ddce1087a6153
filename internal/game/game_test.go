// internal/game/game_test.go
package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/daifugo/internal/deck"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoom models.RoomCode = "ROOM42"

// cards builds a hand from ranks; 0 stands for a joker.
func cards(ranks ...int) []models.Card {
	out := make([]models.Card, 0, len(ranks))
	for _, r := range ranks {
		if r == 0 {
			out = append(out, models.NewJoker())
			continue
		}
		out = append(out, models.MustCard(r))
	}
	return out
}

func pid(i int) models.PlayerID {
	return models.PlayerID(fmt.Sprintf("p%d", i))
}

// setupLobby seats n players p1..pn in a waiting room.
func setupLobby(t *testing.T, n int) *Game {
	t.Helper()
	g := NewGame(testRoom, DefaultRules(), rand.New(rand.NewSource(7)))
	for i := 1; i <= n; i++ {
		require.NoError(t, g.AddPlayer(pid(i), fmt.Sprintf("Player %d", i)))
	}
	return g
}

// setupPlaying puts one player per hand into the playing phase, ranked in
// order, with p1 to lead.
func setupPlaying(t *testing.T, hands ...[]models.Card) *Game {
	t.Helper()
	g := setupLobby(t, len(hands))
	for i, p := range g.players {
		p.Rank = i + 1
		p.Hand = hands[i]
	}
	g.phase = models.PhasePlaying
	g.currentTurn = pid(1)
	g.matchCount = 1
	return g
}

func allReady(t *testing.T, g *Game) {
	t.Helper()
	for _, p := range g.Players() {
		require.NoError(t, g.SetReady(p.ID, true))
	}
}

func TestAddAndRemovePlayers(t *testing.T) {
	g := setupLobby(t, 3)
	assert.Equal(t, pid(1), g.OwnerID(), "first player to join owns the room")

	err := g.AddPlayer(pid(2), "again")
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
	assert.Equal(t, CategoryStructural, CategoryOf(err))

	assert.ErrorIs(t, g.AddPlayer("p9", "   "), models.ErrEmptyNickname)
	assert.Equal(t, 3, g.PlayerCount())

	assert.ErrorIs(t, g.RemovePlayer("ghost"), ErrPlayerNotFound)

	require.NoError(t, g.RemovePlayer(pid(1)))
	assert.Equal(t, pid(2), g.OwnerID(), "owner passes to the next player in list order")
	assert.Equal(t, 2, g.PlayerCount())

	require.NoError(t, g.RemovePlayer(pid(2)))
	require.NoError(t, g.RemovePlayer(pid(3)))
	assert.Empty(t, g.OwnerID())
	assert.Equal(t, models.PhaseWaiting, g.Phase())
}

func TestRoomCapacity(t *testing.T) {
	g := setupLobby(t, DefaultMaxPlayers)
	err := g.AddPlayer(pid(9), "late")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, DefaultMaxPlayers, g.PlayerCount())
}

func TestStartGame(t *testing.T) {
	g := setupLobby(t, 3)
	allReady(t, g)
	assert.ErrorIs(t, g.StartGame(pid(1)), ErrTooFewPlayers)

	require.NoError(t, g.AddPlayer(pid(4), "Player 4"))
	assert.ErrorIs(t, g.StartGame(pid(1)), ErrPlayersNotReady)

	require.NoError(t, g.SetReady(pid(4), true))
	assert.ErrorIs(t, g.StartGame(pid(2)), ErrNotOwner)
	assert.ErrorIs(t, g.StartGame("ghost"), ErrPlayerNotFound)

	require.NoError(t, g.StartGame(pid(1)))
	assert.Equal(t, models.PhaseRoleSelection, g.Phase())
	assert.Equal(t, 1, g.MatchCount())
	assert.Len(t, g.RolePool(), 13)

	err := g.AddPlayer(pid(5), "late")
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.Equal(t, CategoryState, CategoryOf(err))
}

func TestSelectRoleFailuresLeaveStateUnchanged(t *testing.T) {
	g := setupLobby(t, 4)
	_, err := g.SelectRole(pid(1), 3)
	assert.ErrorIs(t, err, ErrWrongPhase)

	allReady(t, g)
	require.NoError(t, g.StartGame(pid(1)))

	done, err := g.SelectRole(pid(1), 3)
	require.NoError(t, err)
	assert.False(t, done)

	before := g.Snapshot()
	cases := []struct {
		name   string
		player models.PlayerID
		role   int
		want   error
	}{
		{"unknown player", "ghost", 5, ErrPlayerNotFound},
		{"role too low", pid(2), 0, ErrInvalidRole},
		{"role too high", pid(2), 14, ErrInvalidRole},
		{"already holds a role", pid(1), 5, ErrRoleAlreadyChosen},
		{"claimed by another", pid(2), 3, ErrRoleClaimed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.SelectRole(tc.player, tc.role)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, g.Snapshot())
		})
	}

	assert.ErrorIs(t, g.CompleteRoleSelection(), ErrRolesIncomplete)

	for i, role := range []int{11, 1, 7} {
		done, err = g.SelectRole(pid(i+2), role)
		require.NoError(t, err)
	}
	assert.True(t, done, "last role claimed completes the draft")

	require.NoError(t, g.CompleteRoleSelection())
	assert.Equal(t, models.PhaseRoleSelectionComplete, g.Phase())
	ranks := map[models.PlayerID]int{}
	for _, p := range g.Players() {
		ranks[p.ID] = p.Rank
	}
	assert.Equal(t, map[models.PlayerID]int{pid(3): 1, pid(1): 2, pid(4): 3, pid(2): 4}, ranks)
}

// advanceToCardSelection runs the lobby and role draft; player i takes role i.
func advanceToCardSelection(t *testing.T, n int) *Game {
	t.Helper()
	g := setupLobby(t, n)
	allReady(t, g)
	require.NoError(t, g.StartGame(pid(1)))
	for i := 1; i <= n; i++ {
		_, err := g.SelectRole(pid(i), i)
		require.NoError(t, err)
	}
	require.NoError(t, g.CompleteRoleSelection())
	require.NoError(t, g.BeginCardSelection())
	return g
}

func totalCards(g *Game) int {
	total := len(g.DrawDeck())
	for _, p := range g.Players() {
		total += len(p.Hand)
	}
	for _, pool := range g.SelectablePools() {
		if !pool.Claimed {
			total += len(pool.Cards)
		}
	}
	return total
}

func TestCardDraft(t *testing.T) {
	for n := 4; n <= 8; n++ {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			g := advanceToCardSelection(t, n)
			assert.Equal(t, models.PhaseCardSelection, g.Phase())
			assert.Len(t, g.SelectablePools(), n)
			assert.Equal(t, deck.StandardSize, totalCards(g))

			turn, ok := g.CurrentTurn()
			require.True(t, ok)
			assert.Equal(t, pid(1), turn, "top-ranked player drafts first")

			_, err := g.SelectDeck(pid(2), 0)
			assert.ErrorIs(t, err, ErrNotYourTurn)
			_, err = g.SelectDeck(pid(1), n)
			assert.ErrorIs(t, err, ErrInvalidDeckIndex)
			assert.Equal(t, CategoryInput, CategoryOf(err))

			pool, err := g.SelectDeck(pid(1), 0)
			require.NoError(t, err)
			assert.True(t, pool.Claimed)
			assert.Equal(t, pid(1), pool.ClaimedBy)
			p1, _ := g.Player(pid(1))
			assert.Len(t, p1.Hand, len(pool.Cards))

			_, err = g.SelectDeck(pid(2), 0)
			assert.ErrorIs(t, err, ErrDeckClaimed)

			for i := 2; i <= n; i++ {
				turn, _ = g.CurrentTurn()
				require.Equal(t, pid(i), turn)
				_, err = g.SelectDeck(pid(i), i-1)
				require.NoError(t, err)
			}
			assert.Equal(t, deck.StandardSize, totalCards(g))

			var holder models.PlayerID
			for _, p := range g.Players() {
				if deck.HasDoubleJoker(p.Hand) {
					holder = p.ID
				}
			}
			turn, _ = g.CurrentTurn()
			if holder != "" {
				assert.Equal(t, models.PhaseRevolution, g.Phase())
				assert.Equal(t, holder, turn)
			} else {
				assert.Equal(t, models.PhasePlaying, g.Phase())
				assert.Equal(t, pid(1), turn)
			}
		})
	}
}

func TestCheckDoubleJoker(t *testing.T) {
	g := setupPlaying(t, cards(1, 0), cards(2, 0, 0), cards(3), cards(4))
	holder, ok := g.CheckDoubleJoker()
	require.True(t, ok)
	assert.Equal(t, pid(2), holder.ID)
	assert.True(t, holder.HasDoubleJoker)

	g = setupPlaying(t, cards(1, 0), cards(2, 0), cards(3), cards(4))
	_, ok = g.CheckDoubleJoker()
	assert.False(t, ok)
}

// setupRevolution puts rank holderRank of four in the revolution phase holding both jokers.
func setupRevolution(t *testing.T, holderRank int) *Game {
	t.Helper()
	g := setupPlaying(t, cards(1, 2, 3), cards(4, 5, 6), cards(7, 8, 9), cards(10, 11, 12))
	holder := g.players[holderRank-1]
	holder.AddCards(cards(0, 0)...)
	holder.HasDoubleJoker = true
	g.phase = models.PhaseRevolution
	g.currentTurn = holder.ID
	g.round = 3
	return g
}

func ranksOf(g *Game) []int {
	var out []int
	for _, p := range g.Players() {
		out = append(out, p.Rank)
	}
	return out
}

func TestRevolutionChoice(t *testing.T) {
	t.Run("last place revolts", func(t *testing.T) {
		g := setupRevolution(t, 4)
		out, err := g.ProcessRevolutionChoice(pid(4), true)
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.True(t, out.Great)
		assert.Equal(t, []int{4, 3, 2, 1}, ranksOf(g))
		assert.Equal(t, models.PhasePlaying, g.Phase())
		assert.Equal(t, 1, g.Round())
		turn, _ := g.CurrentTurn()
		assert.Equal(t, pid(4), turn, "new top rank leads")
		_, hasLast := g.LastPlay()
		assert.False(t, hasLast)
	})

	t.Run("second place revolts", func(t *testing.T) {
		g := setupRevolution(t, 2)
		out, err := g.ProcessRevolutionChoice(pid(2), true)
		require.NoError(t, err)
		assert.False(t, out.Great)
		assert.Equal(t, []int{1, 2, 3, 4}, ranksOf(g))
		assert.Equal(t, models.PhasePlaying, g.Phase())
		assert.Equal(t, 1, g.Round())
	})

	t.Run("declined", func(t *testing.T) {
		g := setupRevolution(t, 3)
		out, err := g.ProcessRevolutionChoice(pid(3), false)
		require.NoError(t, err)
		assert.False(t, out.Accepted)
		assert.Equal(t, models.PhaseTax, g.Phase())
		p3, _ := g.Player(pid(3))
		assert.False(t, p3.HasDoubleJoker)
		require.NotNil(t, p3.RevolutionChoice)
		assert.False(t, *p3.RevolutionChoice)
	})

	t.Run("preconditions", func(t *testing.T) {
		g := setupRevolution(t, 3)
		_, err := g.ProcessRevolutionChoice(pid(1), true)
		assert.ErrorIs(t, err, ErrNotYourTurn)

		g.players[2].HasDoubleJoker = false
		_, err = g.ProcessRevolutionChoice(pid(3), true)
		assert.ErrorIs(t, err, ErrNoDoubleJoker)
		assert.Equal(t, CategoryRule, CategoryOf(err))

		g.phase = models.PhasePlaying
		_, err = g.ProcessRevolutionChoice(pid(3), true)
		assert.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestCollectTaxAfterDecline(t *testing.T) {
	g := setupRevolution(t, 3)
	_, err := g.ProcessRevolutionChoice(pid(3), false)
	require.NoError(t, err)

	exchanges, err := g.CollectTax()
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, 4, g.Round(), "tax phase opens a new round")
	turn, _ := g.CurrentTurn()
	assert.Equal(t, pid(1), turn)
	assert.Equal(t, exchanges, g.TaxExchanges())

	require.NoError(t, g.FinishTaxPhase())
	assert.Equal(t, models.PhasePlaying, g.Phase())
	assert.ErrorIs(t, g.FinishTaxPhase(), ErrWrongPhase)
}

func TestCanPlayCard(t *testing.T) {
	g := setupPlaying(t, cards(5, 5, 9, 0), cards(3, 10), cards(7, 8), cards(12, 13))

	assert.True(t, g.CanPlayCard(pid(1), cards(5)))
	assert.True(t, g.CanPlayCard(pid(1), cards(5, 0)), "jokers ride along with any rank")
	assert.False(t, g.CanPlayCard(pid(1), nil))
	assert.False(t, g.CanPlayCard(pid(1), cards(5, 9)))
	assert.False(t, g.CanPlayCard(pid(2), cards(3)))

	require.NoError(t, g.PlayCards(pid(1), cards(5, 5)))
	assert.False(t, g.CanPlayCard(pid(2), cards(3)), "count must match")

	before := g.Snapshot()
	g.CanPlayCard(pid(2), cards(3))
	assert.Equal(t, before, g.Snapshot())

	g.lastPlay = &LastPlay{PlayerID: pid(1), Cards: cards(5)}
	assert.True(t, g.CanPlayCard(pid(2), cards(3)))
	assert.False(t, g.CanPlayCard(pid(2), cards(10)))
	assert.False(t, g.CanPlayCard(pid(2), cards(5)), "equal rank is not stronger")
}

func TestPlayAndPassThroughMatch(t *testing.T) {
	g := setupPlaying(t, cards(5, 9), cards(3, 10), cards(7, 8), cards(12, 13))

	assert.ErrorIs(t, g.Pass(pid(1)), ErrCannotPassOnLead)
	assert.ErrorIs(t, g.PlayCards(pid(1), cards(4)), ErrCardsNotInHand)

	require.NoError(t, g.PlayCards(pid(1), cards(5)))
	err := g.PlayCards(pid(2), cards(10))
	assert.ErrorIs(t, err, ErrNotStronger)
	assert.Equal(t, CategoryRule, CategoryOf(err))

	require.NoError(t, g.PlayCards(pid(2), cards(3)))
	require.NoError(t, g.Pass(pid(3)))
	require.NoError(t, g.Pass(pid(4)))
	assert.ErrorIs(t, g.Pass(pid(4)), ErrNotYourTurn)
	require.NoError(t, g.Pass(pid(1)))

	assert.Equal(t, 2, g.Round())
	turn, _ := g.CurrentTurn()
	assert.Equal(t, pid(3), turn, "lead goes to the player after the round's winner")
	for _, p := range g.Players() {
		assert.False(t, p.IsPassed)
	}

	require.NoError(t, g.PlayCards(pid(3), cards(8)))
	require.NoError(t, g.Pass(pid(4)))
	require.NoError(t, g.Pass(pid(1)))
	require.NoError(t, g.Pass(pid(2)))
	assert.Equal(t, 3, g.Round())

	require.NoError(t, g.PlayCards(pid(4), cards(12)))
	require.NoError(t, g.PlayCards(pid(1), cards(9)))
	assert.Equal(t, []models.PlayerID{pid(1)}, g.FinishedOrder())
	assert.False(t, g.CanPlayCard(pid(1), cards(9)))

	require.NoError(t, g.Pass(pid(2)))
	require.NoError(t, g.PlayCards(pid(3), cards(7)))
	require.NoError(t, g.Pass(pid(4)))
	assert.Equal(t, 4, g.Round())

	require.NoError(t, g.PlayCards(pid(4), cards(13)))
	assert.Equal(t, models.PhaseGameEnd, g.Phase())
	assert.Equal(t, []models.PlayerID{pid(1), pid(3), pid(4), pid(2)}, g.FinishedOrder())
	_, hasTurn := g.CurrentTurn()
	assert.False(t, hasTurn)

	stats := g.Stats()
	assert.Equal(t, PlayerStats{Plays: 2, CardsPlayed: 2, Passes: 2}, stats[pid(1)])
	assert.Equal(t, PlayerStats{Plays: 1, CardsPlayed: 1, Passes: 2}, stats[pid(2)])
	assert.Len(t, g.RoundLog(), 15)

	for i := 1; i <= 4; i++ {
		require.NoError(t, g.RegisterVote(pid(i), true))
	}
	require.True(t, g.GetVoteResult().Approved)

	require.NoError(t, g.StartNextGame())
	assert.Equal(t, models.PhaseRoleSelectionComplete, g.Phase())
	assert.Equal(t, 2, g.MatchCount())
	assert.Equal(t, 1, g.Round())
	assert.Empty(t, g.FinishedOrder())
	assert.Empty(t, g.Votes())
	assert.Empty(t, g.Stats())
	assert.Empty(t, g.RoundLog())

	ranks := map[models.PlayerID]int{}
	for _, p := range g.Players() {
		ranks[p.ID] = p.Rank
		assert.Empty(t, p.Hand)
		assert.False(t, p.IsReady)
	}
	assert.Equal(t, map[models.PlayerID]int{pid(1): 1, pid(3): 2, pid(4): 3, pid(2): 4}, ranks)

	history := g.History()
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Match)
	assert.Equal(t, pid(2), history[0].Ranking[3].PlayerID)
	assert.Equal(t, 2, history[0].Stats[pid(1)].Plays)
}

func TestVoteGating(t *testing.T) {
	for _, last := range []bool{true, false} {
		t.Run(fmt.Sprintf("last vote %v", last), func(t *testing.T) {
			g := setupLobby(t, 3)
			assert.ErrorIs(t, g.RegisterVote(pid(1), true), ErrWrongPhase)
			g.EndGame()

			require.NoError(t, g.RegisterVote(pid(1), true))
			require.NoError(t, g.RegisterVote(pid(2), true))
			res := g.GetVoteResult()
			assert.False(t, res.AllVoted)
			assert.False(t, res.Approved)

			require.NoError(t, g.RegisterVote(pid(3), last))
			res = g.GetVoteResult()
			assert.True(t, res.AllVoted)
			assert.Equal(t, last, res.Approved)
		})
	}
}

func TestVoteOverwrite(t *testing.T) {
	g := setupLobby(t, 2)
	g.EndGame()
	require.NoError(t, g.RegisterVote(pid(1), false))
	require.NoError(t, g.RegisterVote(pid(2), true))
	assert.False(t, g.GetVoteResult().Approved)

	require.NoError(t, g.RegisterVote(pid(1), true))
	assert.Equal(t, VoteResult{AllVoted: true, Approved: true, Yes: 2}, g.GetVoteResult())
	assert.ErrorIs(t, g.RegisterVote("ghost", true), ErrPlayerNotFound)
}

func TestResetToLobby(t *testing.T) {
	g := setupPlaying(t, cards(1), cards(2), cards(3), cards(4))
	g.EndGame()
	require.NoError(t, g.ResetToLobby())
	assert.Equal(t, models.PhaseWaiting, g.Phase())
	for _, p := range g.Players() {
		assert.Zero(t, p.Rank)
		assert.Empty(t, p.Hand)
	}
}

func TestRemovePlayerDuringPlay(t *testing.T) {
	g := setupPlaying(t, cards(1, 2), cards(3), cards(4), cards(5), cards(6))
	require.NoError(t, g.RemovePlayer(pid(1)))

	assert.Equal(t, models.PhasePlaying, g.Phase())
	assert.Equal(t, pid(2), g.OwnerID())
	turn, _ := g.CurrentTurn()
	assert.Equal(t, pid(2), turn, "turn moves past the leaver")
	assert.Equal(t, []int{1, 2, 3, 4}, ranksOf(g))
	assert.ElementsMatch(t, cards(1, 2), g.DrawDeck(), "leaver's hand returns to the deck")

	require.NoError(t, g.RemovePlayer(pid(5)))
	assert.Equal(t, models.PhaseWaiting, g.Phase(), "below the minimum the room returns to the lobby")
	assert.Equal(t, []int{0, 0, 0}, ranksOf(g))
}

func TestRemovePlayerDuringDraft(t *testing.T) {
	g := advanceToCardSelection(t, 5)
	for i := 1; i <= 4; i++ {
		_, err := g.SelectDeck(pid(i), i-1)
		require.NoError(t, err)
	}
	require.NoError(t, g.RemovePlayer(pid(5)))
	assert.NotEqual(t, models.PhaseCardSelection, g.Phase(), "draft completes once every remaining player holds a pool")
	assert.Equal(t, deck.StandardSize, totalCards(g))
}

func TestRemovePlayerDuringRoleDraft(t *testing.T) {
	g := setupLobby(t, 5)
	allReady(t, g)
	require.NoError(t, g.StartGame(pid(1)))
	for i := 1; i <= 4; i++ {
		_, err := g.SelectRole(pid(i), i+1)
		require.NoError(t, err)
	}

	require.NoError(t, g.RemovePlayer(pid(5)))
	assert.Equal(t, models.PhaseRoleSelectionComplete, g.Phase(), "the draft closes once every remaining player holds a role")
	assert.Equal(t, []int{1, 2, 3, 4}, ranksOf(g))
	require.NoError(t, g.BeginCardSelection())
	assert.Len(t, g.SelectablePools(), 4)
}

func TestRemovePlayerDuringRoleDraftWithRolesOutstanding(t *testing.T) {
	g := setupLobby(t, 5)
	allReady(t, g)
	require.NoError(t, g.StartGame(pid(1)))
	_, err := g.SelectRole(pid(1), 1)
	require.NoError(t, err)

	require.NoError(t, g.RemovePlayer(pid(5)))
	assert.Equal(t, models.PhaseRoleSelection, g.Phase())
}

func TestStartNextGameNeedsEnoughPlayers(t *testing.T) {
	g := setupPlaying(t, cards(1), cards(2), cards(3), cards(4))
	g.EndGame()
	require.NoError(t, g.RemovePlayer(pid(4)))
	assert.Equal(t, models.PhaseGameEnd, g.Phase())

	for i := 1; i <= 3; i++ {
		require.NoError(t, g.RegisterVote(pid(i), true))
	}
	require.True(t, g.GetVoteResult().Approved)
	assert.ErrorIs(t, g.StartNextGame(), ErrTooFewPlayers)
	assert.Equal(t, models.PhaseGameEnd, g.Phase())
	assert.Empty(t, g.History(), "nothing is archived when the next match cannot start")
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := setupPlaying(t, cards(1, 2), cards(3), cards(4), cards(5))
	players := g.Players()
	players[0].Hand[0] = models.MustCard(13)
	players[0].Rank = 99

	p1, _ := g.Player(pid(1))
	assert.Equal(t, cards(1, 2), p1.Hand)
	assert.Equal(t, 1, p1.Rank)
}

func TestViewForHidesOtherHands(t *testing.T) {
	g := setupPlaying(t, cards(1, 2), cards(3), cards(4), cards(5))
	v := g.ViewFor(pid(2))
	require.Len(t, v.Players, 4)
	for _, pv := range v.Players {
		if pv.ID == pid(2) {
			assert.Equal(t, cards(3), pv.Hand)
		} else {
			assert.Nil(t, pv.Hand)
		}
	}
	assert.Equal(t, 2, v.Players[0].HandSize)
	assert.True(t, v.Players[0].IsOwner)
	assert.True(t, v.Players[0].IsCurrentTurn)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryInput, CategoryOf(fmt.Errorf("wrapped: %w", ErrMixedRanks)))
	assert.Equal(t, CategoryUnknown, CategoryOf(fmt.Errorf("boom")))
}
