package models

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardRejectsOutOfRange(t *testing.T) {
	for _, rank := range []int{-1, 0, 14, 99} {
		_, err := NewCard(rank)
		assert.ErrorIs(t, err, ErrInvalidRank, "rank %d", rank)
	}
	for rank := MinRank; rank <= MaxRank; rank++ {
		c, err := NewCard(rank)
		require.NoError(t, err)
		assert.Equal(t, rank, c.Rank())
		assert.False(t, c.IsJoker())
	}
}

func TestCardStrengthOrdering(t *testing.T) {
	one := MustCard(1)
	thirteen := MustCard(13)
	joker := NewJoker()

	assert.True(t, one.Beats(thirteen), "rank 1 beats rank 13")
	assert.False(t, thirteen.Beats(one))

	for rank := MinRank; rank <= MaxRank; rank++ {
		c := MustCard(rank)
		assert.False(t, c.Beats(MustCard(rank)), "equal ranks never beat each other")
		assert.False(t, joker.Beats(c), "a lone joker is the weakest card (rank %d)", rank)
	}
	for rank := MinRank; rank < MaxRank; rank++ {
		assert.True(t, MustCard(rank).Beats(joker))
	}
	assert.Equal(t, MaxRank, joker.Strength())
}

func TestCardEquality(t *testing.T) {
	assert.True(t, MustCard(5).Equal(MustCard(5)))
	assert.False(t, MustCard(5).Equal(MustCard(6)))
	assert.False(t, MustCard(13).Equal(NewJoker()))
	assert.True(t, NewJoker().Equal(NewJoker()))
}

func TestCardJSON(t *testing.T) {
	data, err := json.Marshal([]Card{MustCard(7), NewJoker()})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"rank":7,"isJoker":false},{"rank":13,"isJoker":true}]`, string(data))

	var back []Card
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Card{MustCard(7), NewJoker()}, back)

	var bad Card
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"rank":0}`), &bad), ErrInvalidRank)
}

func TestParseRoomCode(t *testing.T) {
	code, err := ParseRoomCode(" ab12cd ")
	require.NoError(t, err)
	assert.Equal(t, RoomCode("AB12CD"), code)

	for _, s := range []string{"", "ABC", "ABCDEFG", "AB-2CD", "AB 2CD"} {
		_, err := ParseRoomCode(s)
		assert.ErrorIs(t, err, ErrInvalidRoomCode, "code %q", s)
	}
}

func TestNewRoomCodeIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		code := NewRoomCode(rng)
		_, err := ParseRoomCode(code.String())
		assert.NoError(t, err)
	}
}

func TestParsePlayerID(t *testing.T) {
	_, err := ParsePlayerID("")
	assert.ErrorIs(t, err, ErrInvalidPlayerID)
	_, err = ParsePlayerID("has space")
	assert.ErrorIs(t, err, ErrInvalidPlayerID)
	id, err := ParsePlayerID("6f1c2a9e-guest")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a9e-guest", id.String())
}

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseWaiting, PhaseRoleSelection, true},
		{PhaseRoleSelection, PhaseRoleSelectionComplete, true},
		{PhaseRoleSelectionComplete, PhaseCardSelection, true},
		{PhaseCardSelection, PhasePlaying, true},
		{PhaseCardSelection, PhaseRevolution, true},
		{PhaseRevolution, PhaseTax, true},
		{PhaseTax, PhasePlaying, true},
		{PhasePlaying, PhaseWaiting, true},
		{PhasePlaying, PhaseGameEnd, true},
		{PhaseGameEnd, PhaseWaiting, true},
		{PhaseGameEnd, PhaseRoleSelectionComplete, true},
		{PhasePlaying, PhasePlaying, true},
		{PhaseWaiting, PhasePlaying, false},
		{PhasePlaying, PhaseTax, false},
		{PhaseGameEnd, PhasePlaying, false},
		{Phase("bogus"), PhaseWaiting, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	_, err := ParsePhase("revolution")
	assert.NoError(t, err)
	_, err = ParsePhase("bogus")
	assert.Error(t, err)
}

func TestPlayerHandMutation(t *testing.T) {
	p, err := NewPlayer("p1", "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Nickname)
	assert.True(t, p.HasFinished())

	p.AddCards(MustCard(3), MustCard(3), NewJoker(), MustCard(9))
	assert.Equal(t, 1, p.CountJokers())

	err = p.RemoveCards([]Card{MustCard(3), MustCard(4)})
	assert.ErrorIs(t, err, ErrCardNotInHand)
	assert.Len(t, p.Hand, 4, "failed removal leaves the hand untouched")

	err = p.RemoveCards([]Card{MustCard(3), MustCard(3), MustCard(3)})
	assert.ErrorIs(t, err, ErrCardNotInHand, "multiplicity is respected")

	require.NoError(t, p.RemoveCards([]Card{MustCard(3), NewJoker()}))
	assert.Equal(t, []Card{MustCard(3), MustCard(9)}, p.Hand)
	assert.False(t, p.HasFinished())
}

func TestPlayerCloneIsDeep(t *testing.T) {
	choice := true
	p := &Player{ID: "p1", Nickname: "A", Hand: []Card{MustCard(1)}, RevolutionChoice: &choice}
	c := p.Clone()
	c.Hand[0] = MustCard(2)
	*c.RevolutionChoice = false
	assert.Equal(t, MustCard(1), p.Hand[0])
	assert.True(t, *p.RevolutionChoice)
}

func TestNewPlayerRejectsEmptyNickname(t *testing.T) {
	_, err := NewPlayer("p1", "   ")
	assert.ErrorIs(t, err, ErrEmptyNickname)
}
