// Package deck builds and manipulates the 54-card deck, the per-player draft
// pools carved from it, and the 13-card role pool.
package deck

import (
	"math/rand"
	"sort"

	"github.com/jason-s-yu/daifugo/internal/models"
)

const (
	// StandardSize is 13 ranks times four plus two jokers.
	StandardSize  = 54
	suitsPerRank  = 4
	jokersPerDeck = 2
)

// SelectablePool is one draft pool a player may claim during card selection.
type SelectablePool struct {
	Cards     []models.Card   `json:"cards"`
	Claimed   bool            `json:"claimed"`
	ClaimedBy models.PlayerID `json:"claimedBy,omitempty"`
}

// Clone returns a copy that does not share the card slice.
func (p SelectablePool) Clone() SelectablePool {
	p.Cards = models.CloneCards(p.Cards)
	return p
}

// RoleCard is one numbered card in the role draft.
type RoleCard struct {
	Number    int             `json:"number"`
	Claimed   bool            `json:"claimed"`
	ClaimedBy models.PlayerID `json:"claimedBy,omitempty"`
}

// InitializeDeck returns a fresh, ordered 54-card deck.
func InitializeDeck() []models.Card {
	d := make([]models.Card, 0, StandardSize)
	for rank := models.MinRank; rank <= models.MaxRank; rank++ {
		for i := 0; i < suitsPerRank; i++ {
			d = append(d, models.MustCard(rank))
		}
	}
	for i := 0; i < jokersPerDeck; i++ {
		d = append(d, models.NewJoker())
	}
	return d
}

// ShuffleDeck permutes d in place.
func ShuffleDeck(d []models.Card, rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// CreateSelectableDecks splits d into playerCount contiguous pools whose sizes
// differ by at most one; the first len(d)%playerCount pools take the extra card.
func CreateSelectableDecks(d []models.Card, playerCount int) []SelectablePool {
	if playerCount <= 0 {
		return nil
	}
	base := len(d) / playerCount
	extra := len(d) % playerCount

	pools := make([]SelectablePool, 0, playerCount)
	start := 0
	for i := 0; i < playerCount; i++ {
		size := base
		if i < extra {
			size++
		}
		pools = append(pools, SelectablePool{Cards: models.CloneCards(d[start : start+size])})
		start += size
	}
	return pools
}

// CreateRoleSelectionDeck returns the 13 unclaimed role cards numbered 1..13.
func CreateRoleSelectionDeck() []RoleCard {
	roles := make([]RoleCard, 0, models.MaxRank)
	for n := models.MinRank; n <= models.MaxRank; n++ {
		roles = append(roles, RoleCard{Number: n})
	}
	return roles
}

// less orders by rank ascending with jokers after every numbered card.
func less(a, b models.Card) bool {
	if a.IsJoker() != b.IsJoker() {
		return b.IsJoker()
	}
	return a.Rank() < b.Rank()
}

// SortCards returns a sorted copy of cards.
func SortCards(cards []models.Card) []models.Card {
	out := models.CloneCards(cards)
	if out == nil {
		out = []models.Card{}
	}
	SortDeckCards(out)
	return out
}

// SortDeckCards sorts cards in place.
func SortDeckCards(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool { return less(cards[i], cards[j]) })
}

// RemoveCards returns d without toRemove, taking out one instance per listed card.
// Cards that are not present are ignored.
func RemoveCards(d []models.Card, toRemove []models.Card) []models.Card {
	counts := make(map[models.Card]int, len(toRemove))
	for _, c := range toRemove {
		counts[c]++
	}
	out := make([]models.Card, 0, len(d))
	for _, c := range d {
		if counts[c] > 0 {
			counts[c]--
			continue
		}
		out = append(out, c)
	}
	return out
}

// HasDoubleJoker reports whether cards contain exactly two jokers.
func HasDoubleJoker(cards []models.Card) bool {
	n := 0
	for _, c := range cards {
		if c.IsJoker() {
			n++
		}
	}
	return n == jokersPerDeck
}

// CountCards counts cards equal to target.
func CountCards(cards []models.Card, target models.Card) int {
	n := 0
	for _, c := range cards {
		if c.Equal(target) {
			n++
		}
	}
	return n
}

// CountTotalCards sums the cards across pools.
func CountTotalCards(pools []SelectablePool) int {
	n := 0
	for _, p := range pools {
		n += len(p.Cards)
	}
	return n
}
