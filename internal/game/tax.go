package game

import (
	"sort"

	"github.com/jason-s-yu/daifugo/internal/models"
)

const (
	// TaxTopCount is the number of cards swapped between first and last place.
	TaxTopCount = 2
	// TaxSecondCount is the number of cards swapped between second and
	// second-to-last place when at least five players are ranked.
	TaxSecondCount = 1
)

// TaxExchange is one leg of the forced exchange: From gave Cards to To.
type TaxExchange struct {
	From  models.PlayerID `json:"from"`
	To    models.PlayerID `json:"to"`
	Count int             `json:"count"`
	Cards []models.Card   `json:"cards"`
}

func cloneExchanges(in []TaxExchange) []TaxExchange {
	if in == nil {
		return nil
	}
	out := make([]TaxExchange, 0, len(in))
	for _, ex := range in {
		ex.Cards = models.CloneCards(ex.Cards)
		out = append(out, ex)
	}
	return out
}

// SelectTaxCardsAutomatically picks count cards from cards without modifying it.
// Jokers are never taxable. With selectLargest the weakest cards (highest
// ranks) are taken first, otherwise the strongest.
func SelectTaxCardsAutomatically(cards []models.Card, count int, selectLargest bool) []models.Card {
	candidates := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if !c.IsJoker() {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if selectLargest {
			return candidates[i].Rank() > candidates[j].Rank()
		}
		return candidates[i].Rank() < candidates[j].Rank()
	})
	if count < 0 {
		count = 0
	}
	if count > len(candidates) {
		count = len(candidates)
	}
	return models.CloneCards(candidates[:count])
}

type taxPair struct {
	high, low *models.Player
	count     int
}

// taxPairs matches the top of the standings with the bottom: first with last
// for four players, plus second with second-to-last from five players up.
func taxPairs(players []*models.Player) []taxPair {
	ranked := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if p.Rank > 0 {
			ranked = append(ranked, p)
		}
	}
	sortStable(ranked, func(a, b *models.Player) bool { return a.Rank < b.Rank })

	n := len(ranked)
	switch {
	case n <= 3:
		return nil
	case n == 4:
		return []taxPair{{high: ranked[0], low: ranked[3], count: TaxTopCount}}
	default:
		return []taxPair{
			{high: ranked[0], low: ranked[n-1], count: TaxTopCount},
			{high: ranked[1], low: ranked[n-2], count: TaxSecondCount},
		}
	}
}

// InitializeTaxExchanges moves cards between the paired players and returns
// the ledger. The lower-ranked side hands over its strongest cards and the
// higher-ranked side returns its weakest. Both sides are chosen from the hands
// as they were before either transfer. When one side holds too few taxable
// cards, both sides give that smaller number so hand sizes never change.
func InitializeTaxExchanges(players []*models.Player) []TaxExchange {
	var exchanges []TaxExchange
	for _, pair := range taxPairs(players) {
		fromLow := SelectTaxCardsAutomatically(pair.low.Hand, pair.count, false)
		fromHigh := SelectTaxCardsAutomatically(pair.high.Hand, pair.count, true)
		n := min(len(fromLow), len(fromHigh))
		fromLow, fromHigh = fromLow[:n], fromHigh[:n]

		// Both selections come from the hands, so removal cannot fail.
		_ = pair.low.RemoveCards(fromLow)
		_ = pair.high.RemoveCards(fromHigh)
		pair.high.AddCards(fromLow...)
		pair.low.AddCards(fromHigh...)

		exchanges = append(exchanges,
			TaxExchange{From: pair.low.ID, To: pair.high.ID, Count: len(fromLow), Cards: models.CloneCards(fromLow)},
			TaxExchange{From: pair.high.ID, To: pair.low.ID, Count: len(fromHigh), Cards: models.CloneCards(fromHigh)},
		)
	}
	return exchanges
}
