// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/deck"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// LastPlay is the most recent set of cards on the table.
type LastPlay struct {
	PlayerID models.PlayerID `json:"playerId"`
	Cards    []models.Card   `json:"cards"`
}

func (lp *LastPlay) clone() *LastPlay {
	if lp == nil {
		return nil
	}
	return &LastPlay{PlayerID: lp.PlayerID, Cards: models.CloneCards(lp.Cards)}
}

// RevolutionOutcome records the double-joker holder's decision for the match.
type RevolutionOutcome struct {
	PlayerID models.PlayerID `json:"playerId"`
	Accepted bool            `json:"accepted"`
	// Great is set when the last-ranked player revolted and every rank flipped.
	Great bool `json:"great"`
}

// PlayerStats accumulates per-player activity for the current match.
type PlayerStats struct {
	Plays       int `json:"plays"`
	CardsPlayed int `json:"cardsPlayed"`
	Passes      int `json:"passes"`
}

// RoundPlay is one entry of the per-round play log.
type RoundPlay struct {
	Round    int             `json:"round"`
	PlayerID models.PlayerID `json:"playerId"`
	Cards    []models.Card   `json:"cards,omitempty"`
	Passed   bool            `json:"passed,omitempty"`
}

// RankingEntry is one line of a completed match's standings.
type RankingEntry struct {
	PlayerID models.PlayerID `json:"playerId"`
	Nickname string          `json:"nickname"`
	Rank     int             `json:"rank"`
}

// MatchRecord archives a completed match.
type MatchRecord struct {
	ID         uuid.UUID                       `json:"id"`
	Match      int                             `json:"match"`
	Ranking    []RankingEntry                  `json:"ranking"`
	Stats      map[models.PlayerID]PlayerStats `json:"stats"`
	Revolution *RevolutionOutcome              `json:"revolution,omitempty"`
	EndedAt    time.Time                       `json:"endedAt"`
}

// VoteResult summarizes the next-match vote. Approved is only meaningful once AllVoted is set.
type VoteResult struct {
	AllVoted bool `json:"allVoted"`
	Approved bool `json:"approved"`
	Yes      int  `json:"yes"`
	No       int  `json:"no"`
}

// Game is the aggregate for one room. It is not safe for concurrent use;
// callers serialize mutating operations per room.
type Game struct {
	code    models.RoomCode
	ownerID models.PlayerID
	players []*models.Player
	phase   models.Phase

	currentTurn   models.PlayerID
	lastPlay      *LastPlay
	drawDeck      []models.Card
	round         int
	finishedOrder []models.PlayerID

	pools    []deck.SelectablePool
	rolePool []deck.RoleCard

	votes        map[models.PlayerID]bool
	revolution   *RevolutionOutcome
	taxExchanges []TaxExchange

	matchCount int
	history    []MatchRecord
	stats      map[models.PlayerID]PlayerStats
	roundLog   []RoundPlay

	rules Rules
	rng   *rand.Rand
	now   func() time.Time

	// passwordHash gates joining; empty means the room is open.
	passwordHash string
}

// NewGame creates an empty room in the waiting phase. A nil rng is replaced by a time-seeded one.
func NewGame(code models.RoomCode, rules Rules, rng *rand.Rand) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Game{
		code:     code,
		players:  []*models.Player{},
		phase:    models.PhaseWaiting,
		drawDeck: []models.Card{},
		round:    1,
		votes:    make(map[models.PlayerID]bool),
		stats:    make(map[models.PlayerID]PlayerStats),
		rules:    rules,
		rng:      rng,
		now:      time.Now,
	}
}

// --- accessors (all return owned copies) ---

func (g *Game) Code() models.RoomCode { return g.code }
func (g *Game) OwnerID() models.PlayerID { return g.ownerID }
func (g *Game) Phase() models.Phase { return g.phase }
func (g *Game) Round() int { return g.round }
func (g *Game) MatchCount() int { return g.matchCount }
func (g *Game) Rules() Rules { return g.rules }
func (g *Game) PlayerCount() int { return len(g.players) }
func (g *Game) PasswordHash() string { return g.passwordHash }
func (g *Game) Private() bool { return g.passwordHash != "" }

// SetPasswordHash stores an already hashed room password. Empty opens the room.
func (g *Game) SetPasswordHash(hash string) { g.passwordHash = hash }

// CurrentTurn returns the player whose turn it is, if any.
func (g *Game) CurrentTurn() (models.PlayerID, bool) {
	return g.currentTurn, g.currentTurn != ""
}

// LastPlay returns the cards currently on the table, if any.
func (g *Game) LastPlay() (LastPlay, bool) {
	if g.lastPlay == nil {
		return LastPlay{}, false
	}
	return *g.lastPlay.clone(), true
}

// Players returns copies of every player in join order.
func (g *Game) Players() []models.Player {
	out := make([]models.Player, 0, len(g.players))
	for _, p := range g.players {
		out = append(out, p.Clone())
	}
	return out
}

// Player returns a copy of the player with the given id.
func (g *Game) Player(id models.PlayerID) (models.Player, bool) {
	p := g.findPlayer(id)
	if p == nil {
		return models.Player{}, false
	}
	return p.Clone(), true
}

func (g *Game) FinishedOrder() []models.PlayerID {
	return append([]models.PlayerID{}, g.finishedOrder...)
}

func (g *Game) DrawDeck() []models.Card { return models.CloneCards(g.drawDeck) }

func (g *Game) SelectablePools() []deck.SelectablePool {
	out := make([]deck.SelectablePool, 0, len(g.pools))
	for _, p := range g.pools {
		out = append(out, p.Clone())
	}
	return out
}

func (g *Game) RolePool() []deck.RoleCard {
	return append([]deck.RoleCard{}, g.rolePool...)
}

func (g *Game) Votes() map[models.PlayerID]bool {
	out := make(map[models.PlayerID]bool, len(g.votes))
	for k, v := range g.votes {
		out[k] = v
	}
	return out
}

func (g *Game) Revolution() (RevolutionOutcome, bool) {
	if g.revolution == nil {
		return RevolutionOutcome{}, false
	}
	return *g.revolution, true
}

func (g *Game) TaxExchanges() []TaxExchange { return cloneExchanges(g.taxExchanges) }

func (g *Game) Stats() map[models.PlayerID]PlayerStats { return cloneStats(g.stats) }

func (g *Game) RoundLog() []RoundPlay {
	out := make([]RoundPlay, 0, len(g.roundLog))
	for _, rp := range g.roundLog {
		rp.Cards = models.CloneCards(rp.Cards)
		out = append(out, rp)
	}
	return out
}

func (g *Game) History() []MatchRecord {
	out := make([]MatchRecord, 0, len(g.history))
	for _, rec := range g.history {
		out = append(out, rec.clone())
	}
	return out
}

func (rec MatchRecord) clone() MatchRecord {
	rec.Ranking = append([]RankingEntry{}, rec.Ranking...)
	rec.Stats = cloneStats(rec.Stats)
	if rec.Revolution != nil {
		rev := *rec.Revolution
		rec.Revolution = &rev
	}
	return rec
}

func cloneStats(in map[models.PlayerID]PlayerStats) map[models.PlayerID]PlayerStats {
	out := make(map[models.PlayerID]PlayerStats, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// --- internal helpers ---

func (g *Game) findPlayer(id models.PlayerID) *models.Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) isFinished(id models.PlayerID) bool {
	for _, f := range g.finishedOrder {
		if f == id {
			return true
		}
	}
	return false
}

// transition moves to target if the transition table allows it.
func (g *Game) transition(target models.Phase) error {
	if !g.phase.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, g.phase, target)
	}
	g.phase = target
	return nil
}

// mustTransition is used once an operation's preconditions already guarantee
// the move is legal; failing here is a bug in the aggregate.
func (g *Game) mustTransition(target models.Phase) {
	if err := g.transition(target); err != nil {
		panic(err)
	}
}

func (g *Game) checkTransition(target models.Phase) error {
	if !g.phase.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, g.phase, target)
	}
	return nil
}

func (g *Game) rankOnePlayer() models.PlayerID {
	id, _ := FindFirstActivePlayer(g)
	return id
}

func (g *Game) resetPasses() {
	for _, p := range g.players {
		p.IsPassed = false
	}
}

// clearMatchState drops everything tied to the match in progress.
func (g *Game) clearMatchState() {
	g.currentTurn = ""
	g.lastPlay = nil
	g.finishedOrder = nil
	g.pools = nil
	g.rolePool = nil
	g.drawDeck = []models.Card{}
	g.votes = make(map[models.PlayerID]bool)
	g.revolution = nil
	g.taxExchanges = nil
	g.stats = make(map[models.PlayerID]PlayerStats)
	g.roundLog = nil
	g.round = 1
}

// --- lobby ---

// AddPlayer seats a new player. The first player to join owns the room.
func (g *Game) AddPlayer(id models.PlayerID, nickname string) error {
	if g.findPlayer(id) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}
	if err := ValidateGameState(g, models.PhaseWaiting); err != nil {
		return err
	}
	if err := ValidateMaxPlayers(len(g.players), g.rules.MaxPlayers); err != nil {
		return err
	}
	p, err := models.NewPlayer(id, nickname)
	if err != nil {
		return err
	}
	g.players = append(g.players, p)
	if g.ownerID == "" {
		g.ownerID = id
	}
	return nil
}

// RemovePlayer takes a player out of the room. Their hand returns to the draw
// deck, the owner role passes to the first remaining player, and a match that
// drops below the minimum player count falls back to the lobby.
func (g *Game) RemovePlayer(id models.PlayerID) error {
	leaver := g.findPlayer(id)
	if leaver == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}

	wasTurn := g.currentTurn == id
	var nextTurn models.PlayerID
	if wasTurn {
		if g.phase == models.PhaseCardSelection {
			nextTurn, _ = g.nextDrafter(id)
		} else {
			nextTurn, _ = g.nextUnpassed(id)
		}
	}

	g.drawDeck = append(g.drawDeck, leaver.Hand...)
	kept := make([]*models.Player, 0, len(g.players)-1)
	for _, p := range g.players {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	g.players = kept

	finished := g.finishedOrder[:0:0]
	for _, f := range g.finishedOrder {
		if f != id {
			finished = append(finished, f)
		}
	}
	g.finishedOrder = finished
	delete(g.votes, id)
	delete(g.stats, id)

	if g.ownerID == id {
		g.ownerID = ""
		if len(g.players) > 0 {
			g.ownerID = g.players[0].ID
		}
	}

	if len(g.players) == 0 {
		g.mustTransition(models.PhaseWaiting)
		g.clearMatchState()
		return nil
	}

	if g.phase.InMatch() && len(g.players) < g.rules.MinPlayers {
		g.resetToLobby()
		return nil
	}

	if g.phase.InMatch() {
		g.compactRanks()
	}

	if wasTurn {
		g.currentTurn = nextTurn
	}

	switch g.phase {
	case models.PhaseRoleSelection:
		if g.allRolesChosen() {
			// phase and roles were just checked, so this cannot fail
			_ = g.CompleteRoleSelection()
		}
	case models.PhaseCardSelection:
		if g.draftComplete() {
			g.finishDraft()
		}
	case models.PhasePlaying:
		g.advanceAfter(id)
	case models.PhaseRevolution:
		if wasTurn {
			// the double-joker holder left; play starts without a revolution
			g.startPlay()
		}
	}
	return nil
}

// compactRanks renumbers ranked players 1..N preserving their order.
func (g *Game) compactRanks() {
	rank := 1
	for _, p := range sortedPlayers(g) {
		if p.Rank > 0 {
			p.Rank = rank
			rank++
		}
	}
}

// SetReady toggles a player's ready flag in the lobby.
func (g *Game) SetReady(id models.PlayerID, ready bool) error {
	if err := ValidateGameState(g, models.PhaseWaiting); err != nil {
		return err
	}
	p := g.findPlayer(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	p.IsReady = ready
	return nil
}

// StartGame opens the role draft. Only the owner may start, with enough
// players who are all ready.
func (g *Game) StartGame(requester models.PlayerID) error {
	if err := ValidateGameState(g, models.PhaseWaiting); err != nil {
		return err
	}
	if g.findPlayer(requester) == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, requester)
	}
	if requester != g.ownerID {
		return ErrNotOwner
	}
	if err := ValidateMinPlayers(len(g.players), g.rules.MinPlayers); err != nil {
		return err
	}
	if err := ValidateAllPlayersReady(g.players); err != nil {
		return err
	}
	if err := g.transition(models.PhaseRoleSelection); err != nil {
		return err
	}

	g.clearMatchState()
	for _, p := range g.players {
		p.ResetForMatch()
		p.Rank = 0
	}
	g.rolePool = deck.CreateRoleSelectionDeck()
	g.matchCount++
	return nil
}

// --- role draft ---

// SelectRole claims role card roleNumber for the player and reports whether
// every player now holds a role.
func (g *Game) SelectRole(id models.PlayerID, roleNumber int) (bool, error) {
	if err := ValidateGameState(g, models.PhaseRoleSelection); err != nil {
		return false, err
	}
	p := g.findPlayer(id)
	if p == nil {
		return false, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if roleNumber < models.MinRank || roleNumber > models.MaxRank {
		return false, fmt.Errorf("%w: %d", ErrInvalidRole, roleNumber)
	}
	if p.Role != 0 {
		return false, fmt.Errorf("%w: %s holds %d", ErrRoleAlreadyChosen, id, p.Role)
	}
	idx := -1
	for i, rc := range g.rolePool {
		if rc.Number == roleNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, fmt.Errorf("%w: %d", ErrRoleNotFound, roleNumber)
	}
	if g.rolePool[idx].Claimed {
		return false, fmt.Errorf("%w: %d by %s", ErrRoleClaimed, roleNumber, g.rolePool[idx].ClaimedBy)
	}

	g.rolePool[idx].Claimed = true
	g.rolePool[idx].ClaimedBy = id
	p.Role = roleNumber
	return g.allRolesChosen(), nil
}

func (g *Game) allRolesChosen() bool {
	for _, p := range g.players {
		if p.Role == 0 {
			return false
		}
	}
	return len(g.players) > 0
}

// CompleteRoleSelection closes the role draft, ranking players by role number
// (lowest role ranks first), and shows the standings.
func (g *Game) CompleteRoleSelection() error {
	if err := ValidateGameState(g, models.PhaseRoleSelection); err != nil {
		return err
	}
	if !g.allRolesChosen() {
		return ErrRolesIncomplete
	}
	if err := g.transition(models.PhaseRoleSelectionComplete); err != nil {
		return err
	}
	byRole := append([]*models.Player{}, g.players...)
	sortStable(byRole, func(a, b *models.Player) bool { return a.Role < b.Role })
	for i, p := range byRole {
		p.Rank = i + 1
	}
	return nil
}

// --- card draft ---

// BeginCardSelection deals a shuffled deck into one pool per player and gives
// the first pick to the top-ranked player.
func (g *Game) BeginCardSelection() error {
	if err := ValidateGameState(g, models.PhaseRoleSelectionComplete); err != nil {
		return err
	}
	if err := g.transition(models.PhaseCardSelection); err != nil {
		return err
	}
	d := deck.InitializeDeck()
	deck.ShuffleDeck(d, g.rng)
	g.pools = deck.CreateSelectableDecks(d, len(g.players))
	g.drawDeck = []models.Card{}
	g.finishedOrder = nil
	g.lastPlay = nil
	g.revolution = nil
	g.taxExchanges = nil
	g.votes = make(map[models.PlayerID]bool)
	for _, p := range g.players {
		p.Hand = []models.Card{}
		p.IsPassed = false
	}
	g.currentTurn = g.rankOnePlayer()
	return nil
}

// SelectDeck claims pool deckIndex for the current drafter and returns it.
// After the last pick the game moves to the revolution choice if someone holds
// both jokers, or straight to play otherwise.
func (g *Game) SelectDeck(id models.PlayerID, deckIndex int) (deck.SelectablePool, error) {
	if err := ValidateGameState(g, models.PhaseCardSelection); err != nil {
		return deck.SelectablePool{}, err
	}
	p := g.findPlayer(id)
	if p == nil {
		return deck.SelectablePool{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if g.currentTurn != id {
		return deck.SelectablePool{}, fmt.Errorf("%w: %s", ErrNotYourTurn, id)
	}
	if deckIndex < 0 || deckIndex >= len(g.pools) {
		return deck.SelectablePool{}, fmt.Errorf("%w: %d", ErrInvalidDeckIndex, deckIndex)
	}
	if g.pools[deckIndex].Claimed {
		return deck.SelectablePool{}, fmt.Errorf("%w: %d by %s", ErrDeckClaimed, deckIndex, g.pools[deckIndex].ClaimedBy)
	}

	pool := &g.pools[deckIndex]
	pool.Claimed = true
	pool.ClaimedBy = id
	p.AddCards(pool.Cards...)
	deck.SortDeckCards(p.Hand)
	claimed := pool.Clone()

	if g.draftComplete() {
		g.finishDraft()
	} else {
		g.currentTurn, _ = g.nextDrafter(id)
	}
	return claimed, nil
}

func (g *Game) hasClaimedPool(id models.PlayerID) bool {
	for _, pool := range g.pools {
		if pool.Claimed && pool.ClaimedBy == id {
			return true
		}
	}
	return false
}

func (g *Game) draftComplete() bool {
	for _, p := range g.players {
		if !g.hasClaimedPool(p.ID) {
			return false
		}
	}
	return true
}

// nextDrafter walks the rank order after from for a player without a pool.
func (g *Game) nextDrafter(from models.PlayerID) (models.PlayerID, bool) {
	for _, p := range cycleAfter(g, from) {
		if p.ID != from && !g.hasClaimedPool(p.ID) {
			return p.ID, true
		}
	}
	return "", false
}

// finishDraft returns unclaimed pools to the draw deck and starts the match.
func (g *Game) finishDraft() {
	for i := range g.pools {
		if !g.pools[i].Claimed {
			g.drawDeck = append(g.drawDeck, g.pools[i].Cards...)
			g.pools[i].Cards = []models.Card{}
		}
	}
	if holder, ok := g.CheckDoubleJoker(); ok {
		g.mustTransition(models.PhaseRevolution)
		g.currentTurn = holder.ID
		return
	}
	g.startPlay()
}

// startPlay opens trick-taking with the top-ranked player leading.
func (g *Game) startPlay() {
	g.mustTransition(models.PhasePlaying)
	g.round = 1
	g.lastPlay = nil
	g.resetPasses()
	g.currentTurn = g.rankOnePlayer()
}

// CheckDoubleJoker flags and returns the first player holding exactly two jokers.
func (g *Game) CheckDoubleJoker() (models.Player, bool) {
	for _, p := range g.players {
		if deck.HasDoubleJoker(p.Hand) {
			p.HasDoubleJoker = true
			return p.Clone(), true
		}
	}
	return models.Player{}, false
}

// --- revolution & tax ---

// ProcessRevolutionChoice applies the double-joker holder's decision.
// Accepting by the last-ranked player flips every rank (a great revolution);
// accepting from any other rank keeps the standings. Either way play starts.
// Declining clears the holder's flag and moves to the tax exchange.
func (g *Game) ProcessRevolutionChoice(id models.PlayerID, wantRevolution bool) (RevolutionOutcome, error) {
	if err := ValidateGameState(g, models.PhaseRevolution); err != nil {
		return RevolutionOutcome{}, err
	}
	p := g.findPlayer(id)
	if p == nil {
		return RevolutionOutcome{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if g.currentTurn != id {
		return RevolutionOutcome{}, fmt.Errorf("%w: %s", ErrNotYourTurn, id)
	}
	if !p.HasDoubleJoker {
		return RevolutionOutcome{}, fmt.Errorf("%w: %s", ErrNoDoubleJoker, id)
	}

	choice := wantRevolution
	p.RevolutionChoice = &choice
	outcome := RevolutionOutcome{PlayerID: id, Accepted: wantRevolution}

	if !wantRevolution {
		p.HasDoubleJoker = false
		g.mustTransition(models.PhaseTax)
		g.revolution = &outcome
		return outcome, nil
	}

	n := len(g.players)
	if p.Rank == n {
		outcome.Great = true
		for _, pl := range g.players {
			if pl.Rank > 0 {
				pl.Rank = n - pl.Rank + 1
			}
		}
	}
	g.revolution = &outcome
	g.startPlay()
	return outcome, nil
}

// PrepareForTaxPhase records the exchange ledger and hands the turn to the
// top-ranked player for the tax phase.
func (g *Game) PrepareForTaxPhase(exchanges []TaxExchange) error {
	if err := g.checkTransition(models.PhaseTax); err != nil {
		return err
	}
	g.taxExchanges = cloneExchanges(exchanges)
	g.mustTransition(models.PhaseTax)
	g.currentTurn = g.rankOnePlayer()
	g.round++
	return nil
}

// CollectTax runs the rank-based exchange on the players' hands and records it.
func (g *Game) CollectTax() ([]TaxExchange, error) {
	if err := ValidateGameState(g, models.PhaseTax); err != nil {
		return nil, err
	}
	exchanges := InitializeTaxExchanges(g.players)
	for _, p := range g.players {
		deck.SortDeckCards(p.Hand)
	}
	if err := g.PrepareForTaxPhase(exchanges); err != nil {
		return nil, err
	}
	return cloneExchanges(exchanges), nil
}

// FinishTaxPhase resumes play after the exchange, top-ranked player leading.
func (g *Game) FinishTaxPhase() error {
	if err := ValidateGameState(g, models.PhaseTax); err != nil {
		return err
	}
	g.mustTransition(models.PhasePlaying)
	g.lastPlay = nil
	g.resetPasses()
	g.currentTurn = g.rankOnePlayer()
	return nil
}

// --- trick-taking ---

func (g *Game) checkPlay(id models.PlayerID, cards []models.Card) error {
	if err := ValidateGameState(g, models.PhasePlaying); err != nil {
		return err
	}
	if len(cards) == 0 {
		return ErrNoCards
	}
	if err := ValidatePlayerAction(g, id); err != nil {
		return err
	}
	return ValidateCards(cards, g.lastPlay)
}

// CanPlayCard reports whether the player may play cards now. It does not mutate the game.
func (g *Game) CanPlayCard(id models.PlayerID, cards []models.Card) bool {
	return g.checkPlay(id, cards) == nil
}

// PlayCards puts cards from the player's hand on the table. A player who
// empties their hand finishes; when one active player remains the match ends.
func (g *Game) PlayCards(id models.PlayerID, cards []models.Card) error {
	if err := g.checkPlay(id, cards); err != nil {
		return err
	}
	p := g.findPlayer(id)
	if err := ValidatePlayerHasCards(p, cards); err != nil {
		return err
	}
	if err := p.RemoveCards(cards); err != nil {
		return fmt.Errorf("%w: %v", ErrCardsNotInHand, err)
	}

	played := models.CloneCards(cards)
	g.lastPlay = &LastPlay{PlayerID: id, Cards: played}
	g.roundLog = append(g.roundLog, RoundPlay{Round: g.round, PlayerID: id, Cards: models.CloneCards(played)})
	st := g.stats[id]
	st.Plays++
	st.CardsPlayed += len(played)
	g.stats[id] = st

	if p.HasFinished() {
		g.finishedOrder = append(g.finishedOrder, id)
	}
	g.advanceAfter(id)
	return nil
}

// Pass gives up the current round. Leading an empty table cannot be passed.
func (g *Game) Pass(id models.PlayerID) error {
	if err := ValidateGameState(g, models.PhasePlaying); err != nil {
		return err
	}
	if err := ValidatePlayerAction(g, id); err != nil {
		return err
	}
	if g.lastPlay == nil {
		return ErrCannotPassOnLead
	}
	p := g.findPlayer(id)
	p.IsPassed = true
	g.roundLog = append(g.roundLog, RoundPlay{Round: g.round, PlayerID: id, Passed: true})
	st := g.stats[id]
	st.Passes++
	g.stats[id] = st

	g.advanceAfter(id)
	return nil
}

// advanceAfter moves the turn on after actor acted, ending the round or the match as needed.
func (g *Game) advanceAfter(actor models.PlayerID) {
	if CountActivePlayers(g) <= 1 {
		if last, ok := GetLastActivePlayer(g); ok {
			g.finishedOrder = append(g.finishedOrder, last)
		}
		g.finishMatch()
		return
	}
	if g.lastPlay != nil && AllPlayersPassedExceptLast(g) {
		StartNewRound(g)
		return
	}
	if g.currentTurn != actor && g.currentTurn != "" {
		return
	}
	next, ok := g.nextUnpassed(actor)
	if !ok {
		StartNewRound(g)
		return
	}
	g.currentTurn = next
}

// nextUnpassed walks the rank order after from for an active player who has not passed.
func (g *Game) nextUnpassed(from models.PlayerID) (models.PlayerID, bool) {
	for _, p := range cycleAfter(g, from) {
		if p.ID != from && !g.isFinished(p.ID) && !p.IsPassed {
			return p.ID, true
		}
	}
	return "", false
}

func (g *Game) finishMatch() {
	g.mustTransition(models.PhaseGameEnd)
	g.currentTurn = ""
	g.votes = make(map[models.PlayerID]bool)
}

// EndGame forces the room into the game-end phase.
func (g *Game) EndGame() {
	g.finishMatch()
}

// --- next-match vote ---

// RegisterVote records a player's vote on playing another match. Re-voting overwrites.
func (g *Game) RegisterVote(id models.PlayerID, approve bool) error {
	if err := ValidateGameState(g, models.PhaseGameEnd); err != nil {
		return err
	}
	if g.findPlayer(id) == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	g.votes[id] = approve
	return nil
}

// GetVoteResult reports whether everyone voted and, if so, whether nobody rejected.
func (g *Game) GetVoteResult() VoteResult {
	var res VoteResult
	for _, p := range g.players {
		v, ok := g.votes[p.ID]
		if !ok {
			continue
		}
		if v {
			res.Yes++
		} else {
			res.No++
		}
	}
	res.AllVoted = len(g.players) > 0 && res.Yes+res.No == len(g.players)
	res.Approved = res.AllVoted && res.No == 0
	return res
}

// StartNextGame archives the finished match, re-ranks players by finishing
// order, and shows the new standings.
func (g *Game) StartNextGame() error {
	if err := ValidateGameState(g, models.PhaseGameEnd); err != nil {
		return err
	}
	if err := ValidateMinPlayers(len(g.players), g.rules.MinPlayers); err != nil {
		return err
	}
	if err := g.checkTransition(models.PhaseRoleSelectionComplete); err != nil {
		return err
	}

	order := g.finalOrder()
	record := MatchRecord{
		ID:      uuid.New(),
		Match:   g.matchCount,
		Ranking: make([]RankingEntry, 0, len(order)),
		Stats:   cloneStats(g.stats),
		EndedAt: g.now().UTC(),
	}
	if g.revolution != nil {
		rev := *g.revolution
		record.Revolution = &rev
	}
	for i, p := range order {
		p.Rank = i + 1
		record.Ranking = append(record.Ranking, RankingEntry{PlayerID: p.ID, Nickname: p.Nickname, Rank: p.Rank})
	}
	g.history = append(g.history, record)

	for _, p := range g.players {
		p.ResetForMatch()
	}
	g.clearMatchState()
	g.matchCount++
	g.mustTransition(models.PhaseRoleSelectionComplete)
	return nil
}

// finalOrder lists players by finishing order, then any stragglers by current rank.
func (g *Game) finalOrder() []*models.Player {
	order := make([]*models.Player, 0, len(g.players))
	seen := make(map[models.PlayerID]bool, len(g.players))
	for _, id := range g.finishedOrder {
		if p := g.findPlayer(id); p != nil && !seen[id] {
			order = append(order, p)
			seen[id] = true
		}
	}
	for _, p := range sortedPlayers(g) {
		if !seen[p.ID] {
			order = append(order, p)
			seen[p.ID] = true
		}
	}
	return order
}

// ResetToLobby abandons the session's standings and returns the room to waiting.
func (g *Game) ResetToLobby() error {
	if err := g.checkTransition(models.PhaseWaiting); err != nil {
		return err
	}
	g.resetToLobby()
	return nil
}

func (g *Game) resetToLobby() {
	g.mustTransition(models.PhaseWaiting)
	g.clearMatchState()
	for _, p := range g.players {
		p.ResetForMatch()
		p.Rank = 0
	}
}
