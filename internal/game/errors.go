package game

import "errors"

// Category groups domain errors so callers can map them to responses.
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryState      Category = "state"
	CategoryInput      Category = "input"
	CategoryRule       Category = "rule"
	CategoryUnknown    Category = "unknown"
)

// Structural: something referenced does not exist.
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrDuplicatePlayer = errors.New("player already in room")
	ErrRoleNotFound    = errors.New("role card not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room code already in use")
)

// State: the room or player is not in a state that allows the action.
var (
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrIllegalTransition = errors.New("illegal phase transition")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrAlreadyPassed     = errors.New("player already passed")
	ErrAlreadyFinished   = errors.New("player already finished")
	ErrRoleAlreadyChosen = errors.New("player already holds a role")
	ErrRoleClaimed       = errors.New("role already claimed")
	ErrDeckClaimed       = errors.New("deck already claimed")
	ErrNotOwner          = errors.New("only the room owner can do that")
	ErrPlayersNotReady   = errors.New("not every player is ready")
	ErrRolesIncomplete   = errors.New("not every player holds a role")
	ErrNoDoubleJoker     = errors.New("player does not hold both jokers")
	ErrRoomFull          = errors.New("room is full")
	ErrTooFewPlayers     = errors.New("not enough players")
	ErrCannotPassOnLead  = errors.New("cannot pass with an empty table")
)

// Input: malformed or out-of-range arguments.
var (
	ErrInvalidRole      = errors.New("role number out of range")
	ErrInvalidDeckIndex = errors.New("deck index out of range")
	ErrNoCards          = errors.New("no cards selected")
	ErrMixedRanks       = errors.New("cards must share one rank")
	ErrCardsNotInHand   = errors.New("cards not in hand")
	ErrInvalidRules     = errors.New("invalid rules")
)

// Rule: the move is well-formed but the rules reject it.
var (
	ErrCardCountMismatch = errors.New("card count must match the last play")
	ErrNotStronger       = errors.New("cards must be stronger than the last play")
)

var categories = map[Category][]error{
	CategoryStructural: {ErrPlayerNotFound, ErrDuplicatePlayer, ErrRoleNotFound, ErrRoomNotFound, ErrRoomExists},
	CategoryState: {ErrWrongPhase, ErrIllegalTransition, ErrNotYourTurn, ErrAlreadyPassed,
		ErrAlreadyFinished, ErrRoleAlreadyChosen, ErrRoleClaimed, ErrDeckClaimed, ErrNotOwner,
		ErrPlayersNotReady, ErrRolesIncomplete, ErrRoomFull, ErrTooFewPlayers, ErrCannotPassOnLead},
	CategoryInput: {ErrInvalidRole, ErrInvalidDeckIndex, ErrNoCards, ErrMixedRanks, ErrCardsNotInHand, ErrInvalidRules},
	CategoryRule:  {ErrCardCountMismatch, ErrNotStronger, ErrNoDoubleJoker},
}

// CategoryOf classifies err by the sentinel it wraps.
func CategoryOf(err error) Category {
	for cat, sentinels := range categories {
		for _, s := range sentinels {
			if errors.Is(err, s) {
				return cat
			}
		}
	}
	return CategoryUnknown
}
