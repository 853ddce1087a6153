package models

import "fmt"

// Phase is the lifecycle stage of a room.
type Phase string

const (
	PhaseWaiting               Phase = "waiting"
	PhaseRoleSelection         Phase = "roleSelection"
	PhaseRoleSelectionComplete Phase = "roleSelectionComplete"
	PhaseCardSelection         Phase = "cardSelection"
	PhaseRevolution            Phase = "revolution"
	PhaseTax                   Phase = "tax"
	PhasePlaying               Phase = "playing"
	PhaseGameEnd               Phase = "gameEnd"
)

// phaseTransitions is the single authoritative transition table.
// Every in-match phase may fall back to waiting (room drops below the minimum)
// or be forced to gameEnd.
var phaseTransitions = map[Phase][]Phase{
	PhaseWaiting:               {PhaseRoleSelection, PhaseGameEnd},
	PhaseRoleSelection:         {PhaseRoleSelectionComplete, PhaseWaiting, PhaseGameEnd},
	PhaseRoleSelectionComplete: {PhaseCardSelection, PhaseWaiting, PhaseGameEnd},
	PhaseCardSelection:         {PhaseRevolution, PhasePlaying, PhaseWaiting, PhaseGameEnd},
	PhaseRevolution:            {PhasePlaying, PhaseTax, PhaseWaiting, PhaseGameEnd},
	PhaseTax:                   {PhasePlaying, PhaseWaiting, PhaseGameEnd},
	PhasePlaying:               {PhaseWaiting, PhaseGameEnd},
	PhaseGameEnd:               {PhaseWaiting, PhaseRoleSelectionComplete},
}

// ParsePhase validates a persisted phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

func (p Phase) String() string { return string(p) }

// CanTransitionTo reports whether moving from p to target is legal.
// Staying in the same phase is always allowed.
func (p Phase) CanTransitionTo(target Phase) bool {
	if p == target {
		return p.Valid()
	}
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// InMatch reports whether a match is under way (draft through trick-taking).
func (p Phase) InMatch() bool {
	switch p {
	case PhaseRoleSelection, PhaseRoleSelectionComplete, PhaseCardSelection,
		PhaseRevolution, PhaseTax, PhasePlaying:
		return true
	}
	return false
}
