// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

const (
	DefaultMinPlayers = 4
	DefaultMaxPlayers = 8
)

// Rules holds per-room settings chosen when the room is created.
type Rules struct {
	MinPlayers        int `json:"minPlayers"`        // fewest players needed to start a match
	MaxPlayers        int `json:"maxPlayers"`        // room capacity
	StandingsPauseSec int `json:"standingsPauseSec"` // how long the standings stay up before card selection
	TaxPauseSec       int `json:"taxPauseSec"`       // how long the tax exchange stays up before play
}

// DefaultRules returns the standard 4-8 player settings.
func DefaultRules() Rules {
	return Rules{
		MinPlayers:        DefaultMinPlayers,
		MaxPlayers:        DefaultMaxPlayers,
		StandingsPauseSec: 5,
		TaxPauseSec:       5,
	}
}

// StandingsPause is the delay before card selection opens.
func (r Rules) StandingsPause() time.Duration {
	return time.Duration(r.StandingsPauseSec) * time.Second
}

// TaxPause is the delay before play resumes after the tax exchange.
func (r Rules) TaxPause() time.Duration {
	return time.Duration(r.TaxPauseSec) * time.Second
}

// Update applies the rules present in newRules. Missing keys keep their old value.
func (r *Rules) Update(newRules map[string]interface{}) error {
	updated := *r

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers decode as float64
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("%w: invalid type for %s", ErrInvalidRules, key)
		}
		if n < minVal || n > maxVal {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidRules, key, minVal, maxVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&updated.MinPlayers, "minPlayers", DefaultMinPlayers, DefaultMaxPlayers); err != nil {
		return err
	}
	if err := assignInt(&updated.MaxPlayers, "maxPlayers", DefaultMinPlayers, DefaultMaxPlayers); err != nil {
		return err
	}
	if err := assignInt(&updated.StandingsPauseSec, "standingsPauseSec", 0, 60); err != nil {
		return err
	}
	if err := assignInt(&updated.TaxPauseSec, "taxPauseSec", 0, 60); err != nil {
		return err
	}
	if updated.MinPlayers > updated.MaxPlayers {
		return fmt.Errorf("%w: minPlayers (%d) exceeds maxPlayers (%d)", ErrInvalidRules, updated.MinPlayers, updated.MaxPlayers)
	}

	*r = updated
	return nil
}

// ParseRules returns current with newRules applied.
func ParseRules(newRules map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(newRules)
	return rules, err
}
