package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesUpdate(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Update(map[string]interface{}{
		"maxPlayers":        float64(6),
		"standingsPauseSec": 2,
		"unknown":           true,
	}))
	assert.Equal(t, 6, r.MaxPlayers)
	assert.Equal(t, DefaultMinPlayers, r.MinPlayers)
	assert.Equal(t, 2*time.Second, r.StandingsPause())
	assert.Equal(t, 5*time.Second, r.TaxPause())

	before := r
	assert.ErrorIs(t, r.Update(map[string]interface{}{"maxPlayers": 12}), ErrInvalidRules)
	assert.Error(t, r.Update(map[string]interface{}{"taxPauseSec": "soon"}))
	assert.Error(t, r.Update(map[string]interface{}{"minPlayers": 7, "maxPlayers": 5}))
	assert.Equal(t, before, r, "a rejected update changes nothing")
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(map[string]interface{}{"minPlayers": 5}, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 5, rules.MinPlayers)
	assert.Equal(t, DefaultRules().MaxPlayers, rules.MaxPlayers)
}
