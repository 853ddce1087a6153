package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// RoomCodeLength is the number of characters in every room code.
const RoomCodeLength = 6

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// maxPlayerIDLength bounds identifiers handed out by the transport.
const maxPlayerIDLength = 64

var (
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrInvalidPlayerID = errors.New("invalid player id")
)

var (
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
)

// RoomCode identifies a room. Codes are upper-case alphanumeric and fixed length.
type RoomCode string

// ParseRoomCode validates s, upper-casing it first so codes typed by players are accepted.
func ParseRoomCode(s string) (RoomCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != RoomCodeLength {
		return "", fmt.Errorf("%w: want %d characters, got %q", ErrInvalidRoomCode, RoomCodeLength, s)
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidRoomCode, s, r)
		}
	}
	return RoomCode(s), nil
}

// NewRoomCode draws a random code from an alphabet without look-alike characters.
func NewRoomCode(rng *rand.Rand) RoomCode {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rng.Intn(len(roomCodeAlphabet))]
	}
	return RoomCode(b)
}

func (c RoomCode) String() string { return string(c) }

// UnmarshalJSON validates the decoded code.
func (c *RoomCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	code, err := ParseRoomCode(s)
	if err != nil {
		return err
	}
	*c = code
	return nil
}

// PlayerID is an opaque, validated player identifier, unique within a room.
type PlayerID string

// ParsePlayerID accepts non-empty identifiers without whitespace or control characters.
func ParsePlayerID(s string) (PlayerID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPlayerID)
	}
	if len(s) > maxPlayerIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidPlayerID, maxPlayerIDLength)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPlayerID, s)
		}
	}
	return PlayerID(s), nil
}

func (id PlayerID) String() string { return string(id) }

// UnmarshalJSON validates the decoded id.
func (id *PlayerID) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePlayerID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
