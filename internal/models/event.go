package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published for every room change.
const (
	EventRoomCreated   = "room_created"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventRoomClosed    = "room_closed"
	EventAction        = "action"
	EventMatchEnded    = "match_ended"
	EventMatchArchived = "match_archived"

	// EventRoomAbandoned is recorded by the historian, not the server, when a
	// room goes quiet without closing.
	EventRoomAbandoned = "room_abandoned"
)

// RoomEvent is the record queued for the historian after each room change.
type RoomEvent struct {
	ID        uuid.UUID       `json:"id"`
	Room      RoomCode        `json:"room"`
	Type      string          `json:"type"`
	Action    string          `json:"action,omitempty"`
	PlayerID  PlayerID        `json:"playerId,omitempty"`
	Phase     Phase           `json:"phase"`
	Match     int             `json:"match"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRoomEvent stamps an event with a fresh id and the current time. A payload
// that cannot be encoded is dropped.
func NewRoomEvent(room RoomCode, typ string, phase Phase, match int, payload interface{}) RoomEvent {
	ev := RoomEvent{
		ID:        uuid.New(),
		Room:      room,
		Type:      typ,
		Phase:     phase,
		Match:     match,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}
