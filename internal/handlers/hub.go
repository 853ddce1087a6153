// internal/handlers/hub.go
package handlers

import (
	"context"
	"sync"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/sirupsen/logrus"
)

// outBuffer is how many messages a connection may fall behind before sends are dropped.
const outBuffer = 16

// serverMessage is every frame the server sends.
type serverMessage struct {
	Type     string        `json:"type"`
	State    *game.View    `json:"state,omitempty"`
	Message  string        `json:"message,omitempty"`
	Category game.Category `json:"category,omitempty"`
}

// RoomConnection is one player's websocket in a room.
type RoomConnection struct {
	PlayerID models.PlayerID
	Room     models.RoomCode
	OutChan  chan serverMessage
	Cancel   context.CancelFunc

	// OnRoomClosed and OnSeatLost close the socket when the room goes away
	// or the player leaves it. Unset, the connection is only cancelled.
	OnRoomClosed func()
	OnSeatLost   func()
}

func newRoomConnection(id models.PlayerID, code models.RoomCode, cancel context.CancelFunc) *RoomConnection {
	return &RoomConnection{
		PlayerID: id,
		Room:     code,
		OutChan:  make(chan serverMessage, outBuffer),
		Cancel:   cancel,
	}
}

// Write queues msg without blocking and reports whether it was queued.
func (conn *RoomConnection) Write(msg serverMessage) bool {
	select {
	case conn.OutChan <- msg:
		return true
	default:
		return false
	}
}

// WriteError queues an error frame for this connection only.
func (conn *RoomConnection) WriteError(err error) {
	conn.Write(serverMessage{Type: "error", Message: err.Error(), Category: game.CategoryOf(err)})
}

// Hub tracks live connections per room and implements room.Broadcaster.
type Hub struct {
	logger *logrus.Logger

	mu    sync.Mutex
	rooms map[models.RoomCode]map[*RoomConnection]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[models.RoomCode]map[*RoomConnection]struct{}),
	}
}

func (h *Hub) Register(conn *RoomConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[conn.Room]
	if !ok {
		conns = make(map[*RoomConnection]struct{})
		h.rooms[conn.Room] = conns
	}
	conns[conn] = struct{}{}
}

func (h *Hub) Unregister(conn *RoomConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.rooms[conn.Room]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.rooms, conn.Room)
	}
}

// Connections counts the live connections in a room.
func (h *Hub) Connections(code models.RoomCode) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[code])
}

// Broadcast sends every connection in the room its own view of g.
func (h *Hub) Broadcast(g *game.Game) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[g.Code()] {
		view := g.ViewFor(conn.PlayerID)
		if !conn.Write(serverMessage{Type: "state", State: &view}) {
			h.logger.WithFields(logrus.Fields{"room": conn.Room, "player": conn.PlayerID}).
				Warn("dropping state for slow connection")
		}
	}
}

// DropPlayer disconnects every remaining connection of a player who left the room.
func (h *Hub) DropPlayer(code models.RoomCode, id models.PlayerID) {
	var dropped []*RoomConnection
	h.mu.Lock()
	conns := h.rooms[code]
	for conn := range conns {
		if conn.PlayerID == id {
			delete(conns, conn)
			dropped = append(dropped, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.rooms, code)
	}
	h.mu.Unlock()

	for _, conn := range dropped {
		if conn.OnSeatLost != nil {
			go conn.OnSeatLost()
			continue
		}
		conn.Cancel()
	}
}

// CloseRoom cancels every connection left in a closed room.
func (h *Hub) CloseRoom(code models.RoomCode) {
	h.mu.Lock()
	conns := h.rooms[code]
	delete(h.rooms, code)
	h.mu.Unlock()
	for conn := range conns {
		if conn.OnRoomClosed != nil {
			go conn.OnRoomClosed()
			continue
		}
		conn.Cancel()
	}
}
