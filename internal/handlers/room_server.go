// internal/handlers/room_server.go
package handlers

import (
	"context"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/jason-s-yu/daifugo/internal/room"
	"github.com/sirupsen/logrus"
)

// HistorySource lists archived matches. Without one, history comes from the room itself.
type HistorySource interface {
	MatchHistory(ctx context.Context, code models.RoomCode) ([]game.MatchRecord, error)
}

// RoomServer bundles what the HTTP and websocket handlers need.
type RoomServer struct {
	Service *room.Service
	Hub     *Hub
	History HistorySource
	Logger  *logrus.Logger
}

func NewRoomServer(svc *room.Service, hub *Hub, logger *logrus.Logger) *RoomServer {
	return &RoomServer{Service: svc, Hub: hub, Logger: logger}
}
