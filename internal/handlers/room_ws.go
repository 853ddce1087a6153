// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/middleware"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	roomSubprotocol = "room"
	pingInterval    = 30 * time.Second
	writeTimeout    = 5 * time.Second
)

// errLeft stops the read loop after a player leaves on purpose.
var errLeft = errors.New("player left the room")

// clientMessage is every frame a player may send. Type selects the command;
// the other fields are read only by the commands that need them.
type clientMessage struct {
	Type    string        `json:"type"`
	Ready   *bool         `json:"ready,omitempty"`
	Role    int           `json:"role,omitempty"`
	Deck    int           `json:"deck"`
	Cards   []models.Card `json:"cards,omitempty"`
	Accept  bool          `json:"accept,omitempty"`
	Approve bool          `json:"approve,omitempty"`
}

// RoomWSHandler serves /room/ws/{code}. The caller must hold a session
// token for that room.
func RoomWSHandler(rs *RoomServer) http.HandlerFunc {
	logger := rs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := models.ParseRoomCode(strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/"))
		if err != nil {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}
		sess, err := auth.AuthenticateJWT(requestToken(r))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{roomSubprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != roomSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}
		if sess.RoomCode != code {
			c.Close(SessionMismatchError, "token was issued for another room")
			return
		}
		g, err := rs.Service.Room(r.Context(), code)
		if err != nil {
			c.Close(InvalidRoomCodeError, "room does not exist")
			return
		}
		if _, seated := g.Player(sess.PlayerID); !seated {
			c.Close(SeatLostError, "player is not seated in this room")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := newRoomConnection(sess.PlayerID, code, cancel)
		conn.OnRoomClosed = func() { c.Close(RoomClosedError, "room closed") }
		conn.OnSeatLost = func() { c.Close(SeatLostError, "player left the room") }
		rs.Hub.Register(conn)
		defer rs.Hub.Unregister(conn)

		middleware.LogWebSocketConnect(logger, r, code, sess.PlayerID)
		view := g.ViewFor(sess.PlayerID)
		conn.Write(serverMessage{Type: "state", State: &view})

		go writePump(ctx, c, conn, logger)
		err = readPump(ctx, c, rs, conn)
		middleware.LogWebSocketDisconnect(logger, r, code, sess.PlayerID, err)

		if errors.Is(err, errLeft) {
			c.Close(websocket.StatusNormalClosure, "left the room")
		}
	}
}

// readPump dispatches frames until the connection ends. It returns the
// error that ended it, or errLeft.
func readPump(ctx context.Context, c *websocket.Conn, rs *RoomServer, conn *RoomConnection) error {
	log := rs.Logger.WithFields(logrus.Fields{"room": conn.Room, "player": conn.PlayerID})
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteError(fmt.Errorf("invalid message: %w", err))
			continue
		}
		if err := handleRoomMessage(ctx, rs, conn, msg); err != nil {
			if errors.Is(err, errLeft) {
				return err
			}
			log.WithError(err).Debugf("%s rejected", msg.Type)
			conn.WriteError(err)
		}
	}
}

// handleRoomMessage runs one command. Successful commands answer through
// the hub broadcast, so only failures come back from here.
func handleRoomMessage(ctx context.Context, rs *RoomServer, conn *RoomConnection, msg clientMessage) error {
	svc, code, id := rs.Service, conn.Room, conn.PlayerID
	switch msg.Type {
	case "ready":
		ready := true
		if msg.Ready != nil {
			ready = *msg.Ready
		}
		return svc.SetReady(ctx, code, id, ready)
	case "unready":
		return svc.SetReady(ctx, code, id, false)
	case "start":
		return svc.Start(ctx, code, id)
	case "select_role":
		return svc.SelectRole(ctx, code, id, msg.Role)
	case "select_deck":
		return svc.SelectDeck(ctx, code, id, msg.Deck)
	case "revolution":
		return svc.ChooseRevolution(ctx, code, id, msg.Accept)
	case "play":
		return svc.Play(ctx, code, id, msg.Cards)
	case "pass":
		return svc.Pass(ctx, code, id)
	case "vote":
		return svc.Vote(ctx, code, id, msg.Approve)
	case "leave":
		// this socket closes normally; the hub drops the player's other sockets
		rs.Hub.Unregister(conn)
		if err := svc.Leave(ctx, code, id); err != nil {
			rs.Hub.Register(conn)
			return err
		}
		return errLeft
	case "state":
		g, err := svc.Room(ctx, code)
		if err != nil {
			return err
		}
		view := g.ViewFor(id)
		conn.Write(serverMessage{Type: "state", State: &view})
		return nil
	case "ping":
		conn.Write(serverMessage{Type: "pong"})
		return nil
	default:
		return fmt.Errorf("%w: unknown message type %q", errUnknownMessage, msg.Type)
	}
}

var errUnknownMessage = errors.New("unsupported message")

// writePump drains the connection's queue and keeps the socket alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *RoomConnection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing %s for %v: %v", msg.Type, conn.PlayerID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf("write to %v failed: %v", conn.PlayerID, err)
				}
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.Cancel()
				return
			}
		}
	}
}
