// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
)

type createRoomRequest struct {
	Nickname string                 `json:"nickname"`
	Password string                 `json:"password,omitempty"`
	Rules    map[string]interface{} `json:"rules,omitempty"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
	Password string `json:"password,omitempty"`
}

// sessionResponse hands a player their seat and the token that proves it.
type sessionResponse struct {
	RoomCode models.RoomCode `json:"roomCode"`
	PlayerID models.PlayerID `json:"playerId"`
	Token    string          `json:"token"`
}

func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// issueSession signs a token for the seat and sets it as the auth cookie.
func issueSession(w http.ResponseWriter, code models.RoomCode, id models.PlayerID) (sessionResponse, error) {
	token, err := auth.CreateJWT(id, code)
	if err != nil {
		return sessionResponse{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionResponse{RoomCode: code, PlayerID: id, Token: token}, nil
}

// CreateRoomHandler opens a room and seats the caller as its owner.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createRoomRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}

		code, playerID, err := rs.Service.CreateRoom(r.Context(), req.Nickname, req.Password, req.Rules)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := issueSession(w, code, playerID)
		if err != nil {
			rs.Logger.WithError(err).Error("failed to sign session token")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// JoinRoomHandler seats the caller in an existing waiting room.
func JoinRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req joinRoomRequest
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, "bad join request payload", http.StatusBadRequest)
			return
		}
		code, err := models.ParseRoomCode(req.RoomCode)
		if err != nil {
			writeError(w, err)
			return
		}

		playerID, err := rs.Service.JoinRoom(r.Context(), code, req.Nickname, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		resp, err := issueSession(w, code, playerID)
		if err != nil {
			rs.Logger.WithError(err).Error("failed to sign session token")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ListRoomsHandler returns a summary of every open room.
func ListRoomsHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := rs.Service.List(r.Context())
		if err != nil {
			rs.Logger.WithError(err).Error("failed to list rooms")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// RoomHistoryHandler serves /room/history/{code}: the archive if one is
// configured, else the matches the live room remembers.
func RoomHistoryHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := models.ParseRoomCode(strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/history/"), "/"))
		if err != nil {
			writeError(w, err)
			return
		}

		var history []game.MatchRecord
		if rs.History != nil {
			history, err = rs.History.MatchHistory(r.Context(), code)
		} else {
			var g *game.Game
			if g, err = rs.Service.Room(r.Context(), code); err == nil {
				history = g.History()
			}
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if history == nil {
			history = []game.MatchRecord{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}
