package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/jason-s-yu/daifugo/internal/room"
)

const authCookie = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken finds the session token in the auth cookie, a bearer header, or the token query parameter.
func requestToken(r *http.Request) string {
	if token := extractCookieToken(r.Header.Get("Cookie"), authCookie); token != "" {
		return token
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return bearer
	}
	return r.URL.Query().Get("token")
}

// categoryStatus maps domain error categories to HTTP statuses.
var categoryStatus = map[game.Category]int{
	game.CategoryStructural: http.StatusNotFound,
	game.CategoryState:      http.StatusConflict,
	game.CategoryInput:      http.StatusBadRequest,
	game.CategoryRule:       http.StatusUnprocessableEntity,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrWrongPassword):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidRoomCode), errors.Is(err, models.ErrEmptyNickname),
		errors.Is(err, models.ErrInvalidPlayerID):
		return http.StatusBadRequest
	}
	if status, ok := categoryStatus[game.CategoryOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
