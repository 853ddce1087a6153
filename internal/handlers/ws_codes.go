// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the room handler.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Session token missing, invalid or expired.
	SessionMismatchError  websocket.StatusCode = 3002 // Token was issued for another room.
	InvalidRoomCodeError  websocket.StatusCode = 3003 // Room in the URL does not exist or is malformed.
	SeatLostError         websocket.StatusCode = 3004 // Player is no longer seated in the room.
	RoomClosedError       websocket.StatusCode = 3005 // Room closed while connected.
)
