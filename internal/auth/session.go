// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// privateKey and publicKey are used for signing and verifying session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpire is how long a token stays valid; zero means it never expires.
	tokenExpire time.Duration
)

var ErrInvalidToken = errors.New("invalid session token")

// Session is what a token proves: which seat in which room the bearer holds.
type Session struct {
	PlayerID models.PlayerID
	RoomCode models.RoomCode
}

type claims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// Init generates a fresh ed25519 key pair at runtime. Tokens from a previous
// process stop verifying.
func Init(expire time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	tokenExpire = expire
	return nil
}

// InitFromPath reads raw ed25519 private/public keys from file.
func InitFromPath(privatePath, publicPath string, expire time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("key files must hold raw ed25519 keys (%d and %d bytes)", ed25519.PrivateKeySize, ed25519.PublicKeySize)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenExpire = expire
	return nil
}

// CreateJWT signs a token with "sub" = playerID and "room" = roomCode.
func CreateJWT(playerID models.PlayerID, roomCode models.RoomCode) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth keys not initialized")
	}
	now := time.Now()
	c := claims{
		Room: string(roomCode),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  string(playerID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenExpire > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(tokenExpire))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, c)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token string and returns the session it carries.
func AuthenticateJWT(tokenString string) (Session, error) {
	var c claims
	t, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return Session{}, ErrInvalidToken
	}

	playerID, err := models.ParsePlayerID(c.Subject)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	roomCode, err := models.ParseRoomCode(c.Room)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Session{PlayerID: playerID, RoomCode: roomCode}, nil
}
