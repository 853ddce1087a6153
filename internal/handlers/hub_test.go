package handlers

import (
	"context"
	"testing"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastSendsEachPlayerTheirView(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hub := NewHub(logger)

	g := game.NewGame("ABCDEF", game.DefaultRules(), nil)
	require.NoError(t, g.AddPlayer("p1", "One"))
	require.NoError(t, g.AddPlayer("p2", "Two"))

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c1 := newRoomConnection("p1", "ABCDEF", cancel)
	c2 := newRoomConnection("p2", "ABCDEF", cancel)
	elsewhere := newRoomConnection("p9", "ZZZ222", cancel)
	for _, c := range []*RoomConnection{c1, c2, elsewhere} {
		hub.Register(c)
	}
	assert.Equal(t, 2, hub.Connections("ABCDEF"))

	hub.Broadcast(g)
	for _, c := range []*RoomConnection{c1, c2} {
		msg := <-c.OutChan
		assert.Equal(t, "state", msg.Type)
		assert.Equal(t, models.RoomCode("ABCDEF"), msg.State.RoomCode)
	}
	assert.Empty(t, elsewhere.OutChan)

	// a full queue drops instead of blocking the room
	for i := 0; i < outBuffer; i++ {
		hub.Broadcast(g)
	}
	hub.Broadcast(g)
	assert.Len(t, c1.OutChan, outBuffer)
	assert.Equal(t, "dropping state for slow connection", hook.LastEntry().Message)

	hub.Unregister(c2)
	assert.Equal(t, 1, hub.Connections("ABCDEF"))
}

func TestHubCloseRoom(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	plain := newRoomConnection("p1", "ABCDEF", cancel)
	closed := make(chan struct{})
	socket := newRoomConnection("p2", "ABCDEF", func() {})
	socket.OnRoomClosed = func() { close(closed) }
	hub.Register(plain)
	hub.Register(socket)

	hub.CloseRoom("ABCDEF")
	assert.Error(t, ctx.Err())
	<-closed
	assert.Zero(t, hub.Connections("ABCDEF"))
}

func TestWriteErrorCarriesCategory(t *testing.T) {
	conn := newRoomConnection("p1", "ABCDEF", func() {})
	conn.WriteError(game.ErrNotYourTurn)
	msg := <-conn.OutChan
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, game.CategoryState, msg.Category)
	assert.Equal(t, game.ErrNotYourTurn.Error(), msg.Message)
}

func TestHubDropPlayer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)

	g := game.NewGame("ABCDEF", game.DefaultRules(), nil)
	require.NoError(t, g.AddPlayer("p2", "Two"))

	ctx, cancel := context.WithCancel(context.Background())
	tab := newRoomConnection("p1", "ABCDEF", cancel)
	lost := make(chan struct{})
	socket := newRoomConnection("p1", "ABCDEF", func() {})
	socket.OnSeatLost = func() { close(lost) }
	stays := newRoomConnection("p2", "ABCDEF", func() {})
	for _, c := range []*RoomConnection{tab, socket, stays} {
		hub.Register(c)
	}

	hub.DropPlayer("ABCDEF", "p1")
	assert.Error(t, ctx.Err())
	<-lost
	assert.Equal(t, 1, hub.Connections("ABCDEF"))

	hub.Broadcast(g)
	assert.Empty(t, tab.OutChan, "a player who left gets no more states")
	assert.Len(t, stays.OutChan, 1)
}
