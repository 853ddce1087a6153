package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := ConnectRedis(context.Background(), mr.Addr(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestConnectRedisFails(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "127.0.0.1:1", 0)
	assert.Error(t, err)
}

func TestRoomRepository(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	repo := NewRoomRepository(rdb, time.Hour)

	_, err := repo.Load(ctx, "ABCDEF")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	g := game.NewGame("ABCDEF", game.DefaultRules(), nil)
	require.NoError(t, g.AddPlayer("host", "Host"))
	assert.ErrorIs(t, repo.Save(ctx, g), game.ErrRoomNotFound)
	require.NoError(t, repo.Create(ctx, g))
	assert.ErrorIs(t, repo.Create(ctx, g), game.ErrRoomExists)
	assert.Equal(t, time.Hour, mr.TTL(roomKey("ABCDEF")))

	require.NoError(t, g.SetReady("host", true))
	require.NoError(t, repo.Save(ctx, g))
	loaded, err := repo.Load(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), loaded.Snapshot())

	other := game.NewGame("ZZZ222", game.DefaultRules(), nil)
	require.NoError(t, repo.Create(ctx, other))
	codes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.RoomCode{"ABCDEF", "ZZZ222"}, codes)

	mr.FastForward(2 * time.Hour)
	codes, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes, "expired rooms drop out of the index")

	require.NoError(t, repo.Create(ctx, g))
	require.NoError(t, repo.Delete(ctx, "ABCDEF"))
	_, err = repo.Load(ctx, "ABCDEF")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestEventQueueRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	pub := NewEventPublisher(rdb, "events")
	queue := NewEventQueue(rdb, "events")

	ev := models.NewRoomEvent("ABCDEF", models.EventAction, models.PhasePlaying, 2, map[string]int{"cards": 2})
	ev.Action = "play"
	ev.PlayerID = "p1"
	require.NoError(t, pub.Publish(ctx, ev))

	got, ok, err := queue.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "play", got.Action)
	assert.JSONEq(t, `{"cards":2}`, string(got.Payload))
	assert.True(t, ev.Timestamp.Equal(got.Timestamp))

	_, ok, err = queue.Pop(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "an empty queue times out quietly")

	_, err = mr.Lpush("events", "{not json")
	require.NoError(t, err)
	_, ok, err = queue.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, ErrBadEvent)
	assert.False(t, ok)
}
