package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "daifugo:room:"
	roomIndexKey  = "daifugo:rooms"
)

// RoomRepository keeps room snapshots as JSON strings, one key per room,
// plus a set indexing the live codes. Idle rooms expire after ttl.
type RoomRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRoomRepository returns a repository; a zero ttl keeps rooms until deleted.
func NewRoomRepository(rdb *redis.Client, ttl time.Duration) *RoomRepository {
	return &RoomRepository{rdb: rdb, ttl: ttl}
}

func roomKey(code models.RoomCode) string {
	return roomKeyPrefix + string(code)
}

func (r *RoomRepository) Load(ctx context.Context, code models.RoomCode) (*game.Game, error) {
	data, err := r.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", game.ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return game.Unmarshal(data, nil)
}

// Create stores a new room with SET NX so a taken code is never overwritten.
func (r *RoomRepository) Create(ctx context.Context, g *game.Game) error {
	data, err := game.Marshal(g)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, roomKey(g.Code()), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", g.Code(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrRoomExists, g.Code())
	}
	if err := r.rdb.SAdd(ctx, roomIndexKey, string(g.Code())).Err(); err != nil {
		return fmt.Errorf("index room %s: %w", g.Code(), err)
	}
	return nil
}

// Save overwrites an existing room with SET XX and refreshes its ttl.
func (r *RoomRepository) Save(ctx context.Context, g *game.Game) error {
	data, err := game.Marshal(g)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetXX(ctx, roomKey(g.Code()), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("save room %s: %w", g.Code(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrRoomNotFound, g.Code())
	}
	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, code models.RoomCode) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(code))
		pipe.SRem(ctx, roomIndexKey, string(code))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// List returns the indexed codes whose snapshot still exists, pruning expired ones.
func (r *RoomRepository) List(ctx context.Context) ([]models.RoomCode, error) {
	members, err := r.rdb.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	codes := make([]models.RoomCode, 0, len(members))
	for _, m := range members {
		code := models.RoomCode(m)
		n, err := r.rdb.Exists(ctx, roomKey(code)).Result()
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		if n == 0 {
			r.rdb.SRem(ctx, roomIndexKey, m)
			continue
		}
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}
