// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a client for addr and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// EventPublisher pushes room events onto a Redis list for the historian.
type EventPublisher struct {
	rdb   *redis.Client
	queue string
}

func NewEventPublisher(rdb *redis.Client, queue string) *EventPublisher {
	return &EventPublisher{rdb: rdb, queue: queue}
}

// Publish serializes ev to JSON and appends it to the queue.
func (p *EventPublisher) Publish(ctx context.Context, ev models.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomEvent: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// EventQueue is the consuming side of the event list.
type EventQueue struct {
	rdb   *redis.Client
	queue string
}

func NewEventQueue(rdb *redis.Client, queue string) *EventQueue {
	return &EventQueue{rdb: rdb, queue: queue}
}

// ErrBadEvent marks a queued payload that could not be decoded. It has already been removed.
var ErrBadEvent = errors.New("invalid room event")

// Pop blocks up to timeout for the next event. It reports false when the wait
// timed out with nothing queued.
func (q *EventQueue) Pop(ctx context.Context, timeout time.Duration) (models.RoomEvent, bool, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return models.RoomEvent{}, false, nil
	}
	if err != nil {
		return models.RoomEvent{}, false, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return models.RoomEvent{}, false, nil
	}
	var ev models.RoomEvent
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return models.RoomEvent{}, false, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	return ev, true, nil
}
