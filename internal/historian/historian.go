// Package historian drains room events from the queue and persists them in
// batches, recording rooms that go quiet as abandoned.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/sirupsen/logrus"
)

// Queue yields queued events; false means the wait timed out empty.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (models.RoomEvent, bool, error)
}

// Sink stores a batch of events atomically.
type Sink interface {
	StoreEvents(ctx context.Context, events []models.RoomEvent) error
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	BatchSize     int
	FlushDelay    time.Duration
	PopTimeout    time.Duration
	Inactivity    time.Duration // how long a room may go quiet before it counts as abandoned
	SweepInterval time.Duration
	MaxPending    int // events kept for retry after failed flushes; older ones are dropped
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		FlushDelay:    500 * time.Millisecond,
		PopTimeout:    3 * time.Second,
		Inactivity:    10 * time.Minute,
		SweepInterval: time.Minute,
		MaxPending:    1000,
	}
}

type activity struct {
	at    time.Time
	phase models.Phase
	match int
}

type Service struct {
	queue  Queue
	sink   Sink
	logger *logrus.Logger
	cfg    Config
	now    func() time.Time

	batchMu sync.Mutex
	batch   []models.RoomEvent

	activityMu   sync.Mutex
	lastActivity map[models.RoomCode]activity
}

func New(queue Queue, sink Sink, logger *logrus.Logger, cfg Config) *Service {
	return &Service{
		queue:        queue,
		sink:         sink,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
		batch:        make([]models.RoomEvent, 0, cfg.BatchSize),
		lastActivity: make(map[models.RoomCode]activity),
	}
}

// Run consumes the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.logger.Info("historian started")
	s.readLoop(ctx)
	wg.Wait()

	// ctx is done; the final flush gets its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		default:
			ev, ok, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, cache.ErrBadEvent) {
					s.logger.WithError(err).Warn("skipping undecodable event")
					continue
				}
				s.logger.WithError(err).Error("queue pop failed")
				select {
				case <-ctx.Done():
				case <-time.After(s.cfg.PopTimeout):
				}
				continue
			}
			if !ok {
				continue
			}
			s.track(ev)
			if s.append(ev) {
				s.flush(ctx)
			}
		}
	}
}

// track records the room's latest activity. Closed rooms stop being tracked.
func (s *Service) track(ev models.RoomEvent) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	if ev.Type == models.EventRoomClosed || ev.Type == models.EventRoomAbandoned {
		delete(s.lastActivity, ev.Room)
		return
	}
	s.lastActivity[ev.Room] = activity{at: s.now(), phase: ev.Phase, match: ev.Match}
}

// append adds ev to the batch and reports whether the batch is full.
func (s *Service) append(ev models.RoomEvent) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, ev)
	return len(s.batch) >= s.cfg.BatchSize
}

// flush stores the pending batch. A failed batch stays pending for the next flush.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}

	if err := s.sink.StoreEvents(ctx, s.batch); err != nil {
		if over := len(s.batch) - s.cfg.MaxPending; s.cfg.MaxPending > 0 && over > 0 {
			s.batch = append(s.batch[:0], s.batch[over:]...)
			s.logger.WithField("dropped", over).Warn("event backlog full, dropping oldest")
		}
		s.logger.WithError(err).WithField("pending", len(s.batch)).Error("flush failed")
		return
	}
	s.logger.Debugf("flushed %d events", len(s.batch))
	s.batch = s.batch[:0]
}

// inactivityLoop periodically records rooms idle beyond the threshold as abandoned.
func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	now := s.now()
	var abandoned []models.RoomEvent

	s.activityMu.Lock()
	for code, act := range s.lastActivity {
		if now.Sub(act.at) > s.cfg.Inactivity {
			abandoned = append(abandoned, models.NewRoomEvent(code, models.EventRoomAbandoned, act.phase, act.match,
				map[string]interface{}{"idleSince": act.at.UTC()}))
			delete(s.lastActivity, code)
		}
	}
	s.activityMu.Unlock()

	for _, ev := range abandoned {
		s.logger.WithField("room", ev.Room).Info("room marked abandoned after inactivity")
		s.append(ev)
	}
}

// Tracked reports how many rooms are being watched for inactivity.
func (s *Service) Tracked() int {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	return len(s.lastActivity)
}
