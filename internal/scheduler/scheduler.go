// Package scheduler runs delayed room transitions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/sirupsen/logrus"
)

// Task is a delayed callback. Its error is logged, never returned to anyone.
type Task func(ctx context.Context) error

// Scheduler keeps at most one pending task per room; scheduling again replaces it.
type Scheduler struct {
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[models.RoomCode]*entry
	seq     uint64
	wg      sync.WaitGroup
}

type entry struct {
	id    uint64
	timer *time.Timer
}

func New(logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[models.RoomCode]*entry),
	}
}

// Schedule runs task once after delay, replacing any task pending for room.
func (s *Scheduler) Schedule(room models.RoomCode, delay time.Duration, name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if prev, ok := s.pending[room]; ok {
		if prev.timer.Stop() {
			s.wg.Done()
		}
	}

	s.seq++
	e := &entry{id: s.seq}
	s.wg.Add(1)
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if cur, ok := s.pending[room]; ok && cur.id == e.id {
			delete(s.pending, room)
		}
		s.mu.Unlock()
		s.run(room, name, task)
	})
	s.pending[room] = e

	s.logger.WithFields(logrus.Fields{"room": room, "task": name, "delay": delay}).Debug("scheduled")
}

// Cancel drops the task pending for room, if any.
func (s *Scheduler) Cancel(room models.RoomCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[room]; ok {
		if e.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, room)
	}
}

// Pending reports whether room has a task waiting to fire.
func (s *Scheduler) Pending(room models.RoomCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[room]
	return ok
}

// Stop cancels every pending task and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	for room, e := range s.pending {
		if e.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, room)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(room models.RoomCode, name string, task Task) {
	log := s.logger.WithFields(logrus.Fields{"room": room, "task": name})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("scheduled task panicked")
		}
	}()
	if err := task(s.ctx); err != nil {
		log.WithError(err).Warn("scheduled task failed")
		return
	}
	log.Debug("scheduled task done")
}
