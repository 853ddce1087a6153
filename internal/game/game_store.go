package game

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jason-s-yu/daifugo/internal/models"
)

// Repository persists rooms between operations. Implementations store
// snapshots, so a loaded Game never aliases another caller's copy.
type Repository interface {
	Load(ctx context.Context, code models.RoomCode) (*Game, error)
	Create(ctx context.Context, g *Game) error
	Save(ctx context.Context, g *Game) error
	Delete(ctx context.Context, code models.RoomCode) error
	List(ctx context.Context) ([]models.RoomCode, error)
}

// GameStore is the in-memory Repository.
type GameStore struct {
	mu    sync.Mutex
	games map[models.RoomCode]Snapshot
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[models.RoomCode]Snapshot),
	}
}

func (s *GameStore) Load(_ context.Context, code models.RoomCode) (*Game, error) {
	s.mu.Lock()
	snap, exists := s.games[code]
	s.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return Restore(snap, nil)
}

// Create stores a new room, failing if the code is taken.
func (s *GameStore) Create(_ context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.Code()]; exists {
		return fmt.Errorf("%w: %s", ErrRoomExists, g.Code())
	}
	s.games[g.Code()] = g.Snapshot()
	return nil
}

func (s *GameStore) Save(_ context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.Code()]; !exists {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, g.Code())
	}
	s.games[g.Code()] = g.Snapshot()
	return nil
}

func (s *GameStore) Delete(_ context.Context, code models.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, code)
	return nil
}

// List returns every stored room code in sorted order.
func (s *GameStore) List(_ context.Context) ([]models.RoomCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]models.RoomCode, 0, len(s.games))
	for code := range s.games {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}
