// Package room serializes player commands against stored rooms and fans the
// results out to connected players, the event queue, and the scheduler.
package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/jason-s-yu/daifugo/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// createAttempts bounds retries when a generated room code is already taken.
const createAttempts = 5

// ErrWrongPassword is returned when joining a private room with a bad password.
var ErrWrongPassword = errors.New("wrong room password")

// Broadcaster pushes a room's new state to its connected players. It is
// called with the room lock held and must not block.
type Broadcaster interface {
	Broadcast(g *game.Game)
	CloseRoom(code models.RoomCode)
	// DropPlayer disconnects a player who is no longer seated in the room.
	DropPlayer(code models.RoomCode, id models.PlayerID)
}

// Publisher receives an event for every room change.
type Publisher interface {
	Publish(ctx context.Context, ev models.RoomEvent) error
}

// Scheduler runs delayed transitions.
type Scheduler interface {
	Schedule(room models.RoomCode, delay time.Duration, name string, task scheduler.Task)
	Cancel(room models.RoomCode)
}

// Summary is the public listing of a room.
type Summary struct {
	Code       models.RoomCode `json:"roomCode"`
	Phase      models.Phase    `json:"phase"`
	Players    int             `json:"players"`
	MaxPlayers int             `json:"maxPlayers"`
	Owner      string          `json:"owner"`
	Private    bool            `json:"private"`
}

// Service is safe for concurrent use. Commands against one room run one at a time.
type Service struct {
	repo        game.Repository
	sched       Scheduler
	broadcaster Broadcaster
	publisher   Publisher
	logger      *logrus.Logger
	rules       game.Rules

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[models.RoomCode]*sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sends room events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRand seeds room codes and deals from rng.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithRules sets the rules new rooms start with.
func WithRules(rules game.Rules) Option {
	return func(s *Service) { s.rules = rules }
}

func NewService(repo game.Repository, sched Scheduler, b Broadcaster, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		sched:       sched,
		broadcaster: b,
		logger:      logger,
		rules:       game.DefaultRules(),
		locks:       make(map[models.RoomCode]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func (s *Service) lock(code models.RoomCode) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[code] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *Service) newRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

// CreateRoom opens a room with a fresh code and seats its owner. A non-empty
// password makes the room private.
func (s *Service) CreateRoom(ctx context.Context, nickname, password string, overrides map[string]interface{}) (models.RoomCode, models.PlayerID, error) {
	rules, err := game.ParseRules(overrides, s.rules)
	if err != nil {
		return "", "", err
	}
	var hash string
	if password != "" {
		if hash, err = auth.HashPassword(password); err != nil {
			return "", "", err
		}
	}
	playerID := models.PlayerID(uuid.NewString())

	for attempt := 0; attempt < createAttempts; attempt++ {
		rng := s.newRand()
		code := models.NewRoomCode(rng)
		g := game.NewGame(code, rules, rng)
		g.SetPasswordHash(hash)
		if err := g.AddPlayer(playerID, nickname); err != nil {
			return "", "", err
		}
		err := s.repo.Create(ctx, g)
		if errors.Is(err, game.ErrRoomExists) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		s.publish(ctx, g, models.EventRoomCreated, "", playerID, nil)
		s.logger.WithFields(logrus.Fields{"room": code, "player": playerID}).Info("room created")
		return code, playerID, nil
	}
	return "", "", fmt.Errorf("no free room code after %d attempts", createAttempts)
}

// JoinRoom seats a new player in a waiting room.
func (s *Service) JoinRoom(ctx context.Context, code models.RoomCode, nickname, password string) (models.PlayerID, error) {
	playerID := models.PlayerID(uuid.NewString())
	_, err := s.mutate(ctx, code, playerID, models.EventPlayerJoined, "", func(g *game.Game) error {
		if g.Private() {
			ok, err := auth.VerifyPassword(password, g.PasswordHash())
			if err != nil {
				return err
			}
			if !ok {
				return ErrWrongPassword
			}
		}
		return g.AddPlayer(playerID, nickname)
	})
	if err != nil {
		return "", err
	}
	return playerID, nil
}

// Leave removes a player. The last player out closes the room.
func (s *Service) Leave(ctx context.Context, code models.RoomCode, id models.PlayerID) error {
	unlock := s.lock(code)
	defer unlock()

	g, err := s.repo.Load(ctx, code)
	if err != nil {
		return err
	}
	prev := g.Phase()
	if err := g.RemovePlayer(id); err != nil {
		return err
	}

	if g.PlayerCount() == 0 {
		s.sched.Cancel(code)
		if err := s.repo.Delete(ctx, code); err != nil {
			return err
		}
		s.publish(ctx, g, models.EventRoomClosed, "", id, nil)
		s.broadcaster.CloseRoom(code)
		s.logger.WithField("room", code).Info("room closed")
		return nil
	}

	// the leaver may have been the last vote outstanding
	if g.Phase() == models.PhaseGameEnd {
		if err := settleVote(g); err != nil {
			return err
		}
	}

	if err := s.repo.Save(ctx, g); err != nil {
		return err
	}
	s.publish(ctx, g, models.EventPlayerLeft, "", id, nil)
	s.broadcaster.DropPlayer(code, id)
	s.afterChange(ctx, prev, g)
	s.broadcaster.Broadcast(g)
	return nil
}

// Room loads a room for reading.
func (s *Service) Room(ctx context.Context, code models.RoomCode) (*game.Game, error) {
	return s.repo.Load(ctx, code)
}

// List summarizes every stored room.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	codes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(codes))
	for _, code := range codes {
		g, err := s.repo.Load(ctx, code)
		if errors.Is(err, game.ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sum := Summary{
			Code:       code,
			Phase:      g.Phase(),
			Players:    g.PlayerCount(),
			MaxPlayers: g.Rules().MaxPlayers,
			Private:    g.Private(),
		}
		if owner, ok := g.Player(g.OwnerID()); ok {
			sum.Owner = owner.Nickname
		}
		out = append(out, sum)
	}
	return out, nil
}

// mutate runs op on the stored room under the room lock, then saves,
// publishes, schedules follow-ups, and broadcasts.
func (s *Service) mutate(ctx context.Context, code models.RoomCode, actor models.PlayerID, eventType, action string, op func(g *game.Game) error) (*game.Game, error) {
	unlock := s.lock(code)
	defer unlock()

	g, err := s.repo.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	prev := g.Phase()
	if err := op(g); err != nil {
		s.logger.WithFields(logrus.Fields{
			"room":     code,
			"player":   actor,
			"action":   action,
			"category": game.CategoryOf(err),
		}).WithError(err).Debug("command rejected")
		return nil, err
	}
	if err := s.repo.Save(ctx, g); err != nil {
		return nil, err
	}

	s.publish(ctx, g, eventType, action, actor, nil)
	s.afterChange(ctx, prev, g)
	s.broadcaster.Broadcast(g)
	return g, nil
}

func (s *Service) action(ctx context.Context, code models.RoomCode, actor models.PlayerID, name string, op func(g *game.Game) error) error {
	_, err := s.mutate(ctx, code, actor, models.EventAction, name, op)
	return err
}

// afterChange reacts to phase changes: it schedules the timed transitions and
// reports finished and archived matches.
func (s *Service) afterChange(ctx context.Context, prev models.Phase, g *game.Game) {
	cur := g.Phase()
	if cur == prev {
		return
	}
	s.logger.WithFields(logrus.Fields{"room": g.Code(), "from": prev, "to": cur}).Info("phase changed")

	switch cur {
	case models.PhaseRoleSelectionComplete:
		if prev == models.PhaseGameEnd {
			if history := g.History(); len(history) > 0 {
				s.publish(ctx, g, models.EventMatchArchived, "", "", history[len(history)-1])
			}
		}
		s.scheduleTransition(g, g.Rules().StandingsPause(), "begin_card_selection", models.PhaseRoleSelectionComplete,
			(*game.Game).BeginCardSelection)
	case models.PhaseTax:
		s.scheduleTransition(g, g.Rules().TaxPause(), "finish_tax", models.PhaseTax, (*game.Game).FinishTaxPhase)
	case models.PhaseGameEnd:
		s.sched.Cancel(g.Code())
		s.publish(ctx, g, models.EventMatchEnded, "", "", map[string]interface{}{
			"finishedOrder": g.FinishedOrder(),
			"stats":         g.Stats(),
		})
	case models.PhaseWaiting:
		s.sched.Cancel(g.Code())
	}
}

// scheduleTransition runs step after delay if the room is still in phase for
// the same match; otherwise the task does nothing.
func (s *Service) scheduleTransition(g *game.Game, delay time.Duration, name string, phase models.Phase, step func(*game.Game) error) {
	code, match := g.Code(), g.MatchCount()
	s.sched.Schedule(code, delay, name, func(ctx context.Context) error {
		_, err := s.mutate(ctx, code, "", models.EventAction, name, func(g *game.Game) error {
			if g.Phase() != phase || g.MatchCount() != match {
				return errStale
			}
			return step(g)
		})
		if errors.Is(err, errStale) || errors.Is(err, game.ErrRoomNotFound) {
			return nil
		}
		return err
	})
}

var errStale = errors.New("room moved on before the scheduled step")

// publish sends an event if a publisher is configured. Failures are logged.
func (s *Service) publish(ctx context.Context, g *game.Game, eventType, action string, actor models.PlayerID, payload interface{}) {
	if s.publisher == nil {
		return
	}
	ev := models.NewRoomEvent(g.Code(), eventType, g.Phase(), g.MatchCount(), payload)
	ev.Action = action
	ev.PlayerID = actor
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WithFields(logrus.Fields{"room": g.Code(), "event": eventType}).WithError(err).Warn("publish failed")
	}
}
