// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/config"
	"github.com/jason-s-yu/daifugo/internal/database"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/handlers"
	"github.com/jason-s-yu/daifugo/internal/middleware"
	"github.com/jason-s-yu/daifugo/internal/room"
	"github.com/jason-s-yu/daifugo/internal/scheduler"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.NewLogger()

	if cfg.PrivateKeyPath != "" {
		err = auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpire)
	} else {
		logger.Warn("no JWT key paths set, sessions will not survive a restart")
		err = auth.Init(cfg.TokenExpire)
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to load signing keys")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repo    game.Repository
		history handlers.HistorySource
		opts    = []room.Option{room.WithRules(cfg.Rules())}
	)

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.WithError(err).Fatal("failed to prepare schema")
		}
		repo = database.NewRoomRepository(pool)
		history = database.NewEventSink(pool)
	case config.StoreRedis:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		repo = cache.NewRoomRepository(rdb, cfg.RoomTTL)
	default:
		repo = game.NewGameStore()
	}

	if cfg.PublishEvents {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to the event queue")
		}
		defer rdb.Close()
		opts = append(opts, room.WithPublisher(cache.NewEventPublisher(rdb, cfg.EventQueue)))
		logger.Infof("publishing room events to %s", cfg.EventQueue)
	}

	sched := scheduler.New(logger)
	defer sched.Stop()

	hub := handlers.NewHub(logger)
	svc := room.NewService(repo, sched, hub, logger, opts...)
	rs := handlers.NewRoomServer(svc, hub, logger)
	if history != nil {
		rs.History = history
	}

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// room endpoints
	mux.Handle("/room/create", logged(handlers.CreateRoomHandler(rs)))
	mux.Handle("/room/join", logged(handlers.JoinRoomHandler(rs)))
	mux.Handle("/room/list", logged(handlers.ListRoomsHandler(rs)))
	mux.Handle("/room/history/", logged(handlers.RoomHistoryHandler(rs)))

	// room websocket
	mux.Handle("/room/ws/", logged(handlers.RoomWSHandler(rs)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown did not complete cleanly")
		}
	}()

	logger.Infof("Running on %s with %s store", srv.Addr, cfg.Store)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server stopped")
}
