// cmd/historian/main.go drains room events from the Redis queue into PostgreSQL
// and records rooms that go quiet as abandoned.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/config"
	"github.com/jason-s-yu/daifugo/internal/database"
	"github.com/jason-s-yu/daifugo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.NewLogger()
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL or PG_HOST must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.WithError(err).Fatal("failed to prepare schema")
	}

	hs := historian.New(cache.NewEventQueue(rdb, cfg.EventQueue), database.NewEventSink(pool), logger, cfg.Historian())
	logger.Infof("draining %s", cfg.EventQueue)
	hs.Run(ctx)
}
