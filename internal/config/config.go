// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/historian"
	"github.com/sirupsen/logrus"
)

// Store backends selectable with STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// DefaultEventQueue is the Redis list room events are pushed onto.
const DefaultEventQueue = "daifugo_room_events"

// Config holds process-wide settings read from the environment.
type Config struct {
	Port           string
	Store          string
	DatabaseURL    string
	RedisAddr      string
	RedisDB        int
	EventQueue     string
	PublishEvents  bool
	RoomTTL        time.Duration // zero keeps Redis rooms until they close
	StandingsDelay time.Duration
	TaxDelay       time.Duration
	TokenExpire    time.Duration // zero means tokens never expire
	PrivateKeyPath string
	PublicKeyPath  string
	LogLevel       logrus.Level

	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
	RoomInactivity      time.Duration
}

// Load reads the configuration. Unset variables fall back to defaults; malformed ones are errors.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Store:       getEnv("STORE", StoreMemory),
		DatabaseURL: databaseURL(),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		EventQueue:  getEnv("ROOM_EVENT_QUEUE", DefaultEventQueue),

		PrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}

	switch cfg.Store {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return Config{}, fmt.Errorf("STORE must be one of %s, %s, %s; got %q", StoreMemory, StorePostgres, StoreRedis, cfg.Store)
	}

	var err error
	if cfg.PublishEvents, err = getEnvBool("PUBLISH_EVENTS", false); err != nil {
		return Config{}, err
	}
	if cfg.RoomTTL, err = getEnvDuration("ROOM_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if (cfg.PrivateKeyPath == "") != (cfg.PublicKeyPath == "") {
		return Config{}, fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}

	defaults := game.DefaultRules()
	if cfg.StandingsDelay, err = getEnvDuration("STANDINGS_DELAY", defaults.StandingsPause()); err != nil {
		return Config{}, err
	}
	if cfg.TaxDelay, err = getEnvDuration("TAX_DELAY", defaults.TaxPause()); err != nil {
		return Config{}, err
	}

	switch expire := os.Getenv("TOKEN_EXPIRE_TIME"); expire {
	case "", "0", "never":
	default:
		if cfg.TokenExpire, err = time.ParseDuration(expire); err != nil {
			return Config{}, fmt.Errorf("failed to parse token expire time: %w", err)
		}
	}

	hist := historian.DefaultConfig()
	cfg.HistorianBatchSize = getEnvInt("HISTORIAN_BATCH_SIZE", hist.BatchSize)
	if cfg.HistorianBatchSize < 1 {
		return Config{}, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	if cfg.HistorianFlushDelay, err = getEnvDuration("HISTORIAN_FLUSH_DELAY", hist.FlushDelay); err != nil {
		return Config{}, err
	}
	if cfg.RoomInactivity, err = getEnvDuration("ROOM_INACTIVITY_TIMEOUT", hist.Inactivity); err != nil {
		return Config{}, err
	}

	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Rules returns the default per-room rules with the configured pauses.
func (c Config) Rules() game.Rules {
	rules := game.DefaultRules()
	rules.StandingsPauseSec = int(c.StandingsDelay / time.Second)
	rules.TaxPauseSec = int(c.TaxDelay / time.Second)
	return rules
}

// Historian returns the historian settings, defaults filled in.
func (c Config) Historian() historian.Config {
	hc := historian.DefaultConfig()
	hc.BatchSize = c.HistorianBatchSize
	hc.FlushDelay = c.HistorianFlushDelay
	hc.Inactivity = c.RoomInactivity
	return hc
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the POSTGRES_* and PG_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if os.Getenv("PG_HOST") == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		getEnv("PG_PORT", "5432"),
		os.Getenv("PG_DATABASE"),
	)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else returns the default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5").
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
