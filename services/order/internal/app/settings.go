package app

import (
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/services/order/internal/board"
	"github.com/appetiteclub/tableside/services/order/internal/cart"
)

const (
	driverMongo    = "mongo"
	driverPostgres = "postgres"
)

// settings is the typed view of the service configuration.
type settings struct {
	dbDriver      string
	redisAddr     string
	redisPassword string
	cartTTL       time.Duration
	natsURL       string
	streamEnabled bool
	amqpURL       string
	board         board.Config
	seedDemo      bool
}

// loadSettings reads every key through lookup. Malformed values fall back
// to their defaults and are logged.
func loadSettings(lookup func(key string) string, logger apt.Logger) settings {
	s := settings{
		dbDriver:      lookup("db.driver"),
		redisAddr:     lookup("redis.addr"),
		redisPassword: lookup("redis.password"),
		natsURL:       lookup("nats.url"),
		streamEnabled: lookup("nats.stream.enabled") == "true",
		amqpURL:       lookup("amqp.url"),
		seedDemo:      lookup("seeding.demo") == "true",
	}

	switch s.dbDriver {
	case driverMongo, driverPostgres:
	case "":
		s.dbDriver = driverMongo
	default:
		logger.Error("unknown db.driver, using mongo", "value", s.dbDriver)
		s.dbDriver = driverMongo
	}

	s.cartTTL = durationSetting(lookup, logger, "cart.ttl", cart.DefaultTTL)
	s.board = board.Config{
		Tick:          durationSetting(lookup, logger, "board.tick", 15*time.Second),
		StaleAfter:    durationSetting(lookup, logger, "board.stale.after", 20*time.Minute),
		RetryAttempts: intSetting(lookup, logger, "board.retry.attempts", 3),
		RetryBackoff:  durationSetting(lookup, logger, "board.retry.backoff", 200*time.Millisecond),
		IdleAfter:     durationSetting(lookup, logger, "board.idle.after", 30*time.Minute),
	}
	return s
}

func durationSetting(lookup func(string) string, logger apt.Logger, key string, def time.Duration) time.Duration {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Error("invalid duration setting, using default", "key", key, "value", raw, "default", def.String())
		return def
	}
	return d
}

func intSetting(lookup func(string) string, logger apt.Logger, key string, def int) int {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Error("invalid integer setting, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}
