package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	Port            string
	StoreDriver     string
	DBPath          string
	MongoURI        string
	MongoDB         string
	TokenSecret     string
	TokenTTL        time.Duration
	PostLifetime    time.Duration
	StoreTimeout    time.Duration
	StoreAttempts   int
	RedisURL        string
	RateLimitPerMin int
	RabbitURL       string
	EventsExchange  string
	ShutdownTimeout time.Duration
}

const (
	DriverBadger = "badger"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// DefaultTokenSecret is only acceptable in the dev environment.
const DefaultTokenSecret = "default_secret_key"

var ErrDefaultSecret = errors.New("TOKEN_SECRET must be set outside the dev environment")

// Load reads an optional .env file, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	return Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            getenv("APP_PORT", "8080"),
		StoreDriver:     getenv("STORE_DRIVER", DriverBadger),
		DBPath:          getenv("DB_PATH", "data/badger"),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "postwall"),
		TokenSecret:     getenv("TOKEN_SECRET", DefaultTokenSecret),
		TokenTTL:        duration(getenv("TOKEN_TTL", "24h"), 24*time.Hour),
		PostLifetime:    duration(getenv("POST_LIFETIME", "5m"), 5*time.Minute),
		StoreTimeout:    duration(getenv("STORE_TIMEOUT", "5s"), 5*time.Second),
		StoreAttempts:   atoi(getenv("STORE_MAX_ATTEMPTS", "16"), 16),
		RedisURL:        getenv("REDIS_URL", ""),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "10"), 10),
		RabbitURL:       getenv("RABBIT_URL", ""),
		EventsExchange:  getenv("EVENTS_EXCHANGE", "posts.events"),
		ShutdownTimeout: duration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}
}

func (c Config) Addr() string { return ":" + c.Port }

// Validate rejects settings that are unsafe to serve with.
func (c Config) Validate() error {
	if c.Env != "dev" && c.TokenSecret == DefaultTokenSecret {
		return ErrDefaultSecret
	}
	return nil
}

func atoi(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func duration(s string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(s); err == nil && v > 0 {
		return v
	}
	return def
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
