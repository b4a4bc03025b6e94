package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string        `env:"HTTP_PORT,default=8080"`
	APIBaseURL      string        `env:"API_BASE_URL,default=http://localhost:5000"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	StoreBackend  string `env:"STORE_BACKEND,default=sqlite"`
	SQLitePath    string `env:"SQLITE_PATH,default=storefront.db"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	MongoURI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDB       string `env:"MONGO_DB_NAME,default=storefront"`

	// KafkaBrokers is a comma separated list; empty disables order events.
	KafkaBrokers string `env:"KAFKA_BROKERS"`

	APIRateLimit float64 `env:"API_RATE_LIMIT,default=20"`
	APIRateBurst int     `env:"API_RATE_BURST,default=10"`
	LogLevel     string  `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case storage.BackendSQLite, storage.BackendMemory, storage.BackendRedis, storage.BackendMongo:
	case storage.BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.APIRateLimit <= 0 || c.APIRateBurst <= 0 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	return nil
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.StoreBackend,
		SQLitePath:    c.SQLitePath,
		PostgresDSN:   c.PostgresDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		MongoURI:      c.MongoURI,
		MongoDB:       c.MongoDB,
	}
}
