package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Options select and configure a Slots backend.
type Options struct {
	Backend       string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDB       string
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options) (Slots, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := OpenPostgres(opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr, Password: opts.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedisStore(client, ""), nil
	case BackendMongo:
		db, err := ConnectMongoDB(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(db), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
