package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The utils read the same keys as the order service so one env file serves
// both.
const (
	defaultMongoURL = "mongodb://localhost:27017"
	defaultMongoDB  = "tableside"
)

func connectMongo(ctx context.Context, config *apt.Config, logger apt.Logger) (*mongo.Client, *mongo.Database, error) {
	mongoURL := config.GetStringOrDef("db.mongo.url", defaultMongoURL)
	dbName := config.GetStringOrDef("db.mongo.name", defaultMongoDB)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", dbName)
	return client, client.Database(dbName), nil
}

// connectPostgres returns nil when no Postgres URL is configured.
func connectPostgres(ctx context.Context, config *apt.Config, logger apt.Logger) (*pgxpool.Pool, error) {
	url, _ := config.GetString("db.postgres.url")
	if url == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("Connected to Postgres")
	return pool, nil
}

// connectRedis returns nil when no Redis address is configured.
func connectRedis(ctx context.Context, config *apt.Config, logger apt.Logger) (*redis.Client, error) {
	addr, _ := config.GetString("redis.addr")
	if addr == "" {
		return nil, nil
	}
	password, _ := config.GetString("redis.password")

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", addr)
	return rdb, nil
}

// deleteKeys removes every key matching pattern and returns how many were
// deleted.
func deleteKeys(ctx context.Context, rdb *redis.Client, pattern string) (int, error) {
	deleted := 0
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return deleted, nil
}
