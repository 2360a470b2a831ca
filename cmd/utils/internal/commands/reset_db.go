package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
)

var postgresTables = []string{
	"order_status_log",
	"order_items",
	"orders",
	"menu_items",
	"tables",
	"restaurants",
}

var redisPatterns = []string{
	"cart:*",
	"cart-lock:*",
	"order-seq:*",
	"alerts:mute:*",
}

// ResetDB drops all order service data - USE WITH CAUTION
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Infof("DANGER: This will drop ALL Tableside order data!")
	logger.Infof("This action cannot be undone!")

	client, db, err := connectMongo(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	result := db.RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	if result.Err() != nil {
		logger.Infof("Failed to drop database %s (may not exist): %v", db.Name(), result.Err())
	} else {
		logger.Info("Database dropped", "database", db.Name())
	}

	pool, err := connectPostgres(ctx, config, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		for _, table := range postgresTables {
			if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
				return fmt.Errorf("drop table %s: %w", table, err)
			}
			logger.Info("Table dropped", "table", table)
		}
	}

	rdb, err := connectRedis(ctx, config, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		for _, pattern := range redisPatterns {
			n, err := deleteKeys(ctx, rdb, pattern)
			if err != nil {
				return err
			}
			logger.Info("Redis keys deleted", "pattern", pattern, "count", n)
		}
	}

	logger.Info("All order data has been dropped")
	return nil
}
