package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/cmd/utils/internal/seeding"
	"github.com/appetiteclub/tableside/pkg/demo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ClearDemo removes the demo restaurant and everything that belongs to it
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, db, err := connectMongo(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := clearMongoDemo(ctx, db, logger); err != nil {
		return fmt.Errorf("clear mongo demo: %w", err)
	}

	pool, err := connectPostgres(ctx, config, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := clearPostgresDemo(ctx, pool, logger); err != nil {
			return fmt.Errorf("clear postgres demo: %w", err)
		}
	}

	rdb, err := connectRedis(ctx, config, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		if err := clearRedisDemo(ctx, rdb, logger); err != nil {
			return fmt.Errorf("clear redis demo: %w", err)
		}
	}

	return nil
}

func clearMongoDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	byRestaurant := bson.M{"restaurant_id": demo.RestaurantID.String()}

	for _, name := range []string{
		seeding.OrdersCollection,
		seeding.MenuItemsCollection,
		seeding.TablesCollection,
	} {
		result, err := db.Collection(name).DeleteMany(ctx, byRestaurant)
		if err != nil {
			return fmt.Errorf("delete demo %s: %w", name, err)
		}
		logger.Info("Deleted demo documents", "collection", name, "count", result.DeletedCount)
	}

	if _, err := db.Collection(seeding.RestaurantsCollection).DeleteOne(ctx, bson.M{"_id": demo.RestaurantID.String()}); err != nil {
		return fmt.Errorf("delete demo restaurant: %w", err)
	}

	tracker, err := db.Collection(seeding.SeedsCollection).DeleteOne(ctx, bson.M{"_id": demo.SeedID})
	if err != nil {
		return fmt.Errorf("delete seed tracker: %w", err)
	}
	logger.Info("Cleared seed tracker", "deleted", tracker.DeletedCount)
	return nil
}

// clearPostgresDemo relies on ON DELETE CASCADE for tables, menu items and
// order lines.
func clearPostgresDemo(ctx context.Context, pool *pgxpool.Pool, logger apt.Logger) error {
	tag, err := pool.Exec(ctx, `DELETE FROM orders WHERE restaurant_id = $1`, demo.RestaurantID)
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", tag.RowsAffected())

	if _, err := pool.Exec(ctx, `DELETE FROM restaurants WHERE id = $1`, demo.RestaurantID); err != nil {
		return fmt.Errorf("delete demo restaurant: %w", err)
	}
	return nil
}

func clearRedisDemo(ctx context.Context, rdb *redis.Client, logger apt.Logger) error {
	keys := []string{
		"order-seq:" + demo.RestaurantID.String(),
		"alerts:mute:" + demo.RestaurantID.String(),
	}
	for _, t := range demo.Tables {
		keys = append(keys, "cart:"+t.ID.String())
	}

	n, err := rdb.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete demo keys: %w", err)
	}
	logger.Info("Deleted demo Redis keys", "count", n)
	return nil
}
