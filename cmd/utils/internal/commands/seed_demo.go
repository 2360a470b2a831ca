package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/cmd/utils/internal/seeding"
	"github.com/appetiteclub/tableside/pkg/demo"
	"go.mongodb.org/mongo-driver/bson"
)

// SeedDemo writes the demo restaurant into the order database
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, db, err := connectMongo(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	seeds := db.Collection(seeding.SeedsCollection)
	count, err := seeds.CountDocuments(ctx, bson.M{"_id": demo.SeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("Demo seeds already applied, skipping")
		return nil
	}

	if err := seeding.SeedRestaurant(ctx, db, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed demo restaurant: %w", err)
	}

	_, err = seeds.InsertOne(ctx, bson.M{
		"_id":         demo.SeedID,
		"description": "Demo restaurant with tables, menu and orders across the kitchen lanes",
		"applied_at":  time.Now().UTC(),
	})
	if err != nil {
		logger.Infof("Failed to mark seed as applied: %v", err)
	}

	logger.Info("Demo seeds applied",
		"restaurant_id", demo.RestaurantID.String(),
		"tables", len(demo.Tables),
		"menu_items", len(demo.Menu),
		"orders", len(demo.Orders),
	)
	return nil
}
