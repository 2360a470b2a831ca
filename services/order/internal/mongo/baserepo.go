package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection      = "orders"
	restaurantsCollection = "restaurants"
	tablesCollection      = "tables"
	menuItemsCollection   = "menu_items"
)

type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	connString := r.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := r.config.GetStringOrDef("db.mongo.name", "tableside")

	clientOptions := options.Client().ApplyURI(connString).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	if err := r.ensureIndexes(ctx); err != nil {
		return err
	}

	r.logger.Info("connected to MongoDB", "database", dbName)
	return nil
}

// ensureIndexes covers the board and listing queries: active orders of a
// restaurant, orders of a table and per-restaurant catalog lookups.
func (r *BaseRepo) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		ordersCollection: {
			{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "table_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "restaurant_id", Value: 1}, {Key: "order_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		tablesCollection:    {{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "number", Value: 1}}}},
		menuItemsCollection: {{Keys: bson.D{{Key: "restaurant_id", Value: 1}}}},
	}

	for coll, models := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("disconnected from MongoDB")
	}
	return nil
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}
