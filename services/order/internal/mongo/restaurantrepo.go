package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RestaurantRepo struct {
	collection *mongo.Collection
}

func NewRestaurantRepo(db *mongo.Database) *RestaurantRepo {
	return &RestaurantRepo{collection: db.Collection(restaurantsCollection)}
}

func (r *RestaurantRepo) Create(ctx context.Context, rest *order.Restaurant) error {
	if rest == nil {
		return fmt.Errorf("restaurant is nil")
	}
	if _, err := r.collection.InsertOne(ctx, newRestaurantDoc(rest)); err != nil {
		return fmt.Errorf("cannot create restaurant: %w", err)
	}
	return nil
}

func (r *RestaurantRepo) Get(ctx context.Context, id uuid.UUID) (*order.Restaurant, error) {
	var doc restaurantDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("restaurant %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get restaurant: %w", err)
	}
	return doc.toRestaurant(), nil
}

func (r *RestaurantRepo) List(ctx context.Context) ([]*order.Restaurant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("cannot list restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []restaurantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode restaurants: %w", err)
	}

	result := make([]*order.Restaurant, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toRestaurant())
	}
	return result, nil
}

func (r *RestaurantRepo) Save(ctx context.Context, rest *order.Restaurant) error {
	if rest == nil {
		return fmt.Errorf("restaurant is nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rest.ID.String()}, newRestaurantDoc(rest))
	if err != nil {
		return fmt.Errorf("cannot update restaurant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("restaurant %s: %w", rest.ID, order.ErrNotFound)
	}
	return nil
}
