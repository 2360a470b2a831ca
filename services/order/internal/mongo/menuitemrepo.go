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

type MenuItemRepo struct {
	collection *mongo.Collection
}

func NewMenuItemRepo(db *mongo.Database) *MenuItemRepo {
	return &MenuItemRepo{collection: db.Collection(menuItemsCollection)}
}

func (r *MenuItemRepo) Create(ctx context.Context, m *order.MenuItem) error {
	if m == nil {
		return fmt.Errorf("menu item is nil")
	}
	if _, err := r.collection.InsertOne(ctx, newMenuItemDoc(m)); err != nil {
		return fmt.Errorf("cannot create menu item: %w", err)
	}
	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*order.MenuItem, error) {
	var doc menuItemDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("menu item %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return doc.toMenuItem(), nil
}

func (r *MenuItemRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*order.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"restaurant_id": restaurantID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []menuItemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}

	result := make([]*order.MenuItem, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toMenuItem())
	}
	return result, nil
}
