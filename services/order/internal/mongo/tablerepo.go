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

type TableRepo struct {
	collection *mongo.Collection
}

func NewTableRepo(db *mongo.Database) *TableRepo {
	return &TableRepo{collection: db.Collection(tablesCollection)}
}

func (r *TableRepo) Create(ctx context.Context, t *order.Table) error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}
	if _, err := r.collection.InsertOne(ctx, newTableDoc(t)); err != nil {
		return fmt.Errorf("cannot create table: %w", err)
	}
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*order.Table, error) {
	var doc tableDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("table %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return doc.toTable(), nil
}

func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*order.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"restaurant_id": restaurantID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []tableDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	result := make([]*order.Table, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toTable())
	}
	return result, nil
}

func (r *TableRepo) Save(ctx context.Context, t *order.Table) error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID.String()}, newTableDoc(t))
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("table %s: %w", t.ID, order.ErrNotFound)
	}
	return nil
}
