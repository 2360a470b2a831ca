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

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection(ordersCollection),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, newOrderDoc(o)); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var doc orderDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return doc.toOrder(), nil
}

func (r *OrderRepo) List(ctx context.Context, filter order.OrderFilter) ([]*order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, orderFilterDoc(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	result := make([]*order.Order, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toOrder())
	}
	return result, nil
}

func orderFilterDoc(f order.OrderFilter) bson.M {
	filter := bson.M{}
	if f.RestaurantID != uuid.Nil {
		filter["restaurant_id"] = f.RestaurantID.String()
	}
	if f.TableID != uuid.Nil {
		filter["table_id"] = f.TableID.String()
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

// Update writes the mutable fields guarded by the stored version. A miss is
// told apart as conflict or not found with a second lookup.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order, expectedVersion int) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	filter := bson.M{"_id": o.ID.String(), "version": expectedVersion}
	update := bson.M{"$set": bson.M{
		"status":       o.Status,
		"priority":     o.Priority,
		"version":      o.Version,
		"updated_at":   o.UpdatedAt,
		"started_at":   o.StartedAt,
		"ready_at":     o.ReadyAt,
		"served_at":    o.ServedAt,
		"completed_at": o.CompletedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": o.ID.String()})
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", o.ID, order.ErrNotFound)
	}
	return fmt.Errorf("order %s at version %d: %w", o.OrderNumber, expectedVersion, order.ErrVersionConflict)
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}

	return nil
}
