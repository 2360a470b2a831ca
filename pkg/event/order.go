package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// OrderChangesTopic prefixes the per-restaurant subject carrying order
	// mutations. Subscribers use OrderChangesWildcard to receive every
	// restaurant.
	OrderChangesTopic    = "orders.changes"
	OrderChangesWildcard = OrderChangesTopic + ".>"

	EventOrderAdded   = "order.added"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// OrderTopic returns the subject for one restaurant's order changes.
func OrderTopic(restaurantID string) string {
	return OrderChangesTopic + "." + restaurantID
}

// RestaurantFromTopic extracts the restaurant id from an order subject.
func RestaurantFromTopic(topic string) (string, bool) {
	prefix := OrderChangesTopic + "."
	if !strings.HasPrefix(topic, prefix) || len(topic) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(topic, prefix), true
}

// OrderEventMetadata is present on every order event.
type OrderEventMetadata struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RestaurantID string    `json:"restaurant_id"`
	OrderID      string    `json:"order_id"`
}

// OrderAddedEvent is deliberately minimal. Consumers needing customer name
// or line items fetch the order by id.
type OrderAddedEvent struct {
	OrderEventMetadata
	OrderNumber string `json:"order_number"`
	TableID     string `json:"table_id"`
	Status      string `json:"status"`
}

// OrderUpdatedEvent carries the committed status and version so consumers
// can apply it without a fetch.
type OrderUpdatedEvent struct {
	OrderEventMetadata
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Priority       string    `json:"priority,omitempty"`
	Version        int       `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type OrderDeletedEvent struct {
	OrderEventMetadata
}

// OrderEvent is the decoded form of an order change. Exactly one of the
// pointers is set, matching Kind.
type OrderEvent struct {
	Kind    string
	Added   *OrderAddedEvent
	Updated *OrderUpdatedEvent
	Deleted *OrderDeletedEvent
}

// RestaurantID returns the restaurant of whichever variant is set.
func (e OrderEvent) RestaurantID() string {
	return e.Metadata().RestaurantID
}

func (e OrderEvent) Metadata() OrderEventMetadata {
	switch {
	case e.Added != nil:
		return e.Added.OrderEventMetadata
	case e.Updated != nil:
		return e.Updated.OrderEventMetadata
	case e.Deleted != nil:
		return e.Deleted.OrderEventMetadata
	default:
		return OrderEventMetadata{}
	}
}

// DecodeOrderEvent reads the event_type discriminator and decodes the
// matching variant.
func DecodeOrderEvent(data []byte) (OrderEvent, error) {
	var meta OrderEventMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return OrderEvent{}, fmt.Errorf("cannot decode order event: %w", err)
	}
	if meta.OrderID == "" || meta.RestaurantID == "" {
		return OrderEvent{}, fmt.Errorf("order event %q missing order or restaurant id", meta.EventType)
	}

	evt := OrderEvent{Kind: meta.EventType}
	switch meta.EventType {
	case EventOrderAdded:
		evt.Added = &OrderAddedEvent{}
		if err := json.Unmarshal(data, evt.Added); err != nil {
			return OrderEvent{}, fmt.Errorf("cannot decode %s: %w", meta.EventType, err)
		}
	case EventOrderUpdated:
		evt.Updated = &OrderUpdatedEvent{}
		if err := json.Unmarshal(data, evt.Updated); err != nil {
			return OrderEvent{}, fmt.Errorf("cannot decode %s: %w", meta.EventType, err)
		}
	case EventOrderDeleted:
		evt.Deleted = &OrderDeletedEvent{OrderEventMetadata: meta}
	default:
		return OrderEvent{}, fmt.Errorf("unknown order event type %q", meta.EventType)
	}
	return evt, nil
}

// Encode marshals whichever variant is set.
func (e OrderEvent) Encode() ([]byte, error) {
	switch {
	case e.Added != nil:
		return json.Marshal(e.Added)
	case e.Updated != nil:
		return json.Marshal(e.Updated)
	case e.Deleted != nil:
		return json.Marshal(e.Deleted)
	default:
		return nil, fmt.Errorf("empty order event")
	}
}
