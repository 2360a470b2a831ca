package order

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/tableside/pkg/event"
)

// changePublisher emits exactly one feed event per persisted mutation.
// Publishing is best effort: the write already happened, so a failure is
// logged and feed consumers recover on their next resync.
type changePublisher struct {
	publisher events.Publisher
	logger    apt.Logger
}

func (p changePublisher) added(ctx context.Context, o *Order) {
	p.publish(ctx, o, event.OrderEvent{
		Kind: event.EventOrderAdded,
		Added: &event.OrderAddedEvent{
			OrderEventMetadata: metadata(event.EventOrderAdded, o),
			OrderNumber:        o.OrderNumber,
			TableID:            o.TableID.String(),
			Status:             o.Status,
		},
	})
}

func (p changePublisher) updated(ctx context.Context, o *Order, previousStatus string) {
	p.publish(ctx, o, event.OrderEvent{
		Kind: event.EventOrderUpdated,
		Updated: &event.OrderUpdatedEvent{
			OrderEventMetadata: metadata(event.EventOrderUpdated, o),
			OrderNumber:        o.OrderNumber,
			Status:             o.Status,
			PreviousStatus:     previousStatus,
			Priority:           o.Priority,
			Version:            o.Version,
			UpdatedAt:          o.UpdatedAt,
		},
	})
}

func (p changePublisher) deleted(ctx context.Context, o *Order) {
	p.publish(ctx, o, event.OrderEvent{
		Kind:    event.EventOrderDeleted,
		Deleted: &event.OrderDeletedEvent{OrderEventMetadata: metadata(event.EventOrderDeleted, o)},
	})
}

func (p changePublisher) publish(ctx context.Context, o *Order, evt event.OrderEvent) {
	if p.publisher == nil {
		return
	}
	data, err := evt.Encode()
	if err != nil {
		p.logger.Error("cannot encode order event", "order_id", o.ID.String(), "event_type", evt.Kind, "error", err)
		return
	}
	topic := event.OrderTopic(o.RestaurantID.String())
	if err := p.publisher.Publish(ctx, topic, data); err != nil {
		p.logger.Error("cannot publish order event", "order_id", o.ID.String(), "topic", topic, "error", err)
		return
	}
	p.logger.Debug("order event published", "order_id", o.ID.String(), "event_type", evt.Kind, "version", o.Version)
}

func metadata(eventType string, o *Order) event.OrderEventMetadata {
	return event.OrderEventMetadata{
		EventType:    eventType,
		OccurredAt:   time.Now().UTC(),
		RestaurantID: o.RestaurantID.String(),
		OrderID:      o.ID.String(),
	}
}
