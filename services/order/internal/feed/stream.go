package feed

import (
	"context"

	"github.com/appetiteclub/tableside/pkg/event"
)

const (
	MessageAdded   = "added"
	MessageUpdated = "updated"
	MessageDeleted = "deleted"
	MessageResync  = "resync"
)

// Message is the transport-neutral form used by the SSE and gRPC streams.
type Message struct {
	Type  string
	Event event.OrderEvent
}

// Payload returns the JSON body sent to remote displays. Resync carries
// only the restaurant id.
func (m Message) Payload(restaurantID string) ([]byte, error) {
	if m.Type == MessageResync {
		return []byte(`{"event_type":"order.resync","restaurant_id":"` + restaurantID + `"}`), nil
	}
	return m.Event.Encode()
}

// Stream subscribes to restaurantID and exposes the callbacks as a channel.
// The channel is closed after ctx is done and the subscription released.
func (h *Hub) Stream(ctx context.Context, restaurantID string) <-chan Message {
	out := make(chan Message)
	ctx, cancel := context.WithCancel(ctx)

	send := func(m Message) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}

	sub := h.Subscribe(restaurantID, Handlers{
		OnAdded: func(e event.OrderAddedEvent) {
			send(Message{Type: MessageAdded, Event: event.OrderEvent{Kind: e.EventType, Added: &e}})
		},
		OnUpdated: func(e event.OrderUpdatedEvent) {
			send(Message{Type: MessageUpdated, Event: event.OrderEvent{Kind: e.EventType, Updated: &e}})
		},
		OnDeleted: func(e event.OrderDeletedEvent) {
			send(Message{Type: MessageDeleted, Event: event.OrderEvent{Kind: e.EventType, Deleted: &e}})
		},
		OnResync: func() {
			send(Message{Type: MessageResync})
		},
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-sub.Done():
			cancel()
		}
		sub.Unsubscribe()
		cancel()
		close(out)
	}()

	return out
}
