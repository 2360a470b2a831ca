package feed

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/nats-io/nats.go"
)

// MsgHandler receives a raw message and the subject it arrived on.
type MsgHandler = pkg.MessageHandler

// Source is anything that can push order change messages to the bridge.
type Source interface {
	Consume(ctx context.Context, handler MsgHandler) error
}

// SubjectSource reads core NATS subjects.
type SubjectSource struct {
	Subscriber *pkg.NATSSubscriber
	Topic      string
}

func (s SubjectSource) Consume(ctx context.Context, handler MsgHandler) error {
	return s.Subscriber.Subscribe(ctx, s.Topic, handler)
}

// StreamSource reads a JetStream consumer.
type StreamSource struct {
	Stream *pkg.NATSStream
}

func (s StreamSource) Consume(ctx context.Context, handler MsgHandler) error {
	return s.Stream.Consume(ctx, handler)
}

// Bridge moves order changes from the broker into the hub.
type Bridge struct {
	hub    *Hub
	source Source
	logger apt.Logger
}

func NewBridge(hub *Hub, source Source, logger apt.Logger) *Bridge {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Bridge{hub: hub, source: source, logger: logger.With("component", "feed-bridge")}
}

func (b *Bridge) Start(ctx context.Context) error {
	if err := b.source.Consume(ctx, b.handle); err != nil {
		return fmt.Errorf("cannot start feed bridge: %w", err)
	}
	b.logger.Info("feed bridge started")
	return nil
}

func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("feed bridge stopped")
	return nil
}

// handle drops malformed messages instead of returning an error, since a
// redelivery would fail the same way.
func (b *Bridge) handle(ctx context.Context, subject string, data []byte) error {
	evt, err := event.DecodeOrderEvent(data)
	if err != nil {
		b.logger.Error("dropping malformed order event", "subject", subject, "error", err)
		return nil
	}
	if restaurantID, ok := event.RestaurantFromTopic(subject); ok && restaurantID != evt.RestaurantID() {
		b.logger.Error("dropping order event on wrong subject", "subject", subject, "restaurant_id", evt.RestaurantID())
		return nil
	}
	b.hub.Dispatch(evt)
	return nil
}

// ResyncOnReconnect returns NATS options that force every hub subscriber
// to refetch after the connection drops, since messages sent meanwhile are
// lost.
func ResyncOnReconnect(hub *Hub, logger apt.Logger) []nats.Option {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Info("feed connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("feed connection restored, resyncing subscribers", "url", conn.ConnectedUrl())
			hub.Resync("")
		}),
	}
}
