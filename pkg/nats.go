package pkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
)

// MessageHandler receives a message together with the subject it arrived
// on, so wildcard subscribers can route by subject token.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

var (
	_ events.Publisher = (*NATSPublisher)(nil)
	_ events.Publisher = (*NATSStream)(nil)
)

func connect(url, name string, opts []nats.Option) (*nats.Conn, error) {
	all := append([]nats.Option{nats.Name(name)}, opts...)
	conn, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// NATSPublisher publishes on core NATS subjects. Delivery is at most once.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	conn, err := connect(url, "tableside-publisher", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(topic, msg); err != nil {
		return fmt.Errorf("cannot publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	defer p.conn.Close()
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("cannot flush NATS publisher: %w", err)
	}
	return nil
}

// NATSSubscriber delivers core NATS messages to handlers. Handler errors
// cannot be redelivered and are reported through OnError when set.
type NATSSubscriber struct {
	conn    *nats.Conn
	OnError func(subject string, err error)

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSSubscriber connects with the given options. Callers that need to
// react to reconnects pass nats.ReconnectHandler here.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	conn, err := connect(url, "tableside-subscriber", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: conn}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Subject, msg.Data); err != nil && s.OnError != nil {
			s.OnError(msg.Subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}
