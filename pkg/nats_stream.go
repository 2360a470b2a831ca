package pkg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamSetupTimeout = 10 * time.Second

// NATSStreamConfig describes one JetStream stream and the durable consumer
// this process reads it through.
type NATSStreamConfig struct {
	URL          string
	StreamName   string
	Topic        string // subject filter, wildcards allowed
	ConsumerName string // durable, one per service instance
	MaxAge       time.Duration
	MaxMsgs      int64 // <= 0 keeps every message until MaxAge
}

// NATSStream publishes to and consumes from a JetStream stream. Handler
// errors nak the message so JetStream redelivers it.
type NATSStream struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	OnError  func(err error)

	mu      sync.Mutex
	running jetstream.ConsumeContext
}

// NewNATSStream connects and creates or updates the stream and consumer.
func NewNATSStream(cfg NATSStreamConfig, opts ...nats.Option) (*NATSStream, error) {
	if cfg.StreamName == "" || cfg.Topic == "" || cfg.ConsumerName == "" {
		return nil, errors.New("stream name, topic and consumer name are required")
	}

	conn, err := connect(cfg.URL, "tableside-"+cfg.ConsumerName, opts)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot open JetStream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamSetupTimeout)
	defer cancel()

	consumer, err := ensureConsumer(ctx, js, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &NATSStream{conn: conn, js: js, consumer: consumer}, nil
}

func ensureConsumer(ctx context.Context, js jetstream.JetStream, cfg NATSStreamConfig) (jetstream.Consumer, error) {
	maxMsgs := cfg.MaxMsgs
	if maxMsgs <= 0 {
		maxMsgs = -1
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
		MaxMsgs:  maxMsgs,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create stream %s: %w", cfg.StreamName, err)
	}

	// New deliveries only: a consumer that missed history recovers by
	// refetching orders, not by replaying the stream.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:           cfg.ConsumerName,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		FilterSubject:     cfg.Topic,
		InactiveThreshold: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create consumer %s: %w", cfg.ConsumerName, err)
	}
	return consumer, nil
}

func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("cannot publish to stream subject %s: %w", topic, err)
	}
	return nil
}

// Consume starts delivering new stream messages to handler. A stream has
// at most one running consumer.
func (s *NATSStream) Consume(ctx context.Context, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return errors.New("stream consumer already running")
	}

	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			if s.OnError != nil {
				s.OnError(err)
			}
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("cannot consume stream: %w", err)
	}
	s.running = cc
	return nil
}

func (s *NATSStream) Close() error {
	s.mu.Lock()
	if s.running != nil {
		s.running.Stop()
		s.running = nil
	}
	s.mu.Unlock()

	s.conn.Close()
	return nil
}
