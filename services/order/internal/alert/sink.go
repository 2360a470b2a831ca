package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/event"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LogSink writes alerts to the service log.
type LogSink struct {
	logger apt.Logger
}

func NewLogSink(logger apt.Logger) *LogSink {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, alert event.NewOrdersAlert) error {
	s.logger.Info("new orders alert",
		"restaurant_id", alert.RestaurantID,
		"new_orders", alert.NewOrders,
		"pending", alert.PendingCount,
	)
	return nil
}

// AMQPSink publishes alerts on a fanout exchange. Kitchen devices bind their
// own queues and play the sound. The routing key is the restaurant id.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu sync.Mutex
}

func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		event.KitchenAlertsExchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", event.KitchenAlertsExchange, err)
	}

	return &AMQPSink{conn: conn, ch: ch, exchange: event.KitchenAlertsExchange}, nil
}

func (s *AMQPSink) Send(ctx context.Context, alert event.NewOrdersAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("cannot encode alert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, s.exchange, alert.RestaurantID, false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Type:         alert.EventType,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("cannot publish alert to %s: %w", s.exchange, err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
