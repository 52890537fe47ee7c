package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
)

const (
	exchangeName = "maestro.events"
	exchangeType = "topic"

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second
)

var _ domain.EventSink = (*AMQP)(nil)

// AMQP publishes lifecycle events to a RabbitMQ topic exchange so external
// consumers (loggers, dashboards, databases) can persist them. Events are
// observability, not work dispatch: publish failures are logged and dropped.
type AMQP struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewAMQP connects to RabbitMQ and declares the events exchange.
func NewAMQP(url string, logger *zap.Logger) (*AMQP, error) {
	s := &AMQP{url: url, logger: logger}
	if err := s.connect(); err != nil {
		return nil, err
	}
	go s.watchConnection()
	return s, nil
}

func (s *AMQP) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.channel = ch
	s.mu.Unlock()

	s.logger.Info("RabbitMQ event sink initialized", zap.String("exchange", exchangeName))
	return nil
}

// watchConnection monitors the connection and reconnects on failure.
func (s *AMQP) watchConnection() {
	for {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return
		}
		conn := s.conn
		s.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error))
		if !ok {
			return
		}

		s.logger.Warn("RabbitMQ connection lost, reconnecting...",
			zap.String("reason", reason.Error()),
		)

		delay := reconnectDelay
		for {
			s.mu.RLock()
			if s.closed {
				s.mu.RUnlock()
				return
			}
			s.mu.RUnlock()

			time.Sleep(delay)

			if err := s.connect(); err != nil {
				s.logger.Warn("RabbitMQ reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				delay = delay * 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}

			s.logger.Info("RabbitMQ reconnected successfully")
			break
		}
	}
}

// Emit publishes the event with routing key "maestro.<event type>".
func (s *AMQP) Emit(ev domain.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("Failed to marshal event", zap.Error(err))
		return
	}

	s.mu.RLock()
	ch := s.channel
	s.mu.RUnlock()

	if ch == nil {
		s.logger.Warn("Event dropped, channel unavailable (reconnecting)",
			zap.String("type", string(ev.Type)),
		)
		return
	}

	err = ch.Publish(
		exchangeName,
		"maestro."+string(ev.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.RequestID,
			Timestamp:    ev.Time,
			Body:         body,
		},
	)
	if err != nil {
		s.logger.Warn("Failed to publish event", zap.Error(err),
			zap.String("type", string(ev.Type)),
			zap.String("request_id", ev.RequestID),
		)
	}
}

// Close shuts the connection down.
func (s *AMQP) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
