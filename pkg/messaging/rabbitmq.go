package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ holds one connection and one channel to the broker. Warehouse
// events only flow outward, so a single publishing channel is enough.
type RabbitMQ struct {
	cfg    *config.RabbitMQConfig
	logger *logger.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	// exchanges are re-declared after a reconnect
	exchanges []string
	closed    bool
}

// New dials the broker.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{cfg: cfg, logger: log.WithComponent("rabbitmq")}
	if err := r.dial(); err != nil {
		return nil, err
	}
	return r, nil
}

// dial opens a fresh connection and channel. Callers hold mu or own r exclusively.
func (r *RabbitMQ) dial() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set rabbitmq qos: %w", err)
	}
	for _, name := range r.exchanges {
		if err := declareTopic(ch, name); err != nil {
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	r.conn, r.channel = conn, ch
	r.logger.Info().Msg("connected to RabbitMQ")
	return nil
}

func declareTopic(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Channel returns the publishing channel.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// DeclareExchange declares a durable topic exchange and remembers it for reconnects.
func (r *RabbitMQ) DeclareExchange(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := declareTopic(r.channel, name); err != nil {
		return err
	}
	r.exchanges = append(r.exchanges, name)
	return nil
}

// IsClosed reports whether the connection or its channel is gone.
func (r *RabbitMQ) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isClosedLocked()
}

func (r *RabbitMQ) isClosedLocked() bool {
	return r.conn == nil || r.conn.IsClosed() || r.channel == nil || r.channel.IsClosed()
}

// Reconnect redials up to MaxRetries times, waiting ReconnectDelay between
// attempts. It gives up immediately once Close has been called.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if !r.isClosedLocked() {
		return nil
	}
	if r.conn != nil && !r.conn.IsClosed() {
		_ = r.conn.Close()
	}

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.dial()
		if err == nil {
			return nil
		}
		r.logger.Warn().Err(err).Int("attempt", attempt).Msg("rabbitmq reconnect failed")

		timer := time.NewTimer(r.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("rabbitmq unreachable after %d attempts", r.cfg.MaxRetries)
}

// Health reports "up" or "down" for the service health endpoint.
func (r *RabbitMQ) Health() map[string]string {
	if r.IsClosed() {
		return map[string]string{"status": "down", "error": "connection closed"}
	}
	return map[string]string{"status": "up"}
}

// Close shuts the channel and connection for good.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("close rabbitmq channel")
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}
