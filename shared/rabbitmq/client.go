package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrChannelUnavailable is returned by Publish when no channel is open.
// The adapter never buffers messages; callers decide what a failed
// publish means for them.
var ErrChannelUnavailable = errors.New("rabbitmq channel is not available")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	VHost           string
	QueueName       string
	QueueDurable    bool
	QueueAutoDelete bool
	QueueExclusive  bool
	RetryInterval   time.Duration
	Heartbeat       time.Duration
}

// Client owns a single connection and channel to the broker. It is
// meant to be created once per process and passed by reference into
// whatever publishes or consumes.
type Client struct {
	config *Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewClient creates a client without connecting. Call Connect before use.
func NewClient(config *Config, logger *slog.Logger) *Client {
	if config.RetryInterval <= 0 {
		config.RetryInterval = 5 * time.Second
	}

	return &Client{
		config: config,
		logger: logger,
	}
}

// Connect establishes the connection and channel, declares the queue,
// and keeps retrying at a fixed interval until it succeeds or ctx is
// done. There is no retry cap: the adapter trades bounded failure for
// eventual reconnection.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := c.connectOnce()
		if err == nil {
			c.logger.Info("Connected to RabbitMQ",
				slog.String("queue", c.config.QueueName),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		c.logger.Error("Failed to connect to RabbitMQ, retrying",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", c.config.RetryInterval),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq connect canceled: %w", ctx.Err())
		case <-time.After(c.config.RetryInterval):
		}
	}
}

// connectOnce performs a single dial + channel + queue declaration
func (c *Client) connectOnce() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	conn, err := amqp.DialConfig(dsn, amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		c.config.QueueName,       // name
		c.config.QueueDurable,    // durable
		c.config.QueueAutoDelete, // auto-delete
		c.config.QueueExclusive,  // exclusive
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	c.mu.Lock()
	// A channel-level close leaves the old TCP connection behind;
	// release it before swapping in the new one.
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	// Drop the channel reference as soon as the broker closes it so
	// publishers fail fast instead of writing into a dead channel.
	closeChan := make(chan *amqp.Error, 1)
	channel.NotifyClose(closeChan)
	go c.watchClose(closeChan)

	return nil
}

// watchClose clears the cached channel when the broker reports a close
func (c *Client) watchClose(closeChan <-chan *amqp.Error) {
	amqpErr, ok := <-closeChan
	if !ok {
		// Clean shutdown via Close.
		return
	}

	c.logger.Warn("RabbitMQ channel closed by broker",
		slog.Any("error", amqpErr),
	)

	c.mu.Lock()
	c.channel = nil
	c.mu.Unlock()
}

// currentChannel returns the active channel, or nil when disconnected
func (c *Client) currentChannel() *amqp.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish sends a persistent message to the render queue. It fails
// fast with ErrChannelUnavailable when disconnected.
func (c *Client) Publish(ctx context.Context, body []byte, contentType string) error {
	channel := c.currentChannel()
	if channel == nil {
		return ErrChannelUnavailable
	}

	err := channel.PublishWithContext(
		ctx,
		"",                  // default exchange
		c.config.QueueName,  // routing key
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published",
		slog.String("queue", c.config.QueueName),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// Consume starts consuming from the queue with a prefetch limit of 1
// and manual acknowledgment. No further message is delivered to this
// consumer until the previous one is acked.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	channel := c.currentChannel()
	if channel == nil {
		return nil, ErrChannelUnavailable
	}

	if err := channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := channel.Consume(
		c.config.QueueName, // queue
		consumerTag,        // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Consuming from RabbitMQ",
		slog.String("queue", c.config.QueueName),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// IsConnected reports whether a usable channel exists
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil
}

// Close closes the channel and connection
func (c *Client) Close() error {
	c.mu.Lock()
	channel := c.channel
	conn := c.conn
	c.channel = nil
	c.conn = nil
	c.mu.Unlock()

	if channel != nil {
		if err := channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}
