package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// Consumer runs one delivery loop per subscribed queue
type Consumer struct {
	pool           *ChannelPool
	prefetchCount  int
	autoAck        bool
	exclusive      bool
	handlerTimeout time.Duration
	logger         *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]*subscription
}

type subscription struct {
	queue       string
	consumerTag string
	channel     *PooledChannel
	cancel      context.CancelFunc
	done        chan struct{}
}

// ConsumerOption configures the consumer
type ConsumerOption func(*Consumer)

// WithPrefetchCount sets the prefetch count
func WithPrefetchCount(count int) ConsumerOption {
	return func(c *Consumer) {
		c.prefetchCount = count
	}
}

// WithAutoAck makes the broker consider deliveries acknowledged on send
func WithAutoAck(autoAck bool) ConsumerOption {
	return func(c *Consumer) {
		c.autoAck = autoAck
	}
}

// WithExclusive requests exclusive consumer access to the queue
func WithExclusive(exclusive bool) ConsumerOption {
	return func(c *Consumer) {
		c.exclusive = exclusive
	}
}

// WithHandlerTimeout bounds a single handler invocation
func WithHandlerTimeout(timeout time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.handlerTimeout = timeout
	}
}

// WithConsumerLogger sets the logger
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// NewConsumer creates a new consumer
func NewConsumer(pool *ChannelPool, options ...ConsumerOption) *Consumer {
	c := &Consumer{
		pool:           pool,
		prefetchCount:  10,
		handlerTimeout: 30 * time.Second,
		logger:         slog.Default(),
		subscriptions:  make(map[string]*subscription),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Subscribe starts consuming queue. Deliveries are handled until ctx is
// done, Unsubscribe is called or the broker cancels the consumer.
func (c *Consumer) Subscribe(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.pool.Get(ctx)
	if err != nil {
		return &ConsumerError{Queue: queue, Op: "subscribe", Err: err, Timestamp: time.Now()}
	}

	if err := ch.Qos(c.prefetchCount, 0, false); err != nil {
		c.pool.Put(ch)
		return &ConsumerError{Queue: queue, Op: "qos", Err: err, Timestamp: time.Now()}
	}

	consumerTag := "diameter-" + ch.ID()
	deliveries, err := ch.Consume(queue, consumerTag, c.autoAck, c.exclusive, false, false, nil)
	if err != nil {
		c.pool.Put(ch)
		return &ConsumerError{Queue: queue, ConsumerTag: consumerTag, Op: "consume", Err: err, Timestamp: time.Now()}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		queue:       queue,
		consumerTag: consumerTag,
		channel:     ch,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	c.mu.Lock()
	c.subscriptions[queue] = sub
	c.mu.Unlock()

	go c.processMessages(subCtx, sub, deliveries, handler)

	c.logger.Info("subscribed to queue",
		"queue", queue,
		"consumerTag", consumerTag,
		"prefetchCount", c.prefetchCount,
	)
	return nil
}

func (c *Consumer) processMessages(ctx context.Context, sub *subscription, deliveries <-chan amqp.Delivery, handler MessageHandler) {
	defer func() {
		if err := sub.channel.Cancel(sub.consumerTag, false); err != nil {
			c.logger.Debug("consumer cancel failed", "queue", sub.queue, "error", err)
		}
		c.pool.Put(sub.channel)

		c.mu.Lock()
		if c.subscriptions[sub.queue] == sub {
			delete(c.subscriptions, sub.queue)
		}
		c.mu.Unlock()

		close(sub.done)
		c.logger.Info("consumer stopped", "queue", sub.queue)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed", "queue", sub.queue)
				return
			}

			if err := c.handleMessage(ctx, delivery, handler); err != nil {
				c.logger.Error("failed to handle message",
					"error", err,
					"queue", sub.queue,
					"correlationId", delivery.CorrelationId,
				)
			}
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, delivery amqp.Delivery, handler MessageHandler) error {
	msgCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
	defer cancel()

	err := handler(msgCtx, delivery)

	if !c.autoAck {
		if err != nil {
			// malformed input will not get better on redelivery
			if nackErr := delivery.Nack(false, false); nackErr != nil {
				c.logger.Error("failed to nack message", "error", nackErr, "originalError", err)
			}
		} else if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "error", ackErr)
		}
	}

	return err
}

// Unsubscribe stops consuming queue and waits for its loop to finish
func (c *Consumer) Unsubscribe(queue string) error {
	c.mu.Lock()
	sub, ok := c.subscriptions[queue]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSubscription, queue)
	}

	sub.cancel()
	<-sub.done
	return nil
}

// UnsubscribeAll stops every subscription
func (c *Consumer) UnsubscribeAll() {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	for _, sub := range subs {
		<-sub.done
	}
}
