package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/diameter-go/internal/reliability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes with publisher confirms, retrying transient failures
type Publisher struct {
	pool           *ChannelPool
	confirmTimeout time.Duration
	publishTimeout time.Duration
	retryPolicy    reliability.RetryPolicy
	logger         *slog.Logger
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithConfirmTimeout sets how long to wait for a broker confirmation
func WithConfirmTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.confirmTimeout = timeout
	}
}

// WithPublishTimeout bounds a publish, retries included, when ctx has no deadline
func WithPublishTimeout(timeout time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.publishTimeout = timeout
	}
}

// WithPublishRetryPolicy sets the policy for retrying failed publishes
func WithPublishRetryPolicy(policy reliability.RetryPolicy) PublisherOption {
	return func(p *Publisher) {
		p.retryPolicy = policy
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a new publisher
func NewPublisher(pool *ChannelPool, options ...PublisherOption) *Publisher {
	p := &Publisher{
		pool:           pool,
		confirmTimeout: 5 * time.Second,
		publishTimeout: 10 * time.Second,
		retryPolicy:    reliability.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2.0, 3),
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish publishes msg and waits for the broker to confirm it. With
// mandatory set a message no queue accepts fails with ErrMessageUnroutable
// and is not retried.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, mandatory bool, msg amqp.Publishing) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}

	err := reliability.Retry(ctx, p.retryPolicy, func() error {
		err := p.publishWithConfirm(ctx, exchange, routingKey, mandatory, msg)
		if err != nil && !IsRetryable(err) {
			return reliability.Permanent(err)
		}
		if err != nil {
			p.logger.Debug("publish attempt failed", "exchange", exchange, "routingKey", routingKey, "error", err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	return &PublishError{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Mandatory:  mandatory,
		Err:        err,
		Timestamp:  time.Now(),
	}
}

func (p *Publisher) publishWithConfirm(ctx context.Context, exchange, routingKey string, mandatory bool, msg amqp.Publishing) error {
	ch, err := p.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer p.pool.Put(ch)

	if ch.confirms == nil {
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("failed to enable confirms: %w", err)
		}
		ch.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
		ch.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, mandatory, false, msg); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	var returned *amqp.Return
	for {
		select {
		case ret := <-ch.returns:
			// the broker still acks a returned message
			returned = &ret

		case confirm, ok := <-ch.confirms:
			if !ok {
				return ErrConnectionClosed
			}
			if returned != nil {
				return fmt.Errorf("%w: %d %s", ErrMessageUnroutable, returned.ReplyCode, returned.ReplyText)
			}
			if !confirm.Ack {
				return ErrPublishNacked
			}
			return nil

		case <-timer.C:
			// the channel state is unknown now, do not hand it out again
			ch.Close()
			return ErrPublishTimeout

		case <-ctx.Done():
			ch.Close()
			return ctx.Err()
		}
	}
}
