package rabbitmq

import (
	"context"
	"log/slog"

	"github.com/glimte/diameter-go/internal/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
)

// broker is the slice of AMQP the engine needs
type broker interface {
	DeclareTopology(ctx context.Context, topology rabbitmq.Topology) error
	DeclareReplyQueue(ctx context.Context) (string, error)
	InspectQueue(ctx context.Context, name string) (amqp.Queue, error)
	Publish(ctx context.Context, exchange, routingKey string, mandatory bool, msg amqp.Publishing) error
	Subscribe(ctx context.Context, queue string, handler rabbitmq.MessageHandler) error
	Unsubscribe(queue string) error
	Connected() bool
	Close() error
}

// amqpBroker is the broker on a real RabbitMQ connection
type amqpBroker struct {
	listener  rabbitmq.ConnectionStateListener
	manager   *rabbitmq.ConnectionManager
	pool      *rabbitmq.ChannelPool
	publisher *rabbitmq.Publisher
	consumer  *rabbitmq.Consumer
	topology  *rabbitmq.TopologyManager
}

func dialBroker(ctx context.Context, url string, listener rabbitmq.ConnectionStateListener, logger *slog.Logger, cfg *EngineConfig) (*amqpBroker, error) {
	connOpts := append([]rabbitmq.ConnectionOption{rabbitmq.WithLogger(logger)}, cfg.connectionOptions()...)
	manager := rabbitmq.NewConnectionManager(url, connOpts...)
	if err := manager.Connect(ctx); err != nil {
		return nil, err
	}
	manager.AddStateListener(listener)

	pool, err := rabbitmq.NewChannelPool(manager, append(cfg.poolOptions(), rabbitmq.WithPoolLogger(logger))...)
	if err != nil {
		manager.RemoveStateListener(listener)
		return nil, multierr.Append(err, manager.Close())
	}

	return &amqpBroker{
		listener:  listener,
		manager:   manager,
		pool:      pool,
		publisher: rabbitmq.NewPublisher(pool, append(cfg.publisherOptions(), rabbitmq.WithPublisherLogger(logger))...),
		// answers are auto-acked, a failed dispatch is not redelivered
		consumer: rabbitmq.NewConsumer(pool,
			rabbitmq.WithConsumerLogger(logger),
			rabbitmq.WithPrefetchCount(cfg.Prefetch),
			rabbitmq.WithExclusive(true),
			rabbitmq.WithAutoAck(true),
			rabbitmq.WithHandlerTimeout(cfg.AnswerTimeout),
		),
		topology: rabbitmq.NewTopologyManager(pool),
	}, nil
}

func (b *amqpBroker) DeclareTopology(ctx context.Context, topology rabbitmq.Topology) error {
	return b.topology.DeclareTopology(ctx, topology)
}

// DeclareReplyQueue declares a server-named queue that lives as long as the connection
func (b *amqpBroker) DeclareReplyQueue(ctx context.Context) (string, error) {
	q, err := b.topology.DeclareQueue(ctx, rabbitmq.QueueDeclaration{Exclusive: true, AutoDelete: true})
	if err != nil {
		return "", err
	}
	return q.Name, nil
}

func (b *amqpBroker) InspectQueue(ctx context.Context, name string) (amqp.Queue, error) {
	return b.topology.InspectQueue(ctx, name)
}

func (b *amqpBroker) Publish(ctx context.Context, exchange, routingKey string, mandatory bool, msg amqp.Publishing) error {
	return b.publisher.Publish(ctx, exchange, routingKey, mandatory, msg)
}

func (b *amqpBroker) Subscribe(ctx context.Context, queue string, handler rabbitmq.MessageHandler) error {
	return b.consumer.Subscribe(ctx, queue, handler)
}

func (b *amqpBroker) Unsubscribe(queue string) error {
	return b.consumer.Unsubscribe(queue)
}

func (b *amqpBroker) Connected() bool {
	return b.manager.IsConnected()
}

// Close stops notifying the engine first so shutting down is not reported
// as a lost connection
func (b *amqpBroker) Close() error {
	b.manager.RemoveStateListener(b.listener)
	b.consumer.UnsubscribeAll()
	return multierr.Combine(b.pool.Close(), b.manager.Close())
}
