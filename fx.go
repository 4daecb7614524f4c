package diameter

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/diameter-go/bridge"
	"github.com/glimte/diameter-go/health"
	"github.com/glimte/diameter-go/node"
	rabbitmqTransport "github.com/glimte/diameter-go/transports/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Config is what the fx modules need to build a client
type Config struct {
	URL           string
	Settings      node.Settings
	Peers         []node.Peer
	StopGrace     time.Duration
	ClientOptions []bridge.ClientOption
	EngineOptions []rabbitmqTransport.EngineOption
}

// Module provides a *bridge.SyncClient over the node.Engine supplied by the
// application. The client is started and stopped with the fx lifecycle.
var Module = fx.Module("diameter",
	fx.Provide(provideSyncClient, provideHealth),
)

// AMQPModule provides a *bridge.SyncClient over the RabbitMQ engine
var AMQPModule = fx.Module("diameter-amqp",
	fx.Provide(provideAMQPEngine),
	Module,
)

type clientParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     Config
	Engine     node.Engine
	Logger     *slog.Logger          `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

func provideSyncClient(p clientParams) (*bridge.SyncClient, error) {
	var opts []bridge.ClientOption
	if p.Logger != nil {
		opts = append(opts, bridge.WithLogger(p.Logger))
	}
	if p.Registerer != nil {
		opts = append(opts, bridge.WithMetricsRegisterer(p.Registerer))
	}
	opts = append(opts, p.Config.ClientOptions...)

	client, err := bridge.NewSyncClient(p.Engine, p.Config.Peers, opts...)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			grace := p.Config.StopGrace
			if deadline, ok := ctx.Deadline(); ok && (grace == 0 || time.Until(deadline) < grace) {
				grace = time.Until(deadline)
			}
			return client.Stop(grace)
		},
	})
	return client, nil
}

type engineParams struct {
	fx.In

	Config Config
	Logger *slog.Logger `optional:"true"`
}

func provideAMQPEngine(p engineParams) (node.Engine, error) {
	var opts []rabbitmqTransport.EngineOption
	if p.Logger != nil {
		opts = append(opts, rabbitmqTransport.WithLogger(p.Logger))
	}
	opts = append(opts, p.Config.EngineOptions...)
	return rabbitmqTransport.NewEngine(p.Config.URL, p.Config.Settings, opts...)
}

// provideHealth registers the checks the engine can answer for
func provideHealth(p engineHealthParams) *health.Registry {
	registry := health.NewRegistry()
	if peers, ok := p.Engine.(health.PeerConnectivity); ok {
		registry.Register(health.NewPeerChecker(peers, p.Config.Peers))
	}
	if broker, ok := p.Engine.(health.BrokerState); ok {
		registry.Register(health.NewBrokerChecker(broker))
	}
	return registry
}

type engineHealthParams struct {
	fx.In

	Config Config
	Engine node.Engine
}
