package diameter

import (
	"context"
	"testing"
	"time"

	"github.com/glimte/diameter-go/bridge"
	"github.com/glimte/diameter-go/contracts"
	"github.com/glimte/diameter-go/health"
	"github.com/glimte/diameter-go/node"
	"github.com/glimte/diameter-go/transports/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule(t *testing.T) {
	settings := testSettings(t)
	engine, err := memory.NewEngine(settings, memory.WithLogger(quietLogger))
	require.NoError(t, err)
	peer := node.NewPeer("aaa.example")
	engine.Register(peer, accountingAnswer)

	registry := prometheus.NewRegistry()
	var client *bridge.SyncClient
	var checks *health.Registry
	app := fxtest.New(t,
		fx.Supply(Config{Peers: []node.Peer{peer}, StopGrace: time.Second}),
		fx.Supply(quietLogger),
		fx.Provide(func() node.Engine { return engine }),
		fx.Provide(func() prometheus.Registerer { return registry }),
		Module,
		fx.Populate(&client, &checks),
	)
	app.RequireStart()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.WaitForConnection(ctx))

	overall := checks.Check(ctx)
	assert.Equal(t, health.StatusHealthy, overall.Status)
	assert.Contains(t, overall.Checks, "peers")
	assert.NotContains(t, overall.Checks, "broker")

	answer := client.SendRequest(contracts.NewRequest(contracts.ApplicationAccounting, contracts.CommandAccounting))
	require.NotNil(t, answer)
	assert.Equal(t, 1.0, testutil.ToFloat64(client.Metrics().Requests.WithLabelValues(bridge.OutcomeAnswered)))

	app.RequireStop()
	assert.Nil(t, client.SendRequest(contracts.NewRequest(contracts.ApplicationAccounting, contracts.CommandAccounting)))
}

func TestAMQPModuleRejectsBadConfig(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(Config{Settings: testSettings(t)}),
		AMQPModule,
		fx.Invoke(func(*bridge.SyncClient) {}),
	)
	assert.Error(t, app.Err())
}
