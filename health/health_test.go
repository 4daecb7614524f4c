package health

import (
	"context"
	"testing"
	"time"

	"github.com/glimte/diameter-go/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectivity map[string]bool

func (c connectivity) IsConnected(peer node.Peer) bool {
	return c[peer.URI()]
}

type brokerState bool

func (b brokerState) BrokerConnected() bool {
	return bool(b)
}

func fixed(name string, status Status) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) CheckResult {
		return CheckResult{Name: name, Status: status}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("empty registry is healthy", func(t *testing.T) {
		overall := NewRegistry().Check(context.Background())
		assert.Equal(t, StatusHealthy, overall.Status)
		assert.Empty(t, overall.Checks)
	})

	t.Run("overall status is the worst check", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(fixed("a", StatusHealthy))
		registry.Register(fixed("b", StatusDegraded))

		overall := registry.Check(context.Background())
		assert.Equal(t, StatusDegraded, overall.Status)
		require.Len(t, overall.Checks, 2)

		registry.Register(fixed("c", StatusUnhealthy))
		assert.Equal(t, StatusUnhealthy, registry.Check(context.Background()).Status)

		registry.Unregister("c")
		assert.Equal(t, StatusDegraded, registry.Check(context.Background()).Status)
	})

	t.Run("slow checks time out as unhealthy", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		registry := NewRegistry()
		registry.Register(fixed("fast", StatusHealthy))
		registry.Register(NewCheckerFunc("slow", func(ctx context.Context) CheckResult {
			<-release
			return CheckResult{Name: "slow", Status: StatusHealthy}
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		overall := registry.Check(ctx)

		assert.Equal(t, StatusUnhealthy, overall.Status)
		assert.Equal(t, StatusHealthy, overall.Checks["fast"].Status)
		assert.Equal(t, "check timed out", overall.Checks["slow"].Message)
	})
}

func TestPeerChecker(t *testing.T) {
	a, b := node.NewPeer("a.example"), node.NewPeer("b.example")

	tests := []struct {
		name  string
		state connectivity
		peers []node.Peer
		want  Status
	}{
		{"all connected", connectivity{a.URI(): true, b.URI(): true}, []node.Peer{a, b}, StatusHealthy},
		{"some connected", connectivity{a.URI(): true}, []node.Peer{a, b}, StatusDegraded},
		{"none connected", connectivity{}, []node.Peer{a, b}, StatusUnhealthy},
		{"no peers", connectivity{}, nil, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewPeerChecker(tt.state, tt.peers).Check(context.Background())
			assert.Equal(t, tt.want, result.Status)
			assert.Len(t, result.Details, len(tt.peers))
		})
	}
}

func TestBrokerChecker(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewBrokerChecker(brokerState(true)).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewBrokerChecker(brokerState(false)).Check(context.Background()).Status)
	assert.Equal(t, "broker", NewBrokerChecker(brokerState(true)).Name())
}
