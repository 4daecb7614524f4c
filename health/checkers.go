package health

import (
	"context"
	"fmt"
	"time"

	"github.com/glimte/diameter-go/node"
)

// PeerConnectivity is implemented by engines that can report per-peer state
type PeerConnectivity interface {
	IsConnected(peer node.Peer) bool
}

// PeerChecker is healthy when every peer is connected, degraded when some
// are and unhealthy when none are
type PeerChecker struct {
	engine PeerConnectivity
	peers  []node.Peer
}

// NewPeerChecker creates a checker over the given peers
func NewPeerChecker(engine PeerConnectivity, peers []node.Peer) *PeerChecker {
	return &PeerChecker{engine: engine, peers: append([]node.Peer(nil), peers...)}
}

func (c *PeerChecker) Name() string {
	return "peers"
}

func (c *PeerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any, len(c.peers)),
	}

	up := 0
	for _, peer := range c.peers {
		connected := c.engine.IsConnected(peer)
		result.Details[peer.URI()] = connected
		if connected {
			up++
		}
	}

	switch {
	case len(c.peers) == 0:
		result.Status = StatusUnhealthy
		result.Message = "no peers configured"
	case up == len(c.peers):
		result.Status = StatusHealthy
		result.Message = "all peers connected"
	case up > 0:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d of %d peers connected", up, len(c.peers))
	default:
		result.Status = StatusUnhealthy
		result.Message = "no peer connected"
	}

	result.Duration = time.Since(start)
	return result
}

// BrokerState is implemented by engines that depend on a message broker
type BrokerState interface {
	BrokerConnected() bool
}

// NewBrokerChecker reports whether the broker connection is up
func NewBrokerChecker(broker BrokerState) Checker {
	return NewCheckerFunc("broker", func(ctx context.Context) CheckResult {
		result := CheckResult{Name: "broker", Timestamp: time.Now(), Status: StatusHealthy, Message: "connected"}
		if !broker.BrokerConnected() {
			result.Status = StatusUnhealthy
			result.Message = "broker connection lost"
		}
		return result
	})
}
