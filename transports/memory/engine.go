// Package memory provides an in-process node engine whose peers are Go
// functions. It is used by tests, examples and the CLI self-test.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glimte/diameter-go/contracts"
	"github.com/glimte/diameter-go/node"
	"golang.org/x/sync/errgroup"
)

// Responder plays the remote peer: it returns the answer to req, or nil to
// never answer
type Responder func(ctx context.Context, req *contracts.Message) *contracts.Message

// Engine implements node.Engine in memory
type Engine struct {
	settings      node.Settings
	logger        *slog.Logger
	connectDelay  time.Duration
	retryInterval time.Duration

	mu         sync.RWMutex
	handler    node.AnswerHandler
	started    bool
	stopped    bool
	responders map[string]Responder
	connected  map[string]bool
	ready      chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	inFlight errgroup.Group

	hopByHop atomic.Uint32
	endToEnd atomic.Uint32
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConnectDelay sets how long a simulated connection takes to come up
func WithConnectDelay(delay time.Duration) EngineOption {
	return func(e *Engine) {
		e.connectDelay = delay
	}
}

// WithRetryInterval sets how often a persistent connection to an
// unregistered peer is retried
func WithRetryInterval(interval time.Duration) EngineOption {
	return func(e *Engine) {
		e.retryInterval = interval
	}
}

// NewEngine creates an engine for the local node described by settings
func NewEngine(settings node.Settings, options ...EngineOption) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		settings:      settings,
		logger:        slog.Default(),
		retryInterval: 100 * time.Millisecond,
		responders:    make(map[string]Responder),
		connected:     make(map[string]bool),
		ready:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	// end-to-end ids start from the low 12 bits of the clock in the high bits
	e.endToEnd.Store(uint32(time.Now().Unix()&0xfff)<<20 | uint32(rand.Intn(1<<20)))
	e.hopByHop.Store(rand.Uint32())

	return e, nil
}

// Register installs responder as the remote side of peer
func (e *Engine) Register(peer node.Peer, responder Responder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responders[peer.URI()] = responder
}

// Disconnect drops the connection to peer
func (e *Engine) Disconnect(peer node.Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected[peer.URI()] {
		return
	}
	delete(e.connected, peer.URI())
	if len(e.connected) == 0 {
		e.ready = make(chan struct{})
	}
}

// IsConnected reports whether peer is connected
func (e *Engine) IsConnected(peer node.Peer) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected[peer.URI()]
}

// Start implements node.Engine
func (e *Engine) Start(ctx context.Context, handler node.AnswerHandler) error {
	if handler == nil {
		return errors.New("answer handler cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return node.ErrStopped
	}
	if e.started {
		return fmt.Errorf("engine already started")
	}

	e.handler = handler
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.started = true

	e.logger.Info("memory engine started", "hostId", e.settings.HostID, "realm", e.settings.Realm)
	return nil
}

// Stop implements node.Engine
func (e *Engine) Stop(grace time.Duration) error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.mu.Unlock()

	drained := make(chan error, 1)
	go func() {
		drained <- e.inFlight.Wait()
	}()

	var err error
	select {
	case err = <-drained:
	case <-time.After(grace):
		e.logger.Warn("stopping with requests still in flight", "grace", grace)
	}
	e.cancel()

	e.logger.Info("memory engine stopped")
	return err
}

// InitiateConnection implements node.Engine
func (e *Engine) InitiateConnection(peer node.Peer, persistent bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.usable(); err != nil {
		return err
	}

	ctx := e.ctx
	go e.connect(ctx, peer, persistent)
	return nil
}

func (e *Engine) connect(ctx context.Context, peer node.Peer, persistent bool) {
	if !sleep(ctx, e.connectDelay) {
		return
	}

	for {
		e.mu.Lock()
		_, reachable := e.responders[peer.URI()]
		if reachable {
			if !e.connected[peer.URI()] {
				if len(e.connected) == 0 {
					close(e.ready)
				}
				e.connected[peer.URI()] = true
			}
			e.mu.Unlock()
			e.logger.Info("peer connected", "peer", peer.URI())
			return
		}
		e.mu.Unlock()

		e.logger.Warn("peer unreachable", "peer", peer.URI(), "persistent", persistent)
		if !persistent || !sleep(ctx, e.retryInterval) {
			return
		}
	}
}

// WaitForConnection implements node.Engine
func (e *Engine) WaitForConnection(ctx context.Context) error {
	e.mu.RLock()
	ready := e.ready
	e.mu.RUnlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendRequestAny implements node.Engine
func (e *Engine) SendRequestAny(ctx context.Context, req *contracts.Message, peers []node.Peer, state any) error {
	if !req.IsRequest() {
		return node.ErrNotARequest
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.usable(); err != nil {
		return err
	}

	for _, peer := range peers {
		if !e.connected[peer.URI()] {
			continue
		}
		responder := e.responders[peer.URI()]

		if req.Header.EndToEndID == 0 {
			req.Header.EndToEndID = e.endToEnd.Add(1)
		}
		req.Header.HopByHopID = e.hopByHop.Add(1)

		out := req.Clone()
		connKey := node.ConnKey(peer.URI())
		e.inFlight.Go(func() error {
			e.deliver(out, connKey, responder, state)
			return nil
		})
		return nil
	}

	return &node.RoutingError{Peers: len(peers)}
}

// deliver runs the responder and dispatches its answer
func (e *Engine) deliver(req *contracts.Message, connKey node.ConnKey, responder Responder, state any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("responder panicked", "connKey", connKey, "panic", r)
		}
	}()

	answer := responder(e.ctx, req)
	if answer == nil {
		e.logger.Debug("peer did not answer", "connKey", connKey, "request", req.String())
		return
	}
	if answer.IsRequest() {
		e.logger.Warn("dropping request received as answer", "connKey", connKey)
		return
	}

	e.handler.HandleAnswer(answer, connKey, state)
}

// usable must be called with mu held
func (e *Engine) usable() error {
	switch {
	case e.stopped:
		return node.ErrStopped
	case !e.started:
		return node.ErrNotStarted
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
