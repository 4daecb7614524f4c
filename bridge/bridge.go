package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/glimte/diameter-go/contracts"
	"github.com/glimte/diameter-go/node"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// SyncClient sends Diameter requests through an asynchronous engine and
// blocks the caller until the matching answer is dispatched back.
// It only sends requests; it never answers incoming ones.
type SyncClient struct {
	engine         node.Engine
	peers          []node.Peer
	logger         *slog.Logger
	clock          clock.Clock
	defaultTimeout time.Duration
	metrics        *Metrics
	nextCallID     atomic.Uint64
}

// ClientOption configures the sync client
type ClientOption func(*ClientConfig)

// ClientConfig holds configuration for the sync client
type ClientConfig struct {
	Logger            *slog.Logger
	Clock             clock.Clock
	DefaultTimeout    time.Duration
	Metrics           *Metrics
	MetricsRegisterer prometheus.Registerer
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithClock sets the clock used for call timeouts
func WithClock(clk clock.Clock) ClientOption {
	return func(c *ClientConfig) {
		c.Clock = clk
	}
}

// WithDefaultTimeout bounds every call. Zero, the default, waits forever.
func WithDefaultTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DefaultTimeout = timeout
	}
}

// WithMetrics sets the collectors the client records into
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *ClientConfig) {
		c.Metrics = metrics
	}
}

// WithMetricsRegisterer registers the client's collectors with reg
func WithMetricsRegisterer(reg prometheus.Registerer) ClientOption {
	return func(c *ClientConfig) {
		c.MetricsRegisterer = reg
	}
}

// NewSyncClient creates a client that routes every request to peers through engine
func NewSyncClient(engine node.Engine, peers []node.Peer, opts ...ClientOption) (*SyncClient, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	config := &ClientConfig{
		Logger: slog.Default(),
		Clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.DefaultTimeout < 0 {
		return nil, fmt.Errorf("default timeout cannot be negative: %v", config.DefaultTimeout)
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics("diameter")
	}
	if config.MetricsRegisterer != nil {
		if err := config.Metrics.Register(config.MetricsRegisterer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return &SyncClient{
		engine:         engine,
		peers:          append([]node.Peer(nil), peers...),
		logger:         config.Logger,
		clock:          config.Clock,
		defaultTimeout: config.DefaultTimeout,
		metrics:        config.Metrics,
	}, nil
}

// Start starts the engine and initiates connections to the upstream peers.
// It returns before the connections are established; see WaitForConnection.
func (c *SyncClient) Start(ctx context.Context) error {
	if err := c.engine.Start(ctx, c); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	var err error
	for _, peer := range c.peers {
		if initErr := c.engine.InitiateConnection(peer, true); initErr != nil {
			c.logger.Warn("failed to initiate connection", "peer", peer.URI(), "error", initErr)
			err = multierr.Append(err, fmt.Errorf("peer %s: %w", peer.URI(), initErr))
		}
	}

	c.logger.Info("sync client started", "peers", len(c.peers))
	return err
}

// WaitForConnection blocks until the engine has at least one usable peer connection
func (c *SyncClient) WaitForConnection(ctx context.Context) error {
	return c.engine.WaitForConnection(ctx)
}

// Stop stops the engine. Callers still blocked without a timeout stay blocked
// unless the engine dispatches their answers during the grace period.
func (c *SyncClient) Stop(grace time.Duration) error {
	return c.engine.Stop(grace)
}

// Peers returns the configured upstream peers
func (c *SyncClient) Peers() []node.Peer {
	return append([]node.Peer(nil), c.peers...)
}

// Metrics returns the client's collectors
func (c *SyncClient) Metrics() *Metrics {
	return c.metrics
}

// SendRequest sends a request and waits for its answer. It returns nil when
// there is no answer: no peer could take the request, req is not a request,
// or the configured default timeout expired.
//
// Without a default timeout a request that the engine accepted but never
// answers blocks forever.
func (c *SyncClient) SendRequest(req *contracts.Message) *contracts.Message {
	answer, err := c.SendRequestContext(context.Background(), req)
	if err != nil {
		return nil
	}
	return answer
}

// SendRequestContext sends a request and waits for its answer, ctx or the
// default timeout permitting. Synchronous submission failures are returned
// as node.ErrNotRoutable or node.ErrNotARequest without waiting.
func (c *SyncClient) SendRequestContext(ctx context.Context, req *contracts.Message) (*contracts.Message, error) {
	call := newSyncCall(c.nextCallID.Add(1))

	if c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = c.clock.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	submitted := c.clock.Now()
	if err := c.engine.SendRequestAny(ctx, req, c.peers, call); err != nil {
		return nil, c.submitFailed(call, err)
	}

	c.metrics.InFlight.Inc()
	answer, err := call.wait(ctx)
	c.metrics.InFlight.Dec()

	if err != nil {
		return nil, c.waitFailed(call, err)
	}

	c.metrics.outcome(OutcomeAnswered)
	c.metrics.WaitDuration.Observe(c.clock.Since(submitted).Seconds())
	return answer, nil
}

// submitFailed classifies a synchronous submission failure
func (c *SyncClient) submitFailed(call *syncCall, err error) error {
	switch {
	case errors.Is(err, node.ErrNotRoutable):
		c.logger.Debug("not routable", "call", call.id, "error", err)
		c.metrics.outcome(OutcomeNotRoutable)
		return err
	case errors.Is(err, node.ErrNotARequest):
		c.metrics.outcome(OutcomeNotARequest)
		return err
	default:
		c.logger.Warn("failed to submit request", "call", call.id, "error", err)
		c.metrics.outcome(OutcomeFailed)
		return fmt.Errorf("failed to submit request: %w", err)
	}
}

// waitFailed classifies the end of a wait that produced no answer
func (c *SyncClient) waitFailed(call *syncCall, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Debug("no answer before deadline", "call", call.id)
		c.metrics.outcome(OutcomeTimeout)
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	c.logger.Debug("call cancelled while waiting", "call", call.id)
	c.metrics.outcome(OutcomeCancelled)
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// HandleAnswer implements node.AnswerHandler. It completes the call carried
// in state and never blocks. Answers that cannot be delivered are logged and
// counted; nothing is returned to the engine.
func (c *SyncClient) HandleAnswer(answer *contracts.Message, connKey node.ConnKey, state any) {
	call, ok := state.(*syncCall)
	if !ok || call == nil {
		c.logger.Error("answer dispatched with foreign state",
			"connKey", connKey,
			"stateType", fmt.Sprintf("%T", state),
		)
		c.metrics.dispatchError(ReasonForeignState)
		return
	}

	if err := call.deliver(answer); err != nil {
		c.logger.Error("duplicate answer",
			"call", call.id,
			"connKey", connKey,
			"answer", answer.String(),
			"error", err,
		)
		c.metrics.dispatchError(ReasonDuplicateAnswer)
		return
	}

	c.logger.Debug("answer dispatched", "call", call.id, "connKey", connKey)
}
