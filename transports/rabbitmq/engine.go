// Package rabbitmq provides a node engine that reaches Diameter peers
// through a RabbitMQ broker. Every peer consumes requests from its own
// durable queue bound to a direct exchange under the peer's URI; answers come
// back on an exclusive reply queue and are matched by correlation id.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glimte/diameter-go/contracts"
	"github.com/glimte/diameter-go/internal/rabbitmq"
	"github.com/glimte/diameter-go/internal/reliability"
	"github.com/glimte/diameter-go/node"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the direct exchange requests are published to
const DefaultExchange = "diameter.requests"

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	Exchange           string
	Logger             *slog.Logger
	ReconnectDelay     time.Duration
	MaxReconnects      int
	DialTimeout        time.Duration
	ConfirmTimeout     time.Duration
	PublishTimeout     time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	MaxChannels        int
	ChannelIdleTimeout time.Duration
	ChannelWaitTimeout time.Duration
	Prefetch           int
	AnswerTimeout      time.Duration
	ConnectRetry       time.Duration
	FailureThreshold   int
	CoolDown           time.Duration
	MaxProbes          int
	SuccessThreshold   int
	DuplicateWindow    int
}

// EngineOption configures the engine
type EngineOption func(*EngineConfig)

// WithExchange sets the request exchange name
func WithExchange(name string) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.Exchange = name
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.Logger = logger
	}
}

// WithReconnectDelay sets the initial broker reconnection delay
func WithReconnectDelay(delay time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.ReconnectDelay = delay
	}
}

// WithReconnectLimit sets how many times a lost broker connection is
// re-dialled before the engine gives up, -1 for no limit
func WithReconnectLimit(attempts int) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.MaxReconnects = attempts
	}
}

// WithDialTimeout bounds a single broker dial
func WithDialTimeout(timeout time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.DialTimeout = timeout
	}
}

// WithPublishRetry sets how often a failed publish to one peer is retried
// before the engine moves on to the next peer, and the first delay
func WithPublishRetry(retries int, delay time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.PublishRetries = retries
		cfg.PublishRetryDelay = delay
	}
}

// WithPublishTimeout bounds a publish to one peer, retries included, when
// the request has no deadline
func WithPublishTimeout(timeout time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.PublishTimeout = timeout
	}
}

// WithChannelPool sets the broker channel pool size, how long idle
// channels are kept and how long a publish waits for a free channel
func WithChannelPool(size int, idleTimeout, waitTimeout time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.MaxChannels = size
		cfg.ChannelIdleTimeout = idleTimeout
		cfg.ChannelWaitTimeout = waitTimeout
	}
}

// WithAnswerTimeout bounds the handling of one answer from the reply queue
func WithAnswerTimeout(timeout time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.AnswerTimeout = timeout
	}
}

// WithConfirmTimeout sets how long a publish waits for the broker to confirm it
func WithConfirmTimeout(timeout time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.ConfirmTimeout = timeout
	}
}

// WithConnectRetry sets the first delay between checks for a peer that is not consuming yet
func WithConnectRetry(interval time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.ConnectRetry = interval
	}
}

// WithCircuitBreaker sets the consecutive publish failures that take a peer
// out of rotation and how long it stays out
func WithCircuitBreaker(failureThreshold int, coolDown time.Duration) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.FailureThreshold = failureThreshold
		cfg.CoolDown = coolDown
	}
}

// WithCircuitProbes sets how many requests a half-open circuit lets through
// at once and how many of them must succeed to close it again
func WithCircuitProbes(maxProbes, successThreshold int) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.MaxProbes = maxProbes
		cfg.SuccessThreshold = successThreshold
	}
}

// WithDuplicateWindow sets how many answered correlation ids are remembered
// to recognise duplicate answers
func WithDuplicateWindow(size int) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.DuplicateWindow = size
	}
}

func (cfg *EngineConfig) connectionOptions() []rabbitmq.ConnectionOption {
	var opts []rabbitmq.ConnectionOption
	if cfg.ReconnectDelay > 0 {
		opts = append(opts, rabbitmq.WithReconnectDelay(cfg.ReconnectDelay))
	}
	if cfg.DialTimeout > 0 {
		opts = append(opts, rabbitmq.WithDialTimeout(cfg.DialTimeout))
	}
	return append(opts, rabbitmq.WithMaxRetries(cfg.MaxReconnects))
}

func (cfg *EngineConfig) poolOptions() []rabbitmq.ChannelPoolOption {
	opts := []rabbitmq.ChannelPoolOption{rabbitmq.WithMaxSize(cfg.MaxChannels)}
	if cfg.ChannelIdleTimeout > 0 {
		opts = append(opts, rabbitmq.WithIdleTimeout(cfg.ChannelIdleTimeout))
	}
	if cfg.ChannelWaitTimeout > 0 {
		opts = append(opts, rabbitmq.WithWaitTimeout(cfg.ChannelWaitTimeout))
	}
	return opts
}

func (cfg *EngineConfig) publisherOptions() []rabbitmq.PublisherOption {
	return []rabbitmq.PublisherOption{
		rabbitmq.WithConfirmTimeout(cfg.ConfirmTimeout),
		rabbitmq.WithPublishTimeout(cfg.PublishTimeout),
		rabbitmq.WithPublishRetryPolicy(reliability.NewExponentialBackoff(
			cfg.PublishRetryDelay, 20*cfg.PublishRetryDelay, 2.0, cfg.PublishRetries)),
	}
}

// outcome records how a request left the pending table
type outcome uint8

const (
	outcomeAnswered outcome = iota + 1
	outcomeAbandoned
)

type pendingRequest struct {
	state   any
	connKey node.ConnKey
	// closed when the request leaves the pending table
	done chan struct{}
}

// Engine implements node.Engine over RabbitMQ
type Engine struct {
	url      string
	settings node.Settings
	cfg      EngineConfig
	logger   *slog.Logger
	dial     func(ctx context.Context) (broker, error)

	mu         sync.RWMutex
	broker     broker
	handler    node.AnswerHandler
	started    bool
	stopped    bool
	lost       bool
	replyQueue string
	connected  map[string]bool
	persistent map[string]node.Peer
	breakers   map[string]*reliability.CircuitBreaker
	pending    map[string]*pendingRequest
	finished   *lru.Cache[string, outcome]
	ready      chan struct{}

	// generation counts broker connection losses
	generation uint64
	restoring  bool

	ctx      context.Context
	cancel   context.CancelFunc
	inFlight sync.WaitGroup

	hopByHop atomic.Uint32
	endToEnd atomic.Uint32
}

// NewEngine creates an engine for the local node described by settings that
// will connect to the broker at url when started
func NewEngine(url string, settings node.Settings, options ...EngineOption) (*Engine, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: broker url is required", rabbitmq.ErrInvalidConfiguration)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg := EngineConfig{
		Exchange:          DefaultExchange,
		Logger:            slog.Default(),
		MaxReconnects:     -1,
		ConfirmTimeout:    5 * time.Second,
		PublishTimeout:    10 * time.Second,
		PublishRetries:    2,
		PublishRetryDelay: 100 * time.Millisecond,
		MaxChannels:       10,
		Prefetch:          50,
		AnswerTimeout:     30 * time.Second,
		ConnectRetry:      time.Second,
		FailureThreshold:  3,
		CoolDown:          30 * time.Second,
		MaxProbes:         1,
		SuccessThreshold:  1,
		DuplicateWindow:   4096,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	finished, err := lru.New[string, outcome](cfg.DuplicateWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rabbitmq.ErrInvalidConfiguration, err)
	}

	e := &Engine{
		url:        url,
		settings:   settings,
		cfg:        cfg,
		logger:     cfg.Logger.With("component", "rabbitmq-engine", "hostId", settings.HostID),
		connected:  make(map[string]bool),
		persistent: make(map[string]node.Peer),
		breakers:   make(map[string]*reliability.CircuitBreaker),
		pending:    make(map[string]*pendingRequest),
		finished:   finished,
		ready:      make(chan struct{}),
	}
	e.dial = func(ctx context.Context) (broker, error) {
		return dialBroker(ctx, e.url, e, e.logger, &e.cfg)
	}

	e.endToEnd.Store(uint32(time.Now().Unix()&0xfff)<<20 | uint32(rand.Intn(1<<20)))
	e.hopByHop.Store(rand.Uint32())

	return e, nil
}

// Start implements node.Engine. It connects to the broker, declares the
// request exchange and starts consuming answers.
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

	b, err := e.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	if err := b.DeclareTopology(ctx, rabbitmq.RequestExchange(e.cfg.Exchange)); err != nil {
		b.Close()
		return fmt.Errorf("failed to declare request exchange: %w", err)
	}

	e.broker = b
	e.handler = handler
	e.ctx, e.cancel = context.WithCancel(context.Background())

	queue, err := e.declareReplies(b, "")
	if err != nil {
		e.cancel()
		b.Close()
		return err
	}

	e.replyQueue = queue
	e.started = true
	e.logger.Info("rabbitmq engine started", "exchange", e.cfg.Exchange, "replyQueue", e.replyQueue)
	return nil
}

// declareReplies declares a fresh reply queue and consumes it, first
// dropping the consumer of the stale one if there is one
func (e *Engine) declareReplies(b broker, stale string) (string, error) {
	if stale != "" {
		if err := b.Unsubscribe(stale); err != nil && !errors.Is(err, rabbitmq.ErrNoSubscription) {
			e.logger.Debug("failed to drop stale reply consumer", "queue", stale, "error", err)
		}
	}

	queue, err := b.DeclareReplyQueue(e.ctx)
	if err != nil {
		return "", fmt.Errorf("failed to declare reply queue: %w", err)
	}
	if err := b.Subscribe(e.ctx, queue, e.handleAnswerDelivery); err != nil {
		return "", fmt.Errorf("failed to consume reply queue: %w", err)
	}
	return queue, nil
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

	drained := make(chan struct{})
	go func() {
		e.inFlight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(grace):
		e.mu.RLock()
		outstanding := len(e.pending)
		e.mu.RUnlock()
		e.logger.Warn("stopping with requests still awaiting answers", "grace", grace, "outstanding", outstanding)
	}
	e.cancel()

	e.mu.Lock()
	for id, pending := range e.pending {
		e.dropPending(id, pending)
	}
	e.mu.Unlock()

	err := e.broker.Close()
	e.logger.Info("rabbitmq engine stopped")
	return err
}

// InitiateConnection implements node.Engine. The peer queue is declared and
// bound, and the peer counts as connected once something consumes from it.
func (e *Engine) InitiateConnection(peer node.Peer, persistent bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable(); err != nil {
		return err
	}
	if persistent {
		e.persistent[peer.URI()] = peer
	}
	if e.lost {
		// picked up by OnConnected
		return nil
	}

	go e.connect(e.ctx, peer, persistent)
	return nil
}

func (e *Engine) connect(ctx context.Context, peer node.Peer, persistent bool) {
	var policy reliability.RetryPolicy = reliability.NoRetry
	if persistent {
		policy = reliability.NewExponentialBackoff(e.cfg.ConnectRetry, 30*e.cfg.ConnectRetry, 2.0, math.MaxInt32)
	}

	queue := PeerQueueName(peer)
	topology := rabbitmq.PeerQueue(e.cfg.Exchange, queue, peer.URI())

	err := reliability.Retry(ctx, policy, func() error {
		e.mu.RLock()
		b := e.broker
		e.mu.RUnlock()

		if err := b.DeclareTopology(ctx, topology); err != nil {
			e.logger.Warn("failed to declare peer queue", "peer", peer.URI(), "error", err)
			return err
		}
		q, err := b.InspectQueue(ctx, queue)
		if err != nil {
			return err
		}
		if q.Consumers == 0 {
			e.logger.Debug("peer not consuming yet", "peer", peer.URI(), "queue", queue)
			return fmt.Errorf("peer %s has no consumer on %s", peer.URI(), queue)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("peer unreachable", "peer", peer.URI(), "persistent", persistent, "error", err)
		}
		return
	}

	e.mu.Lock()
	if e.lost {
		// restore reconnects persistent peers
		e.mu.Unlock()
		return
	}
	if !e.connected[peer.URI()] {
		if len(e.connected) == 0 {
			close(e.ready)
		}
		e.connected[peer.URI()] = true
	}
	e.mu.Unlock()
	e.logger.Info("peer connected", "peer", peer.URI(), "queue", queue)
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

// IsConnected reports whether peer is connected
func (e *Engine) IsConnected(peer node.Peer) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected[peer.URI()]
}

// BrokerConnected reports whether the engine is started and its broker
// connection is up
func (e *Engine) BrokerConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started && !e.stopped && !e.lost
}

// SendRequestAny implements node.Engine. Peers are tried in order; a peer
// is skipped when it is not connected or its circuit is open, and a failed
// publish moves on to the next peer.
func (e *Engine) SendRequestAny(ctx context.Context, req *contracts.Message, peers []node.Peer, state any) error {
	if !req.IsRequest() {
		return node.ErrNotARequest
	}

	if req.Header.EndToEndID == 0 {
		req.Header.EndToEndID = e.endToEnd.Add(1)
	}
	req.Header.HopByHopID = e.hopByHop.Add(1)

	body, err := contracts.EncodeMessage(req, e.settings.HostID)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	correlationID := uuid.NewString()
	pending := &pendingRequest{state: state, done: make(chan struct{})}

	e.mu.Lock()
	if err := e.usable(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.lost {
		e.mu.Unlock()
		return &node.RoutingError{Peers: len(peers), LastErr: rabbitmq.ErrConnectionNotReady}
	}
	b, replyTo, engineCtx := e.broker, e.replyQueue, e.ctx
	e.pending[correlationID] = pending
	e.inFlight.Add(1)
	e.mu.Unlock()

	publishing := amqp.Publishing{
		ContentType:   contracts.ContentType,
		DeliveryMode:  amqp.Transient,
		CorrelationId: correlationID,
		ReplyTo:       replyTo,
		Timestamp:     time.Now(),
		AppId:         e.settings.ProductName,
		Type:          strconv.FormatUint(uint64(req.Header.CommandCode), 10),
		Headers: amqp.Table{
			"origin-host":  e.settings.HostID,
			"origin-realm": e.settings.Realm,
		},
		Body: body,
	}
	if deadline, ok := ctx.Deadline(); ok {
		if ttl := time.Until(deadline).Milliseconds(); ttl > 0 {
			publishing.Expiration = strconv.FormatInt(ttl, 10)
		}
	}

	attempts := 0
	var lastErr error
	for _, peer := range peers {
		if !e.IsConnected(peer) {
			continue
		}

		e.mu.Lock()
		pending.connKey = node.ConnKey(peer.URI())
		e.mu.Unlock()

		err := e.breaker(peer).Execute(ctx, func() error {
			attempts++
			return b.Publish(ctx, e.cfg.Exchange, peer.URI(), true, publishing)
		})
		if err == nil {
			e.logger.Debug("request published", "peer", peer.URI(), "correlationId", correlationID, "request", req.String())
			e.abandonWhenDone(ctx, engineCtx, correlationID, pending)
			return nil
		}
		if errors.Is(err, rabbitmq.ErrPublishTimeout) {
			// the broker may still have routed it, so another peer must not get a copy
			e.logger.Warn("publish not confirmed, awaiting answer", "peer", peer.URI(), "correlationId", correlationID, "error", err)
			e.abandonWhenDone(ctx, engineCtx, correlationID, pending)
			return nil
		}

		lastErr = err
		if !errors.Is(err, reliability.ErrCircuitOpen) {
			e.logger.Warn("publish to peer failed", "peer", peer.URI(), "correlationId", correlationID, "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	e.takePending(correlationID, 0)
	return &node.RoutingError{Peers: len(peers), Attempts: attempts, LastErr: lastErr}
}

// abandonWhenDone forgets the request once the caller stops waiting for it
func (e *Engine) abandonWhenDone(ctx, engineCtx context.Context, correlationID string, pending *pendingRequest) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			if _, ok := e.takePending(correlationID, outcomeAbandoned); ok {
				e.logger.Debug("request abandoned", "correlationId", correlationID, "reason", ctx.Err())
			}
		case <-pending.done:
		case <-engineCtx.Done():
		}
	}()
}

// handleAnswerDelivery matches an answer from the reply queue to its request
func (e *Engine) handleAnswerDelivery(ctx context.Context, d amqp.Delivery) error {
	correlationID := d.CorrelationId
	if correlationID == "" {
		return fmt.Errorf("%w: answer without correlation id", contracts.ErrInvalidEnvelope)
	}

	answer, _, err := contracts.DecodeMessage(d.Body)
	if err != nil {
		return fmt.Errorf("failed to decode answer %s: %w", correlationID, err)
	}
	if answer.IsRequest() {
		e.logger.Warn("dropping request received as answer", "correlationId", correlationID)
		return nil
	}

	pending, ok := e.takePending(correlationID, outcomeAnswered)
	if !ok {
		switch last, _ := e.finished.Get(correlationID); last {
		case outcomeAnswered:
			e.logger.Warn("duplicate answer suppressed", "correlationId", correlationID)
		case outcomeAbandoned:
			e.logger.Debug("late answer for abandoned request", "correlationId", correlationID)
		default:
			e.logger.Warn("answer for unknown request", "correlationId", correlationID)
		}
		return nil
	}

	e.handler.HandleAnswer(answer, pending.connKey, pending.state)
	return nil
}

// takePending removes and returns the pending request for correlationID,
// remembering how it ended unless result is zero
func (e *Engine) takePending(correlationID string, result outcome) (*pendingRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, ok := e.pending[correlationID]
	if !ok {
		return nil, false
	}
	e.dropPending(correlationID, pending)
	if result != 0 {
		e.finished.Add(correlationID, result)
	}
	return pending, true
}

// dropPending must be called with mu held
func (e *Engine) dropPending(correlationID string, pending *pendingRequest) {
	delete(e.pending, correlationID)
	close(pending.done)
	e.inFlight.Done()
}

func (e *Engine) breaker(peer node.Peer) *reliability.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	cb, ok := e.breakers[peer.URI()]
	if !ok {
		cb = reliability.NewCircuitBreaker(
			reliability.WithName(peer.URI()),
			reliability.WithFailureThreshold(e.cfg.FailureThreshold),
			reliability.WithCoolDown(e.cfg.CoolDown),
			reliability.WithMaxProbes(e.cfg.MaxProbes),
			reliability.WithSuccessThreshold(e.cfg.SuccessThreshold),
			reliability.WithListener(e),
		)
		e.breakers[peer.URI()] = cb
	}
	return cb
}

// OnStateChange logs peer circuit transitions
func (e *Engine) OnStateChange(name string, from, to reliability.State, reason string) {
	level := slog.LevelInfo
	if to == reliability.StateOpen {
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "peer circuit changed", "peer", name, "from", from, "to", to, "reason", reason)
}

// OnConnected re-creates the reply queue and peer connections after the
// broker connection comes back
func (e *Engine) OnConnected() {
	e.restore()
}

// OnDisconnected drops peer connections and requests whose answers can no
// longer arrive on the lost reply queue
func (e *Engine) OnDisconnected(err error) {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.generation++
	if !e.lost {
		e.lost = true

		if len(e.connected) > 0 {
			e.connected = make(map[string]bool)
			e.ready = make(chan struct{})
		}

		dropped := len(e.pending)
		for id, pending := range e.pending {
			e.dropPending(id, pending)
		}
		e.logger.Error("broker connection lost", "error", err, "droppedRequests", dropped)
	}
	b := e.broker
	e.mu.Unlock()

	// the connection may already be back if the reconnect was reported first
	if b.Connected() {
		e.restore()
	}
}

// restore brings a lost engine back on the current broker connection
func (e *Engine) restore() {
	e.mu.Lock()
	if !e.lost || e.stopped || e.restoring {
		e.mu.Unlock()
		return
	}
	e.restoring = true

	for {
		generation, b, stale := e.generation, e.broker, e.replyQueue
		e.mu.Unlock()

		queue, err := e.declareReplies(b, stale)

		e.mu.Lock()
		if err != nil || e.stopped {
			e.restoring = false
			e.mu.Unlock()
			if err != nil {
				e.logger.Error("failed to restore reply queue", "error", err)
			}
			return
		}
		e.replyQueue = queue
		if generation == e.generation {
			break
		}
		if !b.Connected() {
			// lost again, the next OnConnected takes over
			e.restoring = false
			e.mu.Unlock()
			return
		}
	}

	e.restoring = false
	e.lost = false
	for _, cb := range e.breakers {
		cb.Reset()
	}
	peers := make([]node.Peer, 0, len(e.persistent))
	for _, peer := range e.persistent {
		peers = append(peers, peer)
	}
	ctx, replyQueue := e.ctx, e.replyQueue
	e.mu.Unlock()

	e.logger.Info("broker connection restored", "replyQueue", replyQueue, "peers", len(peers))
	for _, peer := range peers {
		go e.connect(ctx, peer, true)
	}
}

// OnReconnecting logs reconnection attempts
func (e *Engine) OnReconnecting(attempt int) {
	e.logger.Info("reconnecting to broker", "attempt", attempt)
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

// PeerQueueName returns the queue a peer consumes requests from
func PeerQueueName(peer node.Peer) string {
	port := peer.Port
	if port == 0 {
		port = node.DefaultPort
	}
	return fmt.Sprintf("diameter.peer.%s.%d", peer.Host, port)
}
