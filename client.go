// Copyright 2024 The diameter-go Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diameter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/diameter-go/bridge"
	"github.com/glimte/diameter-go/node"
	"github.com/glimte/diameter-go/transports/memory"
	rabbitmqTransport "github.com/glimte/diameter-go/transports/rabbitmq"
)

// NewSimpleSyncClient creates a started synchronous client that reaches
// peers through the RabbitMQ broker at url. Connections to the peers are
// initiated but not awaited; use WaitForConnection before the first request
// if it must not fail as not routable.
func NewSimpleSyncClient(url string, settings node.Settings, peers []node.Peer, options ...ClientOption) (*bridge.SyncClient, error) {
	cfg := newClientConfig(options)

	engineOpts := append([]rabbitmqTransport.EngineOption{rabbitmqTransport.WithLogger(cfg.logger)}, cfg.engineOptions...)
	engine, err := rabbitmqTransport.NewEngine(url, settings, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return startClient(engine, peers, cfg)
}

// NewInProcessSyncClient creates a started synchronous client over an
// in-process engine. When engine is nil one is created from settings.
func NewInProcessSyncClient(settings node.Settings, peers []node.Peer, engine *memory.Engine, options ...ClientOption) (*bridge.SyncClient, error) {
	cfg := newClientConfig(options)

	if engine == nil {
		var err error
		engine, err = memory.NewEngine(settings, memory.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
	}

	return startClient(engine, peers, cfg)
}

func startClient(engine node.Engine, peers []node.Peer, cfg *clientConfig) (*bridge.SyncClient, error) {
	clientOpts := append([]bridge.ClientOption{bridge.WithLogger(cfg.logger)}, cfg.clientOptions...)
	if cfg.timeout > 0 {
		clientOpts = append(clientOpts, bridge.WithDefaultTimeout(cfg.timeout))
	}

	client, err := bridge.NewSyncClient(engine, peers, clientOpts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.startTimeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		client.Stop(0)
		return nil, err
	}
	return client, nil
}

// clientConfig holds client configuration
type clientConfig struct {
	logger        *slog.Logger
	timeout       time.Duration
	startTimeout  time.Duration
	engineOptions []rabbitmqTransport.EngineOption
	clientOptions []bridge.ClientOption
}

func newClientConfig(options []ClientOption) *clientConfig {
	cfg := &clientConfig{
		logger:       slog.Default(),
		startTimeout: 30 * time.Second,
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithTimeout bounds every request. Without it a request whose answer never
// arrives blocks forever.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithStartTimeout bounds connecting to the broker
func WithStartTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.startTimeout = timeout
	}
}

// WithEngineOptions passes options to the RabbitMQ engine
func WithEngineOptions(opts ...rabbitmqTransport.EngineOption) ClientOption {
	return func(cfg *clientConfig) {
		cfg.engineOptions = append(cfg.engineOptions, opts...)
	}
}

// WithClientOptions passes options to the synchronous client
func WithClientOptions(opts ...bridge.ClientOption) ClientOption {
	return func(cfg *clientConfig) {
		cfg.clientOptions = append(cfg.clientOptions, opts...)
	}
}
