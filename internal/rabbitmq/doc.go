// Package rabbitmq is the AMQP plumbing under the broker-backed node engine.
//
// It provides:
//   - ConnectionManager: owns the broker connection and re-dials it with backoff
//   - ChannelPool: hands out channels on that connection
//   - Publisher: mandatory publishes with publisher confirms and retries
//   - Consumer: one delivery loop per subscribed queue
//   - TopologyManager: exchanges, queues and bindings
package rabbitmq
