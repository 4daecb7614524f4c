// Package reliability provides the fault-isolation primitives used by the
// broker-backed node engine.
//
// Components:
//   - CircuitBreaker: tracks a single upstream peer and stops routing to it
//     after repeated send failures, probing it again after a cool-down
//   - RetryPolicy: exponential and fixed backoff policies, applied to publishes
//     and to peer queue declaration
//
// Example usage:
//
//	breaker := reliability.NewCircuitBreaker(reliability.WithName(peer.URI()))
//	if err := breaker.Allow(); err != nil {
//	    // skip this peer
//	}
//	err := reliability.Retry(ctx, reliability.NewFixedDelay(time.Second, 3), send)
//	breaker.Record(err)
package reliability
