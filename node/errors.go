package node

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRoutable is returned when no candidate peer accepted a request
	ErrNotRoutable = errors.New("node: not routable")
	// ErrNotARequest is returned when an answer or malformed message is submitted as a request
	ErrNotARequest = errors.New("node: not a request")
	// ErrNotStarted is returned when the engine is used before Start
	ErrNotStarted = errors.New("node: engine not started")
	// ErrStopped is returned when the engine is used after Stop
	ErrStopped = errors.New("node: engine stopped")
	// ErrInvalidSettings is returned when node settings fail validation
	ErrInvalidSettings = errors.New("node: invalid settings")
)

// RoutingError describes why a request could not be routed to any peer
type RoutingError struct {
	Peers    int   // Number of candidate peers
	Attempts int   // Number of peers a send was attempted on
	LastErr  error // Last per-peer failure, if any
}

func (e *RoutingError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("node: not routable: %d/%d peers attempted: %v", e.Attempts, e.Peers, e.LastErr)
	}
	return fmt.Sprintf("node: not routable: no usable peer among %d", e.Peers)
}

// Is makes RoutingError match ErrNotRoutable
func (e *RoutingError) Is(target error) bool {
	return target == ErrNotRoutable
}

func (e *RoutingError) Unwrap() error {
	return e.LastErr
}
