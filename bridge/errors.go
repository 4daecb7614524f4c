package bridge

import (
	"errors"
)

var (
	// ErrTimeout is returned when a bounded call gets no answer in time
	ErrTimeout = errors.New("bridge: timed out waiting for answer")
	// ErrCancelled is returned when the caller's context is cancelled while waiting
	ErrCancelled = errors.New("bridge: call cancelled")
	// ErrDuplicateAnswer is reported when an answer is delivered to a call that already has one
	ErrDuplicateAnswer = errors.New("bridge: answer already delivered")
	// ErrNilEngine is returned when a client is created without an engine
	ErrNilEngine = errors.New("bridge: engine cannot be nil")
)
