package node

import (
	"context"
	"time"

	"github.com/glimte/diameter-go/contracts"
)

// ConnKey identifies the connection an answer arrived on
type ConnKey string

// AnswerHandler receives answers to requests submitted through an Engine
type AnswerHandler interface {
	// HandleAnswer is called at most once per accepted request, from an
	// engine goroutine, with the state value given to SendRequestAny.
	// Implementations must not block.
	HandleAnswer(answer *contracts.Message, connKey ConnKey, state any)
}

// AnswerHandlerFunc adapts a function to AnswerHandler
type AnswerHandlerFunc func(answer *contracts.Message, connKey ConnKey, state any)

// HandleAnswer implements AnswerHandler
func (f AnswerHandlerFunc) HandleAnswer(answer *contracts.Message, connKey ConnKey, state any) {
	f(answer, connKey, state)
}

// Engine is the asynchronous node that routes requests to peers
type Engine interface {
	// Start brings the engine up and registers the handler that receives answers
	Start(ctx context.Context, handler AnswerHandler) error

	// Stop shuts the engine down, waiting at most grace for in-flight work
	Stop(grace time.Duration) error

	// InitiateConnection starts connecting to peer and returns without waiting
	// for the connection to be established
	InitiateConnection(peer Peer, persistent bool) error

	// WaitForConnection blocks until at least one peer connection is ready
	WaitForConnection(ctx context.Context) error

	// SendRequestAny submits req to the first usable peer in peers. It returns
	// ErrNotRoutable when no peer accepted the request and ErrNotARequest when
	// req is not a request. A nil error means the request was accepted and
	// state will be passed back through the AnswerHandler if an answer arrives.
	// Once ctx is done the engine may forget the request, and an answer that
	// arrives after that is dropped.
	SendRequestAny(ctx context.Context, req *contracts.Message, peers []Peer, state any) error
}
