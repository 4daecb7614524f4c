package bridge

import (
	"context"
	"sync"

	"github.com/glimte/diameter-go/contracts"
)

// syncCall is the per-call token passed through the engine as opaque state.
// It is completed at most once; ready is closed under mu when that happens.
type syncCall struct {
	id uint64

	mu          sync.Mutex
	answerReady bool
	answer      *contracts.Message
	ready       chan struct{}
}

func newSyncCall(id uint64) *syncCall {
	return &syncCall{
		id:    id,
		ready: make(chan struct{}),
	}
}

// deliver stores the answer and wakes the waiter. A second delivery keeps the
// first answer and returns ErrDuplicateAnswer.
func (c *syncCall) deliver(answer *contracts.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.answerReady {
		return ErrDuplicateAnswer
	}
	c.answer = answer
	c.answerReady = true
	close(c.ready)
	return nil
}

// wait blocks until an answer is delivered or ctx is done
func (c *syncCall) wait(ctx context.Context) (*contracts.Message, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		// an answer may have raced the cancellation
		if answer, ok := c.result(); ok {
			return answer, nil
		}
		return nil, ctx.Err()
	}

	answer, _ := c.result()
	return answer, nil
}

// result returns the answer without blocking
func (c *syncCall) result() (*contracts.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer, c.answerReady
}
