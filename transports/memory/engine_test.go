package memory

import (
	"context"
	"testing"
	"time"

	"github.com/glimte/diameter-go/contracts"
	"github.com/glimte/diameter-go/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	answer  *contracts.Message
	connKey node.ConnKey
	state   any
}

type recordingHandler chan dispatched

func (h recordingHandler) HandleAnswer(answer *contracts.Message, connKey node.ConnKey, state any) {
	h <- dispatched{answer, connKey, state}
}

func testSettings(t *testing.T) node.Settings {
	t.Helper()
	var capability node.Capability
	capability.AddAuthApp(contracts.ApplicationNASREQ)
	settings, err := node.NewSettings("client.example", "example", 1, capability, 3868, "diameter-go", 1)
	require.NoError(t, err)
	return settings
}

func echo(ctx context.Context, req *contracts.Message) *contracts.Message {
	answer := contracts.NewAnswer(req)
	answer.Add(contracts.AVP{Code: contracts.AVPResultCode, Data: []byte{0, 0, 0x07, 0xd1}})
	return answer
}

func startedEngine(t *testing.T, opts ...EngineOption) (*Engine, recordingHandler) {
	t.Helper()
	engine, err := NewEngine(testSettings(t), opts...)
	require.NoError(t, err)

	handler := make(recordingHandler, 8)
	require.NoError(t, engine.Start(context.Background(), handler))
	t.Cleanup(func() { engine.Stop(time.Second) })
	return engine, handler
}

func connect(t *testing.T, engine *Engine, peer node.Peer) {
	t.Helper()
	require.NoError(t, engine.InitiateConnection(peer, true))
	require.Eventually(t, func() bool { return engine.IsConnected(peer) }, time.Second, time.Millisecond)
}

func awaitDispatch(t *testing.T, handler recordingHandler) dispatched {
	t.Helper()
	select {
	case d := <-handler:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no answer dispatched")
		return dispatched{}
	}
}

func TestEngineLifecycle(t *testing.T) {
	t.Run("NewEngine validates settings", func(t *testing.T) {
		_, err := NewEngine(node.Settings{})
		assert.ErrorIs(t, err, node.ErrInvalidSettings)
	})

	t.Run("Start requires a handler and runs once", func(t *testing.T) {
		engine, err := NewEngine(testSettings(t))
		require.NoError(t, err)

		assert.Error(t, engine.Start(context.Background(), nil))
		require.NoError(t, engine.Start(context.Background(), make(recordingHandler)))
		assert.Error(t, engine.Start(context.Background(), make(recordingHandler)))
		require.NoError(t, engine.Stop(time.Second))
	})

	t.Run("engine must be started before use", func(t *testing.T) {
		engine, err := NewEngine(testSettings(t))
		require.NoError(t, err)

		peer := node.NewPeer("aaa.example")
		assert.ErrorIs(t, engine.InitiateConnection(peer, true), node.ErrNotStarted)
		assert.ErrorIs(t, engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), []node.Peer{peer}, nil), node.ErrNotStarted)
	})

	t.Run("stopped engine rejects work", func(t *testing.T) {
		engine, err := NewEngine(testSettings(t))
		require.NoError(t, err)
		require.NoError(t, engine.Start(context.Background(), make(recordingHandler)))
		require.NoError(t, engine.Stop(time.Second))

		peer := node.NewPeer("aaa.example")
		assert.ErrorIs(t, engine.InitiateConnection(peer, true), node.ErrStopped)
		assert.ErrorIs(t, engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), []node.Peer{peer}, nil), node.ErrStopped)
		assert.ErrorIs(t, engine.Start(context.Background(), make(recordingHandler)), node.ErrStopped)
	})
}

func TestEngineConnections(t *testing.T) {
	t.Run("registered peer connects asynchronously", func(t *testing.T) {
		engine, _ := startedEngine(t, WithConnectDelay(20*time.Millisecond))
		peer := node.NewPeer("aaa.example")
		engine.Register(peer, echo)

		require.NoError(t, engine.InitiateConnection(peer, true))
		assert.False(t, engine.IsConnected(peer))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, engine.WaitForConnection(ctx))
		assert.True(t, engine.IsConnected(peer))
	})

	t.Run("persistent connection retries until the peer appears", func(t *testing.T) {
		engine, _ := startedEngine(t, WithRetryInterval(5*time.Millisecond))
		peer := node.NewPeer("late.example")

		require.NoError(t, engine.InitiateConnection(peer, true))
		time.Sleep(20 * time.Millisecond)
		assert.False(t, engine.IsConnected(peer))

		engine.Register(peer, echo)
		assert.Eventually(t, func() bool { return engine.IsConnected(peer) }, time.Second, time.Millisecond)
	})

	t.Run("WaitForConnection honours its context", func(t *testing.T) {
		engine, _ := startedEngine(t)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, engine.WaitForConnection(ctx), context.DeadlineExceeded)
	})
}

func TestEngineSendRequestAny(t *testing.T) {
	t.Run("answers are dispatched with the caller's state", func(t *testing.T) {
		engine, handler := startedEngine(t)
		peer := node.NewPeer("aaa.example")
		engine.Register(peer, echo)
		connect(t, engine, peer)

		req := contracts.NewRequest(contracts.ApplicationAccounting, contracts.CommandAccounting)
		state := &struct{ name string }{"call-1"}
		require.NoError(t, engine.SendRequestAny(context.Background(), req, []node.Peer{peer}, state))

		d := awaitDispatch(t, handler)
		assert.Same(t, state, d.state)
		assert.Equal(t, node.ConnKey(peer.URI()), d.connKey)
		assert.False(t, d.answer.IsRequest())
		assert.NotZero(t, req.Header.EndToEndID)
		assert.Equal(t, req.Header.EndToEndID, d.answer.Header.EndToEndID)
		assert.Equal(t, req.Header.HopByHopID, d.answer.Header.HopByHopID)
	})

	t.Run("an existing end-to-end id is kept", func(t *testing.T) {
		engine, handler := startedEngine(t)
		peer := node.NewPeer("aaa.example")
		engine.Register(peer, echo)
		connect(t, engine, peer)

		req := contracts.NewRequest(contracts.ApplicationAccounting, contracts.CommandAccounting)
		req.Header.EndToEndID = 1234
		require.NoError(t, engine.SendRequestAny(context.Background(), req, []node.Peer{peer}, nil))

		assert.Equal(t, uint32(1234), awaitDispatch(t, handler).answer.Header.EndToEndID)
	})

	t.Run("non-requests are rejected", func(t *testing.T) {
		engine, _ := startedEngine(t)
		peer := node.NewPeer("aaa.example")

		answer := contracts.NewAnswer(contracts.NewRequest(3, 271))
		assert.ErrorIs(t, engine.SendRequestAny(context.Background(), answer, []node.Peer{peer}, nil), node.ErrNotARequest)
		assert.ErrorIs(t, engine.SendRequestAny(context.Background(), nil, []node.Peer{peer}, nil), node.ErrNotARequest)
	})

	t.Run("empty peer set is not routable", func(t *testing.T) {
		engine, _ := startedEngine(t)

		err := engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), nil, nil)
		assert.ErrorIs(t, err, node.ErrNotRoutable)
	})

	t.Run("unconnected peers are skipped in order", func(t *testing.T) {
		engine, handler := startedEngine(t)
		down, up := node.NewPeer("down.example"), node.NewPeer("up.example")
		engine.Register(down, echo)
		engine.Register(up, echo)
		connect(t, engine, down)
		connect(t, engine, up)
		engine.Disconnect(down)

		require.NoError(t, engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), []node.Peer{down, up}, nil))
		assert.Equal(t, node.ConnKey(up.URI()), awaitDispatch(t, handler).connKey)

		engine.Disconnect(up)
		err := engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), []node.Peer{down, up}, nil)
		assert.ErrorIs(t, err, node.ErrNotRoutable)
	})

	t.Run("silent or misbehaving peers dispatch nothing", func(t *testing.T) {
		engine, handler := startedEngine(t)
		silent, broken, asks := node.NewPeer("silent.example"), node.NewPeer("broken.example"), node.NewPeer("asks.example")
		engine.Register(silent, func(ctx context.Context, req *contracts.Message) *contracts.Message { return nil })
		engine.Register(broken, func(ctx context.Context, req *contracts.Message) *contracts.Message { panic("boom") })
		engine.Register(asks, func(ctx context.Context, req *contracts.Message) *contracts.Message { return req })
		for _, p := range []node.Peer{silent, broken, asks} {
			connect(t, engine, p)
			require.NoError(t, engine.SendRequestAny(context.Background(), contracts.NewRequest(3, 271), []node.Peer{p}, nil))
		}

		require.NoError(t, engine.Stop(time.Second))
		assert.Empty(t, handler)
	})
}
