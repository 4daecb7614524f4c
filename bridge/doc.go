// Package bridge provides a synchronous request-answer client over an
// asynchronous Diameter node engine.
//
// Each call creates a single-use token that is handed to the engine as opaque
// state. The engine later passes the token back to HandleAnswer together with
// the answer, which wakes the blocked caller. Correlation is carried by the
// token reference itself, so the bridge keeps no table of pending calls.
//
// Basic usage:
//
//	client, err := bridge.NewSyncClient(engine, peers)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocks until the answer arrives; nil when no peer could take the request
//	answer := client.SendRequest(request)
//
// SendRequest waits forever unless WithDefaultTimeout is set. Use
// SendRequestContext to bound a single call and to see why no answer came back:
//
//	answer, err := client.SendRequestContext(ctx, request)
//	switch {
//	case errors.Is(err, node.ErrNotRoutable):
//	case errors.Is(err, bridge.ErrTimeout):
//	}
package bridge
