// Package node defines the contract between the synchronous bridge and the
// asynchronous Diameter node engine that owns connections, peer routing and
// wire encoding.
//
// An Engine accepts requests together with an opaque state value and later
// hands that value back to an AnswerHandler alongside the answer. Engines
// report synchronous submission failures with the sentinel errors
// ErrNotRoutable and ErrNotARequest so callers can classify them with
// errors.Is.
package node
