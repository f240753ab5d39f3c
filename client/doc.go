// Package client builds JSON-RPC 2.0 calls and correlates their responses.
//
// Builders are immutable values: every setter returns a copy, so a partly
// configured Request, Notification or Batch can be shared as a template
// between goroutines. The Client they run on owns the Transport, the
// IDGenerator used for requests without an explicit id, and the logger.
//
// Errors are classified with errors.Is and errors.As:
//   - ErrTransport: the transport failed; the call was not retried.
//   - ErrProtocol: the response broke the envelope rules.
//   - ErrConfig: the builder could not produce a valid call.
//   - *RPCError: the server answered with an error object.
//   - *BatchError: some calls of a batch failed; it holds both outcomes.
package client
