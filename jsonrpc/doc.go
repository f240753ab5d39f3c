// Package jsonrpc defines the JSON-RPC 2.0 envelope shared by the server dispatcher
// and the client builders.
//
// This package implements the message model of the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification). It does no routing or transport; see
// the server and client packages for those.
//
// # Requests
//
// A Request with a nil ID is a notification: it is encoded without an "id"
// member and the receiver sends no response for it.
//
//	req := jsonrpc.Request{Version: jsonrpc.Version, Method: "add", ID: jsonrpc.IntID(5)}
//
// Decoding keeps track of whether the "id" member was present, so an explicit
// "id": null is still a call and not a notification.
//
// # IDs
//
// An ID is a JSON string, number or null. Numbers keep their textual form so an
// id is echoed back byte for byte. Use ID.Key to compare ids from different
// sources.
//
// # Responses
//
// A Response carries exactly one of Result or Error. A nil Result on a success
// response encodes as "result": null.
//
// # Errors
//
// Error implements the error interface, so handlers may return it directly.
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// Codes in [CodeServerErrorMin, CodeServerErrorMax] are reserved for
// application defined server errors.
package jsonrpc
