// Package transport implements the pluggable JSON-RPC driver abstraction:
// HTTP, streamable HTTP (with session/protocol-version headers and
// redirect discipline), SSE, and child-process stdio, all behind one
// Driver contract the orchestrator drives uniformly.
package transport

import (
	"context"

	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
)

// Driver is the contract every transport implements.
type Driver interface {
	// Connect establishes whatever connection state the driver needs.
	// Idempotent.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down. Idempotent: a second call is
	// a no-op and never errors.
	Disconnect(ctx context.Context) error

	// SendRequest builds a well-formed request envelope with a fresh id,
	// sends it, and returns the decoded result (or an error derived from
	// the response's error object).
	SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error)

	// SendRaw sends an arbitrary, possibly malformed payload without
	// synthesizing or validating an envelope — the point of protocol
	// fuzzing. payload is typically a *jsonrpc.Message built by
	// internal/mutate, but may be any JSON-marshalable value.
	SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error)

	// SendNotification fires a notification (no id) and does not await a
	// response.
	SendNotification(ctx context.Context, method string, params interface{}) error

	// SendBatch sends a batch of messages and returns the server's
	// responses. Drivers do not match them to requests by id: HTTP-based
	// drivers return the array in the order received, and stdio returns
	// the responses to id-bearing messages in no defined order. Pairing by
	// id is done by jsonrpc.CheckBatch.
	SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error)

	// StreamRequest sends payload and returns a channel of raw chunks for
	// transports that support partial/streaming responses. Non-streaming
	// drivers emit exactly one chunk.
	StreamRequest(ctx context.Context, payload interface{}) (<-chan StreamChunk, error)
}

// StreamChunk is one piece of a streamed response, or a terminal error.
type StreamChunk struct {
	Data []byte
	Err  error
	Done bool
}
