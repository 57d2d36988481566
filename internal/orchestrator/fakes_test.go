package orchestrator

import (
	"context"
	"sync"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

// fakeDriver is a scriptable transport.Driver, in the teacher's style of
// hand-written test doubles behind small interfaces rather than a network
// round trip.
type fakeDriver struct {
	mu sync.Mutex

	sendRequestFn func(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error)
	sendRawFn     func(ctx context.Context, payload interface{}) (*jsonrpc.Message, error)
	sendBatchFn   func(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error)

	requests []string
}

func (f *fakeDriver) Connect(ctx context.Context) error    { return nil }
func (f *fakeDriver) Disconnect(ctx context.Context) error { return nil }

func (f *fakeDriver) SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
	f.mu.Lock()
	f.requests = append(f.requests, method)
	f.mu.Unlock()
	if f.sendRequestFn != nil {
		return f.sendRequestFn(ctx, method, params)
	}
	return jsonrpc.NewSuccess(1, map[string]interface{}{"ok": true})
}

func (f *fakeDriver) SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	if f.sendRawFn != nil {
		return f.sendRawFn(ctx, payload)
	}
	msg, _ := payload.(*jsonrpc.Message)
	if msg == nil {
		return jsonrpc.NewSuccess(1, nil)
	}
	return jsonrpc.NewSuccess(msg.ID, nil)
}

func (f *fakeDriver) SendNotification(ctx context.Context, method string, params interface{}) error {
	return nil
}

func (f *fakeDriver) SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
	if f.sendBatchFn != nil {
		return f.sendBatchFn(ctx, batch)
	}
	out := make([]*jsonrpc.Message, 0, len(batch))
	for _, m := range batch {
		if m.Classify() != jsonrpc.KindRequest {
			continue
		}
		resp, _ := jsonrpc.NewSuccess(m.ID, nil)
		out = append(out, resp)
	}
	return out, nil
}

func (f *fakeDriver) StreamRequest(ctx context.Context, payload interface{}) (<-chan transport.StreamChunk, error) {
	ch := make(chan transport.StreamChunk, 1)
	ch <- transport.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

// fixedBatch replays a pre-built batch of messages regardless of kind/
// phase/runIndex, letting tests pin exact ids to exercise CheckBatch.
type fixedBatch struct {
	batch []*jsonrpc.Message
}

func fixedBatchMutator(batch []*jsonrpc.Message) batchMutator {
	return &fixedBatch{batch: batch}
}

func (f *fixedBatch) Mutate(kinds []mutate.Kind, phase schema.Phase, runIndex int) ([]*jsonrpc.Message, error) {
	return f.batch, nil
}

func serverErrorDriver(code int, message string) *fakeDriver {
	return &fakeDriver{
		sendRequestFn: func(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
			msg := jsonrpc.NewErrorResponse(1, code, message, nil)
			return msg, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerReturnedError, message, nil)
		},
	}
}
