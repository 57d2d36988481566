package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
)

// StdioDriver implements: newline-delimited JSON over a
// child process's stdin/stdout. It does not itself spawn the process — the
// process supervisor owns that — only the framing and id-demultiplexing
// over whatever io.WriteCloser/io.Reader it's given.
type StdioDriver struct {
	writer io.WriteCloser
	reader *bufio.Scanner

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *jsonrpc.Message

	closed   chan struct{}
	closeMu  sync.Mutex
	isClosed bool
}

// NewStdioDriver wraps a child's stdin/stdout, starting the background
// reader loop immediately.
func NewStdioDriver(stdin io.WriteCloser, stdout io.Reader) *StdioDriver {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	d := &StdioDriver{
		writer:  stdin,
		reader:  scanner,
		pending: make(map[string]chan *jsonrpc.Message),
		closed:  make(chan struct{}),
	}
	go d.readLoop()
	return d
}

func (d *StdioDriver) readLoop() {
	for d.reader.Scan() {
		line := d.reader.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg jsonrpc.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue // malformed line from the server; nothing correlates to it
		}
		d.dispatch(&msg)
	}
	d.failAllPending()
}

func (d *StdioDriver) dispatch(msg *jsonrpc.Message) {
	if !msg.HasID() {
		return // notification from server; nothing is awaiting it
	}
	key := idKeyFor(msg.ID)
	d.pendingMu.Lock()
	ch, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.pendingMu.Unlock()
	if ok {
		ch <- msg
	}
}

func (d *StdioDriver) failAllPending() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	for key, ch := range d.pending {
		close(ch)
		delete(d.pending, key)
	}
}

func (d *StdioDriver) Connect(ctx context.Context) error { return nil }

func (d *StdioDriver) Disconnect(ctx context.Context) error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.isClosed {
		return nil
	}
	d.isClosed = true
	close(d.closed)
	return d.writer.Close()
}

func (d *StdioDriver) SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
	req, err := jsonrpc.NewRequest(nextHTTPID(), method, params)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building request", err)
	}
	resp, err := d.roundTrip(ctx, req, req.ID)
	if err != nil {
		return nil, err
	}
	if resp.HasError() {
		return resp, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerReturnedError, resp.Error.Message, nil)
	}
	return resp, nil
}

func (d *StdioDriver) SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	msg, ok := payload.(*jsonrpc.Message)
	if !ok || !msg.HasID() {
		// No id to correlate by: write it and don't wait for a reply.
		if err := d.writeLine(payload); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return d.roundTrip(ctx, payload, msg.ID)
}

func (d *StdioDriver) SendNotification(ctx context.Context, method string, params interface{}) error {
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building notification", err)
	}
	return d.writeLine(note)
}

func (d *StdioDriver) SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
	waiters := make(map[string]chan *jsonrpc.Message)
	for _, msg := range batch {
		if msg.HasID() {
			key := idKeyFor(msg.ID)
			ch := make(chan *jsonrpc.Message, 1)
			d.pendingMu.Lock()
			d.pending[key] = ch
			d.pendingMu.Unlock()
			waiters[key] = ch
		}
	}

	if err := d.writeLine(batch); err != nil {
		return nil, err
	}

	out := make([]*jsonrpc.Message, 0, len(waiters))
	for _, ch := range waiters {
		select {
		case msg, ok := <-ch:
			if ok {
				out = append(out, msg)
			}
		case <-ctx.Done():
			return out, fuzzerr.New(fuzzerr.CategoryTimeout, fuzzerr.ReasonRequestTimeout, "batch timed out", ctx.Err())
		}
	}
	return out, nil
}

func (d *StdioDriver) StreamRequest(ctx context.Context, payload interface{}) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 1)
	resp, err := d.SendRaw(ctx, payload)
	if err != nil {
		ch <- StreamChunk{Err: err, Done: true}
		close(ch)
		return ch, nil
	}
	raw, _ := json.Marshal(resp)
	ch <- StreamChunk{Data: raw, Done: true}
	close(ch)
	return ch, nil
}

func (d *StdioDriver) roundTrip(ctx context.Context, payload interface{}, id interface{}) (*jsonrpc.Message, error) {
	key := idKeyFor(id)
	respCh := make(chan *jsonrpc.Message, 1)
	d.pendingMu.Lock()
	d.pending[key] = respCh
	d.pendingMu.Unlock()

	if err := d.writeLine(payload); err != nil {
		d.pendingMu.Lock()
		delete(d.pending, key)
		d.pendingMu.Unlock()
		return nil, err
	}

	select {
	case msg, ok := <-respCh:
		if !ok {
			return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "stdio transport closed", nil)
		}
		return msg, nil
	case <-ctx.Done():
		d.pendingMu.Lock()
		delete(d.pending, key)
		d.pendingMu.Unlock()
		return nil, fuzzerr.New(fuzzerr.CategoryTimeout, fuzzerr.ReasonRequestTimeout, "request timed out", ctx.Err())
	case <-d.closed:
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "stdio transport closed", nil)
	}
}

// writeLine serializes payload and writes it as a single line. A single
// lock serializes writes across concurrent callers.
func (d *StdioDriver) writeLine(payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "marshaling payload", err)
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.writer.Write(append(raw, '\n')); err != nil {
		return fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "writing to child stdin", err)
	}
	return nil
}

func idKeyFor(id interface{}) string {
	return fmt.Sprintf("%T:%v", id, id)
}
