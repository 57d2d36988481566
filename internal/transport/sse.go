package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
)

// readSSEBody parses `event:`/`data:` lines per the SSE format: data
// lines accumulate until a blank-line boundary, and the concatenated
// text is returned as the single JSON value for that message.
func readSSEBody(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			chunk := strings.TrimPrefix(line, "data:")
			chunk = strings.TrimPrefix(chunk, " ")
			data.WriteString(chunk)
		case strings.HasPrefix(line, "event:"):
			// Event names don't affect JSON-RPC correlation here; the fuzzer
			// only cares about the data payload.
		case line == "":
			if data.Len() > 0 {
				return data.Bytes(), nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "reading SSE stream", err)
	}
	if data.Len() > 0 {
		return data.Bytes(), nil
	}
	return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "SSE stream ended with no data", nil)
}

// SSEDriver implements a streaming GET whose response frames are parsed
// as SSE. The first complete data event of each response is taken as the
// reply; its id is not compared with the request's. Every call opens its
// own request; there is no persistent connection to share between calls.
type SSEDriver struct {
	Endpoint  string
	HostAllow *safety.HostAllowList
	Auth      map[string]string

	client *http.Client
	mu     sync.Mutex
}

// NewSSEDriver builds an SSEDriver.
func NewSSEDriver(endpoint string, hostAllow *safety.HostAllowList, timeout time.Duration, auth map[string]string) *SSEDriver {
	if hostAllow == nil {
		hostAllow = safety.NewHostAllowList(nil)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &SSEDriver{
		Endpoint:  endpoint,
		HostAllow: hostAllow,
		Auth:      auth,
		client:    &http.Client{Timeout: timeout, Transport: &http.Transport{Proxy: nil}},
	}
}

func (d *SSEDriver) Connect(ctx context.Context) error {
	allowed, host, err := d.HostAllow.CheckURL(d.Endpoint)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "invalid endpoint", err)
	}
	if !allowed {
		return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy, "host not in allow-list: "+host, nil)
	}
	return nil
}

func (d *SSEDriver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.CloseIdleConnections()
		d.client = nil
	}
	if d.HostAllow != nil {
		d.HostAllow.Close()
	}
	return nil
}

func (d *SSEDriver) SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
	req, err := jsonrpc.NewRequest(nextHTTPID(), method, params)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building request", err)
	}
	return d.get(ctx, req)
}

func (d *SSEDriver) SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	return d.get(ctx, payload)
}

func (d *SSEDriver) SendNotification(ctx context.Context, method string, params interface{}) error {
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building notification", err)
	}
	_, err = d.get(ctx, note)
	return err
}

func (d *SSEDriver) SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
	raw, err := d.getRaw(ctx, batch)
	if err != nil {
		return nil, err
	}
	var out []*jsonrpc.Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "batch response not a JSON array", err)
	}
	return out, nil
}

func (d *SSEDriver) StreamRequest(ctx context.Context, payload interface{}) (<-chan StreamChunk, error) {
	raw, err := d.getRaw(ctx, payload)
	ch := make(chan StreamChunk, 1)
	if err != nil {
		ch <- StreamChunk{Err: err, Done: true}
	} else {
		ch <- StreamChunk{Data: raw, Done: true}
	}
	close(ch)
	return ch, nil
}

func (d *SSEDriver) get(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	raw, err := d.getRaw(ctx, payload)
	if err != nil {
		return nil, err
	}
	var msg jsonrpc.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "SSE payload is not valid JSON-RPC", err)
	}
	if msg.HasError() {
		return &msg, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerReturnedError, msg.Error.Message, nil)
	}
	return &msg, nil
}

func (d *SSEDriver) getRaw(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "marshaling payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "building HTTP request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(requestIDHeader, uuid.New().String())
	for k, v := range d.Auth {
		req.Header.Set(k, v)
	}

	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "driver disconnected", nil)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fuzzerr.New(fuzzerr.CategoryTimeout, fuzzerr.ReasonRequestTimeout, "request timed out", err)
		}
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "request failed", err)
	}
	defer resp.Body.Close()

	return readSSEBody(resp.Body)
}
