package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// ProtocolVersion is the MCP protocol version this fuzzer's client claims
// during the initialize handshake.
const ProtocolVersion = "2025-06-18"

// StreamableHTTPDriver implements a stateful driver whose first
// non-initialize request triggers an initialize handshake under a mutex,
// after which every request carries the server-assigned session id and
// negotiated protocol version.
type StreamableHTTPDriver struct {
	Endpoint  string
	HostAllow *safety.HostAllowList
	Auth      map[string]string

	client *http.Client

	mu                sync.Mutex
	initialized       bool
	sessionID         string
	negotiatedVersion string
}

// NewStreamableHTTPDriver builds a StreamableHTTPDriver.
func NewStreamableHTTPDriver(endpoint string, hostAllow *safety.HostAllowList, timeout time.Duration, auth map[string]string) *StreamableHTTPDriver {
	if hostAllow == nil {
		hostAllow = safety.NewHostAllowList(nil)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	d := &StreamableHTTPDriver{Endpoint: endpoint, HostAllow: hostAllow, Auth: auth}
	d.client = &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: nil},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			original := via[0].URL
			candidate := req.URL
			sameOrigin := strings.EqualFold(original.Hostname(), candidate.Hostname())
			trailingSlash := candidate.Path == original.Path+"/"
			if !sameOrigin && !trailingSlash {
				return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy,
					"redirect to non-same-origin host dropped: "+candidate.Host, nil)
			}
			allowed, host, err := hostAllow.CheckURL(candidate.String())
			if err != nil {
				return err
			}
			if !allowed {
				return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy,
					"redirect host not in allow-list: "+host, nil)
			}
			return nil
		},
	}
	return d
}

func (d *StreamableHTTPDriver) Connect(ctx context.Context) error {
	allowed, host, err := d.HostAllow.CheckURL(d.Endpoint)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "invalid endpoint", err)
	}
	if !allowed {
		return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy, "host not in allow-list: "+host, nil)
	}
	return d.ensureInitialized(ctx)
}

func (d *StreamableHTTPDriver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.CloseIdleConnections()
	}
	d.initialized = false
	d.sessionID = ""
	if d.HostAllow != nil {
		d.HostAllow.Close()
	}
	return nil
}

// ensureInitialized performs a double-checked-locking handshake: acquire
// the mutex, re-check initialized, perform the handshake, set
// initialized — so concurrent first callers only pay for one handshake.
func (d *StreamableHTTPDriver) ensureInitialized(ctx context.Context) error {
	d.mu.Lock()
	if d.initialized {
		d.mu.Unlock()
		return nil
	}
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}

	params := map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"elicitation":  map[string]interface{}{},
			"experimental": map[string]interface{}{},
			"roots":        map[string]interface{}{"listChanged": true},
			"sampling":     map[string]interface{}{},
		},
		"clientInfo": map[string]interface{}{"name": "mcp-fuzzer", "version": "dev"},
	}
	req, err := jsonrpc.NewRequest(int64(1), "initialize", params)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building initialize request", err)
	}

	resp, headers, err := d.doRequest(ctx, req, "", "")
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonProtocolNegotiation, "initialize handshake failed", err)
	}
	if resp.HasError() {
		return fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonProtocolNegotiation, resp.Error.Message, nil)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if resp.Result != nil {
		_ = json.Unmarshal(resp.Result, &result)
	}
	if result.ProtocolVersion != "" {
		d.negotiatedVersion = result.ProtocolVersion
	} else {
		d.negotiatedVersion = ProtocolVersion
	}
	d.sessionID = headers.Get("mcp-session-id")

	note, err := jsonrpc.NewNotification("notifications/initialized", nil)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building initialized notification", err)
	}
	// notifications/initialized gets no JSON-RPC response body (often a bare
	// 202), so only a transport-level failure here is fatal to the handshake.
	if _, _, err := d.doRawRequest(ctx, note, d.sessionID, d.negotiatedVersion); err != nil {
		return fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonProtocolNegotiation, "notifications/initialized failed", err)
	}

	d.initialized = true
	return nil
}

func (d *StreamableHTTPDriver) SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
	if err := d.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	req, err := jsonrpc.NewRequest(nextHTTPID(), method, params)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building request", err)
	}
	sessionID, version := d.handshakeState()
	resp, _, err := d.doRequest(ctx, req, sessionID, version)
	if err != nil {
		return nil, err
	}
	if resp.HasError() {
		return resp, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerReturnedError, resp.Error.Message, nil)
	}
	return resp, nil
}

func (d *StreamableHTTPDriver) SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	if err := d.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	sessionID, version := d.handshakeState()
	resp, _, err := d.doRequest(ctx, payload, sessionID, version)
	return resp, err
}

func (d *StreamableHTTPDriver) SendNotification(ctx context.Context, method string, params interface{}) error {
	if err := d.ensureInitialized(ctx); err != nil {
		return err
	}
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building notification", err)
	}
	sessionID, version := d.handshakeState()
	_, _, err = d.doRawRequest(ctx, note, sessionID, version)
	return err
}

func (d *StreamableHTTPDriver) SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
	if err := d.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	sessionID, version := d.handshakeState()

	raw, headers, err := d.doRawRequest(ctx, batch, sessionID, version)
	_ = headers
	if err != nil {
		return nil, err
	}
	var out []*jsonrpc.Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "batch response not a JSON array", err)
	}
	return out, nil
}

func (d *StreamableHTTPDriver) StreamRequest(ctx context.Context, payload interface{}) (<-chan StreamChunk, error) {
	if err := d.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	sessionID, version := d.handshakeState()

	raw, _, err := d.doRawRequest(ctx, payload, sessionID, version)
	ch := make(chan StreamChunk, 1)
	if err != nil {
		ch <- StreamChunk{Err: err, Done: true}
	} else {
		ch <- StreamChunk{Data: raw, Done: true}
	}
	close(ch)
	return ch, nil
}

// handshakeState snapshots the session id and negotiated protocol version
// under the mutex, for callers that need them before a request that must
// not itself touch d.mu (doRequest/doRawRequest run outside any lock).
func (d *StreamableHTTPDriver) handshakeState() (sessionID, version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID, d.negotiatedVersion
}

// doRequest sends payload and decodes the body into a *jsonrpc.Message,
// handling both JSON and SSE-framed responses.
func (d *StreamableHTTPDriver) doRequest(ctx context.Context, payload interface{}, sessionID, version string) (*jsonrpc.Message, http.Header, error) {
	raw, headers, err := d.doRawRequest(ctx, payload, sessionID, version)
	if err != nil {
		return nil, headers, err
	}
	var msg jsonrpc.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, headers, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "response is not valid JSON-RPC", err)
	}
	return &msg, headers, nil
}

// doRawRequest never touches d.mu — callers that hold it (ensureInitialized)
// or that snapshotted state via handshakeState() pass sessionID/version in
// directly, so this can be called from inside the handshake lock.
func (d *StreamableHTTPDriver) doRawRequest(ctx context.Context, payload interface{}, sessionID, version string) ([]byte, http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "marshaling payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "building HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set(requestIDHeader, uuid.New().String())
	if sessionID != "" {
		req.Header.Set("mcp-session-id", sessionID)
	}
	if version != "" {
		req.Header.Set("mcp-protocol-version", version)
	}
	for k, v := range d.Auth {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fuzzerr.New(fuzzerr.CategoryTimeout, fuzzerr.ReasonRequestTimeout, "request timed out", err)
		}
		return nil, nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.Header, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerUnavailable,
			fmt.Sprintf("server returned status %d", resp.StatusCode), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		data, err := readSSEBody(resp.Body)
		return data, resp.Header, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "reading response body", err)
	}
	return raw, resp.Header, nil
}
