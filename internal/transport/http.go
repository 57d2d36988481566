package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcourtman/mcp-fuzzer/internal/fuzzerr"
	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/safety"
)

// DefaultRequestTimeout is used when the caller configures none.
const DefaultRequestTimeout = 30 * time.Second

// requestIDHeader carries a fresh client-generated correlation id on every
// outgoing call, the way the teacher's internal/ai/service.go and
// internal/agentexec/server.go stamp a uuid.New().String() RequestID onto
// requests it needs to trace through logs -- useful here for lining up a
// fuzz run's log line with whatever the target server logs for that call.
const requestIDHeader = "X-Mcp-Fuzzer-Request-Id"

// HTTPDriver implements a single-POST-per-call transport. Environment
// proxies are disabled (never consulting HTTP_PROXY/HTTPS_PROXY — see
// internal/safety's env scrubbing for the stdio-driver analogue); only
// same-origin 307/308 redirects are followed, and only after an
// allow-list check.
type HTTPDriver struct {
	Endpoint  string
	HostAllow *safety.HostAllowList
	Auth      map[string]string

	client *http.Client
	mu     sync.Mutex
}

// NewHTTPDriver builds an HTTPDriver. hostAllow may be nil to fall back to
// DefaultAllowedHosts.
func NewHTTPDriver(endpoint string, hostAllow *safety.HostAllowList, timeout time.Duration, auth map[string]string) *HTTPDriver {
	if hostAllow == nil {
		hostAllow = safety.NewHostAllowList(nil)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	d := &HTTPDriver{Endpoint: endpoint, HostAllow: hostAllow, Auth: auth}
	d.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: nil, // trust_env=false: never honor HTTP_PROXY/HTTPS_PROXY
		},
		CheckRedirect: d.checkRedirect,
	}
	return d
}

// checkRedirect enforces: only same-origin 307/308
// redirects are followed, and only once the new host clears the allow-list.
func (d *HTTPDriver) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) == 0 {
		return nil
	}
	if req.Response != nil {
		if code := req.Response.StatusCode; code != http.StatusTemporaryRedirect && code != http.StatusPermanentRedirect {
			return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy,
				fmt.Sprintf("redirect with status %d not followed", code), nil)
		}
	}
	original := via[0].URL.String()
	candidate := req.URL.String()
	if !safety.SameOrigin(original, candidate) {
		return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy,
			"redirect to non-same-origin host dropped: "+req.URL.Host, nil)
	}
	allowed, host, err := d.HostAllow.CheckURL(candidate)
	if err != nil {
		return err
	}
	if !allowed {
		return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy,
			"redirect host not in allow-list: "+host, nil)
	}
	return nil
}

func (d *HTTPDriver) Connect(ctx context.Context) error {
	allowed, host, err := d.HostAllow.CheckURL(d.Endpoint)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "invalid endpoint", err)
	}
	if !allowed {
		return fuzzerr.New(fuzzerr.CategorySafety, fuzzerr.ReasonSafetyNetworkPolicy, "host not in allow-list: "+host, nil)
	}
	return nil
}

func (d *HTTPDriver) Disconnect(ctx context.Context) error {
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

func (d *HTTPDriver) SendRequest(ctx context.Context, method string, params interface{}) (*jsonrpc.Message, error) {
	req, err := jsonrpc.NewRequest(nextHTTPID(), method, params)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building request", err)
	}
	if err := jsonrpc.ValidateSynthesizedRequest(*req); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "invalid synthesized request", err)
	}
	return d.post(ctx, req)
}

func (d *HTTPDriver) SendRaw(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	return d.post(ctx, payload)
}

func (d *HTTPDriver) SendNotification(ctx context.Context, method string, params interface{}) error {
	note, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "building notification", err)
	}
	_, err = d.doPost(ctx, note)
	return err
}

func (d *HTTPDriver) SendBatch(ctx context.Context, batch []*jsonrpc.Message) ([]*jsonrpc.Message, error) {
	body, err := d.doPost(ctx, batch)
	if err != nil {
		return nil, err
	}
	var out []*jsonrpc.Message
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "batch response not a JSON array", err)
	}
	return out, nil
}

func (d *HTTPDriver) StreamRequest(ctx context.Context, payload interface{}) (<-chan StreamChunk, error) {
	body, err := d.doPost(ctx, payload)
	ch := make(chan StreamChunk, 1)
	if err != nil {
		ch <- StreamChunk{Err: err, Done: true}
		close(ch)
		return ch, nil
	}
	ch <- StreamChunk{Data: body, Done: true}
	close(ch)
	return ch, nil
}

func (d *HTTPDriver) post(ctx context.Context, payload interface{}) (*jsonrpc.Message, error) {
	body, err := d.doPost(ctx, payload)
	if err != nil {
		return nil, err
	}
	var msg jsonrpc.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "response is not valid JSON-RPC", err)
	}
	if msg.HasError() {
		return &msg, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerReturnedError, msg.Error.Message, nil)
	}
	return &msg, nil
}

func (d *HTTPDriver) doPost(ctx context.Context, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryFuzzing, fuzzerr.ReasonFuzzingStrategy, "marshaling payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonConnection, "building HTTP request", err)
	}
	req.Header.Set("Content-Type", "application/json")
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fuzzerr.New(fuzzerr.CategoryTransport, fuzzerr.ReasonResponse, "reading response body", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fuzzerr.New(fuzzerr.CategoryServer, fuzzerr.ReasonServerUnavailable,
			fmt.Sprintf("server returned status %d", resp.StatusCode), nil)
	}
	return body, nil
}

var httpIDMu sync.Mutex
var httpIDCounter int64

func nextHTTPID() int64 {
	httpIDMu.Lock()
	defer httpIDMu.Unlock()
	httpIDCounter++
	return httpIDCounter
}
