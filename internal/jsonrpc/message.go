// Package jsonrpc implements the JSON-RPC 2.0 message shapes the fuzzer
// speaks on the wire, plus the invariant checker that validates responses
// against the spec.
package jsonrpc

import "encoding/json"

// Version is the only JSON-RPC version this fuzzer ever emits.
const Version = "2.0"

// Kind tags which variant a decoded Message actually is.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindSuccess
	KindError
)

// Message is a generic JSON-RPC 2.0 envelope. Unlike a typed DTO per method,
// every field is optional on the wire; Kind is computed by Classify from
// which fields are present, so mutation code can build pathological
// combinations (both result and error, neither, etc.) and still round-trip
// through this type.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`

	// HasID/HasResult/HasError distinguish "absent" from "present but
	// null/zero" after unmarshaling, since json.RawMessage being nil and a
	// key being entirely missing look the same to the struct above unless
	// we track presence explicitly.
	hasID     bool
	hasResult bool
	hasError  bool
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// NewRequest builds a well-formed request envelope.
func NewRequest(id interface{}, method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, ID: id, Method: method, Params: raw, hasID: true}, nil
}

// NewNotification builds a well-formed notification envelope (no id).
func NewNotification(method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewSuccess builds a success response envelope.
func NewSuccess(id interface{}, result interface{}) (*Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: Version, ID: id, Result: raw, hasID: true, hasResult: true}, nil
}

// NewErrorResponse builds an error response envelope.
func NewErrorResponse(id interface{}, code int, message string, data interface{}) *Message {
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
		hasID:   true,
		hasError: true,
	}
}

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}

// rawMessage mirrors Message but records field presence via
// json.RawMessage's nilness being unreliable for "null" vs "absent"; we use
// a map-based second pass in UnmarshalJSON to recover presence precisely.
type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// UnmarshalJSON decodes a Message tracking which of id/result/error were
// actually present in the source document (vs present-but-null), which the
// invariant checker needs to tell "no result" apart from "result: null".
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var r rawMessage
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	m.JSONRPC = r.JSONRPC
	m.Params = r.Params
	m.Error = r.Error

	if raw, ok := fields["id"]; ok {
		m.hasID = true
		var id interface{}
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		m.ID = id
	}
	if _, ok := fields["result"]; ok {
		m.hasResult = true
		m.Result = r.Result
	}
	if _, ok := fields["error"]; ok {
		m.hasError = true
	}
	if r.Method != nil {
		m.Method = *r.Method
	}
	return nil
}

// MarshalJSON emits only the fields that are actually present, matching the
// shape of whichever variant this Message represents.
func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"jsonrpc": m.JSONRPC}
	if m.hasID || m.ID != nil {
		out["id"] = m.ID
	}
	if m.Method != "" {
		out["method"] = m.Method
	}
	if m.Params != nil {
		out["params"] = m.Params
	}
	if m.hasResult {
		if m.Result == nil {
			out["result"] = json.RawMessage("null")
		} else {
			out["result"] = m.Result
		}
	}
	if m.hasError {
		out["error"] = m.Error
	}
	return json.Marshal(out)
}

// HasID reports whether the id field was present on the wire (possibly null).
func (m Message) HasID() bool { return m.hasID }

// HasResult reports whether the result field was present on the wire.
func (m Message) HasResult() bool { return m.hasResult }

// HasError reports whether the error field was present on the wire.
func (m Message) HasError() bool { return m.hasError }

// Classify computes which JSON-RPC variant this message represents:
// request (method + optional params + id), notification
// (method, no id), success response (result + id), error response (error +
// id). Messages that satisfy none of the rules classify as KindInvalid —
// mutation code builds these on purpose to test transports/invariant
// checking against malformed input.
func (m Message) Classify() Kind {
	switch {
	case m.Method != "" && m.hasID:
		return KindRequest
	case m.Method != "" && !m.hasID:
		return KindNotification
	case m.hasResult && !m.hasError && m.hasID:
		return KindSuccess
	case m.hasError && !m.hasResult && m.hasID:
		return KindError
	default:
		return KindInvalid
	}
}

// WithID returns a copy of the message with hasID/ID forced, used by
// mutators building pathological id variants (duplicate, null, float).
func (m Message) WithID(id interface{}) Message {
	m.ID = id
	m.hasID = true
	return m
}

// WithResult returns a copy of the message with hasResult/Result forced.
func (m Message) WithResult(raw json.RawMessage) Message {
	m.Result = raw
	m.hasResult = true
	return m
}

// WithError returns a copy of the message with hasError/Error forced.
func (m Message) WithError(e *Error) Message {
	m.Error = e
	m.hasError = true
	return m
}

// WithoutID strips id presence, used to build notifications from requests.
func (m Message) WithoutID() Message {
	m.ID = nil
	m.hasID = false
	return m
}
