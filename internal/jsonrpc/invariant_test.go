package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckResponse_DualAndNoResult(t *testing.T) {
	req, err := NewRequest(float64(1), "ping", nil)
	require.NoError(t, err)

	dual, err := NewSuccess(float64(1), map[string]string{"ok": "true"})
	require.NoError(t, err)
	dual.hasError = true
	dual.Error = &Error{Code: -32000, Message: "also an error"}

	violations := CheckResponse(req, *dual)
	assertHasKind(t, violations, ViolationDualResult)

	neither := Message{JSONRPC: Version, ID: float64(1), hasID: true}
	violations = CheckResponse(req, neither)
	assertHasKind(t, violations, ViolationNoResult)
}

func TestCheckResponse_IDMismatch(t *testing.T) {
	req, err := NewRequest("abc", "tools/list", nil)
	require.NoError(t, err)

	resp, err := NewSuccess("xyz", []int{})
	require.NoError(t, err)

	violations := CheckResponse(req, *resp)
	assertHasKind(t, violations, ViolationIDMismatch)
}

func TestCheckResponse_MissingID(t *testing.T) {
	resp := Message{JSONRPC: Version, hasResult: true, Result: json.RawMessage("null")}
	violations := CheckResponse(nil, resp)
	assertHasKind(t, violations, ViolationMissingID)
}

func TestCheckResponse_BadErrorShape(t *testing.T) {
	resp := NewErrorResponse(float64(1), -32600, "", nil)
	violations := CheckResponse(nil, *resp)
	assertHasKind(t, violations, ViolationBadErrorShape)
}

func TestCheckResponse_FloatIDRoundTrip(t *testing.T) {
	req, err := NewRequest(float64(1), "ping", nil)
	require.NoError(t, err)

	resp, err := NewSuccess(1.5, map[string]string{})
	require.NoError(t, err)

	violations := CheckResponse(req, *resp)
	assertHasKind(t, violations, ViolationFloatID)
}

func TestCheckBatch_DuplicateAndUnmatched(t *testing.T) {
	// batch [{id:1},{id:2},{notify}] answered with
	// [{id:1,result:null},{id:1,result:null}] (duplicate id, missing id=2).
	r1, _ := NewRequest(float64(1), "ping", nil)
	r2, _ := NewRequest(float64(2), "ping", nil)
	notif, _ := NewNotification("notify", nil)
	requests := []Message{*r1, *r2, *notif}

	resp1, _ := NewSuccess(float64(1), nil)
	resp1b, _ := NewSuccess(float64(1), nil)
	responses := []Message{*resp1, *resp1b}

	violations := CheckBatch(requests, responses)
	assertHasKind(t, violations, ViolationDuplicateID)
	assertHasKind(t, violations, ViolationUnmatchedReqID)
}

func TestCheckBatch_Int64RequestFloat64Response(t *testing.T) {
	// The protocol mutator builds request ids as int64; a server's JSON
	// response always decodes ids as float64. These must still collate.
	r1, _ := NewRequest(int64(1), "ping", nil)
	r2, _ := NewRequest(int64(2), "ping", nil)
	requests := []Message{*r1, *r2}

	resp1, _ := NewSuccess(float64(1), nil)
	resp2, _ := NewSuccess(float64(2), nil)
	responses := []Message{*resp1, *resp2}

	violations := CheckBatch(requests, responses)
	assert.Empty(t, violations)
}

func TestCheckBatch_ExactCoverage(t *testing.T) {
	r1, _ := NewRequest(float64(1), "ping", nil)
	r2, _ := NewRequest(float64(2), "ping", nil)
	requests := []Message{*r1, *r2}

	resp2, _ := NewSuccess(float64(2), nil)
	resp1, _ := NewSuccess(float64(1), nil)
	// Out of order arrival is fine: matching is by id, not position.
	responses := []Message{*resp2, *resp1}

	violations := CheckBatch(requests, responses)
	assert.Empty(t, violations)
}

func TestValidateSynthesizedRequest(t *testing.T) {
	good, err := NewRequest(float64(1), "tools/call", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.NoError(t, ValidateSynthesizedRequest(*good))

	bad := Message{JSONRPC: Version, Method: "", hasID: true, ID: float64(1)}
	assert.Error(t, ValidateSynthesizedRequest(bad))
}

func assertHasKind(t *testing.T, violations []Violation, kind ViolationKind) {
	t.Helper()
	for _, v := range violations {
		if v.Kind == kind {
			return
		}
	}
	t.Fatalf("expected violation %s, got %v", kind, violations)
}
