package jsonrpc

import (
	"encoding/json"
	"fmt"
	"math"
)

func unmarshalParams(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// ViolationKind is a closed enum of the invariant violations the checker
// can raise.
type ViolationKind string

const (
	ViolationBadVersion      ViolationKind = "BadVersion"
	ViolationDualResult      ViolationKind = "DualResult"
	ViolationNoResult        ViolationKind = "NoResult"
	ViolationIDMismatch      ViolationKind = "IDMismatch"
	ViolationMissingID       ViolationKind = "MissingID"
	ViolationBadErrorShape   ViolationKind = "BadErrorShape"
	ViolationDuplicateID     ViolationKind = "DuplicateId"
	ViolationUnmatchedReqID  ViolationKind = "UnmatchedRequestId"
	ViolationUnmatchedRespID ViolationKind = "UnmatchedResponseId"
	ViolationBatchSizeWrong  ViolationKind = "BatchSizeMismatch"
	ViolationFloatID         ViolationKind = "FloatId"
)

// Violation pairs a kind with a human-readable detail, e.g. "DuplicateId(1)".
type Violation struct {
	Kind   ViolationKind
	Detail string
}

func (v Violation) String() string {
	if v.Detail == "" {
		return string(v.Kind)
	}
	return fmt.Sprintf("%s(%s)", v.Kind, v.Detail)
}

// CheckResponse validates a single (request, response) pair against the
// JSON-RPC 2.0 rules. request may be nil when the response was not
// correlated with anything the fuzzer sent (send_raw).
func CheckResponse(request *Message, response Message) []Violation {
	var violations []Violation

	if response.JSONRPC != Version {
		violations = append(violations, Violation{ViolationBadVersion, fmt.Sprintf("%q", response.JSONRPC)})
	}

	switch {
	case response.HasResult() && response.HasError():
		violations = append(violations, Violation{Kind: ViolationDualResult})
	case !response.HasResult() && !response.HasError():
		violations = append(violations, Violation{Kind: ViolationNoResult})
	}

	if !response.HasID() {
		violations = append(violations, Violation{Kind: ViolationMissingID})
	} else if request != nil {
		if !idsEqual(request.ID, response.ID) {
			violations = append(violations, Violation{ViolationIDMismatch, fmt.Sprintf("want=%v got=%v", request.ID, response.ID)})
		}
		violations = append(violations, checkFloatID(request.ID, response.ID)...)
	}

	if response.HasError() {
		if response.Error == nil {
			violations = append(violations, Violation{Kind: ViolationBadErrorShape, Detail: "error field present but null"})
		} else if response.Error.Message == "" {
			violations = append(violations, Violation{Kind: ViolationBadErrorShape, Detail: "empty message"})
		}
	}

	return violations
}

// checkFloatID flags a float id that round-trips as a different numeric
// value than the request sent: a violation candidate, not a definite bug.
func checkFloatID(want, got interface{}) []Violation {
	gf, gotFloat := got.(float64)
	if !gotFloat {
		return nil
	}
	if gf != math.Trunc(gf) {
		return []Violation{{ViolationFloatID, fmt.Sprintf("non-integral id %v", gf)}}
	}
	wf, wantFloat := toFloat(want)
	if wantFloat && wf != gf {
		return []Violation{{ViolationFloatID, fmt.Sprintf("id round-tripped %v -> %v", want, got)}}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func idsEqual(a, b interface{}) bool {
	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return a == b
}

// CheckBatch validates a batch response: the response
// must be an array with exactly one entry per request (notifications
// contribute nothing), entries may arrive out of order but must collate 1:1
// by id, and unmatched ids on either side are violations.
func CheckBatch(requests []Message, responses []Message) []Violation {
	var violations []Violation

	wantIDs := make(map[string]Message)
	var order []string
	for _, req := range requests {
		if req.Classify() != KindRequest {
			continue // notifications contribute no response
		}
		key := idKey(req.ID)
		if _, dup := wantIDs[key]; dup {
			// Duplicate ids among sent requests are a fuzz input property,
			// not a server violation, so we don't flag it here; see
			// BatchMutator for where duplicate ids are synthesized.
		}
		wantIDs[key] = req
		order = append(order, key)
	}

	seen := make(map[string]int)
	for _, resp := range responses {
		if !resp.HasID() {
			violations = append(violations, Violation{Kind: ViolationMissingID})
			continue
		}
		key := idKey(resp.ID)
		seen[key]++
		if seen[key] > 1 {
			violations = append(violations, Violation{ViolationDuplicateID, fmt.Sprintf("%v", resp.ID)})
		}
		req, ok := wantIDs[key]
		if !ok {
			violations = append(violations, Violation{ViolationUnmatchedRespID, fmt.Sprintf("%v", resp.ID)})
			continue
		}
		violations = append(violations, CheckResponse(&req, resp)...)
	}

	for _, key := range order {
		if seen[key] == 0 {
			violations = append(violations, Violation{ViolationUnmatchedReqID, fmt.Sprintf("%v", wantIDs[key].ID)})
		}
	}

	wantCount := 0
	for range wantIDs {
		wantCount++
	}
	if len(responses) != wantCount {
		violations = append(violations, Violation{ViolationBatchSizeWrong, fmt.Sprintf("want=%d got=%d", wantCount, len(responses))})
	}

	return violations
}

// idKey normalizes an id to a collation key, folding all numeric
// representations (int, int64, float64) onto the same key so a
// request id built as int64 still matches a response id JSON-decoded
// as float64; see idsEqual/toFloat for the same normalization on the
// single-response path.
func idKey(id interface{}) string {
	if f, ok := toFloat(id); ok {
		return fmt.Sprintf("num:%v", f)
	}
	return fmt.Sprintf("%T:%v", id, id)
}

// ValidateSynthesizedRequest checks the strict rules that apply to
// envelopes the fuzzer itself constructs via send_request (method
// non-empty string, params array|object, id string|number|null). send_raw
// payloads skip this check entirely by design.
func ValidateSynthesizedRequest(m Message) error {
	if m.JSONRPC != Version {
		return fmt.Errorf("jsonrpc: want %q got %q", Version, m.JSONRPC)
	}
	if m.Method == "" {
		return fmt.Errorf("method must be a non-empty string")
	}
	if m.Params != nil {
		var v interface{}
		if err := unmarshalParams(m.Params, &v); err != nil {
			return fmt.Errorf("params not valid JSON: %w", err)
		}
		switch v.(type) {
		case []interface{}, map[string]interface{}, nil:
		default:
			return fmt.Errorf("params must be array or object")
		}
	}
	switch m.ID.(type) {
	case string, float64, int, int64, nil:
	default:
		return fmt.Errorf("id must be string, number, or null")
	}
	return nil
}
