// Package result implements the fuzz result record, per-category
// aggregates, and live result broadcasting.
package result

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
)

// Kind tags which orchestrator produced a Result.
type Kind string

const (
	KindTool     Kind = "tool"
	KindProtocol Kind = "protocol"
	KindBatch    Kind = "batch"
)

// Classification buckets a failed run's underlying cause for aggregation,
// mirroring the orchestrator's step 5 classify call.
type Classification string

const (
	ClassNone           Classification = ""
	ClassTimeout        Classification = "Timeout"
	ClassTransportError Classification = "TransportError"
	ClassServerError    Classification = "ServerError"
)

// Result is the immutable record emitted once per fuzz run.
type Result struct {
	ID                  string         `json:"id"`
	Kind                Kind           `json:"kind"`
	RunIndex            int            `json:"run_index"`
	Label               string         `json:"label,omitempty"` // tool name or protocol kind
	Success             bool           `json:"success"`
	Input               interface{}    `json:"input,omitempty"`
	Response            interface{}    `json:"response,omitempty"`
	Error               string         `json:"error,omitempty"`
	Classification      Classification `json:"classification,omitempty"`
	SafetyBlocked       bool           `json:"safety_blocked"`
	SafetySanitized     bool           `json:"safety_sanitized"`
	InvariantViolations []string       `json:"invariant_violations,omitempty"`
	ElapsedMS           int64          `json:"elapsed_ms"`
	CreatedAt           time.Time      `json:"created_at"`
}

// violationStrings converts invariant checker violations to their string
// form for embedding in a Result record.
func violationStrings(vs []jsonrpc.Violation) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

// New builds a Result with a fresh sortable, time-ordered ULID.
func New(kind Kind, runIndex int, label string) *Result {
	return &Result{
		ID:        ulid.Make().String(),
		Kind:      kind,
		RunIndex:  runIndex,
		Label:     label,
		CreatedAt: time.Now(),
	}
}

// WithInvariantViolations attaches violations found by internal/jsonrpc's
// invariant checker.
func (r *Result) WithInvariantViolations(vs []jsonrpc.Violation) *Result {
	r.InvariantViolations = violationStrings(vs)
	return r
}

// MarshalIndent renders the record as pretty JSON, used by the live hub.
func (r *Result) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToolSummary is the per-tool aggregate.
type ToolSummary struct {
	Tool            string
	TotalRuns       int
	Successes       int
	SafetyBlocked   int
	SafetySanitized int
	Exceptions      int
}

// ProtocolSummary is the per-protocol-kind aggregate.
type ProtocolSummary struct {
	Kind                string
	TotalRuns           int
	InvariantViolations int
	ServerRejections    int
	Exceptions          int
}

// OverallSummary is the final aggregate across every run.
type OverallSummary struct {
	TotalRuns   int
	Successes   int
	SuccessRate float64
}

// Aggregator ingests Results as they're emitted and produces the summary
// streams. It is safe for concurrent use: the bounded executor emits
// results from multiple goroutines at once.
type Aggregator struct {
	mu        sync.Mutex
	tools     map[string]*ToolSummary
	protocols map[string]*ProtocolSummary
	overall   OverallSummary
}

// NewAggregator builds an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		tools:     make(map[string]*ToolSummary),
		protocols: make(map[string]*ProtocolSummary),
	}
}

// Ingest folds r into the running aggregates.
func (a *Aggregator) Ingest(r *Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.overall.TotalRuns++
	if r.Success {
		a.overall.Successes++
	}
	if a.overall.TotalRuns > 0 {
		a.overall.SuccessRate = float64(a.overall.Successes) / float64(a.overall.TotalRuns)
	}

	switch r.Kind {
	case KindTool:
		s := a.tools[r.Label]
		if s == nil {
			s = &ToolSummary{Tool: r.Label}
			a.tools[r.Label] = s
		}
		s.TotalRuns++
		if r.Success {
			s.Successes++
		}
		if r.SafetyBlocked {
			s.SafetyBlocked++
		}
		if r.SafetySanitized {
			s.SafetySanitized++
		}
		if r.Error != "" && !r.SafetyBlocked {
			s.Exceptions++
		}
	default:
		s := a.protocols[r.Label]
		if s == nil {
			s = &ProtocolSummary{Kind: r.Label}
			a.protocols[r.Label] = s
		}
		s.TotalRuns++
		s.InvariantViolations += len(r.InvariantViolations)
		if r.Classification == ClassServerError {
			s.ServerRejections++
		}
		if r.Error != "" && r.Classification != ClassServerError {
			s.Exceptions++
		}
	}
}

// ToolSummaries returns a snapshot of every per-tool aggregate.
func (a *Aggregator) ToolSummaries() []ToolSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ToolSummary, 0, len(a.tools))
	for _, s := range a.tools {
		out = append(out, *s)
	}
	return out
}

// ProtocolSummaries returns a snapshot of every per-protocol-kind aggregate.
func (a *Aggregator) ProtocolSummaries() []ProtocolSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ProtocolSummary, 0, len(a.protocols))
	for _, s := range a.protocols {
		out = append(out, *s)
	}
	return out
}

// Overall returns a snapshot of the aggregate-across-everything summary.
func (a *Aggregator) Overall() OverallSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overall
}
