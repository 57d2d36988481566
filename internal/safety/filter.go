package safety

// Action is the verdict the filter reaches for a single tool call.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionSanitize Action = "sanitize"
	ActionBlock    Action = "block"
)

// Decision is the outcome of running a tool call's arguments through the
// full gating pipeline
type Decision struct {
	Action        Action
	SanitizedArgs map[string]interface{}
	Reason        string
}

// Filter composes the dangerous-string detector and filesystem sandbox
// into the single gate every tool call's arguments pass through before
// reaching a transport. The host allow-list is a separate,
// transport-level check: it gates the fuzzer's own outbound HTTP/SSE
// requests to the server under test, not tool-call argument contents — a
// URL appearing inside an argument is already caught by the
// dangerous-pattern detector below regardless of where it points.
type Filter struct {
	Sandbox *Sandbox
}

// NewFilter builds a Filter. sandbox may be nil to disable filesystem
// sanitization.
func NewFilter(sandbox *Sandbox) *Filter {
	return &Filter{Sandbox: sandbox}
}

// Check runs args through the pipeline and returns a Decision. A dangerous
// string (raw command injection, script tags, an http, https, file or ftp
// URL, browser launchers) blocks outright; otherwise filesystem paths outside fs_root
// are rewritten and the call proceeds sanitized or allowed unchanged.
func (f *Filter) Check(args map[string]interface{}) Decision {
	if reasons := DetectDangerousStrings(args); len(reasons) > 0 {
		return Decision{Action: ActionBlock, Reason: "dangerous pattern at " + reasons[0].Path + ": " + reasons[0].Pattern}
	}

	sanitized := args
	changed := false
	if f.Sandbox != nil {
		sanitized, changed = f.Sandbox.SanitizePaths(args)
	}

	if changed {
		return Decision{Action: ActionSanitize, SanitizedArgs: sanitized, Reason: "path rewritten into fs_root"}
	}
	return Decision{Action: ActionAllow, SanitizedArgs: sanitized}
}
