package safety

import "github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"

// BlockedErrorCode is returned in the synthetic response standing in for a
// tool call the filter refused to send It reuses the
// JSON-RPC "Internal error" code rather than inventing a fuzzer-specific
// one, since a real MCP server would never emit a safety-specific code and
// the orchestrator must treat this exactly like any other error response.
const BlockedErrorCode = -32603

// MockBlockedResponse builds the safe-mock error response substituted for
// a tool call the safety filter decided to block, so the orchestrator can
// still complete its request/response cycle and record a result.
func MockBlockedResponse(id interface{}, reason string) *jsonrpc.Message {
	return jsonrpc.NewErrorResponse(id, BlockedErrorCode, "blocked by safety filter: "+reason, nil)
}
