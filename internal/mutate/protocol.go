package mutate

import (
	"math/rand"
	"strconv"

	"github.com/rcourtman/mcp-fuzzer/internal/jsonrpc"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/seedpool"
)

// Kind enumerates the MCP message surface a ProtocolMutator can target —
// the full MCP surface, well over 30 kinds. Requests and
// notifications map to a JSON-RPC method name; results/errors and content
// kinds are generated as the shape a server would send back, used when
// fuzzing a driver's response handling rather than its request path.
type Kind string

const (
	KindInitializeRequest            Kind = "InitializeRequest"
	KindPingRequest                  Kind = "PingRequest"
	KindListResourcesRequest         Kind = "ListResourcesRequest"
	KindListResourceTemplatesRequest Kind = "ListResourceTemplatesRequest"
	KindReadResourceRequest          Kind = "ReadResourceRequest"
	KindSubscribeRequest             Kind = "SubscribeRequest"
	KindUnsubscribeRequest           Kind = "UnsubscribeRequest"
	KindListPromptsRequest           Kind = "ListPromptsRequest"
	KindGetPromptRequest             Kind = "GetPromptRequest"
	KindListToolsRequest             Kind = "ListToolsRequest"
	KindCallToolRequest              Kind = "CallToolRequest"
	KindCompleteRequest              Kind = "CompleteRequest"
	KindSetLevelRequest              Kind = "SetLevelRequest"
	KindListRootsRequest             Kind = "ListRootsRequest"
	KindCreateMessageRequest         Kind = "CreateMessageRequest"
	KindElicitRequest                Kind = "ElicitRequest"

	KindInitializedNotification         Kind = "InitializedNotification"
	KindCancelNotification              Kind = "CancelledNotification"
	KindProgressNotification            Kind = "ProgressNotification"
	KindResourceListChangedNotification Kind = "ResourceListChangedNotification"
	KindResourceUpdatedNotification     Kind = "ResourceUpdatedNotification"
	KindPromptListChangedNotification   Kind = "PromptListChangedNotification"
	KindToolListChangedNotification     Kind = "ToolListChangedNotification"
	KindRootsListChangedNotification    Kind = "RootsListChangedNotification"
	KindLoggingMessageNotification      Kind = "LoggingMessageNotification"

	KindInitializeResult       Kind = "InitializeResult"
	KindListResourcesResult    Kind = "ListResourcesResult"
	KindReadResourceResult     Kind = "ReadResourceResult"
	KindListPromptsResult      Kind = "ListPromptsResult"
	KindGetPromptResult        Kind = "GetPromptResult"
	KindListToolsResult        Kind = "ListToolsResult"
	KindCallToolResult         Kind = "CallToolResult"
	KindCompleteResult         Kind = "CompleteResult"
	KindCreateMessageResult    Kind = "CreateMessageResult"
	KindListRootsResult        Kind = "ListRootsResult"

	KindTextContent      Kind = "TextContent"
	KindImageContent     Kind = "ImageContent"
	KindAudioContent     Kind = "AudioContent"
	KindEmbeddedResource Kind = "EmbeddedResource"
	KindResourceLink     Kind = "ResourceLink"
)

// AllKinds lists every Kind a ProtocolMutator can target, in declaration
// order; used by callers wanting to sweep the full surface.
var AllKinds = []Kind{
	KindInitializeRequest, KindPingRequest, KindListResourcesRequest,
	KindListResourceTemplatesRequest, KindReadResourceRequest, KindSubscribeRequest,
	KindUnsubscribeRequest, KindListPromptsRequest, KindGetPromptRequest,
	KindListToolsRequest, KindCallToolRequest, KindCompleteRequest,
	KindSetLevelRequest, KindListRootsRequest, KindCreateMessageRequest, KindElicitRequest,
	KindInitializedNotification, KindCancelNotification, KindProgressNotification,
	KindResourceListChangedNotification, KindResourceUpdatedNotification,
	KindPromptListChangedNotification, KindToolListChangedNotification,
	KindRootsListChangedNotification, KindLoggingMessageNotification,
	KindInitializeResult, KindListResourcesResult, KindReadResourceResult,
	KindListPromptsResult, KindGetPromptResult, KindListToolsResult,
	KindCallToolResult, KindCompleteResult, KindCreateMessageResult, KindListRootsResult,
	KindTextContent, KindImageContent, KindAudioContent, KindEmbeddedResource, KindResourceLink,
}

// methodNames maps request/notification kinds to their JSON-RPC method, per
// the MCP wire protocol. Kinds with no method entry are
// response-shaped (results) or content fragments, never sent as top-level
// requests by this mutator.
var methodNames = map[Kind]string{
	KindInitializeRequest:            "initialize",
	KindPingRequest:                  "ping",
	KindListResourcesRequest:         "resources/list",
	KindListResourceTemplatesRequest: "resources/templates/list",
	KindReadResourceRequest:          "resources/read",
	KindSubscribeRequest:             "resources/subscribe",
	KindUnsubscribeRequest:           "resources/unsubscribe",
	KindListPromptsRequest:           "prompts/list",
	KindGetPromptRequest:             "prompts/get",
	KindListToolsRequest:             "tools/list",
	KindCallToolRequest:              "tools/call",
	KindCompleteRequest:              "completion/complete",
	KindSetLevelRequest:              "logging/setLevel",
	KindListRootsRequest:             "roots/list",
	KindCreateMessageRequest:         "sampling/createMessage",
	KindElicitRequest:                "elicitation/create",

	KindInitializedNotification:         "notifications/initialized",
	KindCancelNotification:              "notifications/cancelled",
	KindProgressNotification:            "notifications/progress",
	KindResourceListChangedNotification: "notifications/resources/list_changed",
	KindResourceUpdatedNotification:     "notifications/resources/updated",
	KindPromptListChangedNotification:   "notifications/prompts/list_changed",
	KindToolListChangedNotification:     "notifications/tools/list_changed",
	KindRootsListChangedNotification:    "notifications/roots/list_changed",
	KindLoggingMessageNotification:      "notifications/message",
}

// paramsSchemas gives each request/notification kind a representative
// params shape to generate from. These are deliberately small: the mutator
// is responsible for envelope-level and id-level pathology, while
// internal/schema handles value-level realism/aggression within whatever
// shape is given here.
var paramsSchemas = map[Kind]*schema.Schema{
	KindInitializeRequest: {
		Type:     "object",
		Required: []string{"protocolVersion", "capabilities", "clientInfo"},
		Properties: map[string]*schema.Schema{
			"protocolVersion": {Type: "string"},
			"capabilities":    {Type: "object"},
			"clientInfo": {
				Type:     "object",
				Required: []string{"name", "version"},
				Properties: map[string]*schema.Schema{
					"name":    {Type: "string"},
					"version": {Type: "string"},
				},
			},
		},
	},
	KindListResourcesRequest:         {Type: "object", Properties: map[string]*schema.Schema{"cursor": {Type: "string"}}},
	KindListResourceTemplatesRequest: {Type: "object", Properties: map[string]*schema.Schema{"cursor": {Type: "string"}}},
	KindReadResourceRequest: {
		Type: "object", Required: []string{"uri"},
		Properties: map[string]*schema.Schema{"uri": {Type: "string"}},
	},
	KindSubscribeRequest: {
		Type: "object", Required: []string{"uri"},
		Properties: map[string]*schema.Schema{"uri": {Type: "string"}},
	},
	KindUnsubscribeRequest: {
		Type: "object", Required: []string{"uri"},
		Properties: map[string]*schema.Schema{"uri": {Type: "string"}},
	},
	KindListPromptsRequest: {Type: "object", Properties: map[string]*schema.Schema{"cursor": {Type: "string"}}},
	KindGetPromptRequest: {
		Type: "object", Required: []string{"name"},
		Properties: map[string]*schema.Schema{
			"name":      {Type: "string"},
			"arguments": {Type: "object"},
		},
	},
	KindListToolsRequest: {Type: "object", Properties: map[string]*schema.Schema{"cursor": {Type: "string"}}},
	KindCallToolRequest: {
		Type: "object", Required: []string{"name"},
		Properties: map[string]*schema.Schema{
			"name":      {Type: "string"},
			"arguments": {Type: "object"},
		},
	},
	KindCompleteRequest: {
		Type: "object", Required: []string{"ref", "argument"},
		Properties: map[string]*schema.Schema{
			"ref":      {Type: "object"},
			"argument": {Type: "object"},
		},
	},
	KindSetLevelRequest: {
		Type: "object", Required: []string{"level"},
		Properties: map[string]*schema.Schema{
			"level": {Enum: []interface{}{"debug", "info", "warning", "error"}},
		},
	},
	KindListRootsRequest: {Type: "object"},
	KindCreateMessageRequest: {
		Type: "object", Required: []string{"messages", "maxTokens"},
		Properties: map[string]*schema.Schema{
			"messages":  {Type: "array", Items: &schema.Schema{Type: "object"}},
			"maxTokens": {Type: "integer", Minimum: floatp(1)},
		},
	},
	KindElicitRequest: {
		Type: "object", Required: []string{"message", "requestedSchema"},
		Properties: map[string]*schema.Schema{
			"message":         {Type: "string"},
			"requestedSchema": {Type: "object"},
		},
	},

	KindInitializedNotification: {Type: "object"},
	KindCancelNotification: {
		Type: "object", Required: []string{"requestId"},
		Properties: map[string]*schema.Schema{
			"requestId": {Type: "integer"},
			"reason":    {Type: "string"},
		},
	},
	KindProgressNotification: {
		Type: "object", Required: []string{"progressToken", "progress"},
		Properties: map[string]*schema.Schema{
			"progressToken": {Type: "string"},
			"progress":      {Type: "number"},
			"total":         {Type: "number"},
		},
	},
	KindResourceListChangedNotification: {Type: "object"},
	KindResourceUpdatedNotification: {
		Type: "object", Required: []string{"uri"},
		Properties: map[string]*schema.Schema{"uri": {Type: "string"}},
	},
	KindPromptListChangedNotification: {Type: "object"},
	KindToolListChangedNotification:   {Type: "object"},
	KindRootsListChangedNotification:  {Type: "object"},
	KindLoggingMessageNotification: {
		Type: "object", Required: []string{"level", "data"},
		Properties: map[string]*schema.Schema{
			"level":  {Enum: []interface{}{"debug", "info", "warning", "error"}},
			"logger": {Type: "string"},
			"data":   {Type: "object"},
		},
	},
}

func floatp(f float64) *float64 { return &f }

// resultShapes covers the result/content kinds: generating these produces a
// standalone value (not wrapped in a request envelope), used by the
// protocol orchestrator when fuzzing how a driver parses server-originated
// shapes (ListToolsResult/TextContent/ImageContent and similar).
var resultShapes = map[Kind]*schema.Schema{
	KindInitializeResult: {
		Type: "object", Required: []string{"protocolVersion", "capabilities", "serverInfo"},
		Properties: map[string]*schema.Schema{
			"protocolVersion": {Type: "string"},
			"capabilities":    {Type: "object"},
			"serverInfo":      {Type: "object"},
		},
	},
	KindListResourcesResult: {Type: "object", Properties: map[string]*schema.Schema{"resources": {Type: "array"}}},
	KindReadResourceResult:  {Type: "object", Properties: map[string]*schema.Schema{"contents": {Type: "array"}}},
	KindListPromptsResult:   {Type: "object", Properties: map[string]*schema.Schema{"prompts": {Type: "array"}}},
	KindGetPromptResult:     {Type: "object", Properties: map[string]*schema.Schema{"messages": {Type: "array"}}},
	KindListToolsResult:     {Type: "object", Properties: map[string]*schema.Schema{"tools": {Type: "array"}}},
	KindCallToolResult: {
		Type: "object", Properties: map[string]*schema.Schema{
			"content": {Type: "array"},
			"isError": {Type: "boolean"},
		},
	},
	KindCompleteResult:      {Type: "object", Properties: map[string]*schema.Schema{"completion": {Type: "object"}}},
	KindCreateMessageResult: {Type: "object", Properties: map[string]*schema.Schema{"role": {Type: "string"}, "content": {Type: "object"}}},
	KindListRootsResult:     {Type: "object", Properties: map[string]*schema.Schema{"roots": {Type: "array"}}},

	KindTextContent: {
		Type: "object", Required: []string{"type", "text"},
		Properties: map[string]*schema.Schema{"type": {Const: "text"}, "text": {Type: "string"}},
	},
	KindImageContent: {
		Type: "object", Required: []string{"type", "data", "mimeType"},
		Properties: map[string]*schema.Schema{
			"type": {Const: "image"}, "data": {Type: "string"}, "mimeType": {Type: "string"},
		},
	},
	KindAudioContent: {
		Type: "object", Required: []string{"type", "data", "mimeType"},
		Properties: map[string]*schema.Schema{
			"type": {Const: "audio"}, "data": {Type: "string"}, "mimeType": {Type: "string"},
		},
	},
	KindEmbeddedResource: {
		Type: "object", Required: []string{"type", "resource"},
		Properties: map[string]*schema.Schema{"type": {Const: "resource"}, "resource": {Type: "object"}},
	},
	KindResourceLink: {
		Type: "object", Required: []string{"type", "uri"},
		Properties: map[string]*schema.Schema{"type": {Const: "resource_link"}, "uri": {Type: "string"}},
	},
}

// IsNotification reports whether kind has no id on the wire.
func IsNotification(kind Kind) bool {
	_, isReq := methodNames[kind]
	if !isReq {
		return false
	}
	return kind == KindInitializedNotification ||
		kind == KindCancelNotification ||
		kind == KindProgressNotification ||
		kind == KindResourceListChangedNotification ||
		kind == KindResourceUpdatedNotification ||
		kind == KindPromptListChangedNotification ||
		kind == KindToolListChangedNotification ||
		kind == KindRootsListChangedNotification ||
		kind == KindLoggingMessageNotification
}

// ProtocolMutator generates complete JSON-RPC envelopes for a given Kind.
type ProtocolMutator struct {
	gen    *schema.Generator
	pool   *seedpool.Pool
	rng    *rand.Rand
	nextID int64
}

// NewProtocolMutator builds a ProtocolMutator. pool may be nil.
func NewProtocolMutator(gen *schema.Generator, pool *seedpool.Pool, seed int64) *ProtocolMutator {
	return &ProtocolMutator{gen: gen, pool: pool, rng: rand.New(rand.NewSource(seed))}
}

// Mutate builds a *jsonrpc.Message for kind under phase at runIndex. In
// aggressive phase, ids are occasionally pathological: null, duplicated
// across calls, or string-typed when a number would be conventional.
func (m *ProtocolMutator) Mutate(kind Kind, phase schema.Phase, runIndex int) (*jsonrpc.Message, error) {
	if result, ok := resultShapes[kind]; ok {
		v, err := m.gen.Generate(result, phase, runIndex)
		if err != nil {
			return nil, err
		}
		raw, ok := v.(map[string]interface{})
		if !ok {
			raw = map[string]interface{}{}
		}
		msg, err := jsonrpc.NewSuccess(m.id(phase), raw)
		return msg, err
	}

	method := methodNames[kind]
	if method == "" {
		method = string(kind)
	}

	if m.pool != nil && m.rng.Float64() < SeedProbability {
		if entry, ok := m.pool.Sample(); ok {
			if args, ok := entry.Payload.(map[string]interface{}); ok {
				return m.buildEnvelope(kind, method, mutateStructurally(m.rng, args), phase)
			}
		}
	}

	paramsSchema := paramsSchemas[kind]
	var params map[string]interface{}
	if paramsSchema != nil {
		v, err := m.gen.Generate(paramsSchema, phase, runIndex)
		if err != nil {
			return nil, err
		}
		params, _ = v.(map[string]interface{})
	}

	return m.buildEnvelope(kind, method, params, phase)
}

func (m *ProtocolMutator) buildEnvelope(kind Kind, method string, params map[string]interface{}, phase schema.Phase) (*jsonrpc.Message, error) {
	if IsNotification(kind) {
		return jsonrpc.NewNotification(method, params)
	}
	return jsonrpc.NewRequest(m.id(phase), method, params)
}

// id produces a request id, pathological in aggressive phase: null, a
// string where a number is conventional, or a deliberately repeated
// value to probe duplicate-id handling.
func (m *ProtocolMutator) id(phase schema.Phase) interface{} {
	m.nextID++
	if phase != schema.Aggressive {
		return m.nextID
	}
	switch m.rng.Intn(4) {
	case 0:
		return nil
	case 1:
		return "req-" + strconv.FormatInt(m.nextID, 10)
	case 2:
		return m.nextID - 1 // duplicate the previous id
	default:
		return m.nextID
	}
}
