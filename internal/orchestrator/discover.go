package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/mcp-fuzzer/internal/mutate"
	"github.com/rcourtman/mcp-fuzzer/internal/schema"
	"github.com/rcourtman/mcp-fuzzer/internal/transport"
)

// toolsListResult mirrors the wire shape of a tools/list response.
type toolsListResult struct {
	Tools []struct {
		Name        string          `json:"name"`
		InputSchema json.RawMessage `json:"inputSchema"`
	} `json:"tools"`
}

// DiscoverTools sends tools/list against driver and parses every returned
// tool's JSON-Schema argument document. A tool whose schema references an
// unsupported construct (schema.Error) is skipped with a logged reason
// rather than aborting discovery for the rest.
func DiscoverTools(ctx context.Context, driver transport.Driver) ([]mutate.ToolDescriptor, error) {
	msg, err := driver.SendRequest(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: tools/list: %w", err)
	}
	if msg == nil || !msg.HasResult() {
		return nil, fmt.Errorf("orchestrator: tools/list: no result in response")
	}

	var parsed toolsListResult
	if err := json.Unmarshal(msg.Result, &parsed); err != nil {
		return nil, fmt.Errorf("orchestrator: tools/list: decoding result: %w", err)
	}

	descriptors := make([]mutate.ToolDescriptor, 0, len(parsed.Tools))
	for _, t := range parsed.Tools {
		doc := t.InputSchema
		if len(doc) == 0 {
			doc = json.RawMessage(`{"type":"object"}`)
		}
		sch, err := schema.Parse(doc)
		if err != nil {
			// schema.Error: logged and skipped, not fatal to discovery.
			log.Warn().Err(err).Str("tool", t.Name).Msg("skipping tool with unsupported schema")
			continue
		}
		descriptors = append(descriptors, mutate.ToolDescriptor{Name: t.Name, Schema: sch})
	}
	return descriptors, nil
}
