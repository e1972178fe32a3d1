package provider

import (
	"encoding/json"
	"strings"

	"github.com/argus-sec/argus/pkg/llm"
)

// assembleResponse fills resp from a decoded Chat Completions body. Only
// choices[0] is read. Tool calls force the stop reason to tool_use no
// matter what finish_reason the vendor reported.
func assembleResponse(resp *llm.ChatResponse, wire *chatResponse) {
	if wire.Model != "" {
		resp.Model = wire.Model
	}
	resp.Usage = wireUsage(wire.Usage)

	if len(wire.Choices) == 0 {
		resp.Err = llm.NewEmptyResultError(resp.Provider, "backend returned no choices")
		return
	}
	choice := wire.Choices[0]

	if text := contentString(choice.Message.Content); text != "" {
		resp.Text = text
		resp.Blocks = append(resp.Blocks, llm.TextBlock(text))
	}
	for _, tc := range choice.Message.ToolCalls {
		call := llm.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: parseToolArguments(tc.Function.Arguments),
		}
		if call.ID == "" {
			call.ID = llm.NewCallID()
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
		resp.Blocks = append(resp.Blocks, llm.ToolUseBlock(call))
	}

	resp.StopReason = llm.MapFinishReason(choice.FinishReason)
	if len(resp.ToolCalls) > 0 {
		resp.StopReason = llm.StopToolUse
	}
	resp.OK = true
}

// parseToolArguments decodes a tool-call argument string. Text that does
// not parse as a JSON object is preserved under the raw input key so the
// caller can still see exactly what the model produced.
func parseToolArguments(args string) map[string]any {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return map[string]any{}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(trimmed), &input); err != nil || input == nil {
		return map[string]any{llm.RawInputKey: args}
	}
	return input
}

// contentString extracts plain text from a wire content value, which the
// dialect allows to be a string, null, or a list of typed parts.
func contentString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var sb strings.Builder
		for _, part := range v {
			obj, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := obj["text"].(string); ok {
				sb.WriteString(text)
			}
		}
		return sb.String()
	default:
		return ""
	}
}
