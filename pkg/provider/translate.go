package provider

import (
	"encoding/json"
	"strings"

	"github.com/argus-sec/argus/pkg/llm"
)

// buildChatRequest converts a normalized chat request into the Chat
// Completions wire shape. The system prompt is prepended as a system
// message unless the conversation already opens with one, and sampling
// parameters are clamped to the ranges the dialect defines.
func buildChatRequest(req *llm.ChatRequest, model string, stream bool) chatRequest {
	cr := chatRequest{
		Model:       model,
		Temperature: clamp(req.Temperature, 0, 2),
		TopP:        clamp(req.TopP, 0, 1),
		MaxTokens:   req.MaxTokens,
		Stop:        req.StopSequences,
		Stream:      stream,
	}
	if stream {
		cr.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}

	if req.SystemPrompt != "" && !opensWithSystem(req.Messages) {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, translateMessage(m)...)
	}
	for _, def := range req.Tools {
		cr.Tools = append(cr.Tools, translateTool(def))
	}
	return cr
}

func opensWithSystem(messages []llm.ChatMessage) bool {
	return len(messages) > 0 && messages[0].Role == llm.RoleSystem
}

// clamp bounds an optional sampling parameter without mutating the
// caller's value.
func clamp(v *float64, lo, hi float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	if c < lo {
		c = lo
	}
	if c > hi {
		c = hi
	}
	return &c
}

// translateMessage flattens one normalized message into wire messages.
// Text and tool-use blocks merge into a single message; each tool-result
// block becomes its own role "tool" message, which is the only shape the
// dialect accepts for tool output.
func translateMessage(m llm.ChatMessage) []chatMessage {
	var text strings.Builder
	var toolCalls []chatToolCall
	var toolResults []chatMessage

	for _, b := range m.Blocks {
		switch b.Type {
		case llm.BlockText:
			text.WriteString(b.Text)
		case llm.BlockToolUse:
			if b.ToolUse == nil {
				continue
			}
			toolCalls = append(toolCalls, chatToolCall{
				ID:   b.ToolUse.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      b.ToolUse.Name,
					Arguments: marshalToolArguments(b.ToolUse.Input),
				},
			})
		case llm.BlockToolResult:
			if b.ToolResult == nil {
				continue
			}
			toolResults = append(toolResults, chatMessage{
				Role:       "tool",
				Content:    b.ToolResult.Content,
				ToolCallID: b.ToolResult.ToolUseID,
			})
		}
	}

	var out []chatMessage
	if text.Len() > 0 || len(toolCalls) > 0 || len(toolResults) == 0 {
		cm := chatMessage{Role: string(m.Role), ToolCalls: toolCalls}
		if text.Len() > 0 || len(toolCalls) == 0 {
			cm.Content = text.String()
		}
		out = append(out, cm)
	}
	return append(out, toolResults...)
}

// marshalToolArguments renders a tool input map back to the dialect's
// argument string. Inputs that were preserved raw because they never
// parsed as JSON round-trip verbatim.
func marshalToolArguments(input map[string]any) string {
	if len(input) == 0 {
		return "{}"
	}
	if raw, ok := input[llm.RawInputKey]; ok && len(input) == 1 {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func translateTool(def llm.ToolDefinition) chatTool {
	params, err := json.Marshal(def.Parameters)
	if err != nil {
		params = []byte(`{"type":"object"}`)
	}
	return chatTool{
		Type: "function",
		Function: chatFunctionDef{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		},
	}
}
