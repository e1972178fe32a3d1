package provider

import (
	"encoding/json"
	"testing"

	"github.com/argus-sec/argus/pkg/llm"
)

func decodeWire(t *testing.T, body string) *chatResponse {
	t.Helper()
	var wire chatResponse
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return &wire
}

func TestAssembleResponseTextOnly(t *testing.T) {
	wire := decodeWire(t, `{
		"id": "chatcmpl-1",
		"model": "gpt-4o-2024-11-20",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "No injection found."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
	}`)

	resp := &llm.ChatResponse{Provider: "openai", Model: "gpt-4o"}
	assembleResponse(resp, wire)

	if !resp.OK {
		t.Fatalf("OK = false, Err = %v", resp.Err)
	}
	if resp.Model != "gpt-4o-2024-11-20" {
		t.Errorf("Model = %q, want the vendor's echoed id", resp.Model)
	}
	if resp.Text != "No injection found." {
		t.Errorf("Text = %q", resp.Text)
	}
	if len(resp.Blocks) != 1 || resp.Blocks[0].Type != llm.BlockText {
		t.Errorf("Blocks = %+v", resp.Blocks)
	}
	if resp.StopReason != llm.StopEndTurn {
		t.Errorf("StopReason = %q, want %q", resp.StopReason, llm.StopEndTurn)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 49 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestAssembleResponseToolCalls(t *testing.T) {
	wire := decodeWire(t, `{
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {
			"role": "assistant",
			"content": "Let me check the auth module.",
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "read_file", "arguments": "{\"path\":\"auth.go\"}"}},
				{"id": "call_2", "type": "function", "function": {"name": "grep", "arguments": "{\"pattern\":\"exec.Command\"}"}}
			]
		}, "finish_reason": "tool_calls"}]
	}`)

	resp := &llm.ChatResponse{Provider: "openai", Model: "gpt-4o"}
	assembleResponse(resp, wire)

	if !resp.OK {
		t.Fatalf("OK = false, Err = %v", resp.Err)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(resp.ToolCalls))
	}
	first := resp.ToolCalls[0]
	if first.ID != "call_1" || first.Name != "read_file" {
		t.Errorf("first call = %+v", first)
	}
	if first.Input["path"] != "auth.go" {
		t.Errorf("first input = %v", first.Input)
	}
	// Text block first, then tool-use blocks in wire order.
	if len(resp.Blocks) != 3 || resp.Blocks[0].Type != llm.BlockText ||
		resp.Blocks[1].Type != llm.BlockToolUse || resp.Blocks[2].Type != llm.BlockToolUse {
		t.Errorf("Blocks = %+v", resp.Blocks)
	}
	if resp.StopReason != llm.StopToolUse {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
}

func TestAssembleResponseStopReasonForcedByToolCalls(t *testing.T) {
	// Some vendors report finish_reason "stop" even when tool calls are
	// present; the presence of a call decides.
	wire := decodeWire(t, `{
		"model": "m",
		"choices": [{"index": 0, "message": {
			"role": "assistant",
			"tool_calls": [{"id": "call_9", "type": "function", "function": {"name": "scan", "arguments": "{}"}}]
		}, "finish_reason": "stop"}]
	}`)

	resp := &llm.ChatResponse{Provider: "groq"}
	assembleResponse(resp, wire)
	if resp.StopReason != llm.StopToolUse {
		t.Errorf("StopReason = %q, want %q", resp.StopReason, llm.StopToolUse)
	}
}

func TestAssembleResponseSynthesizesMissingCallID(t *testing.T) {
	wire := decodeWire(t, `{
		"model": "m",
		"choices": [{"index": 0, "message": {
			"role": "assistant",
			"tool_calls": [{"id": "", "type": "function", "function": {"name": "scan", "arguments": "{}"}}]
		}, "finish_reason": "tool_calls"}]
	}`)

	resp := &llm.ChatResponse{Provider: "ollama"}
	assembleResponse(resp, wire)
	if len(resp.ToolCalls) != 1 {
		t.Fatal("expected one tool call")
	}
	if !llm.ValidateCallID(resp.ToolCalls[0].ID) {
		t.Errorf("synthesized id %q is not a valid call id", resp.ToolCalls[0].ID)
	}
}

func TestAssembleResponseNoChoices(t *testing.T) {
	wire := decodeWire(t, `{"model": "m", "choices": []}`)

	resp := &llm.ChatResponse{Provider: "openai"}
	assembleResponse(resp, wire)
	if resp.OK {
		t.Fatal("a response without choices must not be OK")
	}
	if resp.Err == nil || resp.Err.Kind != llm.KindEmptyResult {
		t.Errorf("Err = %v, want kind %s", resp.Err, llm.KindEmptyResult)
	}
}

func TestAssembleResponseContentParts(t *testing.T) {
	wire := decodeWire(t, `{
		"model": "m",
		"choices": [{"index": 0, "message": {
			"role": "assistant",
			"content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}]
		}, "finish_reason": "stop"}]
	}`)

	resp := &llm.ChatResponse{Provider: "openrouter"}
	assembleResponse(resp, wire)
	if resp.Text != "part one part two" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantKey string
		wantVal any
	}{
		{"valid object", `{"path":"a.ts"}`, "path", "a.ts"},
		{"empty string", "", "", nil},
		{"whitespace only", "  \n", "", nil},
		{"malformed json", `{"path": "a.ts`, llm.RawInputKey, `{"path": "a.ts`},
		{"non object json", `[1,2]`, llm.RawInputKey, `[1,2]`},
		{"json null", `null`, llm.RawInputKey, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseToolArguments(tt.args)
			if got == nil {
				t.Fatal("parseToolArguments returned nil")
			}
			if tt.wantKey == "" {
				if len(got) != 0 {
					t.Errorf("got %v, want empty map", got)
				}
				return
			}
			if got[tt.wantKey] != tt.wantVal {
				t.Errorf("got %v, want %s=%v", got, tt.wantKey, tt.wantVal)
			}
		})
	}
}
