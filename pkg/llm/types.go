package llm

import (
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Messages and content blocks
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// BlockType represents the kind of a content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of a message's ordered content. Exactly one of
// Text, ToolUse, or ToolResult carries data, selected by Type. Blocks keep
// the order in which the vendor emitted them.
type ContentBlock struct {
	Type       BlockType   `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolCall   `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock creates a tool_use content block for the given call.
func ToolUseBlock(call ToolCall) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolUse: &call}
}

// ToolResultBlock creates a tool_result content block answering the tool
// call identified by toolUseID.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseID: toolUseID, Content: content}}
}

// ChatMessage is one turn of a conversation: a role plus ordered content
// blocks. Plain-text messages are represented as a single text block.
type ChatMessage struct {
	Role   MessageRole    `json:"role"`
	Blocks []ContentBlock `json:"blocks"`
}

// TextMessage creates a single-text-block message with the given role.
func TextMessage(role MessageRole, text string) ChatMessage {
	return ChatMessage{Role: role, Blocks: []ContentBlock{TextBlock(text)}}
}

// ToolResultMessage creates a tool-role message carrying the result of the
// tool call identified by toolUseID.
func ToolResultMessage(toolUseID, content string) ChatMessage {
	return ChatMessage{Role: RoleTool, Blocks: []ContentBlock{ToolResultBlock(toolUseID, content)}}
}

// Text returns the concatenation of the message's text blocks.
func (m ChatMessage) Text() string {
	var b strings.Builder
	for _, blk := range m.Blocks {
		if blk.Type == BlockText {
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

// ToolCall is the model's request to invoke a caller-defined tool. Input
// holds the parsed JSON arguments; when the vendor delivered arguments that
// do not parse as JSON, Input is {"_raw": <verbatim text>} instead.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// RawInputKey is the Input map key under which unparsable tool-call
// arguments are preserved verbatim.
const RawInputKey = "_raw"

// ToolResult is the caller's answer to a tool call, sent back to the model
// as a tool_result block.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parameters  ToolSchema `json:"parameters"`
}

// ToolSchema is the JSON-schema object describing a tool's parameters.
type ToolSchema struct {
	Type                 string         `json:"type"`
	Properties           map[string]any `json:"properties"`
	Required             []string       `json:"required,omitempty"`
	AdditionalProperties *bool          `json:"additionalProperties,omitempty"`
}

// ObjectSchema creates a ToolSchema of type "object" with the given
// properties and required field names.
func ObjectSchema(properties map[string]any, required ...string) ToolSchema {
	return ToolSchema{Type: "object", Properties: properties, Required: required}
}

// ---------------------------------------------------------------------------
// Request and response
// ---------------------------------------------------------------------------

// ChatRequest is the provider-independent chat request. Model may be empty
// to use the provider instance's configured model. SystemPrompt, when set,
// is delivered as a system message ahead of Messages unless the first
// message already has the system role.
type ChatRequest struct {
	Model         string           `json:"model,omitempty"`
	Messages      []ChatMessage    `json:"messages"`
	SystemPrompt  string           `json:"system_prompt,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	MaxTokens     *int             `json:"max_tokens,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
}

// StopReason represents why generation ended, normalized across vendors.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopToolUse   StopReason = "tool_use"
	StopUnknown   StopReason = "unknown"
)

// MapFinishReason normalizes a vendor finish/stop reason into a StopReason.
// Unrecognized or absent values map to StopUnknown.
func MapFinishReason(reason string) StopReason {
	switch reason {
	case "stop", "end_turn":
		return StopEndTurn
	case "length", "max_tokens":
		return StopMaxTokens
	case "tool_calls", "function_call", "tool_use":
		return StopToolUse
	default:
		return StopUnknown
	}
}

// Usage holds token counts for one call. Streaming vendors deliver usage on
// their final chunk only.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ChatResponse is the normalized result of a chat or streaming call.
//
// OK is false exactly when Err is set. Text is the concatenation of all text
// content; Blocks preserves the vendor's emission order of text and tool_use
// blocks; ToolCalls lists the tool calls in ascending vendor index order.
// Duration covers the full call including stream consumption.
type ChatResponse struct {
	OK         bool           `json:"ok"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model,omitempty"`
	Text       string         `json:"text,omitempty"`
	Blocks     []ContentBlock `json:"blocks,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	StopReason StopReason     `json:"stop_reason,omitempty"`
	Usage      *Usage         `json:"usage,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Err        *Error         `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Streaming deltas
// ---------------------------------------------------------------------------

// StreamDelta is one incremental update forwarded to the caller during a
// streaming call, in wire arrival order. Exactly one of Text, ToolUse, or
// StopReason is populated.
type StreamDelta struct {
	Text       string        `json:"text,omitempty"`
	ToolUse    *ToolUseDelta `json:"tool_use,omitempty"`
	StopReason StopReason    `json:"stop_reason,omitempty"`
}

// ToolUseDelta announces a new tool call (Name set, InputDelta empty) or
// appends an argument fragment to one (InputDelta set). ID always names the
// tool call the delta belongs to.
type ToolUseDelta struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	InputDelta string `json:"input_delta,omitempty"`
}

// StreamHandler receives stream deltas. Handlers are invoked strictly in
// wire order from the goroutine driving the stream and must not block for
// long; the stream's timeout budget keeps running while they execute.
type StreamHandler func(delta StreamDelta)

// ---------------------------------------------------------------------------
// Provider descriptor
// ---------------------------------------------------------------------------

// ProviderInfo is the static capability descriptor of a provider.
type ProviderInfo struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"display_name"`
	SupportsStreaming   bool   `json:"supports_streaming"`
	SupportsToolCalling bool   `json:"supports_tool_calling"`
	SupportsVision      bool   `json:"supports_vision"`
	MaxContextTokens    int    `json:"max_context_tokens,omitempty"`
	EnvKey              string `json:"env_key,omitempty"`
}
