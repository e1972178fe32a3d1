// Command mock-vendor runs a deterministic Chat Completions vendor for
// exercising argus without live credentials. Responses are derived from
// request content only, so repeated runs produce identical output: a
// request carrying tool definitions yields a report_finding tool call
// (streamed in argument fragments when streaming is on), and review
// prompts mentioning raw queries yield a canned finding.
//
// Configuration:
//
//	MOCK_VENDOR_PORT    - Listen port (default: 9090)
//	MOCK_VENDOR_API_KEY - When set, requests must carry it as a bearer
//	                      token; anything else is answered with 401.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_VENDOR_PORT")
	if port == "" {
		port = "9090"
	}
	apiKey := os.Getenv("MOCK_VENDOR_API_KEY")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", withAuth(apiKey, handleChatCompletions))
	mux.HandleFunc("GET /v1/models", withAuth(apiKey, handleModels))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock vendor starting", "port", port, "auth", apiKey != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock vendor failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock vendor shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// withAuth enforces bearer-token auth when a key is configured. The 401
// body matches the OpenAI error envelope so clients exercise their
// credential remediation path against it.
func withAuth(apiKey string, next http.HandlerFunc) http.HandlerFunc {
	if apiKey == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+apiKey {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided.","type":"invalid_request_error","code":"invalid_api_key"}}`))
			return
		}
		next(w, r)
	}
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []any         `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Canned review output ---

const (
	findingText = "handlers/login.go:42 builds the SQL query by concatenating " +
		"the request's username parameter into the statement. Any value " +
		"containing a quote breaks out of the string literal. Use a " +
		"parameterized query with placeholders instead."
	cleanText = "No actionable findings in the provided code."
)

// findingArguments is the report_finding payload, also used as the
// fragment source for streamed tool calls.
const findingArguments = `{"file":"handlers/login.go","line":42,"severity":"high","summary":"SQL query built by string concatenation"}`

// --- Handlers ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := classifyAndRespond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-review-large"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func classifyAndRespond(req *chatRequest) chatResponse {
	if len(req.Tools) > 0 {
		return toolCallResponse()
	}
	return makeTextResponse(reviewText(req))
}

// reviewText picks the canned review for a request. "ping" gives
// integration tests a short fixed answer to assert on.
func reviewText(req *chatRequest) string {
	last := strings.ToLower(lastUserMessage(req))
	switch {
	case strings.Contains(last, "ping"):
		return "pong"
	case strings.Contains(last, "select") || strings.Contains(last, "query"):
		return findingText
	default:
		return cleanText
	}
}

func toolCallResponse() chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-tool",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: nil,
					ToolCalls: []toolCall{
						{
							ID:   "call_mock_1",
							Type: "function",
							Function: funcCall{
								Name:      "report_finding",
								Arguments: findingArguments,
							},
						},
					},
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: chatUsage{PromptTokens: 40, CompletionTokens: 25, TotalTokens: 65},
	}
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42},
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = "mock-review-large"
	}

	if len(req.Tools) > 0 {
		streamToolCall(w, flusher, model)
		return
	}

	tokens := strings.SplitAfter(reviewText(req), " ")

	writeRoleChunk(w, model)
	flusher.Flush()
	for _, token := range tokens {
		writeContentChunk(w, model, token)
		flusher.Flush()
	}
	writeFinishChunk(w, model, "stop", len(tokens))
	flusher.Flush()
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// streamToolCall emits a report_finding call the way real vendors do: a
// header delta naming the tool, then argument fragments split mid-string
// so clients must buffer before parsing, then a tool_calls finish.
func streamToolCall(w http.ResponseWriter, flusher http.Flusher, model string) {
	writeRoleChunk(w, model)
	flusher.Flush()

	header := map[string]any{
		"index": 0,
		"id":    "call_mock_1",
		"type":  "function",
		"function": map[string]any{
			"name":      "report_finding",
			"arguments": "",
		},
	}
	writeToolChunk(w, model, header)
	flusher.Flush()

	for _, fragment := range splitFragments(findingArguments, 3) {
		writeToolChunk(w, model, map[string]any{
			"index":    0,
			"function": map[string]any{"arguments": fragment},
		})
		flusher.Flush()
	}

	writeFinishChunk(w, model, "tool_calls", 25)
	flusher.Flush()
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// splitFragments cuts s into n pieces without regard for JSON structure.
func splitFragments(s string, n int) []string {
	if n < 1 {
		n = 1
	}
	size := (len(s) + n - 1) / n
	var parts []string
	for len(s) > 0 {
		if len(s) < size {
			size = len(s)
		}
		parts = append(parts, s[:size])
		s = s[size:]
	}
	return parts
}

func writeRoleChunk(w http.ResponseWriter, model string) {
	writeChunk(w, model, map[string]any{"role": "assistant"}, nil)
}

func writeContentChunk(w http.ResponseWriter, model, content string) {
	writeChunk(w, model, map[string]any{"content": content}, nil)
}

func writeToolChunk(w http.ResponseWriter, model string, call map[string]any) {
	writeChunk(w, model, map[string]any{"tool_calls": []any{call}}, nil)
}

func writeFinishChunk(w http.ResponseWriter, model, reason string, tokenCount int) {
	writeChunk(w, model, map[string]any{}, map[string]any{
		"finish_reason": reason,
		"usage": map[string]any{
			"prompt_tokens":     30,
			"completion_tokens": tokenCount,
			"total_tokens":      30 + tokenCount,
		},
	})
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, extra map[string]any) {
	choice := map[string]any{
		"index":         0,
		"delta":         delta,
		"finish_reason": nil,
	}
	chunk := map[string]any{
		"id":      "chatcmpl-mock-stream",
		"object":  "chat.completion.chunk",
		"model":   model,
		"choices": []any{choice},
	}
	if extra != nil {
		if reason, ok := extra["finish_reason"]; ok {
			choice["finish_reason"] = reason
		}
		if usage, ok := extra["usage"]; ok {
			chunk["usage"] = usage
		}
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

// handleModels lists a fixed catalog. The "models/" prefixed id and the
// preview entry give discovery clients normalization and ordering cases
// to chew on.
func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-review-large", "object": "model", "owned_by": "argus-mock"},
			{"id": "mock-review-compact", "object": "model", "owned_by": "argus-mock"},
			{"id": "mock-review-preview", "object": "model", "owned_by": "argus-mock"},
			{"id": "models/mock-review-embedded", "object": "model", "owned_by": "argus-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		switch v := req.Messages[i].Content.(type) {
		case string:
			return v
		case []any:
			// Content-part array: concatenate the text parts.
			var sb strings.Builder
			for _, part := range v {
				if m, ok := part.(map[string]any); ok {
					if t, ok := m["type"].(string); ok && t == "text" {
						if text, ok := m["text"].(string); ok {
							sb.WriteString(text)
						}
					}
				}
			}
			return sb.String()
		}
	}
	return ""
}
