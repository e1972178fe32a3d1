package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/argus-sec/argus/pkg/debug"
	"github.com/argus-sec/argus/pkg/llm"
)

// maxStreamLineBytes bounds a single SSE line. Argument fragments are
// small, but some vendors send whole tool calls in one chunk.
const maxStreamLineBytes = 1 << 20

// toolCallState buffers one tool call's fragments across chunks.
type toolCallState struct {
	id   string
	name string
	args strings.Builder
}

// streamAccumulator folds SSE chunks into a final response while relaying
// deltas to the caller's handler in wire order. Tool calls are keyed by
// the chunk's array index; a fragment carrying an id opens a new call and
// later fragments for the same index append to its argument buffer.
type streamAccumulator struct {
	provider string
	model    string

	text    strings.Builder
	pending map[int]*toolCallState
	finish  string
	usage   *llm.Usage
}

func newStreamAccumulator(providerID, model string) *streamAccumulator {
	return &streamAccumulator{
		provider: providerID,
		model:    model,
		pending:  make(map[int]*toolCallState),
	}
}

// consume reads SSE lines until the [DONE] sentinel, EOF, or a read error.
// Only "data:" lines carry payloads; blank lines, comments, and event
// names are skipped, as are chunks that fail to parse.
func (a *streamAccumulator) consume(ctx context.Context, body io.Reader, onDelta llm.StreamHandler) *llm.Error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return streamInterrupted(a.provider, ctx)
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed stream chunk",
				"provider", a.provider,
				"error", err.Error(),
				"data", debug.Truncate(payload, 200),
			)
			continue
		}
		a.apply(&chunk, onDelta)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return streamInterrupted(a.provider, ctx)
		}
		return llm.NewConnectionError(a.provider, "stream read failed: "+err.Error())
	}
	return nil
}

// apply folds one chunk into the accumulator and emits the matching
// deltas. Usage-only chunks (stream_options.include_usage) carry no
// choices.
func (a *streamAccumulator) apply(chunk *chatChunk, onDelta llm.StreamHandler) {
	if chunk.Model != "" {
		a.model = chunk.Model
	}
	if chunk.Usage != nil {
		a.usage = wireUsage(chunk.Usage)
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]

	for _, tc := range choice.Delta.ToolCalls {
		if tc.ID != "" {
			state := &toolCallState{id: tc.ID, name: tc.Function.Name}
			state.args.WriteString(tc.Function.Arguments)
			a.pending[tc.Index] = state

			d := llm.ToolUseDelta{ID: tc.ID, Name: tc.Function.Name}
			if tc.Function.Arguments != "" {
				d.InputDelta = tc.Function.Arguments
			}
			onDelta(llm.StreamDelta{ToolUse: &d})
			continue
		}

		state, ok := a.pending[tc.Index]
		if !ok {
			// Fragment for an index that never announced an id; some
			// backends skip the opening chunk entirely.
			state = &toolCallState{id: llm.NewCallID(), name: tc.Function.Name}
			a.pending[tc.Index] = state
		}
		if state.name == "" {
			state.name = tc.Function.Name
		}
		state.args.WriteString(tc.Function.Arguments)
		onDelta(llm.StreamDelta{ToolUse: &llm.ToolUseDelta{
			ID:         state.id,
			InputDelta: tc.Function.Arguments,
		}})
	}

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		a.text.WriteString(*choice.Delta.Content)
		onDelta(llm.StreamDelta{Text: *choice.Delta.Content})
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		a.finish = *choice.FinishReason
		onDelta(llm.StreamDelta{StopReason: a.stopReason()})
	}
}

func (a *streamAccumulator) stopReason() llm.StopReason {
	if len(a.pending) > 0 {
		return llm.StopToolUse
	}
	return llm.MapFinishReason(a.finish)
}

// finalize writes the accumulated stream into resp. Pending tool calls
// are promoted in ascending index order with their argument buffers
// parsed the same way non-streaming calls are.
func (a *streamAccumulator) finalize(resp *llm.ChatResponse) {
	resp.Model = a.model
	if a.text.Len() > 0 {
		resp.Text = a.text.String()
		resp.Blocks = append(resp.Blocks, llm.TextBlock(resp.Text))
	}

	indexes := make([]int, 0, len(a.pending))
	for idx := range a.pending {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		state := a.pending[idx]
		call := llm.ToolCall{
			ID:    state.id,
			Name:  state.name,
			Input: parseToolArguments(state.args.String()),
		}
		if call.ID == "" {
			call.ID = llm.NewCallID()
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
		resp.Blocks = append(resp.Blocks, llm.ToolUseBlock(call))
	}

	resp.StopReason = llm.MapFinishReason(a.finish)
	if len(resp.ToolCalls) > 0 {
		resp.StopReason = llm.StopToolUse
	}
	resp.Usage = a.usage
	resp.OK = true
}

// streamInterrupted distinguishes the caller hanging up from the stream
// budget expiring.
func streamInterrupted(providerID string, ctx context.Context) *llm.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerID, fmt.Sprintf("stream exceeded the %s budget", streamTimeout))
	}
	return llm.NewTimeoutError(providerID, "stream cancelled before completion")
}
