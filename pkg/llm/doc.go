// Package llm defines the unified chat vocabulary shared by every vendor
// adapter in argus.
//
// This package provides the types the rest of the application programs
// against: chat requests and responses, messages built from ordered content
// blocks, tool definitions and tool calls, stop reasons, token usage, and the
// structured error type used across the provider stack.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Vendor wire formats never appear here; translation to and
// from them is the job of pkg/provider.
//
// Core types:
//   - [ChatRequest]: the caller's provider-independent request
//   - [ChatResponse]: the normalized result of a chat or streaming call
//   - [ChatMessage]: a role plus ordered [ContentBlock] values
//   - [ToolDefinition]: a caller-defined function the model may invoke
//   - [ToolCall]: the model's request to invoke one, with parsed arguments
//   - [Error]: structured error carrying a machine-checkable [ErrorKind]
package llm
