// Package mcp connects to Model Context Protocol servers and exposes their
// tools as chat tool definitions.
//
// A [Client] wraps one server connection. ListTools discovers the server's
// tools and converts them to llm.ToolDefinition values that can be attached
// to chat requests; CallTool invokes a tool with the arguments a model
// produced and returns the output as a tool result block. Security scanners
// and analyzers served over MCP plug into review sessions this way without
// any per-tool glue code.
//
// The package wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk) and supports the SSE and
// streamable-http transports with optional static request headers.
package mcp
