package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/argus-sec/argus/pkg/llm"
)

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical name for this server, used in error messages.
	Name string

	// Transport is the transport type: "sse" or "streamable-http".
	// If empty, defaults to "streamable-http".
	Transport string

	// URL is the MCP server endpoint URL.
	URL string

	// Headers contains additional HTTP headers to send with requests,
	// typically used for authentication.
	Headers map[string]string
}

// Client wraps an MCP SDK client and session for a single server
// connection. It handles connection lifecycle, tool discovery, and tool
// invocation.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu            sync.Mutex
	cachedTools   []llm.ToolDefinition
	toolsResolved bool
}

// NewClient creates a Client for the given server configuration.
// Call Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection to the server, performing the
// protocol handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the MCP connection using the given
// transport. If transport is nil, a transport is created from the server
// configuration.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "argus",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport creates an MCP transport based on the server configuration.
func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{
			Endpoint: c.cfg.URL,
		}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client that attaches the configured
// static headers to every request. Returns nil when no headers are set.
func (c *Client) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

// headerTransport is an http.RoundTripper that adds custom headers to
// every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// ListTools queries the server for available tools, converts them to chat
// tool definitions, and caches the results. Subsequent calls return the
// cached definitions.
func (c *Client) ListTools(ctx context.Context) ([]llm.ToolDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.toolsResolved {
		return c.cachedTools, nil
	}

	if c.session == nil {
		return nil, fmt.Errorf("MCP server %q not connected", c.cfg.Name)
	}

	var defs []llm.ToolDefinition
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		td, convErr := convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		defs = append(defs, td)
	}

	c.cachedTools = defs
	c.toolsResolved = true
	return defs, nil
}

// CallTool invokes a tool on the server with the arguments a model
// produced and returns the output as a tool result block. Tool-side
// failures become result content the model can read; only a missing
// connection is a Go error.
func (c *Client) CallTool(ctx context.Context, call llm.ToolCall) (*llm.ToolResult, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP server %q not connected", c.cfg.Name)
	}

	// Arguments that never parsed as JSON were preserved under the raw
	// key; the server cannot do anything with them.
	if raw, ok := call.Input[llm.RawInputKey]; ok && len(call.Input) == 1 {
		return &llm.ToolResult{
			ToolUseID: call.ID,
			Content:   fmt.Sprintf("tool arguments were not a JSON object: %v", raw),
		}, nil
	}

	params := &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: call.Input,
	}

	result, err := c.session.CallTool(ctx, params)
	if err != nil {
		return &llm.ToolResult{
			ToolUseID: call.ID,
			Content:   fmt.Sprintf("MCP tool call error: %v", err),
		}, nil
	}

	return convertResult(call.ID, result), nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertTool maps an MCP tool to a chat tool definition. The input schema
// is re-encoded through JSON, which keeps type, properties, required and
// additionalProperties and drops keywords the chat dialect does not carry.
func convertTool(t *mcp.Tool) (llm.ToolDefinition, error) {
	def := llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  llm.ToolSchema{Type: "object"},
	}
	if t.InputSchema == nil {
		return def, nil
	}

	data, err := json.Marshal(t.InputSchema)
	if err != nil {
		return llm.ToolDefinition{}, fmt.Errorf("marshaling input schema: %w", err)
	}
	var schema llm.ToolSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return llm.ToolDefinition{}, fmt.Errorf("decoding input schema: %w", err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	def.Parameters = schema
	return def, nil
}

// convertResult flattens an MCP tool result into a tool result block,
// joining the text content parts.
func convertResult(callID string, result *mcp.CallToolResult) *llm.ToolResult {
	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}
	if result.IsError && output == "" {
		output = "tool reported an error with no content"
	}

	return &llm.ToolResult{
		ToolUseID: callID,
		Content:   output,
	}
}
