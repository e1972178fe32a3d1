package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/argus-sec/argus/pkg/debug"
	"github.com/argus-sec/argus/pkg/discovery"
	"github.com/argus-sec/argus/pkg/llm"
	"github.com/argus-sec/argus/pkg/observability"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

const (
	// chatTimeout is the hard budget for a non-streaming chat call.
	chatTimeout = 30 * time.Second

	// streamTimeout is the total budget for a streaming call. Streams
	// legitimately run long, so they get three times the chat budget.
	streamTimeout = 3 * chatTimeout

	// maxResponseBytes bounds a non-streaming response body.
	maxResponseBytes = 4 << 20
)

// Options customizes a Client beyond its credentials.
type Options struct {
	// Discovery is the model discovery engine to use. When nil the
	// client creates a private one; passing a shared engine lets all
	// providers share one listing cache.
	Discovery *discovery.Engine

	// Recorder receives one call record per chat call. Nil means
	// Prometheus metrics only.
	Recorder observability.Recorder
}

// Client is the generic vendor connection. All vendor specifics come
// from the profile; the client itself only knows the Chat Completions
// dialect.
type Client struct {
	prof      *profile.VendorProfile
	discovery *discovery.Engine
	recorder  observability.Recorder

	httpClient *http.Client
	// streamClient has no timeout; streaming lifetime is bounded by the
	// request context instead.
	streamClient *http.Client

	mu      sync.RWMutex
	apiKey  string
	baseURL string
	model   string
}

var _ Provider = (*Client)(nil)

// New creates a vendor connection from a profile. An empty apiKey falls
// back to the vendor's environment variable; an empty baseURL uses the
// profile's default endpoint.
func New(prof *profile.VendorProfile, apiKey, baseURL string) *Client {
	return NewWithOptions(prof, apiKey, baseURL, Options{})
}

// NewWithOptions is New with an injected discovery engine and recorder.
func NewWithOptions(prof *profile.VendorProfile, apiKey, baseURL string, opts Options) *Client {
	if apiKey == "" && prof.Info.EnvKey != "" {
		apiKey = os.Getenv(prof.Info.EnvKey)
	}
	engine := opts.Discovery
	if engine == nil {
		engine = discovery.NewEngine()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = observability.MetricsRecorder{}
	}
	return &Client{
		prof:         prof,
		discovery:    engine,
		recorder:     recorder,
		httpClient:   &http.Client{Timeout: chatTimeout},
		streamClient: &http.Client{},
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) Name() string { return c.prof.ID }

func (c *Client) Info() llm.ProviderInfo { return c.prof.Info }

func (c *Client) SetCredentials(apiKey, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if apiKey != "" {
		c.apiKey = apiKey
	}
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// snapshot returns the effective credentials under the read lock. The
// base URL falls back to the profile default when none was configured.
func (c *Client) snapshot() (apiKey, baseURL, model string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	baseURL = c.baseURL
	if baseURL == "" {
		baseURL = c.prof.BaseURL
	}
	return c.apiKey, baseURL, c.model
}

// Initialize probes the vendor by listing models.
func (c *Client) Initialize(ctx context.Context) error {
	res := c.ListModels(ctx)
	if !res.OK {
		return res.Err
	}
	debug.Log("providers", "provider initialized",
		"provider", c.prof.ID, "models", len(res.All))
	return nil
}

// ListModels lists the vendor's models with the profile's filter applied.
func (c *Client) ListModels(ctx context.Context) *discovery.Result {
	apiKey, baseURL, _ := c.snapshot()
	res := c.discovery.Fetch(ctx, c.prof, discovery.FetchOptions{
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
	return discovery.FilterResult(res, c.prof.Filter)
}

// RefreshModels drops any cached listing and fetches a fresh one.
func (c *Client) RefreshModels(ctx context.Context) *discovery.Result {
	apiKey, baseURL, _ := c.snapshot()
	res := c.discovery.Fetch(ctx, c.prof, discovery.FetchOptions{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		BypassCache: true,
	})
	return discovery.FilterResult(res, c.prof.Filter)
}

// CheckHealth performs one live listing probe, bypassing the discovery
// cache so the result reflects the vendor's current state.
func (c *Client) CheckHealth(ctx context.Context) *HealthStatus {
	start := time.Now()
	res := c.RefreshModels(ctx)

	status := &HealthStatus{
		Provider:   c.prof.ID,
		Healthy:    res.OK,
		Latency:    time.Since(start),
		ModelCount: len(res.All),
		CheckedAt:  time.Now(),
	}
	if res.Err != nil {
		status.Error = res.Err.Error()
	}
	observability.RecordHealthCheck(c.prof.ID, status.Healthy)
	return status
}

// Chat performs a non-streaming chat call.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	apiKey, baseURL, model := c.snapshot()
	if req != nil && req.Model != "" {
		model = req.Model
	}
	resp := &llm.ChatResponse{Provider: c.prof.ID, Model: model}

	if req == nil {
		return fail(resp, llm.NewConfigurationError("nil chat request"))
	}
	if model == "" {
		return fail(resp, llm.NewConfigurationError("no model selected; set one on the provider or in the request"))
	}

	start := time.Now()
	c.chat(ctx, req, apiKey, baseURL, model, resp)
	resp.Duration = time.Since(start)
	c.record(resp)

	debug.Log("providers", "chat complete",
		"provider", c.prof.ID, "model", resp.Model,
		"ok", resp.OK, "duration", resp.Duration)

	if resp.Err != nil {
		return resp, resp.Err
	}
	return resp, nil
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest, apiKey, baseURL, model string, resp *llm.ChatResponse) {
	wire := buildChatRequest(req, model, false)
	body, err := json.Marshal(wire)
	if err != nil {
		resp.Err = llm.NewConfigurationError("failed to encode chat request: " + err.Error())
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+c.prof.ChatEndpoint(apiKey), bytes.NewReader(body))
	if err != nil {
		resp.Err = llm.NewConnectionError(c.prof.ID, "failed to build chat request: "+err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.prof.AuthHeaders(apiKey) {
		httpReq.Header.Set(k, v)
	}

	debug.Log("providers", "chat request",
		"provider", c.prof.ID, "model", model,
		"messages", len(wire.Messages), "tools", len(wire.Tools))
	debug.Raw("providers", string(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		resp.Err = classifyNetworkError(c.prof.ID, err, chatTimeout)
		return
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		resp.Err = llm.NewConnectionError(c.prof.ID, "failed to read chat response: "+err.Error())
		return
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		message := discovery.ExtractErrorMessage(raw)
		if message == "" {
			message = httpResp.Status
		}
		resp.Err = remediate(c.prof, llm.NewHTTPError(c.prof.ID, httpResp.StatusCode, message))
		return
	}

	debug.Raw("providers", string(raw))

	var wireResp chatResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		resp.Err = llm.NewMalformedPayloadError(c.prof.ID, "failed to decode chat response: "+err.Error())
		return
	}
	assembleResponse(resp, &wireResp)
}

// ChatStream performs a streaming chat call, relaying deltas to onDelta
// as they arrive. Cancellation mid-stream returns the partial response
// accumulated so far together with a timeout-kind error.
func (c *Client) ChatStream(ctx context.Context, req *llm.ChatRequest, onDelta llm.StreamHandler) (*llm.ChatResponse, error) {
	apiKey, baseURL, model := c.snapshot()
	if req != nil && req.Model != "" {
		model = req.Model
	}
	resp := &llm.ChatResponse{Provider: c.prof.ID, Model: model}

	switch {
	case req == nil:
		return fail(resp, llm.NewConfigurationError("nil chat request"))
	case onDelta == nil:
		return fail(resp, llm.NewConfigurationError("nil stream handler"))
	case model == "":
		return fail(resp, llm.NewConfigurationError("no model selected; set one on the provider or in the request"))
	}

	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	wire := buildChatRequest(req, model, true)
	body, err := json.Marshal(wire)
	if err != nil {
		return fail(resp, llm.NewConfigurationError("failed to encode chat request: "+err.Error()))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+c.prof.ChatEndpoint(apiKey), bytes.NewReader(body))
	if err != nil {
		return fail(resp, llm.NewConnectionError(c.prof.ID, "failed to build chat request: "+err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range c.prof.AuthHeaders(apiKey) {
		httpReq.Header.Set(k, v)
	}

	debug.Log("streaming", "stream request",
		"provider", c.prof.ID, "model", model,
		"messages", len(wire.Messages), "tools", len(wire.Tools))

	start := time.Now()
	httpResp, err := c.streamClient.Do(httpReq)
	if err != nil {
		resp.Err = classifyNetworkError(c.prof.ID, err, streamTimeout)
		resp.Duration = time.Since(start)
		c.record(resp)
		return resp, resp.Err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		message := discovery.ExtractErrorMessage(raw)
		if message == "" {
			message = httpResp.Status
		}
		resp.Err = remediate(c.prof, llm.NewHTTPError(c.prof.ID, httpResp.StatusCode, message))
		resp.Duration = time.Since(start)
		c.record(resp)
		return resp, resp.Err
	}

	observability.ActiveStreams.Inc()
	defer observability.ActiveStreams.Dec()

	acc := newStreamAccumulator(c.prof.ID, model)
	streamErr := acc.consume(ctx, httpResp.Body, onDelta)

	acc.finalize(resp)
	resp.Duration = time.Since(start)
	if streamErr != nil {
		resp.OK = false
		resp.Err = streamErr
	}
	c.record(resp)

	debug.Log("streaming", "stream complete",
		"provider", c.prof.ID, "model", resp.Model,
		"ok", resp.OK, "tool_calls", len(resp.ToolCalls), "duration", resp.Duration)

	if resp.Err != nil {
		return resp, resp.Err
	}
	return resp, nil
}

// Close releases idle HTTP connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// record emits one call record. Configuration misuse never reaches the
// network and is not recorded.
func (c *Client) record(resp *llm.ChatResponse) {
	rec := observability.CallRecord{
		Provider: c.prof.ID,
		Model:    resp.Model,
		Duration: resp.Duration,
		Success:  resp.OK,
	}
	if resp.Usage != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.TotalTokens = resp.Usage.TotalTokens
	}
	c.recorder.Record(rec)
}

// fail marks resp failed with err and returns both, keeping the response
// and error views of the outcome consistent.
func fail(resp *llm.ChatResponse, err *llm.Error) (*llm.ChatResponse, error) {
	resp.OK = false
	resp.Err = err
	return resp, err
}
