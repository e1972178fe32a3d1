package provider

import (
	"context"
	"time"

	"github.com/argus-sec/argus/pkg/discovery"
	"github.com/argus-sec/argus/pkg/llm"
)

// Provider is one configured vendor connection: credentials, a selected
// model, and the chat and discovery operations against that vendor.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string

	// Info returns the static capability descriptor for this vendor.
	Info() llm.ProviderInfo

	// SetCredentials replaces the API key and base URL. Empty arguments
	// leave the corresponding value unchanged.
	SetCredentials(apiKey, baseURL string)

	// SetModel selects the model used when a request names none.
	SetModel(model string)

	// Model returns the currently selected model id.
	Model() string

	// Initialize probes connectivity by listing models. It fails when the
	// vendor is unreachable or rejects the credentials.
	Initialize(ctx context.Context) error

	// Chat performs a non-streaming chat call. The response is never nil;
	// err is non-nil exactly when the response is not OK, and then aliases
	// the structured error carried inside it.
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// ChatStream performs a streaming chat call, invoking onDelta for each
	// text fragment and tool-call fragment in wire order. The returned
	// response carries the fully assembled result; error semantics match
	// Chat. A cancelled stream returns whatever was accumulated so far.
	ChatStream(ctx context.Context, req *llm.ChatRequest, onDelta llm.StreamHandler) (*llm.ChatResponse, error)

	// ListModels lists the vendor's models with this connection's
	// credentials, with the profile's vendor filter applied.
	ListModels(ctx context.Context) *discovery.Result

	// CheckHealth performs one live connectivity probe.
	CheckHealth(ctx context.Context) *HealthStatus

	// Close releases HTTP resources.
	Close() error
}

// HealthStatus is the outcome of a single connectivity probe.
type HealthStatus struct {
	Provider   string        `json:"provider"`
	Healthy    bool          `json:"healthy"`
	Latency    time.Duration `json:"latency"`
	ModelCount int           `json:"model_count"`
	Error      string        `json:"error,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}
