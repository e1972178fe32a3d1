package profile

import (
	"regexp"
	"sort"

	"github.com/argus-sec/argus/pkg/llm"
)

// builtins holds the static vendor table. Profiles are shared records;
// callers must treat them as read-only.
var builtins = map[string]*VendorProfile{
	"openai": {
		ID:        "openai",
		BaseURL:   "https://api.openai.com/v1",
		AuthStyle: AuthBearer,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/models",
			ArrayPath:    "data",
			IDKey:        "id",
			Capability:   CapabilityRule{Strategy: CapabilityAll},
		},
		Filter: ModelFilter{
			IncludePrefixes: []string{"gpt-", "chatgpt-", "o1", "o3", "o4"},
			ExcludePatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(audio|realtime|transcribe|tts|image)`),
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "openai",
			DisplayName:         "OpenAI",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    128000,
			EnvKey:              "OPENAI_API_KEY",
		},
	},

	"anthropic": {
		ID:           "anthropic",
		BaseURL:      "https://api.anthropic.com/v1",
		AuthStyle:    AuthAPIKeyHeader,
		APIKeyHeader: "x-api-key",
		ExtraHeaders: map[string]string{
			"anthropic-version": "2023-06-01",
		},
		Listing: Listing{
			Method:         "GET",
			PathTemplate:   "/models",
			ArrayPath:      "data",
			IDKey:          "id",
			DisplayNameKey: "display_name",
			Capability:     CapabilityRule{Strategy: CapabilityAll},
		},
		Filter: ModelFilter{
			IncludePrefixes: []string{"claude-"},
		},
		Info: llm.ProviderInfo{
			ID:                  "anthropic",
			DisplayName:         "Anthropic",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    200000,
			EnvKey:              "ANTHROPIC_API_KEY",
		},
	},

	"gemini": {
		ID:         "gemini",
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		AuthStyle:  AuthQueryParam,
		QueryParam: "key",
		Listing: Listing{
			Method:         "GET",
			PathTemplate:   "/models?key={apiKey}",
			ArrayPath:      "models",
			IDKey:          "name",
			DisplayNameKey: "displayName",
			Capability: CapabilityRule{
				Strategy: CapabilityGenerationMethods,
				Path:     "supportedGenerationMethods",
				Value:    "generateContent",
			},
		},
		// Gemini serves Chat Completions on its OpenAI compatibility path.
		ChatPath: "/openai/chat/completions",
		Filter: ModelFilter{
			IncludePrefixes: []string{"gemini-"},
			ExcludePatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(embedding|aqa|imagen|veo)`),
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "gemini",
			DisplayName:         "Google Gemini",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    1048576,
			EnvKey:              "GEMINI_API_KEY",
		},
	},

	"mistral": {
		ID:        "mistral",
		BaseURL:   "https://api.mistral.ai/v1",
		AuthStyle: AuthBearer,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/models",
			ArrayPath:    "data",
			IDKey:        "id",
			Capability: CapabilityRule{
				Strategy: CapabilityCapabilitiesField,
				Path:     "capabilities.function_calling",
			},
		},
		Filter: ModelFilter{
			IncludePrefixes: []string{
				"mistral-", "magistral-", "ministral-", "codestral-",
				"devstral-", "pixtral-", "open-",
			},
			ExcludePatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(embed|moderation|ocr)`),
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "mistral",
			DisplayName:         "Mistral AI",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    131072,
			EnvKey:              "MISTRAL_API_KEY",
		},
	},

	"groq": {
		ID:        "groq",
		BaseURL:   "https://api.groq.com/openai/v1",
		AuthStyle: AuthBearer,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/models",
			ArrayPath:    "data",
			IDKey:        "id",
			Capability:   CapabilityRule{Strategy: CapabilityAll},
		},
		Filter: ModelFilter{
			ExcludePatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)whisper`),
				regexp.MustCompile(`(?i)tts`),
				regexp.MustCompile(`(?i)guard`),
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "groq",
			DisplayName:         "Groq",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    131072,
			EnvKey:              "GROQ_API_KEY",
		},
	},

	"openrouter": {
		ID:        "openrouter",
		BaseURL:   "https://openrouter.ai/api/v1",
		AuthStyle: AuthBearer,
		ExtraHeaders: map[string]string{
			"HTTP-Referer": "https://github.com/argus-sec/argus",
			"X-Title":      "argus",
		},
		Listing: Listing{
			Method:         "GET",
			PathTemplate:   "/models",
			ArrayPath:      "data",
			IDKey:          "id",
			DisplayNameKey: "name",
			Capability: CapabilityRule{
				Strategy: CapabilityField,
				Path:     "supported_parameters",
				Value:    "tools",
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "openrouter",
			DisplayName:         "OpenRouter",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			EnvKey:              "OPENROUTER_API_KEY",
		},
	},

	"deepseek": {
		ID:        "deepseek",
		BaseURL:   "https://api.deepseek.com/v1",
		AuthStyle: AuthBearer,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/models",
			ArrayPath:    "data",
			IDKey:        "id",
			Capability:   CapabilityRule{Strategy: CapabilityAll},
		},
		Filter: ModelFilter{
			IncludePrefixes: []string{"deepseek-"},
		},
		Info: llm.ProviderInfo{
			ID:                  "deepseek",
			DisplayName:         "DeepSeek",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			MaxContextTokens:    65536,
			EnvKey:              "DEEPSEEK_API_KEY",
		},
	},

	"xai": {
		ID:        "xai",
		BaseURL:   "https://api.x.ai/v1",
		AuthStyle: AuthBearer,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/models",
			ArrayPath:    "data",
			IDKey:        "id",
			Capability:   CapabilityRule{Strategy: CapabilityAll},
		},
		Filter: ModelFilter{
			IncludePrefixes: []string{"grok-"},
			ExcludePatterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)image`),
			},
		},
		Info: llm.ProviderInfo{
			ID:                  "xai",
			DisplayName:         "xAI",
			SupportsStreaming:   true,
			SupportsToolCalling: true,
			SupportsVision:      true,
			MaxContextTokens:    131072,
			EnvKey:              "XAI_API_KEY",
		},
	},

	"ollama": {
		ID:        "ollama",
		BaseURL:   "http://localhost:11434",
		AuthStyle: AuthNone,
		Listing: Listing{
			Method:       "GET",
			PathTemplate: "/api/tags",
			ArrayPath:    "models",
			IDKey:        "name",
			Capability:   CapabilityRule{Strategy: CapabilityAll},
		},
		// The native API root has no version prefix; Chat Completions live
		// under /v1.
		ChatPath: "/v1/chat/completions",
		Info: llm.ProviderInfo{
			ID:                "ollama",
			DisplayName:       "Ollama",
			SupportsStreaming: true,
			// Tool calling depends on the local model; the listing cannot
			// tell, so the descriptor stays optimistic.
			SupportsToolCalling: true,
		},
	},
}

// Builtin returns the built-in profile for the given provider id. The
// returned profile is shared and must not be mutated.
func Builtin(id string) (*VendorProfile, bool) {
	p, ok := builtins[id]
	return p, ok
}

// BuiltinIDs returns the ids of all built-in profiles in sorted order.
func BuiltinIDs() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
