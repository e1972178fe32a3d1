package profile

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/argus-sec/argus/pkg/llm"
)

// DefaultChatPath is the chat endpoint path used when a profile does not
// override it.
const DefaultChatPath = "/chat/completions"

// AuthStyle selects how the API key is attached to vendor requests.
type AuthStyle string

const (
	// AuthBearer sends "Authorization: Bearer <key>".
	AuthBearer AuthStyle = "bearer"
	// AuthAPIKeyHeader sends the key in a vendor-named header.
	AuthAPIKeyHeader AuthStyle = "api-key-header"
	// AuthQueryParam substitutes the key into a URL query parameter.
	AuthQueryParam AuthStyle = "query-param"
	// AuthNone sends no credential (self-hosted endpoints).
	AuthNone AuthStyle = "none"
)

// CapabilityStrategy selects how tool-calling support is detected for a
// model entry in the vendor's listing payload.
type CapabilityStrategy string

const (
	// CapabilityAll marks every listed model as tool-calling capable.
	CapabilityAll CapabilityStrategy = "all"
	// CapabilityGenerationMethods requires an array field to contain a
	// specific token (Path is the array, Value the token).
	CapabilityGenerationMethods CapabilityStrategy = "generation_methods"
	// CapabilityField inspects a field that may be a boolean, a string, or
	// an array; booleans are taken as-is, strings are compared to Value,
	// arrays must contain Value.
	CapabilityField CapabilityStrategy = "field"
	// CapabilityCapabilitiesField reads a nested boolean (or the string
	// "true") at a dot path.
	CapabilityCapabilitiesField CapabilityStrategy = "capabilities_field"
)

// CapabilityRule parameterizes tool-calling detection for one vendor.
type CapabilityRule struct {
	Strategy CapabilityStrategy
	// Path is the dot path into a model entry (unused for CapabilityAll).
	Path string
	// Value is the token or comparison value for strategies that need one.
	Value string
}

// Listing describes the model-listing request and response shape.
type Listing struct {
	// Method is the HTTP method, normally GET.
	Method string
	// PathTemplate is appended to the base URL. It may contain the literal
	// placeholder "{apiKey}", substituted for query-param auth.
	PathTemplate string
	// ArrayPath is the dot path to the model array in the response body.
	ArrayPath string
	// IDKey is the dot path to a model's id within one array entry.
	IDKey string
	// DisplayNameKey is the dot path to a human-readable name; empty means
	// fall back to the id.
	DisplayNameKey string
	// Capability is the tool-calling detection rule.
	Capability CapabilityRule
}

// ModelFilter narrows a discovery result to the models a vendor actually
// serves for chat. The inclusion pass keeps ids starting with one of the
// known prefixes; the exclusion pass then drops ids matching any pattern.
// An empty IncludePrefixes slice keeps everything.
type ModelFilter struct {
	IncludePrefixes []string
	ExcludePatterns []*regexp.Regexp
}

// Empty reports whether the filter would pass every id through unchanged.
func (f ModelFilter) Empty() bool {
	return len(f.IncludePrefixes) == 0 && len(f.ExcludePatterns) == 0
}

// VendorProfile is the immutable configuration record for one vendor.
// Created at startup, never mutated afterwards.
type VendorProfile struct {
	// ID is the provider identifier ("openai", "ollama", ...).
	ID string
	// BaseURL is the default API root; callers may override it per
	// instance for proxies and self-hosted deployments.
	BaseURL string
	// AuthStyle selects credential placement.
	AuthStyle AuthStyle
	// APIKeyHeader names the header for AuthAPIKeyHeader.
	APIKeyHeader string
	// QueryParam names the URL parameter for AuthQueryParam.
	QueryParam string
	// ExtraHeaders are static headers attached to every request.
	ExtraHeaders map[string]string
	// Listing is the model-listing shape.
	Listing Listing
	// ChatPath overrides the chat endpoint path; empty means the engine
	// default "/chat/completions".
	ChatPath string
	// Filter is the vendor-specific model filter, applied as a layer on
	// top of raw discovery results.
	Filter ModelFilter
	// Info is the static capability descriptor surfaced to callers.
	Info llm.ProviderInfo
}

// AuthHeaders returns the headers for one request against this vendor:
// the profile's static headers plus the credential in the position the
// auth style dictates. Query-param and none styles contribute no
// credential header. Pure function, no mutation of the profile.
func (p *VendorProfile) AuthHeaders(apiKey string) map[string]string {
	headers := make(map[string]string, len(p.ExtraHeaders)+1)
	for k, v := range p.ExtraHeaders {
		headers[k] = v
	}
	switch p.AuthStyle {
	case AuthBearer:
		if apiKey != "" {
			headers["Authorization"] = "Bearer " + apiKey
		}
	case AuthAPIKeyHeader:
		if apiKey != "" && p.APIKeyHeader != "" {
			headers[p.APIKeyHeader] = apiKey
		}
	}
	return headers
}

// ListingPath renders the model-listing path, substituting the API key
// into the {apiKey} placeholder when present.
func (p *VendorProfile) ListingPath(apiKey string) string {
	return strings.ReplaceAll(p.Listing.PathTemplate, "{apiKey}", url.QueryEscape(apiKey))
}

// ChatEndpoint renders the chat endpoint path. Query-param vendors get the
// same key parameter the listing template receives.
func (p *VendorProfile) ChatEndpoint(apiKey string) string {
	path := p.ChatPath
	if path == "" {
		path = DefaultChatPath
	}
	if p.AuthStyle == AuthQueryParam && p.QueryParam != "" && apiKey != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + p.QueryParam + "=" + url.QueryEscape(apiKey)
	}
	return path
}
