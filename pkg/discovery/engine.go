package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/argus-sec/argus/pkg/debug"
	"github.com/argus-sec/argus/pkg/llm"
	"github.com/argus-sec/argus/pkg/observability"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

const (
	// fetchTimeout is the hard budget for one listing call.
	fetchTimeout = 15 * time.Second

	// maxListingBytes bounds how much of a listing body is read. Large
	// aggregator catalogs run to a few megabytes.
	maxListingBytes = 8 << 20
)

// Engine fetches model listings and caches results. Safe for concurrent use.
type Engine struct {
	httpClient *http.Client
	cache      *modelCache
}

// NewEngine creates a discovery engine with the standard 15s fetch timeout
// and a ten minute result cache.
func NewEngine() *Engine {
	return &Engine{
		httpClient: &http.Client{Timeout: fetchTimeout},
		cache:      newModelCache(cacheTTL, time.Now),
	}
}

// FetchOptions carries the per-call inputs for Fetch. The zero value uses
// the profile's base URL, no credential, and the cache.
type FetchOptions struct {
	// APIKey is the credential; may be empty for unauthenticated vendors.
	APIKey string
	// BaseURL overrides the profile's base URL when non-empty.
	BaseURL string
	// BypassCache skips the cache lookup and forces a network fetch. The
	// fresh result still replaces any cached one.
	BypassCache bool
}

// Fetch lists the vendor's models. All failure modes are reported inside
// the Result; Fetch itself never fails. Cache hits are marked by a zero
// Duration.
func (e *Engine) Fetch(ctx context.Context, prof *profile.VendorProfile, opts FetchOptions) *Result {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = prof.BaseURL
	}
	key := cacheKey{provider: prof.ID, baseURL: baseURL, fingerprint: Fingerprint(opts.APIKey)}

	if !opts.BypassCache {
		if cached, ok := e.cache.get(key); ok {
			cached.Duration = 0
			observability.RecordDiscoveryCacheHit(prof.ID)
			debug.Log("discovery", "cache hit", "provider", prof.ID, "models", len(cached.All))
			return &cached
		}
	}

	start := time.Now()
	res := e.fetch(ctx, prof, baseURL, opts.APIKey)
	res.Duration = time.Since(start)

	observability.RecordDiscoveryFetch(prof.ID, res.OK, res.Duration)
	if res.OK && len(res.All) > 0 {
		e.cache.put(key, *res)
	}
	return res
}

// ClearCache removes cached results for the given provider id, or the
// entire cache when the id is empty.
func (e *Engine) ClearCache(providerID string) {
	e.cache.clear(providerID)
}

func (e *Engine) fetch(ctx context.Context, prof *profile.VendorProfile, baseURL, apiKey string) *Result {
	res := &Result{Provider: prof.ID}

	listURL := baseURL + prof.ListingPath(apiKey)
	req, err := http.NewRequestWithContext(ctx, prof.Listing.Method, listURL, nil)
	if err != nil {
		res.Err = llm.NewConnectionError(prof.ID, fmt.Sprintf("failed to build listing request: %s", err))
		return res
	}
	for k, v := range prof.AuthHeaders(apiKey) {
		req.Header.Set(k, v)
	}

	debug.Log("discovery", "fetching models", "provider", prof.ID, "base_url", baseURL)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		res.Err = classifyTransportError(prof.ID, err)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		res.Err = llm.NewConnectionError(prof.ID, fmt.Sprintf("failed to read listing response: %s", err))
		return res
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := ExtractErrorMessage(body)
		if message == "" {
			message = resp.Status
		}
		res.Err = llm.NewHTTPError(prof.ID, resp.StatusCode, message)
		return res
	}

	debug.Raw("discovery", string(body))

	res.All, res.ToolCalling = extractModels(prof, body)
	res.OK = true
	if len(res.All) == 0 {
		res.Err = llm.NewEmptyResultError(prof.ID,
			fmt.Sprintf("%s returned no usable models; verify that %s points at the vendor's API root", prof.ID, baseURL))
	}
	return res
}

// extractModels pulls models out of a 2xx listing body using the profile's
// dot paths. Non-object entries and entries without a resolvable id are
// dropped. Both returned slices are sorted with tagged ids last.
func extractModels(prof *profile.VendorProfile, body []byte) (all, toolCalling []Model) {
	arr := gjson.GetBytes(body, prof.Listing.ArrayPath)
	if !arr.IsArray() {
		return nil, nil
	}
	for _, entry := range arr.Array() {
		if !entry.IsObject() {
			continue
		}
		id := entry.Get(prof.Listing.IDKey).String()
		// Some vendors qualify ids with a resource prefix.
		id = strings.TrimPrefix(id, "models/")
		if id == "" {
			debug.Log("discovery", "dropping entry without id", "provider", prof.ID)
			continue
		}

		display := id
		if prof.Listing.DisplayNameKey != "" {
			if v := entry.Get(prof.Listing.DisplayNameKey); v.Type == gjson.String && v.String() != "" {
				display = v.String()
			}
		}

		m := Model{
			ID:                  id,
			DisplayName:         display,
			SupportsToolCalling: evalCapability(prof.Listing.Capability, entry),
			Provider:            prof.ID,
			Raw:                 json.RawMessage(entry.Raw),
		}
		all = append(all, m)
		if m.SupportsToolCalling {
			toolCalling = append(toolCalling, m)
		}
	}
	sortModels(all)
	sortModels(toolCalling)
	return all, toolCalling
}

// evalCapability decides tool-calling support for one listing entry.
func evalCapability(rule profile.CapabilityRule, entry gjson.Result) bool {
	switch rule.Strategy {
	case profile.CapabilityAll:
		return true

	case profile.CapabilityGenerationMethods:
		methods := entry.Get(rule.Path)
		if !methods.IsArray() {
			return false
		}
		for _, m := range methods.Array() {
			if m.String() == rule.Value {
				return true
			}
		}
		return false

	case profile.CapabilityField:
		v := entry.Get(rule.Path)
		switch {
		case v.Type == gjson.True || v.Type == gjson.False:
			return v.Bool()
		case v.IsArray():
			for _, item := range v.Array() {
				if item.String() == rule.Value {
					return true
				}
			}
			return false
		case v.Type == gjson.String:
			return v.String() == rule.Value
		default:
			return false
		}

	case profile.CapabilityCapabilitiesField:
		v := entry.Get(rule.Path)
		return v.Type == gjson.True || (v.Type == gjson.String && v.String() == "true")

	default:
		return false
	}
}

// classifyTransportError distinguishes timeouts and cancellation from other
// network failures.
func classifyTransportError(providerID string, err error) *llm.Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return llm.NewTimeoutError(providerID, fmt.Sprintf("model listing timed out after %s", fetchTimeout))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerID, fmt.Sprintf("model listing timed out after %s", fetchTimeout))
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewTimeoutError(providerID, "model listing cancelled")
	}
	return llm.NewConnectionError(providerID, err.Error())
}
