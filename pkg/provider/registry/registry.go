package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/argus-sec/argus/pkg/debug"
	"github.com/argus-sec/argus/pkg/discovery"
	"github.com/argus-sec/argus/pkg/observability"
	"github.com/argus-sec/argus/pkg/provider"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

// healthCooldown is how long a health result is served from cache.
// Failures are cached too, so a dead vendor is probed at most once per
// window.
const healthCooldown = 30 * time.Second

// maxModelSuggestions bounds the alternatives named by a bootstrap
// model-not-found error.
const maxModelSuggestions = 5

// Factory creates a provider instance from credentials. Factories must
// not perform network calls; connectivity is probed by Initialize.
type Factory func(apiKey, baseURL string) (provider.Provider, error)

// Options configures a Registry.
type Options struct {
	// Discovery is shared by every provider the registry creates, so
	// they all use one listing cache. Nil creates a fresh engine.
	Discovery *discovery.Engine

	// Recorder is handed to every provider the registry creates. Nil
	// means Prometheus metrics only.
	Recorder observability.Recorder
}

// Registry maps provider ids to factories and manages the singleton
// instance per id. Safe for concurrent use.
type Registry struct {
	discovery *discovery.Engine
	recorder  observability.Recorder

	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]provider.Provider
	activeID  string

	healthMu sync.Mutex
	health   map[string]healthEntry
	now      func() time.Time
}

type healthEntry struct {
	status    *provider.HealthStatus
	checkedAt time.Time
}

// New creates an empty registry.
func New(opts Options) *Registry {
	engine := opts.Discovery
	if engine == nil {
		engine = discovery.NewEngine()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = observability.MetricsRecorder{}
	}
	return &Registry{
		discovery: engine,
		recorder:  recorder,
		factories: make(map[string]Factory),
		instances: make(map[string]provider.Provider),
		health:    make(map[string]healthEntry),
		now:       time.Now,
	}
}

// Discovery returns the engine shared by this registry's providers.
func (r *Registry) Discovery() *discovery.Engine {
	return r.discovery
}

// Register adds or replaces the factory for an id.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("provider id must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for %q must not be nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		slog.Warn("replacing registered provider factory", "provider", id)
	}
	r.factories[id] = factory
	debug.Log("registry", "factory registered", "provider", id)
	return nil
}

// Unregister removes an id's factory and destroys its instance.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.factories, id)
	r.mu.Unlock()
	r.Destroy(id)
}

// RegisterBuiltins registers factories for every built-in vendor profile.
// Ids that already have a factory keep it.
func (r *Registry) RegisterBuiltins() {
	for _, id := range profile.BuiltinIDs() {
		r.mu.RLock()
		_, exists := r.factories[id]
		r.mu.RUnlock()
		if exists {
			continue
		}
		prof, _ := profile.Builtin(id)
		r.Register(id, func(apiKey, baseURL string) (provider.Provider, error) {
			return provider.NewWithOptions(prof, apiKey, baseURL, provider.Options{
				Discovery: r.discovery,
				Recorder:  r.recorder,
			}), nil
		})
	}
}

// IDs returns all registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the singleton instance for an id, creating it on first
// use. Non-empty credentials are applied to an existing instance, so a
// caller holding new keys sees them take effect immediately.
func (r *Registry) Resolve(id, apiKey, baseURL string) (provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[id]; ok {
		p.SetCredentials(apiKey, baseURL)
		return p, nil
	}

	factory, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", id)
	}
	p, err := factory(apiKey, baseURL)
	if err != nil {
		return nil, fmt.Errorf("create provider %q: %w", id, err)
	}
	r.instances[id] = p
	debug.Log("registry", "provider instance created", "provider", id)
	return p, nil
}

// SetActive marks a registered id as the active provider.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[id]; !ok {
		return fmt.Errorf("provider %q is not registered", id)
	}
	r.activeID = id
	debug.Log("registry", "active provider set", "provider", id)
	return nil
}

// ActiveID returns the active provider id, or empty when none is set.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// ResolveActive resolves the active provider.
func (r *Registry) ResolveActive(apiKey, baseURL string) (provider.Provider, error) {
	id := r.ActiveID()
	if id == "" {
		return nil, fmt.Errorf("no active provider; bootstrap one first")
	}
	return r.Resolve(id, apiKey, baseURL)
}

// CheckHealth probes one provider, serving a cached status when the last
// probe is younger than the cooldown. force bypasses the cache.
func (r *Registry) CheckHealth(ctx context.Context, id string, force bool) (*provider.HealthStatus, error) {
	if !force {
		r.healthMu.Lock()
		if e, ok := r.health[id]; ok && r.now().Sub(e.checkedAt) < healthCooldown {
			r.healthMu.Unlock()
			cached := *e.status
			return &cached, nil
		}
		r.healthMu.Unlock()
	}

	p, err := r.Resolve(id, "", "")
	if err != nil {
		return nil, err
	}

	status := p.CheckHealth(ctx)
	r.healthMu.Lock()
	r.health[id] = healthEntry{status: status, checkedAt: r.now()}
	r.healthMu.Unlock()
	return status, nil
}

// CheckAll probes every registered provider concurrently.
func (r *Registry) CheckAll(ctx context.Context, force bool) map[string]*provider.HealthStatus {
	ids := r.IDs()
	out := make(map[string]*provider.HealthStatus, len(ids))
	var (
		outMu sync.Mutex
		wg    sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, err := r.CheckHealth(ctx, id, force)
			if err != nil {
				status = &provider.HealthStatus{
					Provider:  id,
					Healthy:   false,
					Error:     err.Error(),
					CheckedAt: r.now(),
				}
			}
			outMu.Lock()
			out[id] = status
			outMu.Unlock()
		}(id)
	}
	wg.Wait()
	return out
}

// Bootstrap readies a provider end to end: built-in factories are
// ensured, the instance is resolved and made active, the model selected,
// and connectivity probed. When the requested model is not in the
// vendor's catalog the provider is still returned, activated and ready,
// alongside an error naming a few available alternatives; callers decide
// whether that is fatal.
func (r *Registry) Bootstrap(ctx context.Context, id, apiKey, modelID, baseURL string) (provider.Provider, error) {
	r.RegisterBuiltins()

	p, err := r.Resolve(id, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if err := r.SetActive(id); err != nil {
		return nil, err
	}
	if modelID != "" {
		p.SetModel(modelID)
	}

	if err := p.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize provider %q: %w", id, err)
	}

	if modelID != "" {
		res := p.ListModels(ctx)
		if res.OK && !res.Contains(modelID) {
			return p, modelNotFoundError(id, modelID, res.ModelIDs())
		}
	}

	debug.Log("registry", "provider bootstrapped",
		"provider", id, "model", modelID)
	return p, nil
}

func modelNotFoundError(providerID, modelID string, available []string) error {
	if len(available) == 0 {
		return fmt.Errorf("model %q not available on %s (vendor listed no models)", modelID, providerID)
	}
	if len(available) > maxModelSuggestions {
		available = available[:maxModelSuggestions]
	}
	return fmt.Errorf("model %q not available on %s; known models include %s",
		modelID, providerID, strings.Join(available, ", "))
}

// Destroy closes and removes an id's instance. The factory stays
// registered, so the next Resolve recreates it. Destroying the active
// provider clears the active pointer.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	p, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	if r.activeID == id {
		r.activeID = ""
	}
	r.mu.Unlock()

	r.healthMu.Lock()
	delete(r.health, id)
	r.healthMu.Unlock()

	if !ok {
		return nil
	}
	debug.Log("registry", "provider instance destroyed", "provider", id)
	return p.Close()
}

// DestroyAll closes and removes every instance.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]provider.Provider)
	r.activeID = ""
	r.mu.Unlock()

	r.healthMu.Lock()
	r.health = make(map[string]healthEntry)
	r.healthMu.Unlock()

	for id, p := range instances {
		if err := p.Close(); err != nil {
			slog.Warn("closing provider failed", "provider", id, "error", err.Error())
		}
	}
}
