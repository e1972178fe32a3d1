// Package config provides unified configuration for the argus CLI.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ARGUS_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"regexp"

	"github.com/argus-sec/argus/pkg/provider/profile"
)

// Config holds all configuration for the argus CLI.
type Config struct {
	Provider      string                    `yaml:"provider"`  // default provider id, default: "openai"
	Model         string                    `yaml:"model"`     // default model, empty uses the provider's own default
	Providers     map[string]ProviderConfig `yaml:"providers"` // per-provider overrides keyed by id
	Models        ModelsConfig              `yaml:"models"`
	Debug         DebugConfig               `yaml:"debug"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ProviderConfig overrides credentials and defaults for a single provider.
// Fields left empty fall back to the vendor defaults; the API key further
// falls back to the provider's well-known environment variable.
type ProviderConfig struct {
	APIKey     string `yaml:"api_key" json:"api_key"`
	APIKeyFile string `yaml:"api_key_file" json:"api_key_file"` // _file variant for api_key
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Model      string `yaml:"model" json:"model"`
}

// ModelsConfig narrows discovered model listings beyond the per-vendor
// defaults. Prefixes keep matching ids, patterns then drop matching ids.
type ModelsConfig struct {
	IncludePrefixes []string `yaml:"include_prefixes"`
	ExcludePatterns []string `yaml:"exclude_patterns"` // RE2 patterns
}

// Filter compiles the configured listing filter. Patterns are checked at
// load time by Validate, so an error here means the config was built in
// code with a malformed pattern.
func (m ModelsConfig) Filter() (profile.ModelFilter, error) {
	f := profile.ModelFilter{IncludePrefixes: m.IncludePrefixes}
	for _, pat := range m.ExcludePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return profile.ModelFilter{}, err
		}
		f.ExcludePatterns = append(f.ExcludePatterns, re)
	}
	return f, nil
}

// DebugConfig holds category debug logging settings. The ARGUS_DEBUG and
// ARGUS_LOG_LEVEL environment variables take precedence over these fields.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, "all" enables everything
	Level      string `yaml:"level"`      // trace, debug, info, warn, error
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr"` // listen address for /metrics, empty disables it
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Provider:  "openai",
		Providers: map[string]ProviderConfig{},
	}
}

// ProviderFor returns the override block for a provider id, or the zero
// value when the config carries none.
func (c *Config) ProviderFor(id string) ProviderConfig {
	return c.Providers[id]
}

// ModelFor resolves the model for a provider. The per-provider override
// wins over the global default.
func (c *Config) ModelFor(id string) string {
	if pc, ok := c.Providers[id]; ok && pc.Model != "" {
		return pc.Model
	}
	return c.Model
}
