package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ARGUS_CONFIG env, ./argus.yaml,
//     ~/.config/argus/config.yaml)
//  3. Environment variable mapping (ARGUS_ prefix)
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ARGUS_CONFIG environment variable
// 3. ./argus.yaml in the current directory
// 4. ~/.config/argus/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check ARGUS_CONFIG env var.
	if envPath := os.Getenv("ARGUS_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{"argus.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "argus", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
// ARGUS_PROVIDER is applied first: ARGUS_API_KEY and ARGUS_BASE_URL attach
// to the effective default provider.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARGUS_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("ARGUS_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("ARGUS_API_KEY"); v != "" && cfg.Provider != "" {
		pc := cfg.ProviderFor(cfg.Provider)
		pc.APIKey = v
		upsertProvider(cfg, cfg.Provider, pc)
	}
	if v := os.Getenv("ARGUS_BASE_URL"); v != "" && cfg.Provider != "" {
		pc := cfg.ProviderFor(cfg.Provider)
		pc.BaseURL = v
		upsertProvider(cfg, cfg.Provider, pc)
	}
	if v := os.Getenv("ARGUS_METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}

	// ARGUS_PROVIDERS: JSON object of per-provider overrides.
	if v := os.Getenv("ARGUS_PROVIDERS"); v != "" {
		overrides, err := parseProvidersJSON(v)
		if err == nil {
			for id, pc := range overrides {
				upsertProvider(cfg, id, pc)
			}
		}
	}

	// ARGUS_INCLUDE_PREFIXES / ARGUS_EXCLUDE_PATTERNS: JSON string arrays.
	if v := os.Getenv("ARGUS_INCLUDE_PREFIXES"); v != "" {
		var prefixes []string
		if err := json.Unmarshal([]byte(v), &prefixes); err == nil && len(prefixes) > 0 {
			cfg.Models.IncludePrefixes = prefixes
		}
	}
	if v := os.Getenv("ARGUS_EXCLUDE_PATTERNS"); v != "" {
		var patterns []string
		if err := json.Unmarshal([]byte(v), &patterns); err == nil && len(patterns) > 0 {
			cfg.Models.ExcludePatterns = patterns
		}
	}
}

// parseProvidersJSON parses a JSON object of provider override blocks,
// keyed by provider id.
func parseProvidersJSON(jsonStr string) (map[string]ProviderConfig, error) {
	var overrides map[string]ProviderConfig
	if err := json.Unmarshal([]byte(jsonStr), &overrides); err != nil {
		return nil, fmt.Errorf("parsing providers JSON: %w", err)
	}
	return overrides, nil
}

// upsertProvider stores an override block, creating the map when the YAML
// left it nil.
func upsertProvider(cfg *Config, id string, pc ProviderConfig) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	cfg.Providers[id] = pc
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// providers.<id>.api_key_file -> providers.<id>.api_key
	for id, pc := range cfg.Providers {
		if pc.APIKeyFile != "" && pc.APIKey == "" {
			val, err := readSecretFile(pc.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", id, err)
			}
			pc.APIKey = val
			cfg.Providers[id] = pc
		}
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
