package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/argus-sec/argus/pkg/provider/profile"
)

// Validate checks the configuration for known provider ids and well-formed
// filter patterns. Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// provider must be a known id if set.
	if c.Provider != "" {
		if _, ok := profile.Builtin(c.Provider); !ok {
			errs = append(errs, fmt.Errorf("provider must be one of %s, got %q",
				strings.Join(profile.BuiltinIDs(), ", "), c.Provider))
		}
	}

	// providers map keys must be known ids.
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := profile.Builtin(id); !ok {
			errs = append(errs, fmt.Errorf("providers.%s: unknown provider id", id))
		}
	}

	// models.exclude_patterns must compile.
	for i, pat := range c.Models.ExcludePatterns {
		if _, err := regexp.Compile(pat); err != nil {
			errs = append(errs, fmt.Errorf("models.exclude_patterns[%d]: %v", i, err))
		}
	}

	return errors.Join(errs...)
}
