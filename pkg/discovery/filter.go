package discovery

import (
	"regexp"
	"strings"

	"github.com/argus-sec/argus/pkg/provider/profile"
)

// FilterResult applies a vendor's model filter on top of a raw discovery
// result: an inclusion pass (id must start with a known prefix) followed by
// an exclusion pass (id must not match any pattern).
//
// When the inclusion pass would hide every model of a non-empty list, the
// unfiltered list is kept instead; custom and self-hosted endpoints serve
// models under names no prefix table anticipates, and an empty picker is
// worse than an unfamiliar one.
//
// The input result is not modified. Failed results and empty filters pass
// through untouched.
func FilterResult(res *Result, f profile.ModelFilter) *Result {
	if res == nil || !res.OK || f.Empty() {
		return res
	}

	filtered := res.clone()
	filtered.All = filterModels(res.All, f)
	filtered.ToolCalling = filterModels(res.ToolCalling, f)
	return &filtered
}

func filterModels(models []Model, f profile.ModelFilter) []Model {
	if len(models) == 0 {
		return models
	}

	included := models
	if len(f.IncludePrefixes) > 0 {
		included = nil
		for _, m := range models {
			if hasAnyPrefix(m.ID, f.IncludePrefixes) {
				included = append(included, m)
			}
		}
		if len(included) == 0 {
			// Unrecognized naming scheme; keep the unfiltered list.
			return models
		}
	}

	if len(f.ExcludePatterns) == 0 {
		return included
	}
	var kept []Model
	for _, m := range included {
		if !matchesAny(m.ID, f.ExcludePatterns) {
			kept = append(kept, m)
		}
	}
	return kept
}

func hasAnyPrefix(id string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

func matchesAny(id string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(id) {
			return true
		}
	}
	return false
}
