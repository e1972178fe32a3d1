package discovery

import (
	"encoding/json"
	"regexp"
	"sort"
	"time"

	"github.com/argus-sec/argus/pkg/llm"
)

// Model is one model discovered from a vendor listing. ID is unique within
// a single Result and never persisted. Raw preserves the vendor's original
// entry for diagnostics.
type Model struct {
	ID                  string          `json:"id"`
	DisplayName         string          `json:"display_name"`
	SupportsToolCalling bool            `json:"supports_tool_calling"`
	Provider            string          `json:"provider"`
	Raw                 json.RawMessage `json:"-"`
}

// Result is the outcome of one model-listing fetch.
//
// OK reports whether the listing call itself succeeded. OK with a non-nil
// Err of kind empty_result means the call worked but produced zero usable
// models. Duration is zero exactly when the result was served from cache.
type Result struct {
	OK          bool          `json:"ok"`
	Provider    string        `json:"provider"`
	All         []Model       `json:"all_models"`
	ToolCalling []Model       `json:"tool_calling_models"`
	Err         *llm.Error    `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// clone returns a copy whose slices are detached from the receiver, so
// cached results stay immutable when callers mutate what they got back.
func (r Result) clone() Result {
	cp := r
	if r.All != nil {
		cp.All = append([]Model(nil), r.All...)
	}
	if r.ToolCalling != nil {
		cp.ToolCalling = append([]Model(nil), r.ToolCalling...)
	}
	return cp
}

// ModelIDs returns the ids of the result's full model list, in order.
func (r *Result) ModelIDs() []string {
	ids := make([]string, len(r.All))
	for i, m := range r.All {
		ids[i] = m.ID
	}
	return ids
}

// Contains reports whether the result's full model list includes id.
func (r *Result) Contains(id string) bool {
	for _, m := range r.All {
		if m.ID == id {
			return true
		}
	}
	return false
}

// taggedPattern matches model ids that vendors mark as pre-release or
// retired; those sort after stable models.
var taggedPattern = regexp.MustCompile(`(?i)preview|experimental|deprecated`)

// sortModels orders models so that untagged ids come before tagged ones,
// alphabetically by id within each group.
func sortModels(models []Model) {
	sort.Slice(models, func(i, j int) bool {
		ti := taggedPattern.MatchString(models[i].ID)
		tj := taggedPattern.MatchString(models[j].ID)
		if ti != tj {
			return !ti
		}
		return models[i].ID < models[j].ID
	})
}
