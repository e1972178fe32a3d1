package discovery

import (
	"regexp"
	"testing"

	"github.com/argus-sec/argus/pkg/llm"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

func modelsByID(ids ...string) []Model {
	models := make([]Model, len(ids))
	for i, id := range ids {
		models[i] = Model{ID: id}
	}
	return models
}

func assertIDs(t *testing.T, got []Model, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d models %v, want %d %v", len(got), idsOf(got), len(want), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, want[i])
		}
	}
}

func idsOf(models []Model) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

func TestFilterResultInclusionAndExclusion(t *testing.T) {
	f := profile.ModelFilter{
		IncludePrefixes: []string{"gpt-", "o3"},
		ExcludePatterns: []*regexp.Regexp{regexp.MustCompile(`(?i)audio|realtime`)},
	}
	res := &Result{
		OK:  true,
		All: modelsByID("gpt-4o", "gpt-4o-audio-preview", "whisper-1", "o3-mini"),
	}

	filtered := FilterResult(res, f)
	assertIDs(t, filtered.All, "gpt-4o", "o3-mini")

	// The input result is left alone.
	assertIDs(t, res.All, "gpt-4o", "gpt-4o-audio-preview", "whisper-1", "o3-mini")
}

func TestFilterResultFallbackWhenNothingMatches(t *testing.T) {
	f := profile.ModelFilter{IncludePrefixes: []string{"gpt-", "o3"}}
	res := &Result{
		OK:  true,
		All: modelsByID("llama-3.1-8b-instruct", "qwen2.5-coder"),
	}

	filtered := FilterResult(res, f)
	assertIDs(t, filtered.All, "llama-3.1-8b-instruct", "qwen2.5-coder")
}

func TestFilterResultExclusionsOnly(t *testing.T) {
	f := profile.ModelFilter{
		ExcludePatterns: []*regexp.Regexp{regexp.MustCompile(`(?i)whisper|tts|guard`)},
	}
	res := &Result{
		OK:  true,
		All: modelsByID("llama-3.3-70b", "whisper-large-v3", "playai-tts"),
	}

	filtered := FilterResult(res, f)
	assertIDs(t, filtered.All, "llama-3.3-70b")
}

func TestFilterResultAppliesToToolCalling(t *testing.T) {
	f := profile.ModelFilter{IncludePrefixes: []string{"gpt-"}}
	res := &Result{
		OK:          true,
		All:         modelsByID("gpt-4o", "o3-mini"),
		ToolCalling: modelsByID("gpt-4o", "o3-mini"),
	}

	filtered := FilterResult(res, f)
	assertIDs(t, filtered.All, "gpt-4o")
	assertIDs(t, filtered.ToolCalling, "gpt-4o")
}

func TestFilterResultPassthrough(t *testing.T) {
	f := profile.ModelFilter{IncludePrefixes: []string{"gpt-"}}

	failed := &Result{OK: false, Err: llm.NewHTTPError("openai", 401, "nope")}
	if got := FilterResult(failed, f); got != failed {
		t.Error("failed results should pass through unmodified")
	}

	ok := &Result{OK: true, All: modelsByID("gpt-4o", "dall-e-3")}
	if got := FilterResult(ok, profile.ModelFilter{}); got != ok {
		t.Error("an empty filter should pass the result through unmodified")
	}

	if got := FilterResult(nil, f); got != nil {
		t.Error("nil results should pass through as nil")
	}
}
