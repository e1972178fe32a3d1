package discovery

import (
	"testing"
	"time"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   string
	}{
		{"empty", "", "none"},
		{"short", "abc", "***"},
		{"exactly eight", "12345678", "***"},
		{"nine chars", "123456789", "12346789"},
		{"realistic", "sk-proj-abcdef1234567890", "sk-p7890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.apiKey); got != tt.want {
				t.Errorf("Fingerprint(%q) = %q, want %q", tt.apiKey, got, tt.want)
			}
		})
	}
}

func TestCacheTTL(t *testing.T) {
	current := time.Now()
	c := newModelCache(cacheTTL, func() time.Time { return current })
	key := cacheKey{provider: "openai", baseURL: "http://example", fingerprint: "none"}

	c.put(key, Result{OK: true, Provider: "openai", All: []Model{{ID: "gpt-4o"}}})

	if _, ok := c.get(key); !ok {
		t.Fatal("expected hit immediately after put")
	}

	current = current.Add(cacheTTL - time.Second)
	if _, ok := c.get(key); !ok {
		t.Fatal("expected hit just inside the TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := c.get(key); ok {
		t.Fatal("expected miss after the TTL elapsed")
	}
}

func TestCachePartitioning(t *testing.T) {
	c := newModelCache(cacheTTL, time.Now)

	keyA := cacheKey{provider: "openai", baseURL: "http://example", fingerprint: Fingerprint("sk-key-aaaa-0001")}
	keyB := cacheKey{provider: "openai", baseURL: "http://example", fingerprint: Fingerprint("sk-key-bbbb-0002")}

	c.put(keyA, Result{OK: true, All: []Model{{ID: "gpt-4o"}}})

	if _, ok := c.get(keyB); ok {
		t.Fatal("different key fingerprints must not share a cache entry")
	}
	if _, ok := c.get(keyA); !ok {
		t.Fatal("expected hit for the stored fingerprint")
	}
}

func TestCacheClear(t *testing.T) {
	c := newModelCache(cacheTTL, time.Now)

	openaiKey := cacheKey{provider: "openai", baseURL: "http://a", fingerprint: "none"}
	groqKey := cacheKey{provider: "groq", baseURL: "http://b", fingerprint: "none"}
	c.put(openaiKey, Result{OK: true})
	c.put(groqKey, Result{OK: true})

	c.clear("openai")
	if _, ok := c.get(openaiKey); ok {
		t.Error("openai entry should be cleared")
	}
	if _, ok := c.get(groqKey); !ok {
		t.Error("groq entry should survive a scoped clear")
	}

	c.put(openaiKey, Result{OK: true})
	c.clear("")
	if _, ok := c.get(openaiKey); ok {
		t.Error("empty id should clear everything")
	}
	if _, ok := c.get(groqKey); ok {
		t.Error("empty id should clear everything")
	}
}

func TestCacheImmutability(t *testing.T) {
	c := newModelCache(cacheTTL, time.Now)
	key := cacheKey{provider: "openai", baseURL: "http://example", fingerprint: "none"}
	c.put(key, Result{OK: true, All: []Model{{ID: "gpt-4o"}}})

	got, ok := c.get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	got.All[0].ID = "mutated"

	again, _ := c.get(key)
	if again.All[0].ID != "gpt-4o" {
		t.Errorf("cached entry was mutated through a returned copy: %q", again.All[0].ID)
	}
}
