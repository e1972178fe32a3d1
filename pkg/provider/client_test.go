package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/argus-sec/argus/pkg/llm"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

func builtin(t *testing.T, id string) *profile.VendorProfile {
	t.Helper()
	prof, ok := profile.Builtin(id)
	if !ok {
		t.Fatalf("missing builtin profile %q", id)
	}
	return prof
}

func userRequest(text string) *llm.ChatRequest {
	return &llm.ChatRequest{
		Messages: []llm.ChatMessage{llm.TextMessage(llm.RoleUser, text)},
	}
}

func TestClientChat(t *testing.T) {
	var gotWire chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-chat-test-0001" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotWire); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"id":"chatcmpl-1","model":"gpt-4o","choices":[
			{"index":0,"message":{"role":"assistant","content":"Looks clean."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-chat-test-0001", srv.URL)
	c.SetModel("gpt-4o")

	resp, err := c.Chat(context.Background(), userRequest("Audit this."))
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !resp.OK {
		t.Fatal("OK = false")
	}
	if resp.Text != "Looks clean." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Provider != "openai" {
		t.Errorf("Provider = %q", resp.Provider)
	}
	if resp.Duration == 0 {
		t.Error("Duration not measured")
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", resp.Usage)
	}

	if gotWire.Model != "gpt-4o" {
		t.Errorf("wire model = %q", gotWire.Model)
	}
	if gotWire.Stream {
		t.Error("non-streaming call set stream=true")
	}
}

func TestClientChatModelPrecedence(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wire chatRequest
		json.NewDecoder(r.Body).Decode(&wire)
		gotModel = wire.Model
		fmt.Fprint(w, `{"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-model-test-001", srv.URL)
	c.SetModel("gpt-4o")

	req := userRequest("hi")
	req.Model = "o3-mini"
	c.Chat(context.Background(), req)
	if gotModel != "o3-mini" {
		t.Errorf("request model should win, wire saw %q", gotModel)
	}

	c.Chat(context.Background(), userRequest("hi"))
	if gotModel != "gpt-4o" {
		t.Errorf("selected model should be the fallback, wire saw %q", gotModel)
	}
}

func TestClientChatNoModel(t *testing.T) {
	c := New(builtin(t, "openai"), "sk-nomodel-test-1", "http://localhost:1")

	resp, err := c.Chat(context.Background(), userRequest("hi"))
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if resp == nil || resp.OK {
		t.Fatal("response must be non-nil and not OK")
	}
	if resp.Err == nil || resp.Err.Kind != llm.KindConfiguration {
		t.Errorf("Err = %v, want kind %s", resp.Err, llm.KindConfiguration)
	}
	if err != resp.Err {
		t.Error("returned error must alias the response error")
	}
}

func TestClientChatAuthFailureRemediated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-bad-key-000001", srv.URL)
	c.SetModel("gpt-4o")

	resp, err := c.Chat(context.Background(), userRequest("hi"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if resp.Err.Kind != llm.KindHTTP || resp.Err.Status != http.StatusUnauthorized {
		t.Errorf("Err = kind %s status %d", resp.Err.Kind, resp.Err.Status)
	}
	if !strings.Contains(resp.Err.Message, "OPENAI_API_KEY") {
		t.Errorf("Message = %q, want the env var named", resp.Err.Message)
	}
	if !strings.Contains(resp.Err.Message, "Incorrect API key provided") {
		t.Errorf("Message = %q, want the vendor message preserved", resp.Err.Message)
	}
}

func TestClientChatGeminiEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/chat/completions" {
			t.Errorf("path = %q, want the compatibility endpoint", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "AIza-chat-key-123" {
			t.Errorf("key query param = %q", key)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		fmt.Fprint(w, `{"model":"gemini-2.0-flash","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "gemini"), "AIza-chat-key-123", srv.URL)
	c.SetModel("gemini-2.0-flash")

	if _, err := c.Chat(context.Background(), userRequest("hi")); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestClientEnvKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env-00001")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-from-env-00001" {
			t.Errorf("Authorization = %q", auth)
		}
		fmt.Fprint(w, `{"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "", srv.URL)
	c.SetModel("gpt-4o")
	if _, err := c.Chat(context.Background(), userRequest("hi")); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestClientSetCredentialsVisible(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		fmt.Fprint(w, `{"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-first-key-0001", srv.URL)
	c.SetModel("gpt-4o")

	c.Chat(context.Background(), userRequest("hi"))
	c.SetCredentials("sk-second-key-002", "")
	c.Chat(context.Background(), userRequest("hi"))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "Bearer sk-first-key-0001" || seen[1] != "Bearer sk-second-key-002" {
		t.Errorf("seen = %v", seen)
	}
}

func TestClientChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wire chatRequest
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !wire.Stream || wire.StreamOptions == nil || !wire.StreamOptions.IncludeUsage {
			t.Error("streaming request must set stream and stream_options.include_usage")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`data: {"id":"c","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{"content":"Reviewing "}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{"content":"auth.go"}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":""}}]}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":\"au"}}]}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"th.go\"}"}}]}}]}`,
			`data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			`data: {"id":"c","choices":[],"usage":{"prompt_tokens":30,"completion_tokens":12,"total_tokens":42}}`,
			`data: [DONE]`,
		} {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-stream-test-01", srv.URL)
	c.SetModel("gpt-4o")

	rec := &deltaRecorder{}
	resp, err := c.ChatStream(context.Background(), userRequest("Audit auth.go"), rec.handle)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if !resp.OK {
		t.Fatal("OK = false")
	}
	if resp.Text != "Reviewing auth.go" {
		t.Errorf("Text = %q", resp.Text)
	}
	if got := rec.text(); got != "Reviewing auth.go" {
		t.Errorf("handler saw %q", got)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Input["path"] != "auth.go" {
		t.Errorf("Input = %v", resp.ToolCalls[0].Input)
	}
	if resp.StopReason != llm.StopToolUse {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 42 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.Duration == 0 {
		t.Error("Duration not measured")
	}
}

func TestClientChatStreamCancelMidStream(t *testing.T) {
	sent := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		fmt.Fprint(w, "data: {\"id\":\"c\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial analysis\"}}]}\n\n")
		fl.Flush()
		close(sent)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	gotDelta := make(chan struct{})
	handler := func(d llm.StreamDelta) {
		once.Do(func() { close(gotDelta) })
	}
	go func() {
		<-sent
		<-gotDelta
		cancel()
	}()

	c := New(builtin(t, "openai"), "sk-cancel-test-01", srv.URL)
	c.SetModel("gpt-4o")

	resp, err := c.ChatStream(ctx, userRequest("hi"), handler)
	if err == nil {
		t.Fatal("expected an error from the cancelled stream")
	}
	if resp.OK {
		t.Error("OK must be false after cancellation")
	}
	if resp.Err == nil || resp.Err.Kind != llm.KindTimeout {
		t.Fatalf("Err = %v, want kind %s", resp.Err, llm.KindTimeout)
	}
	if !strings.Contains(resp.Err.Message, "cancelled") {
		t.Errorf("Message = %q, want a cancellation message", resp.Err.Message)
	}
	if !strings.Contains(resp.Text, "partial analysis") {
		t.Errorf("Text = %q, the partial output must be preserved", resp.Text)
	}
}

func TestClientChatStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached"}}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-limited-test-1", srv.URL)
	c.SetModel("gpt-4o")

	resp, err := c.ChatStream(context.Background(), userRequest("hi"), func(llm.StreamDelta) {})
	if err == nil {
		t.Fatal("expected an error")
	}
	if resp.Err.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", resp.Err.Status)
	}
	if !strings.Contains(resp.Err.Message, "rate limit") {
		t.Errorf("Message = %q, want remediation applied", resp.Err.Message)
	}
}

func TestClientListModelsFiltered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"gpt-4o"},
			{"id":"whisper-1"},
			{"id":"gpt-4o-audio-preview"},
			{"id":"o3-mini"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-list-test-0001", srv.URL)
	res := c.ListModels(context.Background())
	if !res.OK {
		t.Fatalf("ListModels failed: %v", res.Err)
	}

	ids := res.ModelIDs()
	if len(ids) != 2 || ids[0] != "gpt-4o" || ids[1] != "o3-mini" {
		t.Errorf("filtered ids = %v, want [gpt-4o o3-mini]", ids)
	}
}

func TestClientCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o"},{"id":"o3-mini"}]}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-health-test-01", srv.URL)
	status := c.CheckHealth(context.Background())

	if !status.Healthy {
		t.Fatalf("Healthy = false, Error = %q", status.Error)
	}
	if status.Provider != "openai" {
		t.Errorf("Provider = %q", status.Provider)
	}
	if status.ModelCount != 2 {
		t.Errorf("ModelCount = %d, want 2", status.ModelCount)
	}
	if status.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
}

func TestClientCheckHealthUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := New(builtin(t, "openai"), "sk-unhealthy-0001", srv.URL)
	status := c.CheckHealth(context.Background())

	if status.Healthy {
		t.Fatal("Healthy = true for a 401")
	}
	if status.Error == "" {
		t.Error("Error not recorded")
	}
}

func TestClientInitialize(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"gpt-4o"}]}`)
	}))
	defer healthy.Close()

	c := New(builtin(t, "openai"), "sk-init-test-0001", healthy.URL)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	c2 := New(builtin(t, "openai"), "sk-init-test-0002", broken.URL)
	if err := c2.Initialize(context.Background()); err == nil {
		t.Fatal("expected Initialize to fail against a broken vendor")
	}
}

func TestClientName(t *testing.T) {
	c := New(builtin(t, "groq"), "gsk-name-test-001", "")
	if c.Name() != "groq" {
		t.Errorf("Name() = %q", c.Name())
	}
	if c.Info().DisplayName != "Groq" {
		t.Errorf("Info().DisplayName = %q", c.Info().DisplayName)
	}
}
