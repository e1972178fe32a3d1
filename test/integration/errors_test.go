package integration

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/argus-sec/argus/pkg/llm"
)

func TestAuthFailureRemediation(t *testing.T) {
	secured := startMockVendor("secret-key")
	defer secured.Close()

	reg := newTestRegistry(t)
	prov, err := reg.Resolve("openai", "wrong-key", secured.URL+"/v1")
	if err != nil {
		t.Fatalf("resolving provider: %v", err)
	}

	resp, err := prov.Chat(context.Background(), &llm.ChatRequest{
		Model:    "mock-review-large",
		Messages: []llm.ChatMessage{llm.TextMessage(llm.RoleUser, "ping")},
	})
	if err == nil {
		t.Fatal("chat succeeded with a rejected key")
	}
	if resp == nil || resp.OK {
		t.Fatalf("resp = %+v, want a failed response", resp)
	}

	var llmErr *llm.Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("error type = %T, want *llm.Error", err)
	}
	if llmErr.Kind != llm.KindHTTP {
		t.Errorf("kind = %q, want %q", llmErr.Kind, llm.KindHTTP)
	}
	if llmErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", llmErr.Status)
	}
	// The remediation rewrite keeps kind and status but points at the
	// vendor's key variable.
	if !strings.Contains(llmErr.Message, "OPENAI_API_KEY") {
		t.Errorf("message = %q, want a remediation hint naming OPENAI_API_KEY", llmErr.Message)
	}
	// The vendor's own message is preserved alongside the hint.
	if !strings.Contains(llmErr.Message, "Incorrect API key") {
		t.Errorf("message = %q, want the vendor message preserved", llmErr.Message)
	}
}

func TestConnectionFailure(t *testing.T) {
	reg := newTestRegistry(t)
	// Nothing listens on the reserved port 1.
	prov, err := reg.Resolve("openai", "test-key", "http://127.0.0.1:1/v1")
	if err != nil {
		t.Fatalf("resolving provider: %v", err)
	}

	resp, err := prov.Chat(context.Background(), &llm.ChatRequest{
		Model:    "mock-review-large",
		Messages: []llm.ChatMessage{llm.TextMessage(llm.RoleUser, "ping")},
	})
	if err == nil {
		t.Fatal("chat succeeded against a dead endpoint")
	}
	if resp == nil || resp.Err == nil {
		t.Fatal("resp carries no structured error")
	}
	if resp.Err.Kind != llm.KindConnection {
		t.Errorf("kind = %q, want %q", resp.Err.Kind, llm.KindConnection)
	}
}

func TestUnregisteredProvider(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Resolve("acme", "", "")
	if err == nil {
		t.Fatal("resolving an unregistered id succeeded")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("error = %q, want it to name the registration problem", err)
	}
}

func TestBootstrapUnknownModel(t *testing.T) {
	reg := newTestRegistry(t)

	prov, err := reg.Bootstrap(context.Background(), "openai", "test-key", "no-such-model", vendorBase())
	if err == nil {
		t.Fatal("bootstrap with an unknown model reported no error")
	}
	// The provider is still returned and usable; the error names a few
	// models the vendor does serve.
	if prov == nil {
		t.Fatal("provider = nil, want a usable instance")
	}
	if !strings.Contains(err.Error(), "known models include") {
		t.Errorf("error = %q, want model suggestions", err)
	}
	if !strings.Contains(err.Error(), "mock-review-compact") {
		t.Errorf("error = %q, want it to suggest a served model", err)
	}
	if reg.ActiveID() != "openai" {
		t.Errorf("active id = %q, want \"openai\"", reg.ActiveID())
	}
}

func TestBootstrapKnownModel(t *testing.T) {
	reg := newTestRegistry(t)

	prov, err := reg.Bootstrap(context.Background(), "openai", "test-key", "mock-review-large", vendorBase())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if prov.Model() != "mock-review-large" {
		t.Errorf("model = %q, want \"mock-review-large\"", prov.Model())
	}

	resp, err := prov.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.ChatMessage{llm.TextMessage(llm.RoleUser, "ping")},
	})
	if err != nil {
		t.Fatalf("chat after bootstrap: %v", err)
	}
	if resp.Text != "pong" {
		t.Errorf("text = %q, want \"pong\"", resp.Text)
	}
}
