package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/argus-sec/argus/pkg/llm"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

// classifyNetworkError maps a transport failure to a structured error,
// separating timeouts and cancellation from connection problems.
func classifyNetworkError(providerID string, err error, budget time.Duration) *llm.Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return llm.NewTimeoutError(providerID, fmt.Sprintf("request timed out after %s", budget))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(providerID, fmt.Sprintf("request timed out after %s", budget))
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewTimeoutError(providerID, "request cancelled")
	}
	return llm.NewConnectionError(providerID, err.Error())
}

// remediate rewrites authentication and quota failures with guidance
// specific to the vendor. Kind and status are preserved so callers can
// still branch on them; only the message changes.
func remediate(prof *profile.VendorProfile, err *llm.Error) *llm.Error {
	if err == nil || err.Kind != llm.KindHTTP {
		return err
	}
	display := prof.Info.DisplayName
	if display == "" {
		display = prof.ID
	}

	var hint string
	switch err.Status {
	case http.StatusUnauthorized:
		hint = fmt.Sprintf("%s rejected the API key", display)
		if prof.Info.EnvKey != "" {
			hint += fmt.Sprintf("; set %s or update the configured key", prof.Info.EnvKey)
		}
	case http.StatusForbidden:
		hint = fmt.Sprintf("the key lacks access to this %s resource; check the account plan and workspace permissions", display)
	case http.StatusTooManyRequests:
		hint = fmt.Sprintf("%s rate limit reached; retry later or raise the account quota", display)
	default:
		return err
	}

	out := *err
	if err.Message != "" {
		out.Message = fmt.Sprintf("%s (%s)", hint, err.Message)
	} else {
		out.Message = hint
	}
	return &out
}
