package aiclient

import (
	"context"
	"errors"
	"strings"

	"github.com/reviewpass/internal/reviewerr"
)

// classify maps a raw provider failure onto the typed error taxonomy. The
// SDKs do not expose stable error types across providers, so this is the one
// place message inspection is allowed; past this boundary classification is
// purely by type.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &reviewerr.TransientProviderError{Provider: provider, Reason: "request deadline exceeded", Err: err}
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range []string{"401", "403", "unauthorized", "invalid api key", "api key not valid", "permission denied", "authentication"} {
		if strings.Contains(msg, marker) {
			return &reviewerr.AuthError{Provider: provider, Err: err}
		}
	}

	for _, marker := range []string{"400", "404", "422", "invalid request", "context length", "maximum context", "token limit", "too large", "unsupported"} {
		if strings.Contains(msg, marker) {
			return &reviewerr.InvalidRequestError{Provider: provider, Reason: err.Error(), Err: err}
		}
	}

	// Everything else, including timeouts, rate limits, 5xx, and network
	// failures, gets the benefit of retries.
	return &reviewerr.TransientProviderError{Provider: provider, Reason: err.Error(), Err: err}
}
