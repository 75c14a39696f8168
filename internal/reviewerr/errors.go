// Package reviewerr defines the typed errors the orchestrator classifies
// retry and abort decisions on. Classification is by type via errors.As,
// never by matching message substrings.
package reviewerr

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an unusable configuration value: an unknown
// model id, an out-of-range option, or an empty pass plan. Fatal, no retry.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// OversizedFileError reports a file whose token count alone exceeds the
// usable budget. Surfaced as a warning in AnalysisResult; fatal only when
// the strict option is set.
type OversizedFileError struct {
	Path   string
	Tokens int
	Budget int
}

func (e *OversizedFileError) Error() string {
	return fmt.Sprintf("file %s is oversized: %d tokens exceeds usable budget of %d", e.Path, e.Tokens, e.Budget)
}

// TransientProviderError reports a timeout, 5xx, or rate-limit failure from
// the AI provider. Retried with exponential backoff before escalating.
type TransientProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient provider error (%s): %s", e.Provider, e.Reason)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials. Fatal immediately, no retry.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for provider %s: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InvalidRequestError reports a request the provider rejected as malformed,
// including a pass whose single oversized file the model cannot accept.
// Fatal immediately, no retry.
type InvalidRequestError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request to provider %s: %s", e.Provider, e.Reason)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// IsRetryable reports whether err should be retried. Only transient provider
// failures qualify; configuration, auth, and malformed-request errors abort
// the run on first sight.
func IsRetryable(err error) bool {
	var transient *TransientProviderError
	return errors.As(err, &transient)
}

// IsFatal reports whether err must abort the run without retrying.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsRetryable(err)
}
