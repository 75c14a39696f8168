package reviewerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", &TransientProviderError{Provider: "openai", Reason: "503"}, true},
		{"wrapped transient", fmt.Errorf("pass 2: %w", &TransientProviderError{Provider: "openai", Reason: "timeout"}), true},
		{"configuration", &ConfigurationError{Field: "model", Reason: "unknown"}, false},
		{"auth", &AuthError{Provider: "openai", Err: errors.New("401")}, false},
		{"invalid request", &InvalidRequestError{Provider: "openai", Reason: "too large"}, false},
		{"oversized file", &OversizedFileError{Path: "a.go", Tokens: 900, Budget: 700}, false},
		{"plain error", errors.New("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil must not be fatal")
	}
	if IsFatal(&TransientProviderError{Provider: "x", Reason: "y"}) {
		t.Error("transient errors are not fatal")
	}
	if !IsFatal(&AuthError{Provider: "x", Err: errors.New("401")}) {
		t.Error("auth errors are fatal")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	for _, err := range []error{
		&TransientProviderError{Provider: "p", Reason: "r", Err: cause},
		&AuthError{Provider: "p", Err: cause},
		&InvalidRequestError{Provider: "p", Reason: "r", Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}
