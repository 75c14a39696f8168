package orchestrator

import (
	"fmt"

	"github.com/reviewpass/internal/chunker"
	"github.com/reviewpass/internal/cost"
	"github.com/reviewpass/internal/reviewerr"
	"github.com/reviewpass/internal/tokens"
	"github.com/reviewpass/pkg/models"
)

// Options tunes a single run. The zero value means "use defaults" for every
// numeric field; MaxRetriesPerPass follows the same convention, so pass a
// negative value to disable retries entirely.
type Options struct {
	ForceSinglePass bool
	ForceMultiPass  bool

	// Strict turns oversized files from warnings into a fatal error.
	Strict bool

	SafetyMarginFactor       float64 // default 0.15
	ContextMaintenanceFactor float64 // default 0.15
	AssumedOutputRatio       float64 // default 0.3
	MaxRetriesPerPass        int     // default 2; negative means none

	OnProgress func(models.ProgressEvent)
}

// DefaultOptions returns the documented defaults spelled out.
func DefaultOptions() Options {
	return Options{
		SafetyMarginFactor:       tokens.DefaultSafetyMarginFactor,
		ContextMaintenanceFactor: chunker.DefaultContextMaintenanceFactor,
		AssumedOutputRatio:       cost.DefaultAssumedOutputRatio,
		MaxRetriesPerPass:        2,
	}
}

// normalize validates the options and fills defaults in place.
func (o *Options) normalize() error {
	if o.ForceSinglePass && o.ForceMultiPass {
		return &reviewerr.ConfigurationError{
			Field:  "forceSinglePass/forceMultiPass",
			Reason: "both single-pass and multi-pass were forced",
		}
	}

	if o.SafetyMarginFactor == 0 {
		o.SafetyMarginFactor = tokens.DefaultSafetyMarginFactor
	}
	if o.ContextMaintenanceFactor == 0 {
		o.ContextMaintenanceFactor = chunker.DefaultContextMaintenanceFactor
	}
	if o.AssumedOutputRatio == 0 {
		o.AssumedOutputRatio = cost.DefaultAssumedOutputRatio
	}
	if o.MaxRetriesPerPass == 0 {
		o.MaxRetriesPerPass = 2
	}
	if o.MaxRetriesPerPass < 0 {
		o.MaxRetriesPerPass = 0
	}

	for name, v := range map[string]float64{
		"safetyMarginFactor":       o.SafetyMarginFactor,
		"contextMaintenanceFactor": o.ContextMaintenanceFactor,
	} {
		if v < 0 || v >= 1 {
			return &reviewerr.ConfigurationError{
				Field:  name,
				Reason: fmt.Sprintf("value %v outside [0, 1)", v),
			}
		}
	}
	if o.AssumedOutputRatio < 0 {
		return &reviewerr.ConfigurationError{
			Field:  "assumedOutputRatio",
			Reason: fmt.Sprintf("value %v is negative", o.AssumedOutputRatio),
		}
	}

	return nil
}
