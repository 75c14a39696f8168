// Package registry resolves "provider:model" identifiers to model profiles.
// Unknown identifiers are a hard error; the orchestrator never guesses a
// context window or price.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reviewpass/internal/reviewerr"
	"github.com/reviewpass/pkg/models"
)

// Registry is an immutable-after-construction lookup table of model
// profiles. Construct with New, extend with Register before handing it to
// an orchestrator.
type Registry struct {
	profiles map[string]models.ModelProfile
}

// New returns a registry preloaded with the builtin profiles.
func New() *Registry {
	r := &Registry{profiles: make(map[string]models.ModelProfile)}
	for _, p := range builtinProfiles() {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a profile under its canonical id.
func (r *Registry) Register(profile models.ModelProfile) {
	r.profiles[profile.ID()] = profile
}

// Lookup resolves a "provider:model" id. Unknown ids return a
// ConfigurationError.
func (r *Registry) Lookup(id string) (models.ModelProfile, error) {
	if _, _, ok := strings.Cut(id, ":"); !ok {
		return models.ModelProfile{}, &reviewerr.ConfigurationError{
			Field:  "model",
			Reason: fmt.Sprintf("malformed model id %q, want provider:model", id),
		}
	}
	profile, ok := r.profiles[id]
	if !ok {
		return models.ModelProfile{}, &reviewerr.ConfigurationError{
			Field:  "model",
			Reason: fmt.Sprintf("unknown model id %q", id),
		}
	}
	return profile, nil
}

// IDs lists every registered model id, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func builtinProfiles() []models.ModelProfile {
	return []models.ModelProfile{
		{
			Provider:            "openai",
			Model:               "gpt-4o",
			ContextWindowTokens: 128000,
			Pricing:             models.ModelPricing{InputPerMillionUSD: 2.50, OutputPerMillionUSD: 10.00},
			Tokenizer:           models.TokenizerOpenAI,
		},
		{
			Provider:            "openai",
			Model:               "gpt-4o-mini",
			ContextWindowTokens: 128000,
			Pricing:             models.ModelPricing{InputPerMillionUSD: 0.15, OutputPerMillionUSD: 0.60},
			Tokenizer:           models.TokenizerOpenAI,
		},
		{
			Provider:            "anthropic",
			Model:               "claude-sonnet-4",
			ContextWindowTokens: 200000,
			Pricing:             models.ModelPricing{InputPerMillionUSD: 3.00, OutputPerMillionUSD: 15.00},
			Tokenizer:           models.TokenizerAnthropic,
		},
		{
			Provider:            "anthropic",
			Model:               "claude-haiku-3.5",
			ContextWindowTokens: 200000,
			Pricing:             models.ModelPricing{InputPerMillionUSD: 0.80, OutputPerMillionUSD: 4.00},
			Tokenizer:           models.TokenizerAnthropic,
		},
		{
			Provider:            "gemini",
			Model:               "gemini-2.5-pro",
			ContextWindowTokens: 1048576,
			Pricing: models.ModelPricing{
				Tiers: []models.PriceTier{
					{UpToTokens: 200000, InputPerMillionUSD: 1.25, OutputPerMillionUSD: 10.00},
					{UpToTokens: 0, InputPerMillionUSD: 2.50, OutputPerMillionUSD: 15.00},
				},
			},
			Tokenizer: models.TokenizerGemini,
		},
		{
			Provider:            "gemini",
			Model:               "gemini-2.5-flash",
			ContextWindowTokens: 1048576,
			Pricing:             models.ModelPricing{InputPerMillionUSD: 0.30, OutputPerMillionUSD: 2.50},
			Tokenizer:           models.TokenizerGemini,
		},
		{
			Provider:            "ollama",
			Model:               "llama3",
			ContextWindowTokens: 8192,
			Pricing:             models.ModelPricing{},
			Tokenizer:           models.TokenizerGeneric,
		},
	}
}
