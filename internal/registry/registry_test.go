package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpass/internal/reviewerr"
	"github.com/reviewpass/pkg/models"
)

func TestLookupBuiltins(t *testing.T) {
	r := New()

	profile, err := r.Lookup("anthropic:claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, 200000, profile.ContextWindowTokens)
	assert.Equal(t, models.TokenizerAnthropic, profile.Tokenizer)

	profile, err = r.Lookup("gemini:gemini-2.5-pro")
	require.NoError(t, err)
	assert.NotEmpty(t, profile.Pricing.Tiers)
}

func TestLookupUnknownModel(t *testing.T) {
	r := New()

	_, err := r.Lookup("anthropic:claude-nonexistent")
	require.Error(t, err)

	var cfgErr *reviewerr.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLookupMalformedID(t *testing.T) {
	r := New()

	for _, id := range []string{"", "gpt-4o", "justaname"} {
		_, err := r.Lookup(id)
		require.Error(t, err, "id %q", id)

		var cfgErr *reviewerr.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	}
}

func TestRegisterOverridesBuiltin(t *testing.T) {
	r := New()
	r.Register(models.ModelProfile{
		Provider:            "ollama",
		Model:               "llama3",
		ContextWindowTokens: 32768,
		Tokenizer:           models.TokenizerGeneric,
	})

	profile, err := r.Lookup("ollama:llama3")
	require.NoError(t, err)
	assert.Equal(t, 32768, profile.ContextWindowTokens)
}

func TestIDsSorted(t *testing.T) {
	r := New()
	ids := r.IDs()
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
	assert.Contains(t, ids, "openai:gpt-4o")
}
