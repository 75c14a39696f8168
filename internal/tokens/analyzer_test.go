package tokens

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpass/pkg/models"
)

func testProfile(window int) models.ModelProfile {
	return models.ModelProfile{
		Provider:            "openai",
		Model:               "gpt-4o",
		ContextWindowTokens: window,
		Tokenizer:           models.TokenizerOpenAI,
	}
}

// fileWithTokens builds a file whose path plus content costs exactly n
// tokens under the OpenAI four-chars-per-token counter.
func fileWithTokens(path string, n int) models.SourceFile {
	pathTokens := (len(path) + 3) / 4
	return models.SourceFile{
		Path:    path,
		Content: strings.Repeat("a", (n-pathTokens)*4),
	}
}

func TestUsableBudget(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, 170000, a.UsableBudget(testProfile(200000)))
	assert.Equal(t, 850, a.UsableBudget(testProfile(1000)))

	a.SafetyMarginFactor = 0.25
	assert.Equal(t, 750, a.UsableBudget(testProfile(1000)))
}

func TestAnalyzeFiles(t *testing.T) {
	a := NewAnalyzer()
	profile := testProfile(1000) // usable budget 850

	t.Run("EmptyInputFitsSinglePass", func(t *testing.T) {
		files, result, err := a.AnalyzeFiles(context.Background(), nil, profile)
		require.NoError(t, err)
		assert.Empty(t, files)
		assert.True(t, result.FitsSinglePass)
		assert.Zero(t, result.TotalTokens)
	})

	t.Run("FitsWhenUnderBudget", func(t *testing.T) {
		input := []models.SourceFile{
			fileWithTokens("a.go", 400),
			fileWithTokens("b.go", 400),
		}
		analyzed, result, err := a.AnalyzeFiles(context.Background(), input, profile)
		require.NoError(t, err)
		require.Len(t, analyzed, 2)

		assert.Equal(t, 400, analyzed[0].EstimatedTokens)
		assert.Equal(t, 400, result.FileTokens["a.go"])
		assert.Equal(t, 800, result.TotalTokens)
		assert.True(t, result.FitsSinglePass)
		assert.Empty(t, result.OversizedFiles)
	})

	t.Run("TotalOverBudgetNeedsMultiplePasses", func(t *testing.T) {
		input := []models.SourceFile{
			fileWithTokens("a.go", 500),
			fileWithTokens("b.go", 500),
		}
		_, result, err := a.AnalyzeFiles(context.Background(), input, profile)
		require.NoError(t, err)
		assert.False(t, result.FitsSinglePass)
		assert.Empty(t, result.OversizedFiles)
	})

	t.Run("OversizedFileFlaggedNotTruncated", func(t *testing.T) {
		input := []models.SourceFile{
			fileWithTokens("huge.go", 900),
			fileWithTokens("small.go", 100),
		}
		analyzed, result, err := a.AnalyzeFiles(context.Background(), input, profile)
		require.NoError(t, err)

		assert.Equal(t, []string{"huge.go"}, result.OversizedFiles)
		assert.False(t, result.FitsSinglePass)
		// The oversized file keeps its content and full estimate.
		assert.Equal(t, 900, analyzed[0].EstimatedTokens)
		assert.Equal(t, 900, result.FileTokens["huge.go"])
	})

	t.Run("InputOrderPreserved", func(t *testing.T) {
		input := []models.SourceFile{
			fileWithTokens("z.go", 10),
			fileWithTokens("a.go", 20),
			fileWithTokens("m.go", 30),
		}
		analyzed, _, err := a.AnalyzeFiles(context.Background(), input, profile)
		require.NoError(t, err)
		require.Len(t, analyzed, 3)
		assert.Equal(t, "z.go", analyzed[0].Path)
		assert.Equal(t, "a.go", analyzed[1].Path)
		assert.Equal(t, "m.go", analyzed[2].Path)
	})

	t.Run("CancelledContextReturnsError", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := a.AnalyzeFiles(ctx, []models.SourceFile{fileWithTokens("a.go", 10)}, profile)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAnalyzeFileCountsPathAndContent(t *testing.T) {
	a := NewAnalyzer()
	profile := testProfile(1000)

	file := models.SourceFile{Path: "abcd", Content: strings.Repeat("x", 40)}
	// One token for the four-character path, ten for the content.
	assert.Equal(t, 11, a.AnalyzeFile(file, profile))
}
