package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpass/pkg/models"
)

func flatProfile() models.ModelProfile {
	return models.ModelProfile{
		Provider:            "anthropic",
		Model:               "claude-sonnet-4",
		ContextWindowTokens: 200000,
		Pricing: models.ModelPricing{
			InputPerMillionUSD:  3.0,
			OutputPerMillionUSD: 15.0,
		},
	}
}

func tieredProfile() models.ModelProfile {
	return models.ModelProfile{
		Provider:            "gemini",
		Model:               "gemini-2.5-pro",
		ContextWindowTokens: 1048576,
		Pricing: models.ModelPricing{
			Tiers: []models.PriceTier{
				{UpToTokens: 200000, InputPerMillionUSD: 1.25, OutputPerMillionUSD: 10.0},
				{UpToTokens: 0, InputPerMillionUSD: 2.50, OutputPerMillionUSD: 15.0},
			},
		},
	}
}

func TestEstimatePreRunFlat(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	plan := []models.Pass{
		{Index: 0, FileTokens: 100000},
		{Index: 1, FileTokens: 100000},
	}

	est := e.EstimatePreRun(plan, 30000)
	require.Len(t, est.Passes, 2)

	// Pass 0 carries no context preamble; pass 1 adds the full reservation.
	assert.Equal(t, 100000, est.Passes[0].InputTokens)
	assert.Equal(t, 130000, est.Passes[1].InputTokens)
	assert.Equal(t, 30000, est.Passes[0].OutputTokens)
	assert.Equal(t, 39000, est.Passes[1].OutputTokens)

	// 100k in at $3/M = $0.30, 30k out at $15/M = $0.45.
	assert.InDelta(t, 0.30, est.Passes[0].InputCostUSD, 1e-9)
	assert.InDelta(t, 0.45, est.Passes[0].OutputCostUSD, 1e-9)

	assert.False(t, est.Measured)
	assert.False(t, est.Passes[0].Measured)
}

func TestTotalIsSumOfPasses(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	est := e.EstimatePreRun([]models.Pass{
		{Index: 0, FileTokens: 50000},
		{Index: 1, FileTokens: 80000},
		{Index: 2, FileTokens: 20000},
	}, 10000)

	sum := 0.0
	for _, p := range est.Passes {
		sum += p.TotalUSD()
	}
	assert.InDelta(t, sum, est.TotalUSD, 1e-4)
	assert.GreaterOrEqual(t, est.TotalUSD, 0.0)
}

func TestTieredPricingSplitsProportionally(t *testing.T) {
	e := NewEstimator(tieredProfile(), 0.3)
	est := e.EstimatePreRun([]models.Pass{{Index: 0, FileTokens: 300000}}, 0)
	require.Len(t, est.Passes, 1)

	// 200k at $1.25/M plus 100k at $2.50/M.
	wantInput := 0.2*1.25 + 0.1*2.50
	assert.InDelta(t, wantInput, est.Passes[0].InputCostUSD, 1e-4)

	// Output 90k sits entirely inside the first tier at $10/M.
	assert.InDelta(t, 0.09*10.0, est.Passes[0].OutputCostUSD, 1e-4)
}

func TestRecordActualRefinesEstimate(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	e.EstimatePreRun([]models.Pass{
		{Index: 0, FileTokens: 100000},
		{Index: 1, FileTokens: 100000},
	}, 30000)

	e.RecordActual(models.PassResult{
		PassIndex: 0,
		Usage:     &models.TokenUsage{InputTokens: 95000, OutputTokens: 12000},
	})

	est := e.Current()
	assert.Equal(t, 95000, est.Passes[0].InputTokens)
	assert.True(t, est.Passes[0].Measured)
	// One pass still estimated keeps the whole run estimated.
	assert.False(t, est.Measured)

	e.RecordActual(models.PassResult{
		PassIndex: 1,
		Usage:     &models.TokenUsage{InputTokens: 125000, OutputTokens: 15000},
	})
	assert.True(t, e.Current().Measured)
}

func TestRecordActualWithoutUsageKeepsEstimate(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	e.EstimatePreRun([]models.Pass{{Index: 0, FileTokens: 100000}}, 0)

	e.RecordActual(models.PassResult{PassIndex: 0, Usage: nil})

	est := e.Current()
	assert.Equal(t, 100000, est.Passes[0].InputTokens)
	assert.False(t, est.Passes[0].Measured)
	assert.False(t, est.Measured)
}

func TestCostNeverNegative(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	e.RecordActual(models.PassResult{
		PassIndex: 0,
		Usage:     &models.TokenUsage{InputTokens: -500, OutputTokens: -100},
	})

	est := e.Current()
	require.Len(t, est.Passes, 1)
	assert.GreaterOrEqual(t, est.Passes[0].InputCostUSD, 0.0)
	assert.GreaterOrEqual(t, est.Passes[0].OutputCostUSD, 0.0)
	assert.GreaterOrEqual(t, est.TotalUSD, 0.0)
}

func TestZeroPricingIsFree(t *testing.T) {
	profile := models.ModelProfile{Provider: "ollama", Model: "llama3", ContextWindowTokens: 8192}
	e := NewEstimator(profile, 0.3)
	est := e.EstimatePreRun([]models.Pass{{Index: 0, FileTokens: 5000}}, 0)
	assert.Zero(t, est.TotalUSD)
}

func TestEmptyPlan(t *testing.T) {
	e := NewEstimator(flatProfile(), 0.3)
	est := e.EstimatePreRun(nil, 0)
	assert.Empty(t, est.Passes)
	assert.Zero(t, est.TotalUSD)
	assert.False(t, est.Measured)
}
