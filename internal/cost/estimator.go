// Package cost turns token counts, estimated or provider-measured, into a
// cost projection for a run.
package cost

import (
	"math"

	"github.com/reviewpass/pkg/models"
)

// DefaultAssumedOutputRatio is the assumed output/input token ratio used
// before a provider reports real usage.
const DefaultAssumedOutputRatio = 0.3

// displayPrecision is the number of decimal places costs are rounded to.
const displayPrecision = 4

// Estimator projects run cost for one model profile and refines per-pass
// figures as measured usage arrives. One estimator belongs to one run.
type Estimator struct {
	profile            models.ModelProfile
	assumedOutputRatio float64
	passes             []models.PassCost
}

// NewEstimator returns an estimator for the profile. A non-positive ratio
// falls back to the default.
func NewEstimator(profile models.ModelProfile, assumedOutputRatio float64) *Estimator {
	if assumedOutputRatio <= 0 {
		assumedOutputRatio = DefaultAssumedOutputRatio
	}
	return &Estimator{profile: profile, assumedOutputRatio: assumedOutputRatio}
}

// EstimatePreRun projects the cost of a planned run. Each pass's input is
// its file tokens plus an upper-bound preamble estimate: passes after the
// first carry the full reserved context overhead. Output tokens are assumed
// at the configured ratio of input.
func (e *Estimator) EstimatePreRun(plan []models.Pass, reservedContextOverhead int) models.CostEstimate {
	e.passes = make([]models.PassCost, 0, len(plan))
	for _, pass := range plan {
		input := pass.FileTokens
		if pass.Index > 0 {
			input += reservedContextOverhead
		}
		output := int(float64(input) * e.assumedOutputRatio)
		e.passes = append(e.passes, e.priced(pass.Index, input, output, false))
	}
	return e.Current()
}

// RecordActual replaces a pass's estimated figures with provider-measured
// usage. Results without usage data leave the estimate in place.
func (e *Estimator) RecordActual(result models.PassResult) {
	if result.Usage == nil {
		return
	}
	for i := range e.passes {
		if e.passes[i].PassIndex == result.PassIndex {
			e.passes[i] = e.priced(result.PassIndex, result.Usage.InputTokens, result.Usage.OutputTokens, true)
			return
		}
	}
	e.passes = append(e.passes, e.priced(result.PassIndex, result.Usage.InputTokens, result.Usage.OutputTokens, true))
}

// Current returns the cost estimate as it stands. The total is the sum of
// the per-pass costs; the estimate is labeled measured only when every pass
// has measured data.
func (e *Estimator) Current() models.CostEstimate {
	estimate := models.CostEstimate{
		Passes:   make([]models.PassCost, len(e.passes)),
		Measured: len(e.passes) > 0,
	}
	copy(estimate.Passes, e.passes)

	total := 0.0
	for _, p := range e.passes {
		total += p.TotalUSD()
		if !p.Measured {
			estimate.Measured = false
		}
	}
	estimate.TotalUSD = roundUSD(total)
	return estimate
}

func (e *Estimator) priced(index, inputTokens, outputTokens int, measured bool) models.PassCost {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	return models.PassCost{
		PassIndex:     index,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		InputCostUSD:  roundUSD(price(e.profile.Pricing, inputTokens, false)),
		OutputCostUSD: roundUSD(price(e.profile.Pricing, outputTokens, true)),
		Measured:      measured,
	}
}

// price computes the cost of a token count under flat or tiered pricing.
// Tiered pricing splits the tokens proportionally across bands: each tier
// bills the tokens falling inside its cumulative range.
func price(pricing models.ModelPricing, tokens int, output bool) float64 {
	if tokens <= 0 {
		return 0
	}

	rate := func(t models.PriceTier) float64 {
		if output {
			return t.OutputPerMillionUSD
		}
		return t.InputPerMillionUSD
	}

	if len(pricing.Tiers) == 0 {
		perMillion := pricing.InputPerMillionUSD
		if output {
			perMillion = pricing.OutputPerMillionUSD
		}
		return float64(tokens) / 1e6 * perMillion
	}

	total := 0.0
	remaining := tokens
	prev := 0
	for _, tier := range pricing.Tiers {
		if remaining <= 0 {
			break
		}
		span := remaining
		if tier.UpToTokens > 0 {
			width := tier.UpToTokens - prev
			if width <= 0 {
				continue
			}
			if span > width {
				span = width
			}
			prev = tier.UpToTokens
		}
		total += float64(span) / 1e6 * rate(tier)
		remaining -= span
	}
	if remaining > 0 {
		// Tokens beyond the last bounded tier bill at the last tier's rate.
		last := pricing.Tiers[len(pricing.Tiers)-1]
		total += float64(remaining) / 1e6 * rate(last)
	}
	return total
}

func roundUSD(v float64) float64 {
	if v < 0 {
		return 0
	}
	shift := math.Pow(10, displayPrecision)
	return math.Round(v*shift) / shift
}
