// Package tokens estimates per-file and total token counts for a model and
// decides whether a review fits in a single request.
package tokens

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/reviewpass/pkg/models"
)

// DefaultSafetyMarginFactor is the fraction of the context window reserved
// for instructions and model output when computing the usable budget.
const DefaultSafetyMarginFactor = 0.15

// Analyzer estimates token counts against a model profile. The zero value is
// not usable; construct with NewAnalyzer.
type Analyzer struct {
	SafetyMarginFactor float64
	MaxWorkers         int
}

// NewAnalyzer returns an analyzer with the default safety margin and one
// worker per CPU.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		SafetyMarginFactor: DefaultSafetyMarginFactor,
		MaxWorkers:         runtime.NumCPU(),
	}
}

// UsableBudget returns the portion of the context window available for
// review content after the safety margin.
func (a *Analyzer) UsableBudget(profile models.ModelProfile) int {
	return int(float64(profile.ContextWindowTokens) * (1 - a.SafetyMarginFactor))
}

// AnalyzeFile estimates the token count of a single file for the profile's
// tokenizer family. Deterministic and side-effect free.
func (a *Analyzer) AnalyzeFile(file models.SourceFile, profile models.ModelProfile) int {
	counter := CounterFor(profile.Tokenizer)
	// The file path is replayed in the prompt alongside the content.
	return counter.CountTokens(file.Path) + counter.CountTokens(file.Content)
}

// AnalyzeFiles estimates every file concurrently, then assembles the totals
// and the single/multi-pass decision. The returned file slice mirrors the
// input order with EstimatedTokens filled in. Files whose own estimate
// exceeds the usable budget are listed in OversizedFiles and excluded from
// the FitsSinglePass decision; content is never truncated here.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, files []models.SourceFile, profile models.ModelProfile) ([]models.SourceFile, models.AnalysisResult, error) {
	result := models.AnalysisResult{
		FileTokens:   make(map[string]int, len(files)),
		UsableBudget: a.UsableBudget(profile),
	}

	if len(files) == 0 {
		result.FitsSinglePass = true
		return nil, result, nil
	}

	analyzed := make([]models.SourceFile, len(files))
	copy(analyzed, files)

	workerCount := a.MaxWorkers
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(files) {
		workerCount = len(files)
	}

	indexCh := make(chan int, len(files))
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				analyzed[i].EstimatedTokens = a.AnalyzeFile(analyzed[i], profile)
			}
		}()
	}
	for i := range analyzed {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, result, err
	}

	fittingTotal := 0
	for _, f := range analyzed {
		result.FileTokens[f.Path] = f.EstimatedTokens
		result.TotalTokens += f.EstimatedTokens
		if f.EstimatedTokens > result.UsableBudget {
			result.OversizedFiles = append(result.OversizedFiles, f.Path)
		} else {
			fittingTotal += f.EstimatedTokens
		}
	}
	sort.Strings(result.OversizedFiles)

	// Oversized files force multiple passes regardless of the remaining
	// total; the caller decides how to surface them.
	result.FitsSinglePass = len(result.OversizedFiles) == 0 && fittingTotal <= result.UsableBudget

	log.Debug().
		Int("files", len(analyzed)).
		Int("total_tokens", result.TotalTokens).
		Int("usable_budget", result.UsableBudget).
		Int("oversized", len(result.OversizedFiles)).
		Bool("fits_single_pass", result.FitsSinglePass).
		Msg("Token analysis complete")

	return analyzed, result, nil
}
