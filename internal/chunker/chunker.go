// Package chunker partitions analyzed files into ordered passes that each
// fit a model's per-pass token budget.
package chunker

import (
	"sort"

	"github.com/reviewpass/internal/reviewerr"
	"github.com/reviewpass/pkg/models"
)

// DefaultContextMaintenanceFactor is the fraction of the context window
// reserved per pass for the cross-pass context preamble.
const DefaultContextMaintenanceFactor = 0.15

// ReservedContextOverhead returns the per-pass token reservation for context
// continuity: a flat fraction of the whole context window.
func ReservedContextOverhead(profile models.ModelProfile, contextMaintenanceFactor float64) int {
	return int(float64(profile.ContextWindowTokens) * contextMaintenanceFactor)
}

// Plan partitions files into passes. It is a pure function: identical inputs
// always produce an identical partition. Files are sorted by priority
// descending with lexicographic path tie-breaks, then packed greedily until
// the next file would exceed the per-pass file budget. A file too large for
// any shared pass gets a pass of its own, marked oversized.
//
// Every input file appears in exactly one pass.
func Plan(files []models.SourceFile, analysis models.AnalysisResult, profile models.ModelProfile, contextMaintenanceFactor float64) ([]models.Pass, error) {
	reserved := ReservedContextOverhead(profile, contextMaintenanceFactor)
	perPassFileBudget := analysis.UsableBudget - reserved
	if perPassFileBudget <= 0 {
		return nil, &reviewerr.ConfigurationError{
			Field:  "contextMaintenanceFactor",
			Reason: "no token budget remains for file content after the context reservation",
		}
	}

	ordered := make([]models.SourceFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Path < ordered[j].Path
	})

	fileTokens := func(f models.SourceFile) int {
		if t, ok := analysis.FileTokens[f.Path]; ok {
			return t
		}
		return f.EstimatedTokens
	}

	var passes []models.Pass
	var current []models.SourceFile
	currentTokens := 0

	flush := func(oversized bool) {
		if len(current) == 0 {
			return
		}
		passes = append(passes, models.Pass{
			Index:       len(passes),
			Files:       current,
			TokenBudget: perPassFileBudget,
			FileTokens:  currentTokens,
			Oversized:   oversized,
		})
		current = nil
		currentTokens = 0
	}

	for _, f := range ordered {
		t := fileTokens(f)

		if t > perPassFileBudget {
			// Cannot share a pass with anything; isolate it so the rest
			// of the plan still honors the budget invariant.
			flush(false)
			current = []models.SourceFile{f}
			currentTokens = t
			flush(true)
			continue
		}

		if currentTokens+t > perPassFileBudget {
			flush(false)
		}
		current = append(current, f)
		currentTokens += t
	}
	flush(false)

	return passes, nil
}
