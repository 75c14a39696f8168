package orchestrator

import (
	"fmt"

	"github.com/reviewpass/pkg/models"
)

// consolidate merges findings from every pass, preserving pass order.
// Duplicate suppression is best-effort: findings sharing file, line, and
// title collapse to one, keeping the most severe occurrence in place.
func consolidate(results []models.PassResult) []models.Finding {
	var merged []models.Finding
	position := make(map[string]int)

	for _, result := range results {
		for _, finding := range result.Findings {
			key := fmt.Sprintf("%s:%d:%s", finding.FilePath, finding.Line, finding.Title)
			if idx, seen := position[key]; seen {
				if severityRank(finding.Severity) > severityRank(merged[idx].Severity) {
					merged[idx] = finding
				}
				continue
			}
			position[key] = len(merged)
			merged = append(merged, finding)
		}
	}

	return merged
}

func severityRank(s models.FindingSeverity) int {
	switch s {
	case models.SeverityCritical:
		return 3
	case models.SeverityWarning:
		return 2
	default:
		return 1
	}
}
