// Package parser turns raw model response text into structured findings.
// Models wrap JSON in prose and code fences and frequently emit slightly
// broken JSON, so extraction and repair happen before decoding.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/reviewpass/pkg/models"
)

// reviewPayload is the response schema the review prompt asks for.
type reviewPayload struct {
	Summary  string `json:"summary"`
	Findings []struct {
		FilePath string `json:"file_path"`
		Line     int    `json:"line"`
		Title    string `json:"title"`
		Detail   string `json:"detail"`
		Severity string `json:"severity"`
		Symbol   string `json:"symbol"`
	} `json:"findings"`
}

// Parse decodes findings from a raw response. When the response carries no
// parseable JSON at all, the whole text becomes a single info finding so the
// pass is not lost; a malformed-but-present payload is repaired first.
func Parse(raw string) ([]models.Finding, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return fallbackFindings(raw), nil
	}

	payload, err := decode(jsonStr)
	if err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			log.Debug().Err(repairErr).Msg("JSON repair failed, using fallback finding")
			return fallbackFindings(raw), nil
		}
		payload, err = decode(repaired)
		if err != nil {
			log.Debug().Err(err).Msg("Repaired JSON still undecodable, using fallback finding")
			return fallbackFindings(raw), nil
		}
		log.Debug().Msg("Response JSON repaired")
	}

	findings := make([]models.Finding, 0, len(payload.Findings))
	for _, f := range payload.Findings {
		if f.Title == "" {
			continue
		}
		line := f.Line
		if line < 0 {
			line = 0
		}
		findings = append(findings, models.Finding{
			FilePath: f.FilePath,
			Line:     line,
			Title:    f.Title,
			Detail:   f.Detail,
			Severity: severity(f.Severity),
			Symbol:   f.Symbol,
		})
	}

	if payload.Summary != "" {
		// Summaries ride along as findings so the review context can fold
		// them into per-file digests.
		for i := range findings {
			if findings[i].Summary == "" && findings[i].FilePath != "" {
				findings[i].Summary = payload.Summary
				break
			}
		}
		if len(findings) == 0 {
			findings = append(findings, models.Finding{
				Title:    "Review summary",
				Detail:   payload.Summary,
				Severity: models.SeverityInfo,
				Summary:  payload.Summary,
			})
		}
	}

	return findings, nil
}

func decode(jsonStr string) (reviewPayload, error) {
	var payload reviewPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return reviewPayload{}, fmt.Errorf("decoding review payload: %w", err)
	}
	return payload, nil
}

func severity(s string) models.FindingSeverity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "error", "high":
		return models.SeverityCritical
	case "warning", "medium":
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// fallbackFindings wraps an unparseable response in one info finding so the
// caller still sees what the model said.
func fallbackFindings(raw string) []models.Finding {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	return []models.Finding{{
		Title:    "Unstructured review response",
		Detail:   text,
		Severity: models.SeverityInfo,
	}}
}

// extractJSON pulls the JSON body out of mixed prose/JSON responses,
// preferring fenced code blocks, then the outermost brace span.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	if strings.Contains(raw, "```") {
		var jsonLines []string
		inBlock := false
		for _, line := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				if inBlock {
					break
				}
				inBlock = true
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		candidate := strings.TrimSpace(strings.Join(jsonLines, "\n"))
		if strings.HasPrefix(candidate, "{") || strings.HasPrefix(candidate, "[") {
			return candidate
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}

	return ""
}
