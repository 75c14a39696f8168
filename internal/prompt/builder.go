// Package prompt assembles the request text for one pass: the cross-pass
// context preamble followed by each file's annotated content.
package prompt

import (
	"fmt"
	"strings"

	"github.com/reviewpass/pkg/models"
)

// Builder joins a preamble and pass files into the prompt sent to the
// provider. Wording is deliberately thin; the response schema instructions
// are the only fixed part.
type Builder struct{}

// Build returns the full prompt text for a pass.
func (Builder) Build(preamble string, files []models.SourceFile) string {
	var b strings.Builder

	b.WriteString("You are reviewing a codebase in multiple passes. ")
	b.WriteString("Review the files below for correctness, security, and maintainability issues.\n\n")

	if preamble != "" {
		b.WriteString(preamble)
		b.WriteString("\n")
	}

	for _, f := range files {
		lang := f.LanguageHint
		if lang == "" {
			lang = "text"
		}
		b.WriteString(fmt.Sprintf("=== FILE: %s ===\n```%s\n%s\n```\n\n", f.Path, lang, f.Content))
	}

	b.WriteString(`Respond with JSON only, using this shape:
{
  "summary": "one paragraph overview of the files in this pass",
  "findings": [
    {"file_path": "...", "line": 0, "title": "...", "detail": "...", "severity": "info|warning|critical", "symbol": "optional affected symbol"}
  ]
}
`)

	return b.String()
}
