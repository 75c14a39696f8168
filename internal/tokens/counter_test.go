package tokens

import (
	"strings"
	"testing"

	"github.com/reviewpass/pkg/models"
)

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{
			name:     "Empty string",
			content:  "",
			expected: false,
		},
		{
			name:     "Plain text",
			content:  "This is a plain text file with normal content.\nIt has multiple lines and some special chars like $@#%.",
			expected: false,
		},
		{
			name:     "Code file",
			content:  "package main\n\nfunc main() {\n\tfmt.Println(\"Hello, world!\")\n}\n",
			expected: false,
		},
		{
			name:     "File with null byte",
			content:  "This file has a null byte \x00 in it.",
			expected: true,
		},
		{
			name:     "Binary header",
			content:  "\x7F\x45\x4C\x46\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x3E\x00\x01\x00\x00\x00",
			expected: true,
		},
		{
			name:     "High non-printable ratio",
			content:  "text \x01\x02\x03\x04\x05\x06\x07\x08\x0B\x0C\x0E\x0F\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1A\x1B\x1C\x1D\x1E\x1F",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsBinaryContent(tt.content)
			if result != tt.expected {
				t.Errorf("IsBinaryContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCounterFor(t *testing.T) {
	tests := []struct {
		name     string
		family   models.TokenizerFamily
		content  string
		expected int
	}{
		{
			name:     "OpenAI four chars per token",
			family:   models.TokenizerOpenAI,
			content:  strings.Repeat("a", 400),
			expected: 100,
		},
		{
			name:     "OpenAI rounds up",
			family:   models.TokenizerOpenAI,
			content:  strings.Repeat("a", 401),
			expected: 101,
		},
		{
			name:     "Anthropic denser tokenization",
			family:   models.TokenizerAnthropic,
			content:  strings.Repeat("a", 350),
			expected: 100,
		},
		{
			name:     "Gemini four chars per token",
			family:   models.TokenizerGemini,
			content:  strings.Repeat("a", 400),
			expected: 100,
		},
		{
			name:     "Generic counts words and punctuation",
			family:   models.TokenizerGeneric,
			content:  "return x + y;",
			expected: 6,
		},
		{
			name:     "Empty content is zero tokens",
			family:   models.TokenizerOpenAI,
			content:  "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CounterFor(tt.family).CountTokens(tt.content)
			if result != tt.expected {
				t.Errorf("CountTokens() = %d, want %d", result, tt.expected)
			}
		})
	}
}

func TestCountTokensDeterministic(t *testing.T) {
	content := "func add(a, b int) int { return a + b }"
	for _, family := range []models.TokenizerFamily{
		models.TokenizerOpenAI,
		models.TokenizerAnthropic,
		models.TokenizerGemini,
		models.TokenizerGeneric,
	} {
		counter := CounterFor(family)
		first := counter.CountTokens(content)
		for i := 0; i < 5; i++ {
			if got := counter.CountTokens(content); got != first {
				t.Errorf("CountTokens(%s) not deterministic: %d then %d", family, first, got)
			}
		}
	}
}
