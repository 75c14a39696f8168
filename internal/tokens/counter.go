package tokens

import (
	"math"
	"regexp"
	"strings"

	"github.com/reviewpass/pkg/models"
)

// Counter estimates the number of tokens a model will charge for a piece of
// text. Implementations are deterministic and side-effect free.
type Counter interface {
	CountTokens(content string) int
}

// charRatioCounter approximates tokens as characters divided by a family
// specific ratio. The ratios follow the published rules of thumb for each
// tokenizer rather than exact BPE output, which would require fetching
// encoding tables at runtime.
type charRatioCounter struct {
	charsPerToken float64
}

func (c charRatioCounter) CountTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(content)) / c.charsPerToken))
}

var specialChars = regexp.MustCompile(`[.,!?;:(){}\[\]<>+\-*/=@#$%^&|~]`)

// wordCounter estimates tokens from word count plus punctuation, the
// fallback for providers without a known character ratio.
type wordCounter struct{}

func (wordCounter) CountTokens(content string) int {
	words := strings.Fields(content)
	specials := len(specialChars.FindAllString(content, -1))
	return len(words) + specials
}

// CounterFor returns the token counter for a tokenizer family. Unknown
// families fall back to the generic word-based counter.
func CounterFor(family models.TokenizerFamily) Counter {
	switch family {
	case models.TokenizerOpenAI:
		return charRatioCounter{charsPerToken: 4.0}
	case models.TokenizerAnthropic:
		return charRatioCounter{charsPerToken: 3.5}
	case models.TokenizerGemini:
		return charRatioCounter{charsPerToken: 4.0}
	default:
		return wordCounter{}
	}
}

// IsBinaryContent reports whether content looks like binary rather than
// reviewable text. Null bytes or a high share of non-printable characters in
// the leading sample mark it binary.
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}

	if strings.Contains(content, "\x00") {
		return true
	}

	sampleSize := 512
	if len(content) < sampleSize {
		sampleSize = len(content)
	}

	nonPrintable := 0
	for _, r := range content[:sampleSize] {
		if (r < 32 && r != 9 && r != 10 && r != 13) || r >= 127 {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > 0.3
}
