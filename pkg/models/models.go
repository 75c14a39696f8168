package models

import (
	"time"
)

// TokenizerFamily identifies the heuristic used to estimate token counts
// for a provider's models.
type TokenizerFamily string

const (
	TokenizerOpenAI    TokenizerFamily = "openai"
	TokenizerAnthropic TokenizerFamily = "anthropic"
	TokenizerGemini    TokenizerFamily = "gemini"
	TokenizerGeneric   TokenizerFamily = "generic"
)

// PriceTier is one pricing band of a tiered model price. Tokens up to
// UpToTokens (cumulative) are billed at the tier's rates; UpToTokens == 0
// marks the final, unbounded tier.
type PriceTier struct {
	UpToTokens          int     `json:"up_to_tokens"`
	InputPerMillionUSD  float64 `json:"input_per_million_usd"`
	OutputPerMillionUSD float64 `json:"output_per_million_usd"`
}

// ModelPricing describes what a model charges. Either the flat per-million
// rates are set, or Tiers is non-empty; tiered pricing wins when both exist.
type ModelPricing struct {
	InputPerMillionUSD  float64     `json:"input_per_million_usd"`
	OutputPerMillionUSD float64     `json:"output_per_million_usd"`
	Tiers               []PriceTier `json:"tiers,omitempty"`
}

// ModelProfile describes a single reviewable model: its provider, context
// window, pricing, and which tokenizer family approximates its token counts.
// Profiles are immutable values resolved by the registry; the orchestrator
// never reads them from the environment.
type ModelProfile struct {
	Provider            string          `json:"provider"`
	Model               string          `json:"model"`
	ContextWindowTokens int             `json:"context_window_tokens"`
	Pricing             ModelPricing    `json:"pricing"`
	Tokenizer           TokenizerFamily `json:"tokenizer"`
}

// ID returns the canonical "provider:model" identifier for the profile.
func (p ModelProfile) ID() string {
	return p.Provider + ":" + p.Model
}

// SourceFile is one file submitted for review. Priority is a caller-supplied
// ordering hint (higher reviews earlier); EstimatedTokens is filled in by the
// token analyzer and zero before analysis.
type SourceFile struct {
	Path            string `json:"path"`
	Content         string `json:"content"`
	LanguageHint    string `json:"language_hint,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Priority        int    `json:"priority"`
}

// AnalysisResult is the outcome of token analysis over a file set.
type AnalysisResult struct {
	FileTokens     map[string]int `json:"file_tokens"`
	TotalTokens    int            `json:"total_tokens"`
	UsableBudget   int            `json:"usable_budget"`
	FitsSinglePass bool           `json:"fits_single_pass"`
	OversizedFiles []string       `json:"oversized_files,omitempty"`
}

// Pass is one planned review invocation: an ordered subset of files plus the
// token budget it was packed against. Immutable once planned.
type Pass struct {
	Index       int          `json:"index"`
	Files       []SourceFile `json:"files"`
	TokenBudget int          `json:"token_budget"`
	FileTokens  int          `json:"file_tokens"`
	Oversized   bool         `json:"oversized"`
}

// FindingSeverity grades how serious a finding is.
type FindingSeverity string

const (
	SeverityInfo     FindingSeverity = "info"
	SeverityWarning  FindingSeverity = "warning"
	SeverityCritical FindingSeverity = "critical"
)

// Finding is a single structured review observation parsed from a model
// response.
type Finding struct {
	FilePath string          `json:"file_path"`
	Line     int             `json:"line"`
	Title    string          `json:"title"`
	Detail   string          `json:"detail,omitempty"`
	Severity FindingSeverity `json:"severity"`
	Symbol   string          `json:"symbol,omitempty"`
	Summary  string          `json:"summary,omitempty"`
}

// TokenUsage is provider-reported token accounting for one request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// PassResult is the outcome of executing one pass: the raw response, the
// findings parsed from it, and measured usage when the provider reports it.
type PassResult struct {
	PassIndex    int           `json:"pass_index"`
	ResponseText string        `json:"response_text"`
	Findings     []Finding     `json:"findings"`
	Usage        *TokenUsage   `json:"usage,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// PassCost is the cost breakdown for a single pass.
type PassCost struct {
	PassIndex     int     `json:"pass_index"`
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd"`
	Measured      bool    `json:"measured"`
}

// TotalUSD returns the pass's combined input and output cost.
func (c PassCost) TotalUSD() float64 {
	return c.InputCostUSD + c.OutputCostUSD
}

// CostEstimate is the projected or measured cost of a run. Measured is true
// only once every contributing pass has provider-reported usage.
type CostEstimate struct {
	Passes   []PassCost `json:"passes"`
	TotalUSD float64    `json:"total_usd"`
	Measured bool       `json:"measured"`
}

// ProgressEventType enumerates the observational events a run emits.
type ProgressEventType string

const (
	ProgressPlanned      ProgressEventType = "planned"
	ProgressPassStart    ProgressEventType = "pass-start"
	ProgressPassComplete ProgressEventType = "pass-complete"
	ProgressDone         ProgressEventType = "done"
	ProgressFailed       ProgressEventType = "failed"
	ProgressCancelled    ProgressEventType = "cancelled"
)

// ProgressEvent reports run progress. ETA is extrapolated from the mean
// completed-pass duration and is zero until at least one pass finishes.
type ProgressEvent struct {
	Type        ProgressEventType `json:"type"`
	PassIndex   int               `json:"pass_index,omitempty"`
	TotalPasses int               `json:"total_passes,omitempty"`
	TokensSoFar int               `json:"tokens_so_far,omitempty"`
	Elapsed     time.Duration     `json:"elapsed_ms,omitempty"`
	ETA         time.Duration     `json:"eta_ms,omitempty"`
	Err         error             `json:"-"`
}

// RunResult is everything a finished (or aborted) run produced. PassResults
// and ConsolidatedFindings are always populated with whatever completed, even
// when the run failed or was cancelled partway.
type RunResult struct {
	PassResults          []PassResult   `json:"pass_results"`
	ConsolidatedFindings []Finding      `json:"consolidated_findings"`
	CostEstimate         CostEstimate   `json:"cost_estimate"`
	Analysis             AnalysisResult `json:"analysis"`
	Cancelled            bool           `json:"cancelled"`
	Duration             time.Duration  `json:"duration"`
}
