// Package orchestrator runs the multi-pass review state machine: analyze,
// plan, execute passes sequentially with cross-pass context, consolidate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reviewpass/internal/aiclient"
	"github.com/reviewpass/internal/chunker"
	"github.com/reviewpass/internal/cost"
	"github.com/reviewpass/internal/logging"
	"github.com/reviewpass/internal/parser"
	"github.com/reviewpass/internal/progress"
	"github.com/reviewpass/internal/prompt"
	"github.com/reviewpass/internal/registry"
	"github.com/reviewpass/internal/retry"
	"github.com/reviewpass/internal/reviewctx"
	"github.com/reviewpass/internal/reviewerr"
	"github.com/reviewpass/internal/tokens"
	"github.com/reviewpass/pkg/models"
)

// PromptBuilder assembles the request text for a pass.
type PromptBuilder interface {
	Build(preamble string, files []models.SourceFile) string
}

// ParseFunc turns raw response text into structured findings.
type ParseFunc func(raw string) ([]models.Finding, error)

// Config wires an orchestrator's collaborators. Zero fields get working
// defaults from New.
type Config struct {
	Retry   retry.Config
	Prompts PromptBuilder
	Parse   ParseFunc
	RunLog  *logging.RunLogger
}

// Orchestrator coordinates one review run. An instance is single-use and
// owns its review context and result list exclusively; concurrent runs need
// independent instances.
type Orchestrator struct {
	registry *registry.Registry
	client   aiclient.ExecutionClient
	cfg      Config
	state    State
}

// New returns an idle orchestrator. client may be nil if only Estimate will
// be called.
func New(reg *registry.Registry, client aiclient.ExecutionClient, cfg Config) *Orchestrator {
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Builder{}
	}
	if cfg.Parse == nil {
		cfg.Parse = parser.Parse
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.DefaultConfig()
	}
	return &Orchestrator{
		registry: reg,
		client:   client,
		cfg:      cfg,
		state:    StateIdle,
	}
}

// State returns the current state machine phase.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(to State) {
	if o.state.terminal() {
		return
	}
	log.Debug().Str("from", string(o.state)).Str("to", string(to)).Msg("State transition")
	o.cfg.RunLog.Log("State: %s -> %s", o.state, to)
	o.state = to
}

// Estimate projects the cost of reviewing files with the model, without
// performing any provider call. Usable standalone.
func (o *Orchestrator) Estimate(ctx context.Context, files []models.SourceFile, modelID string, opts Options) (models.CostEstimate, models.AnalysisResult, error) {
	if err := opts.normalize(); err != nil {
		return models.CostEstimate{}, models.AnalysisResult{}, err
	}
	profile, err := o.registry.Lookup(modelID)
	if err != nil {
		return models.CostEstimate{}, models.AnalysisResult{}, err
	}

	analyzer := tokens.NewAnalyzer()
	analyzer.SafetyMarginFactor = opts.SafetyMarginFactor
	analyzed, analysis, err := analyzer.AnalyzeFiles(ctx, files, profile)
	if err != nil {
		return models.CostEstimate{}, analysis, err
	}

	plan, err := o.plan(analyzed, analysis, profile, opts)
	if err != nil {
		return models.CostEstimate{}, analysis, err
	}

	reserved := chunker.ReservedContextOverhead(profile, opts.ContextMaintenanceFactor)
	estimator := cost.NewEstimator(profile, opts.AssumedOutputRatio)
	return estimator.EstimatePreRun(plan, reserved), analysis, nil
}

// Run executes the full review. The returned result always carries whatever
// passes completed, even alongside a fatal error or after cancellation.
func (o *Orchestrator) Run(ctx context.Context, files []models.SourceFile, modelID string, opts Options) (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{}
	tracker := progress.NewTracker(opts.OnProgress)

	if o.state != StateIdle {
		return result, fmt.Errorf("orchestrator already used; create a new instance per run")
	}

	fail := func(err error) (*models.RunResult, error) {
		o.transition(StateFailed)
		o.cfg.RunLog.LogError("Run failed", err)
		tracker.Failed(err)
		result.Duration = time.Since(start)
		return result, err
	}

	if err := opts.normalize(); err != nil {
		return fail(err)
	}
	profile, err := o.registry.Lookup(modelID)
	if err != nil {
		return fail(err)
	}
	if o.client == nil {
		return fail(&reviewerr.ConfigurationError{Field: "client", Reason: "no AI execution client configured"})
	}

	o.cfg.RunLog.LogSection("TOKEN ANALYSIS")
	o.transition(StateAnalyzing)

	analyzer := tokens.NewAnalyzer()
	analyzer.SafetyMarginFactor = opts.SafetyMarginFactor
	analyzed, analysis, err := analyzer.AnalyzeFiles(ctx, files, profile)
	if err != nil {
		return fail(err)
	}
	result.Analysis = analysis
	o.cfg.RunLog.Log("Analyzed %d files: %d tokens total, usable budget %d, fits single pass: %v",
		len(analyzed), analysis.TotalTokens, analysis.UsableBudget, analysis.FitsSinglePass)

	for _, path := range analysis.OversizedFiles {
		oversized := &reviewerr.OversizedFileError{
			Path:   path,
			Tokens: analysis.FileTokens[path],
			Budget: analysis.UsableBudget,
		}
		if opts.Strict {
			return fail(oversized)
		}
		log.Warn().Str("path", path).Int("tokens", analysis.FileTokens[path]).
			Msg("File exceeds usable budget, isolating in its own pass")
		o.cfg.RunLog.Log("WARNING: %v", oversized)
	}

	if len(analyzed) == 0 {
		o.transition(StateDone)
		tracker.Done()
		result.CostEstimate = models.CostEstimate{Measured: true}
		result.Duration = time.Since(start)
		return result, nil
	}

	singlePass := analysis.FitsSinglePass
	if opts.ForceSinglePass {
		singlePass = true
	}
	if opts.ForceMultiPass {
		singlePass = false
	}

	var plan []models.Pass
	if singlePass {
		o.transition(StateSinglePass)
		plan = []models.Pass{{
			Index:       0,
			Files:       analyzed,
			TokenBudget: analysis.UsableBudget,
			FileTokens:  analysis.TotalTokens,
		}}
	} else {
		o.transition(StatePlanning)
		plan, err = chunker.Plan(analyzed, analysis, profile, opts.ContextMaintenanceFactor)
		if err != nil {
			return fail(err)
		}
		if len(plan) == 0 {
			return fail(&reviewerr.ConfigurationError{Field: "plan", Reason: "chunker produced an empty pass plan"})
		}
	}

	reserved := chunker.ReservedContextOverhead(profile, opts.ContextMaintenanceFactor)
	estimator := cost.NewEstimator(profile, opts.AssumedOutputRatio)
	result.CostEstimate = estimator.EstimatePreRun(plan, reserved)
	tracker.Planned(len(plan))
	o.cfg.RunLog.LogSection("PASS PLAN")
	o.cfg.RunLog.Log("Planned %d passes, estimated cost $%.4f", len(plan), result.CostEstimate.TotalUSD)
	for _, p := range plan {
		o.cfg.RunLog.Log("  Pass %d: %d files, %d tokens (oversized: %v)", p.Index+1, len(p.Files), p.FileTokens, p.Oversized)
	}

	if !singlePass {
		o.transition(StatePerPass)
	}

	reviewContext := reviewctx.New(tokens.CounterFor(profile.Tokenizer))
	retryConfig := o.cfg.Retry
	retryConfig.MaxRetries = opts.MaxRetriesPerPass

	for _, pass := range plan {
		// Graceful cancellation between passes: keep what completed.
		if ctx.Err() != nil {
			return o.cancelled(result, tracker, start)
		}

		preamble := ""
		if pass.Index > 0 {
			preamble = reviewContext.BuildContextPreamble(reserved)
		}
		promptText := o.cfg.Prompts.Build(preamble, pass.Files)

		tracker.PassStart(pass.Index)
		o.cfg.RunLog.LogPrompt(pass.Index, profile.ID(), promptText)

		passStart := time.Now()
		var response aiclient.Response
		attempt := retry.Do(ctx, retryConfig, log.Logger, func() error {
			var sendErr error
			response, sendErr = o.client.Send(ctx, promptText)
			return sendErr
		})
		if !attempt.Success {
			err := attempt.LastError
			if errors.Is(err, context.Canceled) {
				return o.cancelled(result, tracker, start)
			}
			if pass.Oversized {
				var invalid *reviewerr.InvalidRequestError
				if errors.As(err, &invalid) {
					err = fmt.Errorf("oversized pass %d rejected by provider: %w", pass.Index+1, err)
				}
			}
			return fail(err)
		}

		o.cfg.RunLog.LogResponse(pass.Index, response.Text)

		findings, parseErr := o.cfg.Parse(response.Text)
		if parseErr != nil {
			log.Warn().Err(parseErr).Int("pass", pass.Index).Msg("Response parsing failed")
		}

		passResult := models.PassResult{
			PassIndex:    pass.Index,
			ResponseText: response.Text,
			Findings:     findings,
			Usage:        response.Usage,
			Duration:     time.Since(passStart),
		}

		if err := reviewContext.Update(passResult); err != nil {
			// Context state stays intact; the pass result itself is kept.
			log.Warn().Err(err).Int("pass", pass.Index).Msg("Context update rejected pass result")
			o.cfg.RunLog.Log("Context update rejected pass %d: %v", pass.Index+1, err)
		}

		estimator.RecordActual(passResult)
		result.PassResults = append(result.PassResults, passResult)
		result.CostEstimate = estimator.Current()

		passTokens := pass.FileTokens
		if response.Usage != nil {
			passTokens = response.Usage.InputTokens + response.Usage.OutputTokens
		}
		tracker.PassComplete(pass.Index, passTokens)
		o.cfg.RunLog.Log("Pass %d/%d complete: %d findings, %v",
			pass.Index+1, len(plan), len(findings), passResult.Duration.Round(time.Millisecond))
	}

	o.transition(StateConsolidating)
	result.ConsolidatedFindings = consolidate(result.PassResults)
	result.CostEstimate = estimator.Current()

	o.transition(StateDone)
	tracker.Done()
	result.Duration = time.Since(start)
	o.cfg.RunLog.LogSection("RUN COMPLETE")
	o.cfg.RunLog.Log("Passes: %d, findings: %d, cost: $%.4f (measured: %v)",
		len(result.PassResults), len(result.ConsolidatedFindings), result.CostEstimate.TotalUSD, result.CostEstimate.Measured)
	return result, nil
}

func (o *Orchestrator) cancelled(result *models.RunResult, tracker *progress.Tracker, start time.Time) (*models.RunResult, error) {
	o.transition(StateCancelled)
	result.Cancelled = true
	result.ConsolidatedFindings = consolidate(result.PassResults)
	result.Duration = time.Since(start)
	tracker.Cancelled()
	o.cfg.RunLog.Log("Run cancelled after %d completed passes", len(result.PassResults))
	return result, nil
}

// plan mirrors Run's planning decision for Estimate.
func (o *Orchestrator) plan(analyzed []models.SourceFile, analysis models.AnalysisResult, profile models.ModelProfile, opts Options) ([]models.Pass, error) {
	if len(analyzed) == 0 {
		return nil, nil
	}
	singlePass := analysis.FitsSinglePass
	if opts.ForceSinglePass {
		singlePass = true
	}
	if opts.ForceMultiPass {
		singlePass = false
	}
	if singlePass {
		return []models.Pass{{
			Index:       0,
			Files:       analyzed,
			TokenBudget: analysis.UsableBudget,
			FileTokens:  analysis.TotalTokens,
		}}, nil
	}
	return chunker.Plan(analyzed, analysis, profile, opts.ContextMaintenanceFactor)
}
