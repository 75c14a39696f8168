package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/reviewpass/internal/aiclient"
	"github.com/reviewpass/internal/config"
	"github.com/reviewpass/internal/logging"
	"github.com/reviewpass/internal/orchestrator"
	"github.com/reviewpass/pkg/models"
)

// ReviewCommand returns the review command
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review source files, splitting into multiple passes when they exceed the model's context window",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model to use, as provider:model",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output for this command",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail if any file exceeds the model's usable budget instead of warning",
			},
			&cli.BoolFlag{
				Name:  "single-pass",
				Usage: "Force everything into one pass even if the analysis says it will not fit",
			},
			&cli.BoolFlag{
				Name:  "multi-pass",
				Usage: "Force chunked planning even if everything fits in one pass",
			},
			&cli.Float64Flag{
				Name:  "context-factor",
				Usage: "Fraction of the context window reserved for carried-over review context",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Retries per pass on transient provider errors (-1 to disable)",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Directory for the per-run log file",
			},
		},
		ArgsUsage: "PATH [PATH...]",
		Action:    runReview,
	}
}

func runReview(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: at least one file or directory path")
	}

	logging.Setup(c.Bool("verbose"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	modelID := cfg.General.DefaultModel
	if override := c.String("model"); override != "" {
		modelID = override
	}

	reg := cfg.BuildRegistry()
	profile, err := reg.Lookup(modelID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := aiclient.New(ctx, profile, clientOptions(cfg, profile.Provider), log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}

	logDir := cfg.General.LogDir
	if override := c.String("log-dir"); override != "" {
		logDir = override
	}
	runLog, err := logging.NewRunLogger(logDir, uuid.NewString()[:8])
	if err != nil {
		log.Warn().Err(err).Msg("Run log unavailable, continuing without it")
	}
	defer runLog.Close()

	fmt.Printf("Reviewing %d files with %s\n", len(files), profile.ID())

	orch := orchestrator.New(reg, client, orchestrator.Config{RunLog: runLog})
	result, err := orch.Run(ctx, files, modelID, reviewOptions(c, cfg))

	if result != nil {
		printRunResult(result)
	}
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	if result != nil && result.Cancelled {
		fmt.Println("\nReview cancelled; results above cover the completed passes only.")
	}
	return nil
}

func reviewOptions(c *cli.Context, cfg *config.Config) orchestrator.Options {
	opts := orchestrator.Options{
		ForceSinglePass:          c.Bool("single-pass"),
		ForceMultiPass:           c.Bool("multi-pass"),
		Strict:                   c.Bool("strict") || cfg.Review.Strict,
		SafetyMarginFactor:       cfg.Review.SafetyMarginFactor,
		ContextMaintenanceFactor: cfg.Review.ContextMaintenanceFactor,
		AssumedOutputRatio:       cfg.Review.AssumedOutputRatio,
		MaxRetriesPerPass:        cfg.Review.MaxRetriesPerPass,
		OnProgress:               printProgress,
	}
	if c.IsSet("context-factor") {
		opts.ContextMaintenanceFactor = c.Float64("context-factor")
	}
	if c.IsSet("max-retries") {
		opts.MaxRetriesPerPass = c.Int("max-retries")
	}
	return opts
}

func clientOptions(cfg *config.Config, provider string) aiclient.Options {
	p := cfg.Providers[provider]
	return aiclient.Options{
		APIKey:            p.APIKey,
		BaseURL:           p.BaseURL,
		Temperature:       p.Temperature,
		RequestsPerMinute: p.RequestsPerMinute,
	}
}

func printProgress(ev models.ProgressEvent) {
	switch ev.Type {
	case models.ProgressPlanned:
		fmt.Printf("Planned %d passes\n", ev.TotalPasses)
	case models.ProgressPassStart:
		fmt.Printf("Pass %d/%d starting...\n", ev.PassIndex+1, ev.TotalPasses)
	case models.ProgressPassComplete:
		if ev.ETA > 0 {
			fmt.Printf("Pass %d/%d complete (%d tokens so far, ~%s remaining)\n",
				ev.PassIndex+1, ev.TotalPasses, ev.TokensSoFar, ev.ETA.Round(time.Second))
		} else {
			fmt.Printf("Pass %d/%d complete (%d tokens so far)\n",
				ev.PassIndex+1, ev.TotalPasses, ev.TokensSoFar)
		}
	case models.ProgressFailed:
		fmt.Printf("Review failed after %s: %v\n", ev.Elapsed.Round(time.Second), ev.Err)
	case models.ProgressCancelled:
		fmt.Printf("Review cancelled after %s\n", ev.Elapsed.Round(time.Second))
	}
}

func printRunResult(result *models.RunResult) {
	fmt.Println("\n=== Review Findings ===")
	if len(result.ConsolidatedFindings) == 0 {
		fmt.Println("No findings.")
	}
	for i, f := range result.ConsolidatedFindings {
		fmt.Printf("\n--- Finding %d ---\n", i+1)
		if f.FilePath != "" {
			fmt.Printf("File: %s, Line: %d\n", f.FilePath, f.Line)
		}
		fmt.Printf("Severity: %s\n", f.Severity)
		fmt.Printf("Title: %s\n", f.Title)
		if f.Detail != "" {
			fmt.Printf("Detail: %s\n", f.Detail)
		}
	}

	fmt.Println("\n=== Cost ===")
	printEstimate(result.CostEstimate)
	fmt.Printf("Completed %d passes in %s\n", len(result.PassResults), result.Duration.Round(time.Millisecond))
}

func printEstimate(est models.CostEstimate) {
	for _, p := range est.Passes {
		kind := "estimated"
		if p.Measured {
			kind = "measured"
		}
		fmt.Printf("Pass %d: %d input + %d output tokens, $%.4f (%s)\n",
			p.PassIndex+1, p.InputTokens, p.OutputTokens, p.TotalUSD(), kind)
	}
	kind := "estimated"
	if est.Measured {
		kind = "measured"
	}
	fmt.Printf("Total: $%.4f (%s)\n", est.TotalUSD, kind)
}
