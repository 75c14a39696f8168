package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/reviewpass/internal/config"
	"github.com/reviewpass/internal/logging"
	"github.com/reviewpass/internal/orchestrator"
)

// EstimateCommand returns the estimate command
func EstimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Plan the passes and project the cost of a review without calling the provider",
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
			&cli.Float64Flag{
				Name:  "context-factor",
				Usage: "Fraction of the context window reserved for carried-over review context",
			},
			&cli.Float64Flag{
				Name:  "output-ratio",
				Usage: "Assumed output tokens per input token for the cost projection",
			},
		},
		ArgsUsage: "PATH [PATH...]",
		Action:    runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
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

	opts := orchestrator.Options{
		SafetyMarginFactor:       cfg.Review.SafetyMarginFactor,
		ContextMaintenanceFactor: cfg.Review.ContextMaintenanceFactor,
		AssumedOutputRatio:       cfg.Review.AssumedOutputRatio,
	}
	if c.IsSet("context-factor") {
		opts.ContextMaintenanceFactor = c.Float64("context-factor")
	}
	if c.IsSet("output-ratio") {
		opts.AssumedOutputRatio = c.Float64("output-ratio")
	}

	orch := orchestrator.New(cfg.BuildRegistry(), nil, orchestrator.Config{})
	estimate, analysis, err := orch.Estimate(context.Background(), files, modelID, opts)
	if err != nil {
		return fmt.Errorf("estimate failed: %w", err)
	}

	fmt.Printf("%d files, %d tokens total, usable budget %d tokens\n",
		len(files), analysis.TotalTokens, analysis.UsableBudget)
	if analysis.FitsSinglePass {
		fmt.Println("Everything fits in a single pass.")
	} else {
		fmt.Printf("Split across %d passes.\n", len(estimate.Passes))
	}
	for _, path := range analysis.OversizedFiles {
		fmt.Printf("Warning: %s alone exceeds the usable budget\n", path)
	}

	fmt.Println()
	printEstimate(estimate)
	return nil
}
