package main

import (
	"fmt"

	"variation-pipeline/internal/model"
	"variation-pipeline/internal/pipeline"
	"variation-pipeline/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCmd runs all three stages and records the run
var runCmd = &cobra.Command{
	Use:   "run [identifiers...]",
	Short: "Fetch, flatten and partition",
	Long: `Run the full pipeline. Identifiers given as arguments replace the spreadsheet.

Per-identifier and per-file failures are logged and counted but do not change
the exit status; only configuration, input and cancellation errors do.`,
	RunE: runPipeline,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Download variation JSON for each identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}
		ids := args
		if len(ids) == 0 {
			if ids, err = pipeline.ReadIdentifiers(cfg.Input.Path, cfg.Input.Column); err != nil {
				return err
			}
		}
		if err := p.Artifacts().EnsureOutputDirsExist(); err != nil {
			return err
		}
		printStage(cmd, p.FetchAll(cmd.Context(), ids))
		return cmd.Context().Err()
	},
}

var flattenCmd = &cobra.Command{
	Use:   "flatten",
	Short: "Flatten every fetched JSON file into a CSV table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}
		printStage(cmd, p.FlattenAll(cmd.Context()))
		return cmd.Context().Err()
	},
}

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Split every CSV table into one file per type",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}
		printStage(cmd, p.PartitionAll(cmd.Context()))
		return cmd.Context().Err()
	},
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Store.Path != "" {
		if err := store.InitDB(cfg.Store.Path); err != nil {
			logger.Warn("⚠️ Run history disabled", zap.String("path", cfg.Store.Path), zap.Error(err))
		} else {
			defer store.Close()
		}
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	var summary *model.RunSummary
	if len(args) > 0 {
		summary, err = p.RunWithIdentifiers(cmd.Context(), runID, args)
	} else {
		summary, err = p.Run(cmd.Context(), runID)
	}
	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s %s\n", summary.RunID, summary.Status)
		for _, res := range []model.StageResult{summary.Fetch, summary.Flatten, summary.Partition} {
			if res.Stage != "" {
				printStage(cmd, res)
			}
		}
	}
	return err
}

func printStage(cmd *cobra.Command, res model.StageResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "%-10s processed=%d succeeded=%d failed=%d skipped=%d\n",
		res.Stage, res.Processed, res.Succeeded, res.Failed, res.Skipped)
}
