package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/wpdiag/internal/api"
	"github.com/miradorstack/wpdiag/internal/config"
	"github.com/miradorstack/wpdiag/internal/engine"
	"github.com/miradorstack/wpdiag/internal/utils"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a snapshot file and print a summary",
	Long: `Evaluate a snapshot JSON file with the same evaluators the engine serves.

The full report can be written as JSON with --out. Thresholds and the error rule
pack come from --config (or WPDIAG_CONFIG) when given; --rules overrides the rule
pack path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotPath, _ := cmd.Flags().GetString("snapshot")
		outPath, _ := cmd.Flags().GetString("out")
		rulesPath, _ := cmd.Flags().GetString("rules")
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if rulesPath != "" {
			cfg.Rules.Path = rulesPath
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger := utils.NewLoggerTo(cmd.ErrOrStderr(), level, false)

		f, err := os.Open(snapshotPath)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		snapshot, err := api.DecodeSnapshot(f)
		if err != nil {
			return err
		}

		classifier, err := engine.NewClassifier(cfg.Rules.Path, logger)
		if err != nil {
			return err
		}
		report := engine.NewEvaluator(logger, cfg.Thresholds.Engine(), classifier).Evaluate(snapshot)

		if outPath != "" {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}

		renderSummary(cmd.OutOrStdout(), report)
		if outPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\nFull report written to %s\n", outPath)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringP("snapshot", "s", "", "Snapshot JSON file")
	evaluateCmd.Flags().StringP("out", "o", "", "Write the full JSON report to this file")
	evaluateCmd.Flags().String("rules", "", "Error pattern rule pack (YAML)")
	evaluateCmd.Flags().String("config", "", "Configuration file")
	evaluateCmd.Flags().BoolP("verbose", "v", false, "Log skipped records and evaluator details")
	_ = evaluateCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(evaluateCmd)
}
