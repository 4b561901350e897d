package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miradorstack/wpdiag/internal/engine"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the error-log classification table",
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesPath, _ := cmd.Flags().GetString("rules")

		classifier, err := engine.NewClassifier(rulesPath, nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, rule := range classifier.Rules() {
			fmt.Fprintf(out, "%s %s\n", cyan(rule.Key), priorityColor(rule.Priority)("["+string(rule.Priority)+"]"))
			fmt.Fprintf(out, "  pattern: %s\n", gray(rule.Pattern))
			fmt.Fprintf(out, "  %s\n", rule.Description)
			for _, step := range rule.Remediation {
				fmt.Fprintf(out, "    - %s\n", step)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	patternsCmd.Flags().String("rules", "", "Error pattern rule pack (YAML) merged over the defaults")
	rootCmd.AddCommand(patternsCmd)
}
