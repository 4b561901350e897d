package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wpdiag",
	Short: "WordPress diagnostic snapshot evaluator",
	Long: `wpdiag scores a WordPress diagnostic snapshot offline.

It reads a snapshot JSON document (timing samples, query log, cron table, update
metadata, error log lines and cache facts), runs every evaluator and prints a
summary. Sections whose facts are missing are shown as N/A.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
