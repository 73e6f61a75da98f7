package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - memory-augmented chat proxy for the Gemini API",
	Long: `Ganymede is a chat proxy that sits between a browser client and the
Gemini API.

It provides:
  - Prompt assembly from a persistent, freshness-gated memory record
  - SSE streaming relay with a fallback-once policy on quota exhaustion
  - Background distillation of conversation history into memory
  - A SQLite transcript store with scheduled retention pruning`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
