// Package main provides the entry point for the Recruiter Agent API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recruiter_agent",
	Short: "Recruiter Agent HTTP API Server",
	Long: `Recruiter Agent sources, ranks and pitches candidates for a job opening with a pipeline of LLM agents,
streaming progress live while recruiters review the best matches first.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
