// Package main provides the jobscout command line: one-shot searches, the HTTP API,
// the MCP server, and run history management.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Find companies, job openings and commute options",
	Long: `jobscout runs a three-stage search: it finds companies hiring for a role in a city,
looks for one matching opening per company, and describes how to get to each workplace.

Configuration is read from --config (JSON or YAML), then the environment (.env is loaded),
then built-in defaults. Flags override everything.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
