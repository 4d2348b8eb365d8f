package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/mcpserver"
	"github.com/jonathan/jobscout/internal/wiring"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the find_jobs tool over MCP on stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout. Logs go to stderr so they
never corrupt the protocol stream.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadValidConfig(cmd, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	return mcpserver.NewServer(rt.Orchestrator, version).Run(ctx)
}
