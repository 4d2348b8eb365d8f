package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/server"
	"github.com/jonathan/jobscout/internal/wiring"
)

var (
	servePort       int
	serveRunTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing /search, /search/stream and, when a database is
configured, the /runs history endpoints. Setting JWT_SECRET enables bearer authentication.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080, or PORT)")
	serveCmd.Flags().DurationVar(&serveRunTimeout, "run-timeout", 0, "Abort a search after this long (default: no limit)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadValidConfig(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("port") {
			c.Port = servePort
		}
		if cmd.Flags().Changed("run-timeout") {
			c.RunTimeoutSeconds = int(serveRunTimeout / time.Second)
		}
	})
	if err != nil {
		return err
	}

	jwtCfg, err := config.OptionalJWTConfig()
	if err != nil {
		return fmt.Errorf("invalid JWT configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	srv := server.New(rt.Orchestrator, rt.Store, server.Config{
		Port:       cfg.Port,
		JWT:        jwtCfg,
		RunTimeout: time.Duration(cfg.RunTimeoutSeconds) * time.Second,
	})
	return srv.Start(ctx)
}
