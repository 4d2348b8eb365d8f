package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and delete stored search runs",
	Long:  `Lists, shows and deletes the runs recorded in the database given by --db-url or DATABASE_URL.`,
}

var (
	runsLimit    int
	runsOffset   int
	runsStatus   string
	runsOutcome  string
	runsLocation string
	runsStep     string
)

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			runs, err := st.ListRuns(ctx, store.RunFilters{
				Status:   runsStatus,
				Outcome:  runsOutcome,
				Location: runsLocation,
				Limit:    runsLimit,
				Offset:   runsOffset,
			})
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its step artifacts as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			return showRun(ctx, cmd.OutOrStdout(), st, id, runsStep)
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		return withStore(cmd, func(ctx context.Context, st store.Store) error {
			if err := st.DeleteRun(ctx, id); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", id)
			return err
		})
	},
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (at most 100)")
	runsListCmd.Flags().IntVar(&runsOffset, "offset", 0, "Runs to skip")
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Only runs with this status (running, completed, failed)")
	runsListCmd.Flags().StringVar(&runsOutcome, "outcome", "", "Only runs with this outcome")
	runsListCmd.Flags().StringVar(&runsLocation, "location", "", "Only runs for this location")
	runsShowCmd.Flags().StringVar(&runsStep, "step", "", "Print only the artifact of this step")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st store.Store) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("no run history configured: set --db-url or DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(ctx, st)
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no runs")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Role", "Experience", "Location", "Strategy", "Status", "Outcome"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID.String(),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Role,
			r.ExperienceLevel,
			r.Location,
			r.Strategy,
			r.Status,
			dash(r.Outcome),
		})
	}
	t.Render()
}

type runDetail struct {
	*store.Run
	CompletedSteps []string         `json:"completed_steps"`
	PendingSteps   []string         `json:"pending_steps"`
	Artifacts      []store.Artifact `json:"artifacts"`
}

func showRun(ctx context.Context, w io.Writer, st store.Store, id uuid.UUID, step string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if step != "" {
		if _, ok := steps.StepRegistry[step]; !ok {
			return fmt.Errorf("unknown step %q (want one of %v)", step, steps.Ordered())
		}
		a, err := st.GetArtifact(ctx, id, step)
		if err != nil {
			return err
		}
		return enc.Encode(a.Content)
	}

	run, err := st.GetRun(ctx, id)
	if err != nil {
		return err
	}
	done, pending, err := steps.Progress(ctx, st, id)
	if err != nil {
		return err
	}
	artifacts, err := st.ListArtifacts(ctx, id)
	if err != nil {
		return err
	}
	return enc.Encode(runDetail{Run: run, CompletedSteps: done, PendingSteps: pending, Artifacts: artifacts})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
