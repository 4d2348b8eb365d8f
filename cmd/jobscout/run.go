package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/observability"
	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/report"
	"github.com/jonathan/jobscout/internal/types"
	"github.com/jonathan/jobscout/internal/wiring"
)

var runCommand = &cobra.Command{
	Use:   "run [query...]",
	Short: "Run one job search and print the report",
	Long: `Runs the company finder, job finder and commute guide for one query.

The query is either free text (--query or positional words) or the three form fields
--role, --experience and --location, which are composed into the same sentence the
dashboard form sends.`,
	Example: `  jobscout run "Data Scientist jobs in Hyderabad for freshers"
  jobscout run --role "Backend Engineer" --experience experienced --location Pune --format markdown`,
	RunE: runSearchCmd,
}

var (
	runQuery      string
	runRole       string
	runExperience string
	runLocation   string
	runFormat     string
	runVerbose    bool
	runCompanies  int
	runSummarize  bool
	runTimeout    time.Duration
)

func init() {
	runCommand.Flags().StringVarP(&runQuery, "query", "q", "", "Free-text search query")
	runCommand.Flags().StringVarP(&runRole, "role", "r", "", "Job role (form field)")
	runCommand.Flags().StringVarP(&runExperience, "experience", "e", "", "fresher or experienced (form field)")
	runCommand.Flags().StringVarP(&runLocation, "location", "l", "", "City (form field)")
	runCommand.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format: text, markdown or json")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print each stage's output as it completes")
	runCommand.Flags().IntVar(&runCompanies, "companies", 0, "Companies per category (default 10)")
	runCommand.Flags().BoolVar(&runSummarize, "summarize", false, "Ask the model for the closing commentary")
	runCommand.Flags().DurationVar(&runTimeout, "timeout", 0, "Abort the search after this long (e.g. 10m)")

	rootCmd.AddCommand(runCommand)
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	if err := checkFormat(runFormat); err != nil {
		return err
	}
	text, query, err := searchInput(runQuery, runRole, runExperience, runLocation, args)
	if err != nil {
		return err
	}

	cfg, err := loadValidConfig(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("companies") {
			c.CompaniesPerCategory = runCompanies
		}
		if cmd.Flags().Changed("summarize") {
			c.Summarize = runSummarize
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	var printer *observability.Printer
	var opts []wiring.Option
	if runVerbose {
		printer = observability.NewPrinter(cmd.ErrOrStderr())
		opts = append(opts, wiring.WithProgress(func(e pipeline.ProgressEvent) {
			printer.PrintProgress(e.Step, e.Message, e.Content)
		}))
	}

	rt, err := wiring.Build(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	var resp *pipeline.Response
	if query != nil {
		resp, err = rt.Orchestrator.Run(ctx, *query)
	} else {
		resp, err = rt.Orchestrator.Execute(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if printer != nil {
		printer.PrintOutcome(resp.Result)
	}
	return writeResponse(cmd.OutOrStdout(), resp, runFormat)
}

// searchInput returns either the structured query built from the form fields or the free text.
func searchInput(text, role, experience, location string, args []string) (string, *types.Query, error) {
	if role != "" || experience != "" || location != "" {
		if text != "" || len(args) > 0 {
			return "", nil, fmt.Errorf("give either a free-text query or --role, --experience and --location, not both")
		}
		if role == "" || experience == "" || location == "" {
			return "", nil, fmt.Errorf("--role, --experience and --location must be given together")
		}
		q, err := types.NewQuery(role, experience, location)
		if err != nil {
			return "", nil, fmt.Errorf("invalid search form: %w", err)
		}
		return "", &q, nil
	}

	if text == "" {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, fmt.Errorf("a query is required: pass --query, positional words, or --role, --experience and --location")
	}
	return text, nil, nil
}

func checkFormat(format string) error {
	if format == "json" {
		return nil
	}
	_, err := report.ParseMode(format)
	return err
}

// writeResponse prints a finished search in the requested format.
func writeResponse(w io.Writer, resp *pipeline.Response, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	mode, err := report.ParseMode(format)
	if err != nil {
		return err
	}
	text := resp.FinalText
	if resp.Result != nil {
		text = report.Render(resp.Result, mode)
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(text, "\n")); err != nil {
		return err
	}
	if resp.RunID != "" {
		_, err = fmt.Fprintf(w, "\nrun: %s\n", resp.RunID)
	}
	return err
}
