package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/model"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ingest every source, then validate",
		Long: `Run the full pipeline: ingest every configured source in stream order
(production, quality, shipping), then run the integrity rule pass.

A source whose file cannot be read is recorded and skipped; the other
sources still load and validation still runs. The pass is idempotent, so
it is safe to schedule (the original deployment runs it daily).

Exit codes:
  0 - Pass completed (row-level errors are reported, not fatal)
  1 - One or more sources failed to load outright
  2 - Command error (broken specs, database)

Examples:
  lotline refresh --db ./lotline.db
  lotline refresh --db ./lotline.db --specs ./specs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(rootOpts, cmd)
		},
	}

	return cmd
}

func runRefresh(opts *RootOptions, cmd *cobra.Command) error {
	specs, err := resolveSpecs(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load source specs", err)
	}

	st, eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := eng.Refresh(context.Background(), specs)
	if err != nil {
		if opts.Format == "json" {
			_ = outputJSON(cmd, CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeGeneric, Message: err.Error()},
				RunID:  result.RunID,
			})
		}
		return WrapExitError(ExitFailure, "refresh failed", err)
	}

	failed := countFailedSources(result.Sources)

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SOURCE_FAILED",
				Message: fmt.Sprintf("%d source(s) failed to load", failed),
			}
		}
		if err := outputJSON(cmd, response); err != nil {
			return err
		}
		if failed > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d source(s) failed to load", failed))
		}
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Sources ===")
	for _, src := range result.Sources {
		writeIngestText(w, src)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Rules ===")
	writeRulesText(w, result.Rules)

	if failed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✗ %d source(s) failed to load\n", failed)
		return NewExitError(ExitFailure, fmt.Sprintf("%d source(s) failed to load", failed))
	}
	return nil
}

// countFailedSources counts sources that failed outright, which the
// refresh pass records as an issue without a row number.
func countFailedSources(sources []model.IngestResult) int {
	failed := 0
	for _, src := range sources {
		for _, issue := range src.Errors {
			if issue.Row == 0 {
				failed++
				break
			}
		}
	}
	return failed
}
