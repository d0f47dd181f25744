package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/model"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Ingest one source file onto lots",
		Long: `Read one source's file and reconcile its rows onto lots.

The source is addressed by its spec name or, when unambiguous, by its
stream (production, quality, shipping). Rows that cannot be used are
recorded and skipped; they do not abort the batch.

Exit codes:
  0 - Batch ran (row-level errors are reported, not fatal)
  1 - Source file could not be read
  2 - Command error (unknown source, broken specs, database)

Examples:
  lotline ingest production --db ./lotline.db
  lotline ingest "Quality Inspection" --specs ./specs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	return cmd
}

func runIngest(opts *IngestOptions, source string, cmd *cobra.Command) error {
	specs, err := resolveSpecs(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load source specs", err)
	}

	spec, err := findSpec(specs, source)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot select source", err)
	}

	st, eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := eng.IngestFile(context.Background(), spec)
	if err != nil {
		if opts.Format == "json" {
			_ = outputJSON(cmd, CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeGeneric, Message: err.Error()},
			})
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to ingest %s", spec.Name), err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	writeIngestText(cmd.OutOrStdout(), result)
	return nil
}

// writeIngestText prints one batch summary with its row errors indented.
func writeIngestText(w io.Writer, res model.IngestResult) {
	if len(res.Errors) == 0 {
		fmt.Fprintf(w, "%s: %d row(s) read, %d ingested\n", res.Source, res.RowsRead, res.RowsIngested)
		return
	}

	fmt.Fprintf(w, "%s: %d row(s) read, %d ingested, %d error(s)\n",
		res.Source, res.RowsRead, res.RowsIngested, len(res.Errors))
	for _, issue := range res.Errors {
		writeRowIssue(w, issue)
	}
}

// writeRowIssue prints one skipped row. Batch-level failures carry no row
// number and print without one.
func writeRowIssue(w io.Writer, issue model.RowIssue) {
	switch {
	case issue.Row > 0 && issue.Field != "":
		fmt.Fprintf(w, "  row %d [%s]: %s\n", issue.Row, issue.Field, issue.Message)
	case issue.Row > 0:
		fmt.Fprintf(w, "  row %d: %s\n", issue.Row, issue.Message)
	default:
		fmt.Fprintf(w, "  %s\n", issue.Message)
	}
}
