package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/normalize"
	"github.com/steelworks/lotline/internal/store"
)

// ReportOptions holds flags shared by the report subcommands.
type ReportOptions struct {
	*RootOptions
	From string
	To   string
}

// NewReportCommand creates the report command and its subcommands.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate reports over reconciled lots",
		Long: `Read-only aggregate reports over the reconciled database.

Subcommands:
  line-health   production by line and ISO week
  defect-trend  defect volume by type and inspection date
  integrity     unresolved flag counts by type and severity`,
	}

	cmd.AddCommand(newLineHealthCommand(rootOpts))
	cmd.AddCommand(newDefectTrendCommand(rootOpts))
	cmd.AddCommand(newIntegrityCommand(rootOpts))

	return cmd
}

func newLineHealthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "line-health",
		Short: "Production by line and ISO week",
		Long: `Aggregate production by line and ISO week: lots produced, units
planned and actual, downtime, lots with line issues, and lots carrying
integrity issues.

Examples:
  lotline report line-health
  lotline report line-health --from 2026-01-01 --to 2026-02-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineHealth(opts, cmd)
		},
	}

	addRangeFlags(cmd, opts)
	return cmd
}

func newDefectTrendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "defect-trend",
		Short: "Defect volume by type and inspection date",
		Long: `Aggregate failed or defect-carrying inspections by defect type and
inspection date.

Examples:
  lotline report defect-trend
  lotline report defect-trend --from 2026-02-01 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefectTrend(opts, cmd)
		},
	}

	addRangeFlags(cmd, opts)
	return cmd
}

func newIntegrityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "integrity",
		Short:         "Unresolved flag counts by type and severity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntegrity(rootOpts, cmd)
		},
	}

	return cmd
}

// addRangeFlags attaches the shared date-range flags.
func addRangeFlags(cmd *cobra.Command, opts *ReportOptions) {
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest date to include (any feed spelling)")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest date to include (any feed spelling)")
}

// dateRange canonicalizes the range bounds so they compare against stored
// ISO dates. Empty bounds stay open-ended.
func dateRange(opts *ReportOptions) (from, to string, err error) {
	if opts.From != "" {
		canonical, ok := normalize.CanonicalDate(opts.From)
		if !ok {
			return "", "", NewExitError(ExitCommandError, fmt.Sprintf("unparseable --from date %q", opts.From))
		}
		from = canonical
	}
	if opts.To != "" {
		canonical, ok := normalize.CanonicalDate(opts.To)
		if !ok {
			return "", "", NewExitError(ExitCommandError, fmt.Sprintf("unparseable --to date %q", opts.To))
		}
		to = canonical
	}
	return from, to, nil
}

func runLineHealth(opts *ReportOptions, cmd *cobra.Command) error {
	from, to, err := dateRange(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, err := st.LineHealth(context.Background(), from, to)
	if err != nil {
		return WrapExitError(ExitFailure, "line health report failed", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: rows})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "=== Line Health ===")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no rows)")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s: %d lot(s), %d/%d units, %d min downtime, %d line issue(s), %d integrity lot(s)\n",
			r.LineID, r.Week, r.Lots, r.UnitsPlanned, r.UnitsActual,
			r.DowntimeMinutes, r.LineIssueLots, r.IntegrityLots)
	}
	return nil
}

func runDefectTrend(opts *ReportOptions, cmd *cobra.Command) error {
	from, to, err := dateRange(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, err := st.DefectTrend(context.Background(), from, to)
	if err != nil {
		return WrapExitError(ExitFailure, "defect trend report failed", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: rows})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "=== Defect Trend ===")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no rows)")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s: %d inspection(s), %d defect(s)\n",
			r.DefectType, r.InspectionDate, r.Inspections, r.Defects)
	}
	return nil
}

func runIntegrity(opts *RootOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rows, err := st.IntegritySummary(context.Background())
	if err != nil {
		return WrapExitError(ExitFailure, "integrity report failed", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: rows})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "=== Integrity Summary ===")
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no unresolved flags)")
		return nil
	}
	writeIntegrityRows(w, rows)
	return nil
}

func writeIntegrityRows(w io.Writer, rows []store.IntegritySummaryRow) {
	for _, r := range rows {
		fmt.Fprintf(w, "  [%s] %s: %d\n", r.Severity, r.FlagType, r.Count)
	}
}
