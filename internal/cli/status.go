package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/model"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <lot-code> <date>",
		Short: "Show one lot's records and derived status",
		Long: `Look up one lot by its composite key and show its attached records,
unresolved integrity flags, and derived status.

The key is normalized the way ingestion normalizes it, so the raw
spellings from any feed find the lot ("00LOT-9" with "02/10/2026"
addresses the same lot as "LOT-9" with "2026-02-10").

Exit codes:
  0 - Lot found
  1 - No such lot
  2 - Command error (unusable key, database)

Examples:
  lotline status LOT-9 2026-02-10 --db ./lotline.db
  lotline status 00LOT-9 02/10/2026 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, lotCode, date string, cmd *cobra.Command) error {
	st, eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	detail, err := eng.GetLotDetail(context.Background(), lotCode, date)
	if err != nil {
		return WrapExitError(ExitCommandError, "lot lookup failed", err)
	}

	if detail == nil {
		message := fmt.Sprintf("no lot found for %s / %s", lotCode, date)
		if opts.Format == "json" {
			_ = outputJSON(cmd, CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: "E_NOT_FOUND", Message: message},
			})
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), message)
		}
		return NewExitError(ExitFailure, message)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: detail})
	}

	writeLotDetailText(cmd.OutOrStdout(), detail)
	return nil
}

// writeLotDetailText prints the full lot picture in sections.
func writeLotDetailText(w io.Writer, detail *model.LotDetail) {
	fmt.Fprintf(w, "Lot: %s\n", detail.Lot.Key())
	fmt.Fprintf(w, "Status: %s\n", detail.Status)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Production ===")
	if detail.Production == nil {
		fmt.Fprintln(w, "  (no record)")
	} else {
		p := detail.Production
		line := p.LineID
		if line == "" {
			line = "?"
		}
		fmt.Fprintf(w, "  line %s: %d planned, %d actual, %d min downtime", line, p.UnitsPlanned, p.UnitsActual, p.DowntimeMinutes)
		if p.Shift != "" {
			fmt.Fprintf(w, ", shift %s", p.Shift)
		}
		if p.HasLineIssue {
			fmt.Fprint(w, " [line issue]")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Quality ===")
	if detail.Quality == nil {
		fmt.Fprintln(w, "  (no record)")
	} else {
		q := detail.Quality
		verdict := "fail"
		if q.IsPass {
			verdict = "pass"
		}
		fmt.Fprintf(w, "  inspected %s: %s", q.InspectionDate, verdict)
		if q.DefectType != "" {
			fmt.Fprintf(w, " (%s)", q.DefectType)
		}
		fmt.Fprintf(w, ", %d defect(s)", q.DefectCount)
		if q.InspectorID != "" {
			fmt.Fprintf(w, ", inspector %s", q.InspectorID)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Shipping ===")
	if detail.Shipping == nil {
		fmt.Fprintln(w, "  (no record)")
	} else {
		s := detail.Shipping
		fmt.Fprintf(w, "  shipped %s: %d unit(s), %s", s.ShipDate, s.QtyShipped, s.ShipmentStatus)
		if s.Destination != "" {
			fmt.Fprintf(w, ", to %s", s.Destination)
		}
		if s.Carrier != "" {
			fmt.Fprintf(w, ", via %s", s.Carrier)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Flags ===")
	if len(detail.Flags) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, flag := range detail.Flags {
			fmt.Fprintf(w, "  [%s] %s: %s (detected %s)\n",
				flag.Severity, flag.FlagType, flag.Description,
				flag.DetectedAt.UTC().Format(time.RFC3339))
		}
	}
}
