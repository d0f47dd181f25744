package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/model"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Code   string
	Status string
	Limit  int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search lots by code and status",
		Long: `List lots whose code contains a substring, optionally narrowed to a
derived status, in key order.

Status matches the derived value shown by the status command, including
literal shipment statuses carried in from the shipping feed.

Examples:
  lotline search --code LOT-9
  lotline search --status "Data Conflict" --limit 20
  lotline search --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "lot code substring")
	cmd.Flags().StringVar(&opts.Status, "status", "", "derived status to match exactly")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum lots to return (0 = no limit)")

	return cmd
}

func runSearch(opts *SearchOptions, cmd *cobra.Command) error {
	st, eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	// The status filter works on the derived view, so it applies after the
	// store query; the limit then applies to what survives.
	limit := opts.Limit
	if opts.Status != "" {
		limit = 0
	}

	details, err := eng.SearchLots(context.Background(), opts.Code, limit)
	if err != nil {
		return WrapExitError(ExitFailure, "lot search failed", err)
	}

	if opts.Status != "" {
		details = filterByStatus(details, opts.Status)
		if opts.Limit > 0 && len(details) > opts.Limit {
			details = details[:opts.Limit]
		}
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: details})
	}

	w := cmd.OutOrStdout()
	if len(details) == 0 {
		fmt.Fprintln(w, "No lots found.")
		return nil
	}

	for _, detail := range details {
		fmt.Fprintf(w, "%-24s %-20s %d flag(s)\n", detail.Lot.Key(), detail.Status, len(detail.Flags))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d lot(s)\n", len(details))
	return nil
}

// filterByStatus keeps the lots whose derived status matches exactly.
func filterByStatus(details []model.LotDetail, status string) []model.LotDetail {
	filtered := make([]model.LotDetail, 0, len(details))
	for _, detail := range details {
		if string(detail.Status) == status {
			filtered = append(filtered, detail)
		}
	}
	return filtered
}
