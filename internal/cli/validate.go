package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/model"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the integrity rule pass",
		Long: `Run the ordered integrity rules over every lot in the database.

Rules run in a fixed order: PendingInspection, OrphanedShipment,
DateConflict. Each rule is idempotent; re-running over unchanged data
creates no new flags. Per-lot storage failures are reported per rule and
do not abort the pass.

Examples:
  lotline validate --db ./lotline.db
  lotline validate --db ./lotline.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	st, eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	rules, err := eng.Validate(context.Background())
	if err != nil {
		if opts.Format == "json" {
			_ = outputJSON(cmd, CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeGeneric, Message: err.Error()},
			})
		}
		return WrapExitError(ExitFailure, "validation pass failed", err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, CLIResponse{Status: "ok", Data: rules})
	}

	writeRulesText(cmd.OutOrStdout(), rules)
	return nil
}

// writeRulesText prints one line per rule with its per-lot errors indented.
func writeRulesText(w io.Writer, rules []model.RuleResult) {
	for _, rr := range rules {
		fmt.Fprintf(w, "%s: %d flag(s) created, %d skipped\n", rr.Rule, rr.FlagsCreated, rr.FlagsSkipped)
		for _, msg := range rr.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}
