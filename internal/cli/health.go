package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/engine"
	"github.com/steelworks/lotline/internal/model"
)

// HealthOptions holds flags for the health command.
type HealthOptions struct {
	*RootOptions
	StaleAfterHours int
}

// NewHealthCommand creates the health command.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HealthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report source freshness",
		Long: `Report the refresh health of every recorded source.

A source whose last successful stamp is older than the threshold reports
Stale regardless of the status stored on it, so a feed that silently
stopped arriving still surfaces.

Exit codes:
  0 - Every source is Healthy
  1 - At least one source is Stale or Error
  2 - Command error (database)

Examples:
  lotline health --db ./lotline.db
  lotline health --stale-after 48 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.StaleAfterHours, "stale-after", 24, "hours before a quiet source reports Stale")

	return cmd
}

func runHealth(opts *HealthOptions, cmd *cobra.Command) error {
	if opts.StaleAfterHours <= 0 {
		return NewExitError(ExitCommandError, "--stale-after must be a positive number of hours")
	}
	staleAfter := time.Duration(opts.StaleAfterHours) * time.Hour

	st, eng, err := openEngine(opts.RootOptions, engine.WithStaleThreshold(staleAfter))
	if err != nil {
		return err
	}
	defer st.Close()

	health, err := eng.Health(context.Background())
	if err != nil {
		return WrapExitError(ExitFailure, "health check failed", err)
	}

	unhealthy := 0
	for _, h := range health {
		if h.Status != model.HealthHealthy {
			unhealthy++
		}
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: health}
		if unhealthy > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_UNHEALTHY",
				Message: fmt.Sprintf("%d source(s) not healthy", unhealthy),
			}
		}
		if err := outputJSON(cmd, response); err != nil {
			return err
		}
		if unhealthy > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d source(s) not healthy", unhealthy))
		}
		return nil
	}

	w := cmd.OutOrStdout()
	if len(health) == 0 {
		fmt.Fprintln(w, "No sources recorded yet. Run ingest or refresh first.")
		return nil
	}

	for _, h := range health {
		mark := "✓"
		if h.Status != model.HealthHealthy {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %-20s %-8s last updated %s\n",
			mark, h.SourceName, h.Status, h.LastUpdated.UTC().Format(time.RFC3339))
	}

	if unhealthy > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d source(s) not healthy", unhealthy))
	}
	return nil
}
