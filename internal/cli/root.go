package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite database path
	SpecsDir string // source spec directory; empty means built-in defaults
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultDatabase is the database path used when --db is not given.
const DefaultDatabase = "./lotline.db"

// NewRootCommand creates the root command for the lotline CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lotline",
		Short: "lotline - manufacturing lot reconciliation",
		Long: `Reconciles production, quality, and shipping feeds onto unified lots,
validates the result with cross-source integrity rules, and reports on
lot status and source health.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.SpecsDir, "specs", "", "source spec directory (default: built-in specs)")

	// Add subcommands
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewSourcesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogging routes engine logs to stderr so they never corrupt
// command output on stdout.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
