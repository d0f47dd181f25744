package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steelworks/lotline/internal/compiler"
	"github.com/steelworks/lotline/internal/model"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Show the compiled source specs",
		Long: `Compile and show the source specs the other commands would run under.

With --specs, every spec problem in the directory is reported at once,
so a broken spec set can be fixed in one pass. Without --specs, the
built-in specs for the three standard feeds are shown.

Exit codes:
  0 - Specs compiled cleanly
  2 - Spec directory broken or specs invalid

Examples:
  lotline sources
  lotline sources --specs ./specs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(rootOpts, cmd)
		},
	}

	return cmd
}

func runSources(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.SpecsDir == "" {
		specs, err := compiler.DefaultSpecs()
		if err != nil {
			return outputSourcesError(formatter, ErrCodeGeneric, fmt.Sprintf("built-in source specs: %v", err))
		}
		return outputSourcesSuccess(formatter, specs)
	}

	loadResult, loadErrors := LoadSpecs(opts.SpecsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputSourcesError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputSourcesError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, opts.SpecsDir)

	if len(loadErrors) > 0 {
		return outputSourcesErrors(formatter, loadErrors)
	}

	return outputSourcesSuccess(formatter, loadResult.Specs)
}

// outputSourcesSuccess prints the compiled specs.
func outputSourcesSuccess(formatter *OutputFormatter, specs []model.SourceSpec) error {
	if formatter.Format == "json" {
		return formatter.Success(specs)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d source(s)\n\n", len(specs))
	for _, spec := range specs {
		writeSourceSpecText(w, spec)
	}
	return nil
}

// writeSourceSpecText prints one spec with its field mappings indented.
func writeSourceSpecText(w io.Writer, spec model.SourceSpec) {
	fmt.Fprintf(w, "%s (%s)\n", spec.Name, spec.Stream)
	fmt.Fprintf(w, "  %s file: %s", spec.Format, spec.Location)
	if spec.Sheet != "" {
		fmt.Fprintf(w, ", sheet %q", spec.Sheet)
	}
	fmt.Fprintln(w)
	for _, field := range spec.Fields {
		fmt.Fprintf(w, "  %-20s ← %s", field.Target, strings.Join(field.Aliases, " | "))
		if field.Default != "" {
			fmt.Fprintf(w, " (default %q)", field.Default)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// outputSourcesError reports a single spec failure with exit code 2.
func outputSourcesError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputSourcesErrors reports every collected spec problem, then fails
// with exit code 2.
func outputSourcesErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseSpecError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := outputJSONValue(formatter.Writer, CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("spec compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Spec compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		code, message := parseSpecError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("spec compilation failed with %d error(s)", len(errs)))
}

// parseSpecError extracts a code and message from a load or compile error.
func parseSpecError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
