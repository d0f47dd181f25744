package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/steelworks/lotline/internal/compiler"
	"github.com/steelworks/lotline/internal/engine"
	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading source specs from a directory.
type LoadResult struct {
	Specs     []model.SourceSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles CUE source specs from a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	// Extract source specs
	sourcesVal := value.LookupPath(cue.ParsePath("source"))
	if sourcesVal.Exists() {
		iter, iterErr := sourcesVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating sources: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				spec, compileErr := compiler.CompileSource(iter.Value())
				if compileErr != nil {
					loadErr := convertCompileError(compileErr, "source."+iter.Label())
					errs = append(errs, loadErr)
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Specs = append(result.Specs, *spec)
			}
		}
	}

	// Check if we found anything
	if len(result.Specs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no sources found in specs"})
	}

	// Cross-spec schema rules (unique names, key fields mapped)
	for _, verr := range compiler.ValidateSet(result.Specs) {
		errs = append(errs, &LoadError{Code: verr.Code, Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message)})
		if mode == LoadModeFailFast {
			return result, errs
		}
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Field-level validation codes live in the compiler package; load-time
// codes above cover everything before compilation starts.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return compiler.ErrSourceNameEmpty
	case field == "stream":
		return compiler.ErrInvalidStream
	case field == "format":
		return compiler.ErrInvalidFormat
	case field == "fields":
		return compiler.ErrSourceNoFields
	case strings.HasPrefix(field, "fields."):
		return compiler.ErrEmptyAliases
	default:
		return ErrCodeGeneric
	}
}

// resolveSpecs returns the source specs the command should run under:
// the compiled contents of --specs when given, the embedded defaults
// otherwise. Fail-fast; commands that want every spec problem at once use
// LoadSpecs directly.
func resolveSpecs(opts *RootOptions) ([]model.SourceSpec, error) {
	if opts.SpecsDir == "" {
		specs, err := compiler.DefaultSpecs()
		if err != nil {
			return nil, fmt.Errorf("built-in source specs: %w", err)
		}
		return specs, nil
	}

	loadResult, loadErrors := LoadSpecs(opts.SpecsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}
	return loadResult.Specs, nil
}

// findSpec selects one spec by source name, falling back to the stream
// name when exactly one spec serves that stream.
func findSpec(specs []model.SourceSpec, name string) (model.SourceSpec, error) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, nil
		}
	}

	var streamMatches []model.SourceSpec
	for _, spec := range specs {
		if string(spec.Stream) == name {
			streamMatches = append(streamMatches, spec)
		}
	}
	if len(streamMatches) == 1 {
		return streamMatches[0], nil
	}
	if len(streamMatches) > 1 {
		return model.SourceSpec{}, fmt.Errorf("source %q is ambiguous: %d specs serve that stream", name, len(streamMatches))
	}

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return model.SourceSpec{}, fmt.Errorf("unknown source %q (have: %s)", name, strings.Join(names, ", "))
}

// openEngine opens the database and builds an engine on the system clock.
func openEngine(opts *RootOptions, engineOpts ...engine.EngineOption) (*store.Store, *engine.Engine, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	eng := engine.New(st, engine.SystemClock{}, engine.UUIDv7Generator{}, engineOpts...)
	return st, eng, nil
}
