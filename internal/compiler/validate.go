package compiler

import (
	"fmt"
	"strings"

	"github.com/steelworks/lotline/internal/model"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedSpecType = "E100" // unsupported spec type for validation

	// SourceSpec errors (E101-E109)
	ErrSourceNameEmpty = "E101" // name is required
	ErrSourceNoFields  = "E102" // at least one field mapping required
	ErrInvalidStream   = "E103" // unknown stream
	ErrInvalidFormat   = "E104" // unknown file format
	ErrDuplicateName   = "E105" // duplicate source name or field target
	ErrMissingKeyField = "E106" // composite identity field not mapped
	ErrEmptyAliases    = "E107" // field mapping with no usable headers
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// keyFields are the canonical fields every source must map. Together they
// form the composite lot identity.
var keyFields = []string{"lot_code", "date"}

// Validate validates compiled source specs against schema rules.
// Returns all errors found (does not fail-fast).
// Supports SourceSpec values and spec sets.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *model.SourceSpec:
		return validateSourceSpec(spec)
	case model.SourceSpec:
		return validateSourceSpec(&spec)
	case []model.SourceSpec:
		return ValidateSet(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported spec type: %T", v),
			Code:    ErrUnsupportedSpecType,
		}}
	}
}

// ValidateSet validates each spec plus cross-spec rules. Source names must
// be unique since they key the stored source metadata.
func ValidateSet(specs []model.SourceSpec) []ValidationError {
	var errs []ValidationError

	names := make(map[string]bool)
	for i, spec := range specs {
		errs = append(errs, validateSourceSpec(&spec)...)

		// E105: duplicate source name
		if names[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("source[%d].name", i),
				Message: fmt.Sprintf("duplicate source name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[spec.Name] = true
	}

	return errs
}

// validateSourceSpec validates a single source specification.
func validateSourceSpec(spec *model.SourceSpec) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrSourceNameEmpty,
		})
	}

	// E103: stream must name one of the reconcilers
	if !isValidStream(spec.Stream) {
		errs = append(errs, ValidationError{
			Field:   "stream",
			Message: fmt.Sprintf("invalid stream %q, must be \"production\", \"quality\", or \"shipping\"", spec.Stream),
			Code:    ErrInvalidStream,
		})
	}

	// E104: format must be readable
	if !isValidFormat(spec.Format) {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("invalid format %q, must be \"csv\" or \"xlsx\"", spec.Format),
			Code:    ErrInvalidFormat,
		})
	}

	// E102: at least one field mapping required
	if len(spec.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   "fields",
			Message: "at least one field mapping is required",
			Code:    ErrSourceNoFields,
		})
	}

	// Track targets for duplicate detection
	targets := make(map[string]bool)

	for i, field := range spec.Fields {
		// E105: duplicate field target
		if targets[field.Target] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("fields[%d].target", i),
				Message: fmt.Sprintf("duplicate field target: %q", field.Target),
				Code:    ErrDuplicateName,
			})
		}
		targets[field.Target] = true

		// E107: every mapping needs at least one usable header
		if len(field.Aliases) == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("fields[%d].aliases", i),
				Message: fmt.Sprintf("field %q has no accepted headers", field.Target),
				Code:    ErrEmptyAliases,
			})
		}
		for j, alias := range field.Aliases {
			if strings.TrimSpace(alias) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("fields[%d].aliases[%d]", i, j),
					Message: fmt.Sprintf("field %q has a blank header alias", field.Target),
					Code:    ErrEmptyAliases,
				})
			}
		}
	}

	// E106: the composite lot identity must be mapped
	for _, key := range keyFields {
		if !targets[key] {
			errs = append(errs, ValidationError{
				Field:   "fields",
				Message: fmt.Sprintf("missing mapping for identity field %q", key),
				Code:    ErrMissingKeyField,
			})
		}
	}

	return errs
}

// isValidStream checks if a stream names one of the reconcilers.
func isValidStream(s model.Stream) bool {
	return s == model.StreamProduction || s == model.StreamQuality || s == model.StreamShipping
}

// isValidFormat checks if a file format is readable.
func isValidFormat(f string) bool {
	return f == model.FormatCSV || f == model.FormatXLSX
}
