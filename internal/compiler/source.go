package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/steelworks/lotline/internal/model"
)

// CompileSource parses a CUE value into a SourceSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the source struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`source: production: { ... }`)
//	spec, err := CompileSource(v.LookupPath(cue.ParsePath("source.production")))
func CompileSource(v cue.Value) (*model.SourceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &model.SourceSpec{}

	// Default the display name from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	// An explicit name field overrides the label
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	// Parse stream (required)
	streamVal := v.LookupPath(cue.ParsePath("stream"))
	if !streamVal.Exists() {
		return nil, &CompileError{
			Field:   "stream",
			Message: "stream is required",
			Pos:     v.Pos(),
		}
	}
	stream, err := streamVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Stream = model.Stream(stream)

	// Parse location (optional, may be overridden at the command line)
	locVal := v.LookupPath(cue.ParsePath("location"))
	if locVal.Exists() {
		loc, err := locVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Location = loc
	}

	// Parse format (optional, defaults to csv)
	spec.Format = model.FormatCSV
	formatVal := v.LookupPath(cue.ParsePath("format"))
	if formatVal.Exists() {
		format, err := formatVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Format = strings.ToLower(format)
	}

	// Parse sheet (optional, only meaningful for xlsx)
	sheetVal := v.LookupPath(cue.ParsePath("sheet"))
	if sheetVal.Exists() {
		sheet, err := sheetVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Sheet = sheet
	}

	// Parse fields (required, at least one)
	spec.Fields, err = parseFields(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: "at least one field mapping is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseFields extracts the field mapping table from the source. Alias order
// within each mapping is significant; the order of the mappings is not.
func parseFields(v cue.Value) ([]model.FieldSpec, error) {
	var fields []model.FieldSpec

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return fields, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		field, err := parseFieldSpec(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return fields, nil
}

// parseFieldSpec parses a single field mapping.
// Supports:
// - Single string: "Header Name"
// - Array of strings: ["Header A", "Header B"] tried in order
// - Object: { aliases: [...], default: "...", required: true }
func parseFieldSpec(target string, v cue.Value) (model.FieldSpec, error) {
	field := model.FieldSpec{Target: target}

	// Try as string first (single accepted header)
	if alias, err := v.String(); err == nil {
		field.Aliases = []string{alias}
		return field, nil
	}

	// Try as array of headers
	if v.IncompleteKind() == cue.ListKind {
		aliases, err := parseAliasList(target, v)
		if err != nil {
			return field, err
		}
		field.Aliases = aliases
		return field, nil
	}

	// Try as structured object
	aliasesVal := v.LookupPath(cue.ParsePath("aliases"))
	if aliasesVal.Exists() {
		aliases, err := parseAliasList(target, aliasesVal)
		if err != nil {
			return field, err
		}
		field.Aliases = aliases

		defaultVal := v.LookupPath(cue.ParsePath("default"))
		if defaultVal.Exists() {
			def, err := defaultVal.String()
			if err != nil {
				return field, formatCUEError(err)
			}
			field.Default = def
		}

		requiredVal := v.LookupPath(cue.ParsePath("required"))
		if requiredVal.Exists() {
			required, err := requiredVal.Bool()
			if err != nil {
				return field, formatCUEError(err)
			}
			field.Required = required
		}

		return field, nil
	}

	return field, &CompileError{
		Field:   fmt.Sprintf("fields.%s", target),
		Message: "must be a string, array of headers, or object with aliases",
		Pos:     v.Pos(),
	}
}

// parseAliasList reads an ordered list of accepted header names.
func parseAliasList(target string, v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var aliases []string
	for iter.Next() {
		alias, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		aliases = append(aliases, alias)
	}

	if len(aliases) == 0 {
		return nil, &CompileError{
			Field:   fmt.Sprintf("fields.%s", target),
			Message: "alias list must not be empty",
			Pos:     v.Pos(),
		}
	}

	return aliases, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
