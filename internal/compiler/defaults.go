package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/steelworks/lotline/internal/model"
)

//go:embed defaults.cue
var defaultsCUE string

// DefaultSpecs compiles the embedded definitions of the three standard
// sources. A broken embedded spec is a programmer error, so any failure
// here is fatal to the caller.
func DefaultSpecs() ([]model.SourceSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(defaultsCUE, cue.Filename("defaults.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling embedded source specs: %w", err)
	}

	sourcesVal := v.LookupPath(cue.ParsePath("source"))
	if !sourcesVal.Exists() {
		return nil, fmt.Errorf("embedded source specs: no source block")
	}

	iter, err := sourcesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("embedded source specs: %w", err)
	}

	var specs []model.SourceSpec
	for iter.Next() {
		spec, err := CompileSource(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("embedded source %s: %w", iter.Label(), err)
		}
		specs = append(specs, *spec)
	}

	if errs := ValidateSet(specs); len(errs) > 0 {
		return nil, fmt.Errorf("embedded source specs: %w", errs[0])
	}

	return specs, nil
}
