package library

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

//go:embed builtin.cue
var builtinSource string

// Schema returns the CUE schema that library files are checked against.
func Schema() string { return schemaSource }

var builtinDefs = sync.OnceValues(func() (Definitions, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(builtinSource, cue.Filename("builtin.cue"))
	if err := v.Err(); err != nil {
		return Definitions{}, fmt.Errorf("builtin catalog: %w", err)
	}
	defs, errs := decode(ctx, v, LoadModeFailFast)
	if len(errs) > 0 {
		return Definitions{}, fmt.Errorf("builtin catalog: %w", errs[0])
	}
	return *defs, nil
})

// Builtin returns a new library holding only the built-in catalog.
func Builtin() (*Library, error) {
	defs, err := builtinDefs()
	if err != nil {
		return nil, err
	}
	return New(defs), nil
}

// MustBuiltin is like Builtin but panics if the embedded catalog is broken.
func MustBuiltin() *Library {
	l, err := Builtin()
	if err != nil {
		panic(err)
	}
	return l
}
