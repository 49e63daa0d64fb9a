package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/poser/internal/compiler"
	"github.com/roach88/poser/internal/ir"
)

// LoadMode controls how errors are handled while loading a library directory.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes. Definition problems found by compiler.Validate keep
// their E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeSchema      = "E008" // Value does not match the library schema
	ErrCodeDefinition  = "E009" // Definition could not be parsed
)

// LoadError is a problem found while loading a library directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Definitions is one layer of poses, routines and masters.
type Definitions struct {
	Poses     []ir.Pose
	Routines  []ir.RoutineDef
	Masters   []ir.MasterDef
	FileCount int
}

// Empty reports whether the layer defines nothing.
func (d Definitions) Empty() bool {
	return len(d.Poses) == 0 && len(d.Routines) == 0 && len(d.Masters) == 0
}

// LoadDir loads every CUE file of dir as one package and parses its pose,
// routine and master fields. The files are checked against the library
// schema first; each schema violation is reported with its position.
func LoadDir(dir string, mode LoadMode) (*Definitions, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("library directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing library directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	defs, errs := decode(ctx, value, mode)
	if defs != nil {
		defs.FileCount = len(files)
	}
	return defs, errs
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

// decode checks value against the schema and parses its definitions.
// Parsing reads the value as written, so optional schema fields never leak
// into the result.
func decode(ctx *cue.Context, value cue.Value, mode LoadMode) (*Definitions, []error) {
	var errs []error

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building schema: %v", err)}}
	}
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		errs = append(errs, schemaErrors(err)...)
		if mode == LoadModeFailFast {
			return &Definitions{}, errs[:1]
		}
	}

	defs := &Definitions{}
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if stop := eachField(value, "pose", func(v cue.Value, label string) bool {
		p, err := compiler.ParsePose(v)
		if err != nil {
			return fail(convertCompileError(err, "pose."+label))
		}
		defs.Poses = append(defs.Poses, *p)
		return false
	}, fail); stop {
		return defs, errs
	}

	if stop := eachField(value, "routine", func(v cue.Value, label string) bool {
		r, err := compiler.ParseRoutine(v)
		if err != nil {
			return fail(convertCompileError(err, "routine."+label))
		}
		defs.Routines = append(defs.Routines, *r)
		return false
	}, fail); stop {
		return defs, errs
	}

	eachField(value, "master", func(v cue.Value, label string) bool {
		m, err := compiler.ParseMaster(v)
		if err != nil {
			return fail(convertCompileError(err, "master."+label))
		}
		defs.Masters = append(defs.Masters, *m)
		return false
	}, fail)

	if defs.Empty() && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no poses, routines or masters found"})
	}
	return defs, errs
}

// eachField calls fn for every regular field under path. It reports whether
// loading should stop.
func eachField(value cue.Value, path string, fn func(cue.Value, string) bool, fail func(error) bool) bool {
	v := value.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return false
	}
	iter, err := v.Fields()
	if err != nil {
		return fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", path, err)})
	}
	for iter.Next() {
		if fn(iter.Value(), iter.Label()) {
			return true
		}
	}
	return false
}

func schemaErrors(err error) []error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		le := &LoadError{Code: ErrCodeSchema, Message: e.Error()}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			le.Pos = pos[0]
		}
		out = append(out, le)
	}
	if len(out) == 0 {
		out = append(out, &LoadError{Code: ErrCodeSchema, Message: err.Error()})
	}
	return out
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeDefinition,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
