package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/poser/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType = "E100" // unsupported type for validation

	// Pose errors (E101-E104)
	ErrPoseIDEmpty      = "E101" // pose id is required
	ErrPoseLabelEmpty   = "E102" // pose label is required
	ErrPoseIDReserved   = "E103" // pose id collides with the rest marker
	ErrNegativeDuration = "E104" // durations must be >= 0

	// Routine errors (E110-E119)
	ErrRoutineNoItems    = "E110" // at least one item required
	ErrRoutineRepeat     = "E111" // repeat count below 1
	ErrUnknownPose       = "E112" // item references a pose not in the catalog
	ErrEmptyPoseRef      = "E113" // item has no pose reference
	ErrZeroLengthRoutine = "E114" // every item has zero transition and hold

	// Master errors (E120-E129)
	ErrMasterEmpty    = "E120" // sequence must not be empty
	ErrUnknownRoutine = "E121" // sequence references an unknown routine
	ErrDuplicateID    = "E122" // duplicate definition id
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Catalog answers the existence questions validation needs. Either func may
// be nil, in which case references of that kind are not checked.
type Catalog struct {
	HasPose    func(ir.PoseRef) bool
	HasRoutine func(string) bool
}

// Validate checks a Pose, RoutineDef or MasterDef.
// Returns all errors found (does not fail-fast).
func Validate(v any, cat Catalog) []ValidationError {
	switch def := v.(type) {
	case *ir.Pose:
		return validatePose(def)
	case ir.Pose:
		return validatePose(&def)
	case *ir.RoutineDef:
		return validateRoutine(def, cat)
	case ir.RoutineDef:
		return validateRoutine(&def, cat)
	case *ir.MasterDef:
		return validateMaster(def, cat)
	case ir.MasterDef:
		return validateMaster(&def, cat)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validatePose(p *ir.Pose) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("pose.%s", p.ID)

	if strings.TrimSpace(string(p.ID)) == "" {
		errs = append(errs, ValidationError{Field: "pose.id", Message: "id is required", Code: ErrPoseIDEmpty})
	}
	if p.ID == ir.RestMarker {
		errs = append(errs, ValidationError{Field: field, Message: "id is reserved", Code: ErrPoseIDReserved})
	}
	if strings.TrimSpace(p.Label) == "" {
		errs = append(errs, ValidationError{Field: field + ".label", Message: "label is required", Code: ErrPoseLabelEmpty})
	}
	if p.DefaultTransition < 0 || p.DefaultHold < 0 {
		errs = append(errs, ValidationError{Field: field, Message: "default durations must not be negative", Code: ErrNegativeDuration})
	}
	return errs
}

func validateRoutine(r *ir.RoutineDef, cat Catalog) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("routine.%s", r.ID)

	if len(r.Items) == 0 {
		errs = append(errs, ValidationError{Field: field + ".items", Message: "at least one item is required", Code: ErrRoutineNoItems})
	}
	if r.RepeatCount < 1 {
		errs = append(errs, ValidationError{
			Field:   field + ".repeat",
			Message: fmt.Sprintf("repeat must be at least 1, got %d", r.RepeatCount),
			Code:    ErrRoutineRepeat,
		})
	}
	if r.LoopRest < 0 {
		errs = append(errs, ValidationError{Field: field + ".loop_rest", Message: "loop rest must not be negative", Code: ErrNegativeDuration})
	}

	active := 0
	for i, it := range r.Items {
		itemField := fmt.Sprintf("%s.items[%d]", field, i)
		if it.Pose == "" {
			errs = append(errs, ValidationError{Field: itemField + ".pose", Message: "pose is required", Code: ErrEmptyPoseRef})
		} else if cat.HasPose != nil && !cat.HasPose(it.Pose) {
			errs = append(errs, ValidationError{
				Field:   itemField + ".pose",
				Message: fmt.Sprintf("unknown pose %q", it.Pose),
				Code:    ErrUnknownPose,
			})
		}
		if it.Transition < 0 || it.Hold < 0 {
			errs = append(errs, ValidationError{Field: itemField, Message: "durations must not be negative", Code: ErrNegativeDuration})
		}
		if it.Transition+it.Hold > 0 {
			active++
		}
	}
	if len(r.Items) > 0 && active == 0 {
		errs = append(errs, ValidationError{Field: field + ".items", Message: "every item has zero duration", Code: ErrZeroLengthRoutine})
	}
	return errs
}

func validateMaster(m *ir.MasterDef, cat Catalog) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("master.%s", m.ID)

	if len(m.Sequence) == 0 {
		errs = append(errs, ValidationError{Field: field + ".sequence", Message: "sequence must not be empty", Code: ErrMasterEmpty})
	}
	for i, step := range m.Sequence {
		stepField := fmt.Sprintf("%s.sequence[%d]", field, i)
		if cat.HasRoutine != nil && !cat.HasRoutine(step.Routine) {
			errs = append(errs, ValidationError{
				Field:   stepField + ".routine",
				Message: fmt.Sprintf("unknown routine %q", step.Routine),
				Code:    ErrUnknownRoutine,
			})
		}
		if step.Override != nil && step.Override.LoopRest != nil && *step.Override.LoopRest < 0 {
			errs = append(errs, ValidationError{Field: stepField + ".loop_rest", Message: "loop rest must not be negative", Code: ErrNegativeDuration})
		}
	}
	return errs
}

// ValidateUniqueIDs reports duplicate IDs within one definition kind.
func ValidateUniqueIDs(kind string, ids []string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", kind, id),
				Message: fmt.Sprintf("duplicate %s id %q", kind, id),
				Code:    ErrDuplicateID,
			})
		}
		seen[id] = true
	}
	return errs
}
