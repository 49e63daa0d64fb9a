package queryir

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid session query: " + strings.Join(e.Problems, "; ")
}

// ErrInvalidQuery matches any *ValidationError with errors.Is.
var ErrInvalidQuery = errors.New("invalid session query")

// Is reports whether target is ErrInvalidQuery.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// Validate checks every predicate of q and returns a *ValidationError
// listing all problems, or nil.
func Validate(q Query) error {
	v := &validator{}
	if q.Filter != nil {
		v.validatePredicate(q.Filter)
	}
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case AtLeast:
		v.validateAtLeast(pred)
	case *AtLeast:
		v.validateAtLeast(*pred)
	case Since:
		v.validateTime("since", pred.Time)
	case *Since:
		v.validateTime("since", pred.Time)
	case Before:
		v.validateTime("before", pred.Time)
	case *Before:
		v.validateTime("before", pred.Time)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !eq.Field.Known() {
		v.addProblem("unknown field %q", eq.Field)
		return
	}
	if eq.Field.Text() {
		s, ok := eq.Value.(string)
		if !ok {
			v.addProblem("field %q compares to text, got %T", eq.Field, eq.Value)
			return
		}
		if eq.Field == FieldReason && !validReason(s) {
			v.addProblem("unknown end reason %q", s)
		}
		return
	}
	if _, ok := eq.Value.(int); !ok {
		v.addProblem("field %q compares to a whole number, got %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAtLeast(al AtLeast) {
	if !al.Field.Known() {
		v.addProblem("unknown field %q", al.Field)
		return
	}
	if al.Field.Text() {
		v.addProblem("field %q is not a count", al.Field)
	}
	if al.Value < 0 {
		v.addProblem("field %q: minimum must not be negative, got %d", al.Field, al.Value)
	}
}

func (v *validator) validateTime(name string, t time.Time) {
	if t.IsZero() {
		v.addProblem("%s: time is required", name)
	}
}

func (v *validator) validateAnd(and And) {
	for _, p := range and.Predicates {
		v.validatePredicate(p)
	}
}

func validReason(s string) bool {
	switch ir.EndReason(s) {
	case ir.ReasonComplete, ir.ReasonTargetReached, ir.ReasonStopped:
		return true
	}
	return false
}
