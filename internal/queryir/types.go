package queryir

import "time"

// Field names a filterable session attribute.
type Field string

// Filterable fields.
const (
	FieldRoutine Field = "routine"
	FieldReason  Field = "reason"
	FieldTension Field = "tension_sec"
	FieldTotal   Field = "total_sec"
	FieldPoses   Field = "poses_completed"
)

// Text reports whether the field holds text rather than a count.
func (f Field) Text() bool {
	return f == FieldRoutine || f == FieldReason
}

// Known reports whether f is one of the filterable fields.
func (f Field) Known() bool {
	switch f {
	case FieldRoutine, FieldReason, FieldTension, FieldTotal, FieldPoses:
		return true
	}
	return false
}

// Query selects the newest Limit sessions matching Filter. A nil Filter
// matches every session and a Limit <= 0 means no limit.
type Query struct {
	Filter Predicate
	Limit  int
}

// Predicate is a condition on one session.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Equals matches sessions whose field equals Value. Value is a string for
// text fields and an int for counts.
type Equals struct {
	Field Field
	Value any
}

func (Equals) predicateNode() {}

// AtLeast matches sessions whose count field is >= Value.
type AtLeast struct {
	Field Field
	Value int
}

func (AtLeast) predicateNode() {}

// Since matches sessions recorded at or after Time.
type Since struct {
	Time time.Time
}

func (Since) predicateNode() {}

// Before matches sessions recorded strictly before Time.
type Before struct {
	Time time.Time
}

func (Before) predicateNode() {}

// And matches sessions that satisfy every predicate. An empty And matches
// everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All joins the non-nil predicates. It returns nil when none remain and
// the predicate itself when only one does.
func All(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
