package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/poser/internal/engine"
	"github.com/roach88/poser/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, ev := range e.Trace {
			if ev.Kind != KindEvent {
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %6dms %s step=%d", i+1, ev.AtMS, ev.Type, ev.Step)
			if ev.To != "" {
				fmt.Fprintf(&buf, " %s->%s", ev.From, ev.To)
			}
			if ev.Reason != "" {
				fmt.Fprintf(&buf, " reason=%s", ev.Reason)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty slice means the drill passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	errs := []string{}
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertPhase:
		return compareValue(a, result.Final.Phase.String(), result.Trace)
	case AssertStepIndex:
		return compareValue(a, result.Final.StepIndex, result.Trace)
	case AssertTensionSec:
		return compareValue(a, ir.FloorSeconds(result.Final.CumulativeHold), result.Trace)
	case AssertTotalSec:
		total := result.Final.CumulativeHold + result.Final.CumulativeTransition
		return compareValue(a, ir.FloorSeconds(total), result.Trace)
	case AssertHistoryLen:
		return compareValue(a, len(result.History), nil)
	case AssertLastReason:
		return assertLastReason(result, a)
	case AssertPosesCompleted:
		if len(result.History) == 0 {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Value), Actual: "no recorded session"}
		}
		return compareValue(a, result.History[0].PosesCompleted, nil)
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertPhaseSequence:
		return assertPhaseSequence(result, a)
	case AssertSpoken:
		return assertSpoken(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// compareValue matches the printed forms of the expected and actual values,
// which lets YAML scalars stand for phases, reasons and integers alike.
func compareValue(a Assertion, actual any, trace []TraceEvent) error {
	want := fmt.Sprint(a.Value)
	got := fmt.Sprint(actual)
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: want,
		Actual:   got,
		Trace:    trace,
	}
}

// assertLastReason checks the end reason of the most recent session. A drill
// that ended a session but never recorded it (reset) has no reason.
func assertLastReason(result *Result, a Assertion) error {
	reason := "none"
	if ended := result.Events(engine.EventSessionEnded); len(ended) > 0 {
		reason = ended[len(ended)-1].Reason
	}
	return compareValue(a, reason, result.Trace)
}

func assertEventCount(result *Result, a Assertion) error {
	count := len(result.Events(engine.EventType(a.Event)))
	if fmt.Sprint(a.Value) == fmt.Sprint(count) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%v occurrences of %s", a.Value, a.Event),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    result.Trace,
	}
}

// assertPhaseSequence checks the phases entered, in order, against the
// expected list exactly.
func assertPhaseSequence(result *Result, a Assertion) error {
	var phases []string
	for _, ev := range result.Events(engine.EventPhaseChanged) {
		phases = append(phases, ev.To)
	}
	if slices.Equal(phases, a.Phases) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: strings.Join(a.Phases, " -> "),
		Actual:   strings.Join(phases, " -> "),
		Trace:    result.Trace,
	}
}

func assertSpoken(result *Result, a Assertion) error {
	var said []string
	for _, c := range result.Cues(CueSpeak) {
		if c.Text == a.Text {
			return nil
		}
		said = append(said, fmt.Sprintf("%q", c.Text))
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%q to be spoken", a.Text),
		Actual:   "spoken: [" + strings.Join(said, ", ") + "]",
	}
}
