package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/poser/internal/ir"
)

// TraceSnapshot captures the complete trace of a drill.
// It is serialized with ir.MarshalCanonical for byte-stable comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Routine      string       `json:"routine"`
	Trace        []TraceEvent `json:"trace"`
}

func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		traceList[i] = event.canonical()
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"routine":       s.Routine,
		"trace":         traceList,
	}
}

// MarshalTrace renders a drill trace in its golden-file form.
func MarshalTrace(scenarioName, routine string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Routine:      routine,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Routine, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file
// without re-running the drill.
func AssertGolden(t *testing.T, scenarioName, routine string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, routine, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
