package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/poser/internal/ir"
)

// Scenario is a scripted practice session: a routine, the controls pressed
// and how much virtual time passes between them, and what must hold at the
// end.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Library is an optional directory of CUE definition files layered over
	// the built-in library. Relative paths resolve against the scenario file.
	Library string `yaml:"library,omitempty"`

	// Routine is the routine or master key to select.
	Routine string `yaml:"routine"`

	Overrides OverridesSpec `yaml:"overrides,omitempty"`
	Settings  SettingsSpec  `yaml:"settings,omitempty"`

	// SessionID is the fixed id given to every session. Defaults to
	// "drill-session".
	SessionID string `yaml:"session_id,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultSessionID is used when a scenario does not name one.
const DefaultSessionID = "drill-session"

// OverridesSpec is the YAML form of ir.Overrides, in seconds.
type OverridesSpec struct {
	EveryHoldSec       *float64 `yaml:"every_hold_sec,omitempty"`
	EveryTransitionSec *float64 `yaml:"every_transition_sec,omitempty"`
	LoopRepeatCount    *int     `yaml:"loop_repeat_count,omitempty"`
	LoopRestSec        *float64 `yaml:"loop_rest_sec,omitempty"`
}

// Overrides converts the YAML seconds to engine overrides.
func (o OverridesSpec) Overrides() ir.Overrides {
	return ir.Overrides{
		EveryHold:       secondsPtr(o.EveryHoldSec),
		EveryTransition: secondsPtr(o.EveryTransitionSec),
		LoopRepeatCount: o.LoopRepeatCount,
		LoopRest:        secondsPtr(o.LoopRestSec),
	}
}

func secondsPtr(s *float64) *time.Duration {
	if s == nil {
		return nil
	}
	return ir.Dur(seconds(*s))
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// SettingsSpec overrides the default session settings. Unset cue toggles keep
// their defaults.
type SettingsSpec struct {
	Halfway       bool  `yaml:"halfway,omitempty"`
	HoldTargetSec int   `yaml:"hold_target_sec,omitempty"`
	Voice         *bool `yaml:"voice,omitempty"`
	Beep          *bool `yaml:"beep,omitempty"`
	AnnounceTurns *bool `yaml:"announce_turns,omitempty"`
	Haptics       *bool `yaml:"haptics,omitempty"`
}

// Step is one scripted input. Exactly one field is set.
type Step struct {
	// Do presses a control: start, pause, next, previous, reset or stop.
	Do string `yaml:"do,omitempty"`

	// Tick fires the scheduler this many times.
	Tick int `yaml:"tick,omitempty"`

	// Seconds fires the scheduler for this much virtual time.
	Seconds float64 `yaml:"seconds,omitempty"`
}

// Controls accepted by Step.Do.
const (
	DoStart    = "start"
	DoPause    = "pause"
	DoNext     = "next"
	DoPrevious = "previous"
	DoReset    = "reset"
	DoStop     = "stop"
)

var controls = map[string]bool{
	DoStart:    true,
	DoPause:    true,
	DoNext:     true,
	DoPrevious: true,
	DoReset:    true,
	DoStop:     true,
}

// Assertion checks the outcome of a drill. Value is compared by its printed
// form, so `value: 2` matches an integer field and `value: hold` a phase.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event names the engine event type (event_count).
	Event string `yaml:"event,omitempty"`

	// Text is the utterance to look for (spoken).
	Text string `yaml:"text,omitempty"`

	// Value is the expected value for scalar assertions and event_count.
	Value any `yaml:"value,omitempty"`

	// Phases is the expected order of phases entered (phase_sequence).
	Phases []string `yaml:"phases,omitempty"`
}

// Assertion types.
const (
	AssertPhase          = "phase"
	AssertStepIndex      = "step_index"
	AssertTensionSec     = "tension_sec"
	AssertTotalSec       = "total_sec"
	AssertEventCount     = "event_count"
	AssertPhaseSequence  = "phase_sequence"
	AssertHistoryLen     = "history_len"
	AssertLastReason     = "last_reason"
	AssertSpoken         = "spoken"
	AssertPosesCompleted = "poses_completed"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Library != "" && !filepath.IsAbs(scenario.Library) {
		scenario.Library = filepath.Join(filepath.Dir(path), scenario.Library)
	}
	if scenario.Library != "" {
		if _, err := os.Stat(scenario.Library); err != nil {
			return nil, fmt.Errorf("invalid scenario: library directory: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.SessionID == "" {
		scenario.SessionID = DefaultSessionID
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Routine == "" {
		return fmt.Errorf("routine is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Settings.HoldTargetSec < 0 {
		return fmt.Errorf("settings.hold_target_sec must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Do != "" {
		set++
		if !controls[s.Do] {
			return fmt.Errorf("steps[%d]: unknown control %q", index, s.Do)
		}
	}
	if s.Tick != 0 {
		set++
		if s.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be positive", index)
		}
	}
	if s.Seconds != 0 {
		set++
		if s.Seconds < 0 {
			return fmt.Errorf("steps[%d]: seconds must be positive", index)
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of do, tick or seconds is required", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPhase, AssertStepIndex, AssertTensionSec, AssertTotalSec,
		AssertHistoryLen, AssertLastReason, AssertPosesCompleted:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for event_count", index)
		}
	case AssertPhaseSequence:
		if len(a.Phases) == 0 {
			return fmt.Errorf("assertions[%d]: phases list is required for phase_sequence", index)
		}
	case AssertSpoken:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for spoken", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
