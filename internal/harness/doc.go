// Package harness runs practice drills: scripted sessions executed on virtual
// time against the real session controller.
//
// A drill selects a routine, presses controls, lets virtual seconds pass and
// then asserts on what happened. The scheduler, the cue timers and the wall
// clock are all manual, so the recorded trace of engine events and delivered
// cues is identical on every run and can be compared against a golden file.
//
// # Scenario Format
//
//	name: tiny_complete
//	description: "What this drill checks"
//	library: ../library          # optional CUE directory layered over the built-ins
//	routine: tiny                # routine or master key
//	session_id: tiny-1           # optional, defaults to drill-session
//	overrides:
//	  every_hold_sec: 2
//	  every_transition_sec: 1
//	  loop_repeat_count: 1
//	  loop_rest_sec: 5
//	settings:
//	  halfway: true
//	  hold_target_sec: 60
//	  voice: false
//	steps:
//	  - do: start                # start, pause, next, previous, reset, stop
//	  - tick: 90                 # scheduler firings, 100ms each
//	  - seconds: 12.5
//	assertions:
//	  - type: phase
//	    value: stopped
//	  - type: event_count
//	    event: step_started
//	    value: 2
//	  - type: phase_sequence
//	    phases: [transition, countdown, hold, stopped]
//	  - type: spoken
//	    text: Session complete
//
// # Assertion Types
//
//   - phase, step_index: final engine state
//   - tension_sec, total_sec: final counters, floored to whole seconds
//   - history_len, poses_completed: recorded sessions
//   - last_reason: reason of the last SessionEnded, or "none"
//   - event_count: occurrences of an engine event type
//   - phase_sequence: the phases entered, in order, exactly
//   - spoken: an utterance the speech backend received
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tiny_complete.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
