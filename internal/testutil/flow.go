package testutil

// FixedSessionIDs generates the same session ID every time.
//
// Unlike engine.FixedGenerator which returns IDs in sequence and panics when
// exhausted, this generator never runs out, which suits scenarios that start
// an unknown number of sessions but still need byte-identical traces.
//
// Thread-safety: FixedSessionIDs is stateless and safe for concurrent use.
type FixedSessionIDs struct {
	id string
}

// NewFixedSessionIDs creates a new fixed generator.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionIDs(id string) *FixedSessionIDs {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionIDs{id: id}
}

// Generate returns the fixed session ID.
//
// Implements engine.SessionIDGenerator.
func (g *FixedSessionIDs) Generate() string {
	return g.id
}
