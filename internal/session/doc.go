// Package session wires one practice session together.
//
// A Controller owns the phase engine, the cue dispatcher, the session
// recorder and the wake lock. The presentation layer drives it through
// Select and the transport methods and reads its state through snapshots;
// it never touches the engine directly.
package session
