// Package ir provides the domain types shared by every poser package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Durations are time.Duration, never float seconds
//   - Reported totals (tension, total time) are floored whole seconds
//   - All JSON tags use snake_case
//   - A compiled run list is immutable once loaded into an engine
package ir
