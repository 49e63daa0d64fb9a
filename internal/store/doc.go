// Package store provides SQLite-backed local storage for poser.
//
// Three tables live in one file:
//   - sessions: the practice history, newest first, capped at ir.HistoryCap
//   - custom_poses: user poses layered over the built-in catalog
//   - playlists: user routines stored as canonical JSON
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema is embedded from schema.sql; incremental changes for older
// files are applied through PRAGMA user_version.
package store
