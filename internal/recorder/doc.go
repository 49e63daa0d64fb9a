// Package recorder appends a SessionRecord to the history whenever the
// engine reports that a session ended.
//
// History is newest first and capped at ir.HistoryCap records. MemoryHistory
// keeps it in memory; the SQLite store implements the same HistoryStore
// interface persistently.
package recorder
