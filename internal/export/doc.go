// Package export writes session history as CSV and moves playlists in and
// out of JSON and YAML documents.
package export
