// Package library holds the pose catalog and the routine library.
//
// The built-in catalog is an embedded CUE file checked against an embedded
// schema. User CUE directories, custom poses and saved playlists are layered
// on top of it; a later layer replaces any definition with the same ID.
package library
