// Package queryir describes filters over recorded sessions independently
// of the backend that stores them.
//
// A Query pairs a Predicate tree with a row limit. Backends (see
// querysql) translate the tree; they never see user text.
//
// Predicate is a sealed interface using the marker method pattern, so a
// backend can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case AtLeast:
//	case Since:
//	case Before:
//	case And:
//	}
//
// Only conjunction is supported. Every predicate narrows the result.
package queryir
