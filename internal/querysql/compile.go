// Package querysql compiles session queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/poser/internal/queryir"
)

// SessionColumns is the column list every compiled query selects, in scan
// order.
const SessionColumns = "id, recorded_at, tension_sec, total_sec, poses_completed, reason, routine"

// SQLCompiler compiles queryir queries against the sessions table.
//
// Values are always passed as ? parameters and never interpolated. Every
// query orders by insertion, newest first.
type SQLCompiler struct {
	// FormatTime renders time bounds exactly as recorded_at is stored, so
	// text comparison follows time order.
	FormatTime func(time.Time) string
}

// NewSQLCompiler creates a compiler that formats times as RFC 3339 in UTC.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		FormatTime: func(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) },
	}
}

// Compile validates q and converts it to SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	var (
		b      strings.Builder
		params []any
	)
	b.WriteString("SELECT " + SessionColumns + " FROM sessions")
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = whereParams
	}
	b.WriteString(" ORDER BY ord DESC")

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate returns a WHERE fragment and its parameters.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return string(pred.Field) + " = ?", []any{pred.Value}, nil
	case *queryir.Equals:
		return c.compilePredicate(*pred)
	case queryir.AtLeast:
		return string(pred.Field) + " >= ?", []any{pred.Value}, nil
	case *queryir.AtLeast:
		return c.compilePredicate(*pred)
	case queryir.Since:
		return "recorded_at >= ?", []any{c.FormatTime(pred.Time)}, nil
	case *queryir.Since:
		return c.compilePredicate(*pred)
	case queryir.Before:
		return "recorded_at < ?", []any{c.FormatTime(pred.Time)}, nil
	case *queryir.Before:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileAnd joins the parts with AND, parenthesizing nested conjunctions.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}
