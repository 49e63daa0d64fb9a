package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/queryir"
	"github.com/roach88/poser/internal/querysql"
)

// AppendSession records a finished session and evicts the oldest records
// beyond ir.HistoryCap in the same transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same
// session twice keeps the first record.
func (s *Store) AppendSession(ctx context.Context, rec ir.SessionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(id, recorded_at, tension_sec, total_sec, poses_completed, reason, routine)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		formatTime(rec.Timestamp),
		rec.TensionSec,
		rec.TotalSec,
		rec.PosesCompleted,
		string(rec.Reason),
		rec.Routine,
	)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE ord NOT IN (SELECT ord FROM sessions ORDER BY ord DESC LIMIT ?)
	`, ir.HistoryCap)
	if err != nil {
		return fmt.Errorf("append session: evict: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append session: commit: %w", err)
	}
	return nil
}

// ListSessions returns up to limit records, newest first. A limit <= 0
// returns the whole history.
//
// Returns an empty slice (not nil) when there is no history.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]ir.SessionRecord, error) {
	return s.QuerySessions(ctx, queryir.Query{Limit: limit})
}

// QuerySessions returns the records matching q, newest first. Invalid
// queries fail with an error matching queryir.ErrInvalidQuery.
func (s *Store) QuerySessions(ctx context.Context, q queryir.Query) ([]ir.SessionRecord, error) {
	compiler := querysql.NewSQLCompiler()
	compiler.FormatTime = formatTime
	query, params, err := compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	records := []ir.SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

// CountSessions returns the number of stored records.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// ClearSessions deletes the whole history.
func (s *Store) ClearSessions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

func scanSession(rows *sql.Rows) (ir.SessionRecord, error) {
	var (
		rec        ir.SessionRecord
		recordedAt string
		reason     string
	)
	err := rows.Scan(&rec.ID, &recordedAt, &rec.TensionSec, &rec.TotalSec,
		&rec.PosesCompleted, &reason, &rec.Routine)
	if err != nil {
		return ir.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}

	rec.Timestamp, err = parseTime(recordedAt)
	if err != nil {
		return ir.SessionRecord{}, fmt.Errorf("scan session %s: %w", rec.ID, err)
	}
	rec.Reason = ir.EndReason(reason)
	return rec, nil
}
