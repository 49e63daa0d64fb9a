package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// SaveCustomPose stores a user pose. Returns ErrDuplicate if a custom pose
// with the same ID exists.
func (s *Store) SaveCustomPose(ctx context.Context, p ir.Pose) error {
	if p.ID == "" || p.Label == "" {
		return fmt.Errorf("save custom pose: id and label are required")
	}
	category := p.Category
	if category == "" {
		category = ir.CategoryCustom
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_poses
		(id, label, spoken_alias, category, symmetry_turn, default_transition_ms, default_hold_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		string(p.ID),
		p.Label,
		p.SpokenAlias,
		category,
		p.SymmetryTurn,
		p.DefaultTransition.Milliseconds(),
		p.DefaultHold.Milliseconds(),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("save custom pose: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save custom pose: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("custom pose %q: %w", p.ID, ErrDuplicate)
	}
	return nil
}

// DeleteCustomPose removes a user pose. Returns ErrNotFound if it does not
// exist.
func (s *Store) DeleteCustomPose(ctx context.Context, id ir.PoseRef) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM custom_poses WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("delete custom pose: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete custom pose: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("custom pose %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListCustomPoses returns every user pose in creation order.
func (s *Store) ListCustomPoses(ctx context.Context) ([]ir.Pose, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, spoken_alias, category, symmetry_turn, default_transition_ms, default_hold_ms
		FROM custom_poses
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query custom poses: %w", err)
	}
	defer rows.Close()

	poses := []ir.Pose{}
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom poses: %w", err)
	}
	return poses, nil
}

func scanPose(rows *sql.Rows) (ir.Pose, error) {
	var (
		p            ir.Pose
		id           string
		transitionMS int64
		holdMS       int64
	)
	err := rows.Scan(&id, &p.Label, &p.SpokenAlias, &p.Category, &p.SymmetryTurn, &transitionMS, &holdMS)
	if err != nil {
		return ir.Pose{}, fmt.Errorf("scan custom pose: %w", err)
	}
	p.ID = ir.PoseRef(id)
	p.DefaultTransition = time.Duration(transitionMS) * time.Millisecond
	p.DefaultHold = time.Duration(holdMS) * time.Millisecond
	p.Custom = true
	return p, nil
}
