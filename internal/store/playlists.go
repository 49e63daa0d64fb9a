package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// Playlist is a user routine saved under a name.
type Playlist struct {
	Name      string
	Routine   ir.RoutineDef
	UpdatedAt time.Time
}

// SavePlaylist inserts or replaces the routine stored under name.
func (s *Store) SavePlaylist(ctx context.Context, name string, r ir.RoutineDef) error {
	if name == "" {
		return fmt.Errorf("save playlist: name is required")
	}
	data, err := marshalRoutine(r)
	if err != nil {
		return fmt.Errorf("save playlist %q: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO playlists (name, routine, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			routine = excluded.routine,
			updated_at = excluded.updated_at
	`, name, data, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("save playlist %q: %w", name, err)
	}
	return nil
}

// GetPlaylist returns one playlist. Returns ErrNotFound if absent.
func (s *Store) GetPlaylist(ctx context.Context, name string) (Playlist, error) {
	var data, updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT routine, updated_at FROM playlists WHERE name = ?", name,
	).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist %q: %w", name, err)
	}
	return newPlaylist(name, data, updated)
}

// DeletePlaylist removes a playlist. Returns ErrNotFound if absent.
func (s *Store) DeletePlaylist(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM playlists WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	return nil
}

// ListPlaylists returns every playlist ordered by name.
func (s *Store) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, routine, updated_at
		FROM playlists
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		var name, data, updated string
		if err := rows.Scan(&name, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		p, err := newPlaylist(name, data, updated)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// PlaylistRoutineID is the routine ID under which a playlist is addressed.
func PlaylistRoutineID(name string) string {
	return "custom_" + name
}

func newPlaylist(name, data, updated string) (Playlist, error) {
	r, err := unmarshalRoutine(PlaylistRoutineID(name), data)
	if err != nil {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, err)
	}
	at, err := parseTime(updated)
	if err != nil {
		return Playlist{}, fmt.Errorf("playlist %q: %w", name, err)
	}
	return Playlist{Name: name, Routine: r, UpdatedAt: at}, nil
}
