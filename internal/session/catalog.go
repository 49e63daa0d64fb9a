package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/poser/internal/library"
	"github.com/roach88/poser/internal/store"
)

// LoadLibrary builds the layered catalog: built-ins, then the CUE files in
// dir (if dir is non-empty), then custom poses and playlists from st (if st
// is non-nil).
func LoadLibrary(ctx context.Context, dir string, st *store.Store) (*library.Library, error) {
	lib, err := library.Builtin()
	if err != nil {
		return nil, err
	}

	if dir != "" {
		defs, errs := library.LoadDir(dir, library.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, fmt.Errorf("load library %s: %w", dir, errors.Join(errs...))
		}
		lib.Merge(*defs)
		slog.Debug("library loaded", "dir", dir, "files", defs.FileCount,
			"poses", len(defs.Poses), "routines", len(defs.Routines), "masters", len(defs.Masters))
	}

	if st == nil {
		return lib, nil
	}

	poses, err := st.ListCustomPoses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load custom poses: %w", err)
	}
	lib.AddCustomPoses(poses...)

	playlists, err := st.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("load playlists: %w", err)
	}
	for _, p := range playlists {
		lib.AddPlaylist(p.Name, p.Routine)
	}
	return lib, nil
}
