package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaylistsSaveAndRun(t *testing.T) {
	opts := testOptions(t, "text")

	out, _, err := execute(NewPlaylistsCommand(opts), "save", "morning", "looped", "--every-hold", "3", "--repeat", "1")
	require.NoError(t, err)
	assert.Equal(t, "Saved morning (run as custom_morning)\n", out)

	out, _, err = execute(NewRoutinesCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "custom_morning")
	assert.Contains(t, out, "playlist")

	out, _, err = execute(NewCompileCommand(opts), "custom_morning")
	require.NoError(t, err)
	assert.Contains(t, out, "2 poses · 2 steps · 0:08")

	out, _, err = execute(NewPlaylistsCommand(opts), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "morning")
	assert.Contains(t, out, "custom_morning")
}

func TestPlaylistsListEmpty(t *testing.T) {
	out, _, err := execute(NewPlaylistsCommand(testOptions(t, "text")), "list")
	require.NoError(t, err)
	assert.Equal(t, "No playlists saved.\n", out)
}

func TestPlaylistsSaveRejectsMaster(t *testing.T) {
	_, _, err := execute(NewPlaylistsCommand(testOptions(t, "text")), "save", "all", "both")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlaylistsSaveUnknownRoutine(t *testing.T) {
	_, _, err := execute(NewPlaylistsCommand(testOptions(t, "text")), "save", "x", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlaylistsExportImport(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			src := testOptions(t, "text")
			_, _, err := execute(NewPlaylistsCommand(src), "save", "evening", "tiny", "--rest", "4", "--repeat", "2")
			require.NoError(t, err)

			file := filepath.Join(t.TempDir(), "playlists"+ext)
			_, _, err = execute(NewPlaylistsCommand(src), "export", "-o", file)
			require.NoError(t, err)

			dst := testOptions(t, "text")
			out, _, err := execute(NewPlaylistsCommand(dst), "import", file)
			require.NoError(t, err)
			assert.Equal(t, "Imported 1 playlist(s): evening\n", out)

			out, _, err = execute(NewCompileCommand(dst), "custom_evening")
			require.NoError(t, err)
			assert.Contains(t, out, "4 poses · 5 steps")
		})
	}
}

func TestPlaylistsExportStdoutJSON(t *testing.T) {
	opts := testOptions(t, "text")
	_, _, err := execute(NewPlaylistsCommand(opts), "save", "evening", "tiny")
	require.NoError(t, err)

	out, _, err := execute(NewPlaylistsCommand(opts), "export", "--as", "json")
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "evening", docs[0]["name"])
	assert.Len(t, docs[0]["items"], 2)
}

func TestPlaylistsImportUnknownPose(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
  {"name": "good", "repeatCount": 1, "items": [{"poseId": "alpha", "transitionSec": 1, "holdSec": 1}]},
  {"name": "bad", "repeatCount": 1, "items": [{"poseId": "nope", "transitionSec": 1, "holdSec": 1}]}
]`), 0o644))

	opts := testOptions(t, "text")
	_, errOut, err := execute(NewPlaylistsCommand(opts), "import", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "nope")

	out, _, err := execute(NewPlaylistsCommand(opts), "list")
	require.NoError(t, err)
	assert.Equal(t, "No playlists saved.\n", out, "nothing is saved when any playlist is invalid")
}

func TestPlaylistsImportBadFormat(t *testing.T) {
	_, _, err := execute(NewPlaylistsCommand(testOptions(t, "text")), "import", "playlists.json", "--as", "toml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlaylistsRemove(t *testing.T) {
	opts := testOptions(t, "text")
	_, _, err := execute(NewPlaylistsCommand(opts), "save", "evening", "tiny")
	require.NoError(t, err)

	out, _, err := execute(NewPlaylistsCommand(opts), "rm", "evening")
	require.NoError(t, err)
	assert.Equal(t, "Removed evening\n", out)

	_, _, err = execute(NewPlaylistsCommand(opts), "rm", "evening")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
