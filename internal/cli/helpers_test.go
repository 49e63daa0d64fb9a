package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/poser/internal/config"
)

// testOptions returns root options backed by a throwaway database and the
// drill library in testdata.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	cfg := config.Default()
	cfg.Voice.Enabled = false
	cfg.Paths.Database = filepath.Join(t.TempDir(), "poser.db")
	cfg.Paths.Library = filepath.Join("testdata", "library")
	return &RootOptions{Format: format, cfg: cfg}
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
