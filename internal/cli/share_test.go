package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/share"
)

func encodeLink(t *testing.T, opts *RootOptions, args ...string) string {
	t.Helper()
	out, _, err := execute(NewShareCommand(opts), append([]string{"encode"}, args...)...)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestShareEncodeImport(t *testing.T) {
	opts := testOptions(t, "text")

	link := encodeLink(t, opts, "tiny", "--base", "https://example.com/practice")
	assert.True(t, strings.HasPrefix(link, "https://example.com/practice?preset="), link)

	out, _, err := execute(NewShareCommand(opts), "import", link)
	require.NoError(t, err)
	assert.Equal(t, "Tiny · 1 loop(s)\n"+
		"  1. alpha  0.5s + 1s\n"+
		"  2. bravo  0s + 1s\n", out)
}

func TestShareOverridesTravel(t *testing.T) {
	opts := testOptions(t, "json")

	out, _, err := execute(NewShareCommand(opts), "encode", "looped", "--every-hold", "4", "--rest", "0")
	require.NoError(t, err)
	var encoded struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &encoded))
	link := encoded.Data["link"]
	assert.True(t, strings.HasPrefix(link, "?preset="), link)

	r, err := share.Decode(link)
	require.NoError(t, err)
	assert.Equal(t, 2, r.RepeatCount)
	assert.Zero(t, r.LoopRest)
	assert.True(t, r.SymmetryTurn)
	for _, it := range r.Items {
		assert.Equal(t, 4.0, it.Hold.Seconds())
	}
}

func TestShareImportSave(t *testing.T) {
	opts := testOptions(t, "text")
	link := encodeLink(t, opts, "looped")

	out, _, err := execute(NewShareCommand(opts), "import", link, "--save", "from_coach")
	require.NoError(t, err)
	assert.Equal(t, "Saved from_coach (run as custom_from_coach)\n", out)

	out, _, err = execute(NewCompileCommand(opts), "custom_from_coach")
	require.NoError(t, err)
	assert.Contains(t, out, "4 poses · 5 steps · 0:17")
}

func TestShareImportSaveUnknownPose(t *testing.T) {
	token, err := share.EncodeToken(share.Payload{
		V:           ir.ShareVersion,
		Label:       "Mystery",
		RepeatCount: 1,
		Items:       []share.Item{{PoseID: "moonwalk", TransitionSec: 1, HoldSec: 5}},
	})
	require.NoError(t, err)

	_, errOut, err := execute(NewShareCommand(testOptions(t, "text")), "import", token, "--save", "mystery")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "moonwalk")
}

func TestShareImportInvalidLink(t *testing.T) {
	_, _, err := execute(NewShareCommand(testOptions(t, "text")), "import", "https://example.com/?other=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, share.ErrInvalidLink)
}

func TestShareImportInvalidLinkJSON(t *testing.T) {
	out, _, err := execute(NewShareCommand(testOptions(t, "json")), "import", "?preset=%%%")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidLink, resp.Error.Code)
}

func TestShareImportNewerVersion(t *testing.T) {
	token, err := share.EncodeToken(share.Payload{
		V:     ir.ShareVersion + 1,
		Items: []share.Item{{PoseID: "alpha", HoldSec: 1}},
	})
	require.NoError(t, err)

	_, _, err = execute(NewShareCommand(testOptions(t, "text")), "import", token)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, share.ErrUnsupportedVersion)
}

func TestShareEncodeRejectsMaster(t *testing.T) {
	_, _, err := execute(NewShareCommand(testOptions(t, "text")), "encode", "both")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
