package share

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/poser/internal/ir"
)

func loop() ir.RoutineDef {
	return ir.RoutineDef{
		ID:           "classic_symmetry_loop",
		Label:        "Classic Symmetry Loop",
		RepeatCount:  2,
		SymmetryTurn: true,
		Items: []ir.RoutineItem{
			{Pose: "front_relaxed", Transition: 5 * time.Second, Hold: 20 * time.Second},
			{Pose: "side_relaxed", Transition: 5 * time.Second, Hold: 20 * time.Second},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	link, err := Encode(loop(), ir.Overrides{}, "https://poser.example/app")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://poser.example/app?preset="))

	r, err := Decode(link)
	require.NoError(t, err)
	assert.Equal(t, "", r.ID)
	assert.Equal(t, "Classic Symmetry Loop", r.Label)
	assert.Equal(t, 2, r.RepeatCount)
	assert.True(t, r.SymmetryTurn)
	assert.Equal(t, loop().Items, r.Items)
}

func TestEncodeBakesOverridesOnImport(t *testing.T) {
	ov := ir.Overrides{
		EveryHold:       ir.Seconds(30),
		EveryTransition: ir.Dur(2500 * time.Millisecond),
		LoopRepeatCount: ir.Int(3),
		LoopRest:        ir.Seconds(15),
	}
	link, err := Encode(loop(), ov, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "?preset="))

	p, err := DecodePayload(link)
	require.NoError(t, err)
	assert.Equal(t, 1, p.V)
	assert.Equal(t, 3, p.RepeatCount)
	assert.Equal(t, 15.0, p.LoopRestSec)
	require.NotNil(t, p.EveryHoldSec)
	assert.Equal(t, 30.0, *p.EveryHoldSec)
	assert.Equal(t, 20.0, p.Items[0].HoldSec, "items keep their own timings")

	r := p.Routine()
	assert.Equal(t, 3, r.RepeatCount)
	assert.Equal(t, 15*time.Second, r.LoopRest)
	for _, it := range r.Items {
		assert.Equal(t, 30*time.Second, it.Hold)
		assert.Equal(t, 2500*time.Millisecond, it.Transition)
	}
}

func TestDecodeStandardBase64Link(t *testing.T) {
	// Links produced with the standard alphabet and padding.
	json := `{"v":1,"label":"Flow","repeatCount":0,"loopRestSec":-4,"everyHoldSec":null,"everyTransitionSec":null,` +
		`"items":[{"poseId":"vacuum","transitionSec":6,"holdSec":18}]}`
	token := base64.StdEncoding.EncodeToString([]byte(json))
	link := "https://poser.example/?preset=" + url.QueryEscape(token)

	r, err := Decode(link)
	require.NoError(t, err)
	assert.Equal(t, "Flow", r.Label)
	assert.Equal(t, 1, r.RepeatCount, "repeat is clamped to 1")
	assert.Equal(t, time.Duration(0), r.LoopRest, "rest is clamped to 0")
	assert.Equal(t, []ir.RoutineItem{{Pose: "vacuum", Transition: 6 * time.Second, Hold: 18 * time.Second}}, r.Items)

	bare, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, r, bare)
}

func TestDecodeQueryOnly(t *testing.T) {
	token, err := EncodeToken(NewPayload(loop(), ir.Overrides{}))
	require.NoError(t, err)

	r, err := Decode("preset=" + token)
	require.NoError(t, err)
	assert.Len(t, r.Items, 2)
}

func TestDecodeDefaultsLabel(t *testing.T) {
	token, err := EncodeToken(Payload{V: 1, Items: []Item{{PoseID: "teacup", HoldSec: 5}}})
	require.NoError(t, err)

	r, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, r.Label)
}

func TestDecodeErrors(t *testing.T) {
	empty, err := EncodeToken(Payload{V: 1, Label: "x"})
	require.NoError(t, err)
	future, err := EncodeToken(Payload{V: 2, Items: []Item{{PoseID: "a"}}})
	require.NoError(t, err)

	tests := []struct {
		name string
		link string
		want error
	}{
		{"no param", "https://poser.example/?other=1", ErrInvalidLink},
		{"not base64", "!!!", ErrInvalidLink},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("hello")), ErrInvalidLink},
		{"no items", empty, ErrInvalidLink},
		{"future version", future, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.link)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
