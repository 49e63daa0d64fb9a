package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/poser/internal/ir"
)

// Format selects the playlist document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown playlist format %q", s)
	}
}

// PlaylistItem is one pose of a playlist document.
type PlaylistItem struct {
	PoseID        string  `json:"poseId" yaml:"poseId"`
	TransitionSec float64 `json:"transitionSec" yaml:"transitionSec"`
	HoldSec       float64 `json:"holdSec" yaml:"holdSec"`
}

// PlaylistDoc is the portable form of a saved playlist.
type PlaylistDoc struct {
	Name         string         `json:"name" yaml:"name"`
	RepeatCount  int            `json:"repeatCount" yaml:"repeatCount"`
	LoopRestSec  float64        `json:"loopRestSec" yaml:"loopRestSec"`
	SymmetryTurn bool           `json:"symmetryTurn,omitempty" yaml:"symmetryTurn,omitempty"`
	Items        []PlaylistItem `json:"items" yaml:"items"`

	// LoopMode is read and ignored; "repeat" is the only mode.
	LoopMode string `json:"loopMode,omitempty" yaml:"loopMode,omitempty"`
}

// NewPlaylistDoc converts a routine saved under name.
func NewPlaylistDoc(name string, r ir.RoutineDef) PlaylistDoc {
	doc := PlaylistDoc{
		Name:         name,
		RepeatCount:  r.RepeatCount,
		LoopRestSec:  r.LoopRest.Seconds(),
		SymmetryTurn: r.SymmetryTurn,
		Items:        make([]PlaylistItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		doc.Items = append(doc.Items, PlaylistItem{
			PoseID:        string(it.Pose),
			TransitionSec: it.Transition.Seconds(),
			HoldSec:       it.Hold.Seconds(),
		})
	}
	return doc
}

// Routine converts the document back, clamping repeat to at least 1 and
// durations to at least 0.
func (d PlaylistDoc) Routine() ir.RoutineDef {
	r := ir.RoutineDef{
		Label:        d.Name,
		RepeatCount:  max(1, d.RepeatCount),
		LoopRest:     seconds(d.LoopRestSec),
		SymmetryTurn: d.SymmetryTurn,
		Items:        make([]ir.RoutineItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		r.Items = append(r.Items, ir.RoutineItem{
			Pose:       ir.PoseRef(it.PoseID),
			Transition: seconds(it.TransitionSec),
			Hold:       seconds(it.HoldSec),
		})
	}
	return r
}

func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

// WritePlaylists encodes docs as a JSON array or a YAML sequence.
func WritePlaylists(w io.Writer, docs []PlaylistDoc, f Format) error {
	if docs == nil {
		docs = []PlaylistDoc{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown playlist format %q", f)
	}
}

// ReadPlaylists decodes a document written by WritePlaylists. Unknown fields
// are rejected. Every playlist needs a name and at least one item.
func ReadPlaylists(r io.Reader, f Format) ([]PlaylistDoc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read playlists: %w", err)
	}

	var docs []PlaylistDoc
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&docs)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&docs)
	default:
		return nil, fmt.Errorf("unknown playlist format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse playlists: %w", err)
	}

	for i, d := range docs {
		if d.Name == "" {
			return nil, fmt.Errorf("playlist %d: name is required", i)
		}
		if len(d.Items) == 0 {
			return nil, fmt.Errorf("playlist %q: at least one item is required", d.Name)
		}
	}
	return docs, nil
}
