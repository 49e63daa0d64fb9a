// Package share encodes routines into links that can be pasted elsewhere and
// imported again.
//
// A link carries a version-1 payload as base64 JSON in the "preset" query
// parameter. Encoding uses the URL-safe alphabet without padding; decoding
// also accepts the standard alphabet and padding.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/poser/internal/ir"
)

// Param is the query parameter that carries the payload.
const Param = "preset"

// DefaultLabel names imported routines whose payload has no label.
const DefaultLabel = "Shared preset"

var (
	// ErrInvalidLink is returned when a link holds no decodable payload.
	ErrInvalidLink = errors.New("invalid share link")

	// ErrUnsupportedVersion is returned for payloads newer than this build.
	ErrUnsupportedVersion = errors.New("unsupported share version")
)

// Item is one pose of a shared routine.
type Item struct {
	PoseID        string  `json:"poseId"`
	TransitionSec float64 `json:"transitionSec"`
	HoldSec       float64 `json:"holdSec"`
}

// Payload is the JSON document embedded in a link. Every* fields are null
// when unset.
type Payload struct {
	V                  int      `json:"v"`
	Label              string   `json:"label"`
	RepeatCount        int      `json:"repeatCount"`
	LoopRestSec        float64  `json:"loopRestSec"`
	EveryHoldSec       *float64 `json:"everyHoldSec"`
	EveryTransitionSec *float64 `json:"everyTransitionSec"`
	SymmetryTurn       bool     `json:"symmetryTurn,omitempty"`
	Items              []Item   `json:"items"`
}

// NewPayload captures r with the repeat and rest overrides applied. Hold and
// transition overrides travel separately and are applied on import.
func NewPayload(r ir.RoutineDef, ov ir.Overrides) Payload {
	p := Payload{
		V:            ir.ShareVersion,
		Label:        r.Label,
		RepeatCount:  r.RepeatCount,
		LoopRestSec:  r.LoopRest.Seconds(),
		SymmetryTurn: r.SymmetryTurn,
		Items:        make([]Item, 0, len(r.Items)),
	}
	if ov.LoopRepeatCount != nil {
		p.RepeatCount = *ov.LoopRepeatCount
	}
	if ov.LoopRest != nil {
		p.LoopRestSec = ov.LoopRest.Seconds()
	}
	if ov.EveryHold != nil {
		p.EveryHoldSec = secondsPtr(*ov.EveryHold)
	}
	if ov.EveryTransition != nil {
		p.EveryTransitionSec = secondsPtr(*ov.EveryTransition)
	}
	for _, it := range r.Items {
		p.Items = append(p.Items, Item{
			PoseID:        string(it.Pose),
			TransitionSec: it.Transition.Seconds(),
			HoldSec:       it.Hold.Seconds(),
		})
	}
	return p
}

func secondsPtr(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}

// Routine converts the payload into a routine definition. Every-hold and
// every-transition values replace the item timings, the repeat count is at
// least 1 and negative durations become 0. The routine has no ID.
func (p Payload) Routine() ir.RoutineDef {
	r := ir.RoutineDef{
		Label:        p.Label,
		RepeatCount:  max(1, p.RepeatCount),
		LoopRest:     duration(p.LoopRestSec),
		SymmetryTurn: p.SymmetryTurn,
		Items:        make([]ir.RoutineItem, 0, len(p.Items)),
	}
	if r.Label == "" {
		r.Label = DefaultLabel
	}
	for _, it := range p.Items {
		item := ir.RoutineItem{
			Pose:       ir.PoseRef(it.PoseID),
			Transition: duration(it.TransitionSec),
			Hold:       duration(it.HoldSec),
		}
		if p.EveryTransitionSec != nil {
			item.Transition = duration(*p.EveryTransitionSec)
		}
		if p.EveryHoldSec != nil {
			item.Hold = duration(*p.EveryHoldSec)
		}
		r.Items = append(r.Items, item)
	}
	return r
}

// duration converts seconds to a non-negative duration at millisecond
// precision.
func duration(sec float64) time.Duration {
	if sec <= 0 || math.IsNaN(sec) {
		return 0
	}
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

// EncodeToken returns the base64 form of p.
func EncodeToken(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Encode builds a share link for r under base. An empty base yields just
// the query string ("?preset=...").
func Encode(r ir.RoutineDef, ov ir.Overrides, base string) (string, error) {
	token, err := EncodeToken(NewPayload(r, ov))
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(Param, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodePayload extracts the payload from a link, a query string or a bare
// token.
func DecodePayload(link string) (Payload, error) {
	token := strings.TrimSpace(link)
	switch {
	case strings.Contains(token, "?"):
		u, err := url.Parse(token)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
		}
		token = u.Query().Get(Param)
	case strings.HasPrefix(token, Param+"="):
		q, err := url.ParseQuery(token)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
		}
		token = q.Get(Param)
	}
	// An unescaped "+" arrives as a space.
	token = strings.ReplaceAll(token, " ", "+")
	if token == "" {
		return Payload{}, fmt.Errorf("%w: no %q parameter", ErrInvalidLink, Param)
	}

	data, err := decodeBase64(token)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if p.V > ir.ShareVersion {
		return Payload{}, fmt.Errorf("%w: v%d", ErrUnsupportedVersion, p.V)
	}
	if len(p.Items) == 0 {
		return Payload{}, fmt.Errorf("%w: no items", ErrInvalidLink)
	}
	return p, nil
}

// Decode extracts the routine carried by link. See Payload.Routine.
func Decode(link string) (ir.RoutineDef, error) {
	p, err := DecodePayload(link)
	if err != nil {
		return ir.RoutineDef{}, err
	}
	return p.Routine(), nil
}

// decodeBase64 accepts URL-safe and standard alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
