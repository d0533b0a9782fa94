package editor

import (
	"fmt"
	"math"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Render plan
// ─────────────────────────────────────────────────────────────────────────────

// Label is one atom symbol to draw, in device coordinates.  Backed labels get
// an opaque disc under the text so bond lines do not strike through the
// symbol.
type Label struct {
	AtomID  string  `json:"atom_id"`
	Text    string  `json:"text"`
	At      Point   `json:"at"`
	Backed  bool    `json:"backed"`
	Target  bool    `json:"target,omitempty"`
	RadiusP float64 `json:"radius_px,omitempty"`
}

// Segment is one bond line to draw, in device coordinates.  Multi-order bonds
// expand to several parallel segments sharing a bond ID.
type Segment struct {
	BondID string `json:"bond_id"`
	From   Point  `json:"from"`
	To     Point  `json:"to"`
	Dashed bool   `json:"dashed,omitempty"`
}

// RenderPlan is everything the canvas needs to draw one frame.  All
// coordinates are device-space; the client performs no transform of its own.
type RenderPlan struct {
	Segments []Segment `json:"segments"`
	Labels   []Label   `json:"labels"`
	Preview  *Segment  `json:"preview,omitempty"`
	Viewport Viewport  `json:"viewport"`
	Tool     Tool      `json:"tool"`
}

// Render produces the skeletal drawing for the current state.
//
// Skeletal convention: a carbon with at least one bond is an unlabeled vertex;
// carbons with no bonds, and every heteroatom, get a backed symbol label.
// Charges render as superscript suffixes on the label text.
func (e *Engine) Render() *RenderPlan {
	plan := &RenderPlan{
		Segments: []Segment{},
		Labels:   []Label{},
		Viewport: e.viewport,
		Tool:     e.tool,
	}

	pos := make(map[string]Point, e.graph.AtomCount())
	for _, a := range e.graph.Atoms() {
		pos[a.ID] = Point{X: a.X, Y: a.Y}
	}

	gap := e.cfg.MultiBondGapPx / e.viewport.Scale
	for _, b := range e.graph.Bonds() {
		from, okF := pos[b.From]
		to, okT := pos[b.To]
		if !okF || !okT {
			continue
		}
		plan.Segments = append(plan.Segments, e.bondSegments(b, from, to, gap)...)
	}

	for _, a := range e.graph.Atoms() {
		if a.Element == chem.ElementC && e.graph.IncidentBondCount(a.ID) > 0 && a.ID != e.target {
			continue
		}
		plan.Labels = append(plan.Labels, Label{
			AtomID:  a.ID,
			Text:    labelText(a),
			At:      e.viewport.ToDevice(pos[a.ID]),
			Backed:  true,
			Target:  a.ID == e.target,
			RadiusP: e.cfg.AtomHitRadiusPx,
		})
	}

	if e.drag.bondOrigin != "" {
		if origin, ok := e.graph.Atom(e.drag.bondOrigin); ok {
			plan.Preview = &Segment{
				From:   e.viewport.ToDevice(Point{X: origin.X, Y: origin.Y}),
				To:     e.drag.current,
				Dashed: true,
			}
		}
	}

	return plan
}

// bondSegments expands a bond into its parallel device-space segments.  The
// gap is given in model units so the on-screen spacing stays constant across
// zoom levels.
func (e *Engine) bondSegments(b chem.Bond, from, to Point, gap float64) []Segment {
	px, py := perpendicular(from, to)

	var offsets []float64
	switch b.Order.Multiplicity() {
	case 2:
		offsets = []float64{-gap / 2, gap / 2}
	case 3:
		offsets = []float64{-gap, 0, gap}
	default:
		offsets = []float64{0}
	}

	out := make([]Segment, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, Segment{
			BondID: b.ID,
			From:   e.viewport.ToDevice(Point{X: from.X + px*off, Y: from.Y + py*off}),
			To:     e.viewport.ToDevice(Point{X: to.X + px*off, Y: to.Y + py*off}),
		})
	}
	return out
}

// perpendicular returns the unit vector normal to segment ab, or zero for a
// degenerate segment.
func perpendicular(a, b Point) (float64, float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return -dy / length, dx / length
}

// labelText renders an atom's symbol with its charge suffix.
func labelText(a chem.Atom) string {
	text := string(a.Element)
	switch {
	case a.Charge == 1:
		text += "+"
	case a.Charge == -1:
		text += "-"
	case a.Charge > 1:
		text += fmt.Sprintf("%d+", a.Charge)
	case a.Charge < -1:
		text += fmt.Sprintf("%d-", -a.Charge)
	}
	return text
}
