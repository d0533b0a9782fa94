package editor

import (
	"math"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Scale-invariant hit-testing
// ─────────────────────────────────────────────────────────────────────────────
//
// Hit radii are fixed in screen pixels, so the model-space threshold shrinks
// as the user zooms in.  Atoms are tested before bonds, each in insertion
// order; the first hit wins, matching render stacking.

// hitAtom returns the first atom (insertion order) whose model-space distance
// to the model point is within the screen hit radius divided by scale.
func (e *Engine) hitAtom(model Point) (chem.Atom, bool) {
	threshold := e.cfg.AtomHitRadiusPx / e.viewport.Scale
	for _, a := range e.graph.Atoms() {
		if dist(model, Point{X: a.X, Y: a.Y}) <= threshold {
			return a, true
		}
	}
	return chem.Atom{}, false
}

// hitBond returns the first bond (insertion order) whose segment passes
// within the screen hit radius divided by scale.  A point projects onto the
// segment at parameter t in [0, 1]; beyond the endpoints there is no hit.
func (e *Engine) hitBond(model Point) (chem.Bond, bool) {
	threshold := e.cfg.BondHitRadiusPx / e.viewport.Scale

	pos := make(map[string]Point, len(e.graph.Atoms()))
	for _, a := range e.graph.Atoms() {
		pos[a.ID] = Point{X: a.X, Y: a.Y}
	}

	for _, b := range e.graph.Bonds() {
		from, okF := pos[b.From]
		to, okT := pos[b.To]
		if !okF || !okT {
			continue
		}
		if pointSegmentDistance(model, from, to) <= threshold {
			return b, true
		}
	}
	return chem.Bond{}, false
}

// pointSegmentDistance returns the distance from p to segment ab, infinite
// when the projection falls outside [0, 1].
func pointSegmentDistance(p, a, b Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / lenSq
	if t < 0 || t > 1 {
		return math.Inf(1)
	}
	proj := Point{X: a.X + t*abx, Y: a.Y + t*aby}
	return dist(p, proj)
}
