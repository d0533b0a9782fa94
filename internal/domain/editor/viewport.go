// Package editor implements the interactive geometry engine of the structure
// editor: viewport mapping, scale-invariant hit-testing, the tool state
// machine (pan, place-atom, bond drag, erase, ring stamp), and the skeletal
// render plan the canvas draws verbatim.
package editor

import "math"

// Point is a 2D coordinate, in either model or device space depending on
// context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport maps between model space and device space with a uniform scale
// and a translation.  Device-pixel-ratio correction happens caller-side;
// the viewport only ever sees CSS pixels.
type Viewport struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// NewViewport returns the identity viewport.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// ToModel converts a device point to model space: model = (device − offset) / scale.
func (v Viewport) ToModel(p Point) Point {
	return Point{
		X: (p.X - v.OffsetX) / v.Scale,
		Y: (p.Y - v.OffsetY) / v.Scale,
	}
}

// ToDevice converts a model point to device space.
func (v Viewport) ToDevice(p Point) Point {
	return Point{
		X: p.X*v.Scale + v.OffsetX,
		Y: p.Y*v.Scale + v.OffsetY,
	}
}

// Pan shifts the viewport by a device-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// ZoomBy multiplies the scale by factor, clamped to [min, max].  The zoom is
// anchored at the device point p: the model point under the cursor stays
// under the cursor.
func (v *Viewport) ZoomBy(factor, min, max float64, p Point) {
	anchor := v.ToModel(p)
	next := v.Scale * factor
	if next < min {
		next = min
	}
	if next > max {
		next = max
	}
	v.Scale = next
	v.OffsetX = p.X - anchor.X*v.Scale
	v.OffsetY = p.Y - anchor.Y*v.Scale
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
