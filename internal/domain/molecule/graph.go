// Package molecule provides the editable molecular graph at the heart of the
// structure editor.  A Graph owns atoms and bonds in stable insertion order,
// enforces the structural invariants (distinct endpoints, at most one bond per
// atom pair), and hands out immutable snapshots for rendering and analysis.
//
// The Graph itself is not synchronized; the editor session service serializes
// access.
package molecule

import (
	"fmt"

	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// Graph is the aggregate root for one editable structure.
type Graph struct {
	mol      chem.Molecule
	nextAtom int
	nextBond int
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{}
}

// FromMolecule builds a Graph seeded with an existing molecule, e.g. a
// resolved search result or a loaded sketch.  ID counters resume past the
// highest numeric suffix so new atoms never collide with loaded ones.
func FromMolecule(m *chem.Molecule) *Graph {
	g := &Graph{}
	if m == nil {
		return g
	}
	g.mol = *m.Clone()
	for _, a := range g.mol.Atoms {
		var n int
		if _, err := fmt.Sscanf(a.ID, "a%d", &n); err == nil && n > g.nextAtom {
			g.nextAtom = n
		}
	}
	for _, b := range g.mol.Bonds {
		var n int
		if _, err := fmt.Sscanf(b.ID, "b%d", &n); err == nil && n > g.nextBond {
			g.nextBond = n
		}
	}
	return g
}

// Snapshot returns a deep copy of the current molecule.
func (g *Graph) Snapshot() *chem.Molecule {
	return g.mol.Clone()
}

// Atoms returns the live atom list in insertion order.  Callers must treat
// it as read-only; use Snapshot for a detached copy.
func (g *Graph) Atoms() []chem.Atom { return g.mol.Atoms }

// Bonds returns the live bond list in insertion order.  Read-only.
func (g *Graph) Bonds() []chem.Bond { return g.mol.Bonds }

// IsEmpty reports whether the graph has no atoms.
func (g *Graph) IsEmpty() bool {
	return len(g.mol.Atoms) == 0
}

// AtomCount returns the number of atoms.
func (g *Graph) AtomCount() int { return len(g.mol.Atoms) }

// BondCount returns the number of bonds.
func (g *Graph) BondCount() int { return len(g.mol.Bonds) }

// ─────────────────────────────────────────────────────────────────────────────
// Atom operations
// ─────────────────────────────────────────────────────────────────────────────

// AddAtom places a new atom at the given model coordinates.
func (g *Graph) AddAtom(element chem.Element, x, y float64) (chem.Atom, error) {
	if !element.IsValid() {
		return chem.Atom{}, errors.New(errors.ErrCodeUnknownElement, "unknown element").
			WithDetail(string(element))
	}
	g.nextAtom++
	a := chem.Atom{
		ID:      fmt.Sprintf("a%d", g.nextAtom),
		Element: element,
		X:       x,
		Y:       y,
	}
	g.mol.Atoms = append(g.mol.Atoms, a)
	return a, nil
}

// Atom returns the atom with the given ID.
func (g *Graph) Atom(id string) (chem.Atom, bool) {
	for _, a := range g.mol.Atoms {
		if a.ID == id {
			return a, true
		}
	}
	return chem.Atom{}, false
}

// RetypeAtom swaps an existing atom's element in place, keeping its position
// and bonds.
func (g *Graph) RetypeAtom(id string, element chem.Element) error {
	if !element.IsValid() {
		return errors.New(errors.ErrCodeUnknownElement, "unknown element").
			WithDetail(string(element))
	}
	for i := range g.mol.Atoms {
		if g.mol.Atoms[i].ID == id {
			g.mol.Atoms[i].Element = element
			return nil
		}
	}
	return errors.New(errors.ErrCodeAtomNotFound, "atom not found").WithDetail(id)
}

// MoveAtom updates an atom's model coordinates.
func (g *Graph) MoveAtom(id string, x, y float64) error {
	for i := range g.mol.Atoms {
		if g.mol.Atoms[i].ID == id {
			g.mol.Atoms[i].X = x
			g.mol.Atoms[i].Y = y
			return nil
		}
	}
	return errors.New(errors.ErrCodeAtomNotFound, "atom not found").WithDetail(id)
}

// EraseAtom removes an atom and cascades to every incident bond.  It returns
// the number of bonds removed.
func (g *Graph) EraseAtom(id string) (int, error) {
	idx := -1
	for i, a := range g.mol.Atoms {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, errors.New(errors.ErrCodeAtomNotFound, "atom not found").WithDetail(id)
	}

	g.mol.Atoms = append(g.mol.Atoms[:idx], g.mol.Atoms[idx+1:]...)

	kept := g.mol.Bonds[:0]
	removed := 0
	for _, b := range g.mol.Bonds {
		if b.From == id || b.To == id {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	g.mol.Bonds = kept
	return removed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bond operations
// ─────────────────────────────────────────────────────────────────────────────

// AddBond connects two existing atoms.  Self-bonds and duplicate pairs are
// rejected; the caller decides whether rejection is an error or a silent
// no-op.
func (g *Graph) AddBond(fromID, toID string, order chem.BondOrder) (chem.Bond, error) {
	if !order.IsValid() {
		return chem.Bond{}, errors.InvalidParam("invalid bond order").WithDetail(string(order))
	}
	if fromID == toID {
		return chem.Bond{}, errors.New(errors.ErrCodeSelfBond, "bond endpoints must be distinct")
	}
	if _, ok := g.Atom(fromID); !ok {
		return chem.Bond{}, errors.New(errors.ErrCodeAtomNotFound, "atom not found").WithDetail(fromID)
	}
	if _, ok := g.Atom(toID); !ok {
		return chem.Bond{}, errors.New(errors.ErrCodeAtomNotFound, "atom not found").WithDetail(toID)
	}
	if _, ok := g.BondBetween(fromID, toID); ok {
		return chem.Bond{}, errors.New(errors.ErrCodeDuplicateBond, "atoms are already bonded")
	}

	g.nextBond++
	b := chem.Bond{
		ID:    fmt.Sprintf("b%d", g.nextBond),
		From:  fromID,
		To:    toID,
		Order: order,
	}
	g.mol.Bonds = append(g.mol.Bonds, b)
	return b, nil
}

// Bond returns the bond with the given ID.
func (g *Graph) Bond(id string) (chem.Bond, bool) {
	for _, b := range g.mol.Bonds {
		if b.ID == id {
			return b, true
		}
	}
	return chem.Bond{}, false
}

// BondBetween returns the bond connecting two atoms, in either direction.
func (g *Graph) BondBetween(aID, bID string) (chem.Bond, bool) {
	for _, b := range g.mol.Bonds {
		if (b.From == aID && b.To == bID) || (b.From == bID && b.To == aID) {
			return b, true
		}
	}
	return chem.Bond{}, false
}

// RetypeBond changes an existing bond's order in place.
func (g *Graph) RetypeBond(id string, order chem.BondOrder) error {
	if !order.IsValid() {
		return errors.InvalidParam("invalid bond order").WithDetail(string(order))
	}
	for i := range g.mol.Bonds {
		if g.mol.Bonds[i].ID == id {
			g.mol.Bonds[i].Order = order
			return nil
		}
	}
	return errors.New(errors.ErrCodeBondNotFound, "bond not found").WithDetail(id)
}

// EraseBond removes a single bond; atoms are untouched.
func (g *Graph) EraseBond(id string) error {
	for i, b := range g.mol.Bonds {
		if b.ID == id {
			g.mol.Bonds = append(g.mol.Bonds[:i], g.mol.Bonds[i+1:]...)
			return nil
		}
	}
	return errors.New(errors.ErrCodeBondNotFound, "bond not found").WithDetail(id)
}

// IncidentBonds returns all bonds touching the given atom.
func (g *Graph) IncidentBonds(atomID string) []chem.Bond {
	var out []chem.Bond
	for _, b := range g.mol.Bonds {
		if b.From == atomID || b.To == atomID {
			out = append(out, b)
		}
	}
	return out
}

// IncidentBondCount returns the number of bonds touching the given atom.
// The bond tool uses this to decide whether angle snapping applies.
func (g *Graph) IncidentBondCount(atomID string) int {
	n := 0
	for _, b := range g.mol.Bonds {
		if b.From == atomID || b.To == atomID {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Geometry helpers
// ─────────────────────────────────────────────────────────────────────────────

// BoundingBox returns the axis-aligned bounds of all atom positions.  ok is
// false for an empty graph.
func (g *Graph) BoundingBox() (minX, minY, maxX, maxY float64, ok bool) {
	if len(g.mol.Atoms) == 0 {
		return 0, 0, 0, 0, false
	}
	first := g.mol.Atoms[0]
	minX, maxX = first.X, first.X
	minY, maxY = first.Y, first.Y
	for _, a := range g.mol.Atoms[1:] {
		if a.X < minX {
			minX = a.X
		}
		if a.X > maxX {
			maxX = a.X
		}
		if a.Y < minY {
			minY = a.Y
		}
		if a.Y > maxY {
			maxY = a.Y
		}
	}
	return minX, minY, maxX, maxY, true
}
