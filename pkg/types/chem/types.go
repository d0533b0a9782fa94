// Package chem defines the shared data-transfer types for molecular
// structures, resolution results, and analysis results.  These types cross
// every layer boundary (editor engine, orchestrator, HTTP API, SDK client)
// and therefore live under pkg/ rather than internal/.
package chem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Elements
// ─────────────────────────────────────────────────────────────────────────────

// Element is the chemical element symbol of an atom.  The editor palette is
// restricted to the organic subset below; anything else is rejected at the
// API boundary.
type Element string

const (
	ElementC  Element = "C"
	ElementH  Element = "H"
	ElementO  Element = "O"
	ElementN  Element = "N"
	ElementF  Element = "F"
	ElementCl Element = "Cl"
	ElementBr Element = "Br"
	ElementI  Element = "I"
	ElementP  Element = "P"
	ElementS  Element = "S"
)

var validElements = map[Element]struct{}{
	ElementC: {}, ElementH: {}, ElementO: {}, ElementN: {}, ElementF: {},
	ElementCl: {}, ElementBr: {}, ElementI: {}, ElementP: {}, ElementS: {},
}

// IsValid reports whether the element is part of the editor palette.
func (e Element) IsValid() bool {
	_, ok := validElements[e]
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Bonds
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the multiplicity of a bond.
type BondOrder string

const (
	BondSingle BondOrder = "single"
	BondDouble BondOrder = "double"
	BondTriple BondOrder = "triple"
)

// IsValid reports whether the bond order is one of the supported values.
func (o BondOrder) IsValid() bool {
	switch o {
	case BondSingle, BondDouble, BondTriple:
		return true
	}
	return false
}

// Multiplicity returns the number of parallel line segments used to draw the
// bond (1, 2 or 3).
func (o BondOrder) Multiplicity() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

// BondStereo annotates out-of-plane direction.  Reserved: the editor stores
// the value but does not yet offer tools to set it.
type BondStereo string

const (
	StereoNone  BondStereo = "none"
	StereoWedge BondStereo = "wedge"
	StereoDash  BondStereo = "dash"
)

// ─────────────────────────────────────────────────────────────────────────────
// Molecule graph DTOs
// ─────────────────────────────────────────────────────────────────────────────

// Atom is one node of the molecular graph.  X and Y are model-space
// coordinates, independent of any viewport.
type Atom struct {
	ID        string  `json:"id"`
	Element   Element `json:"element"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Charge    int     `json:"charge,omitempty"`
	LonePairs int     `json:"lone_pairs,omitempty"`
}

// Bond is one edge of the molecular graph.  From/To record the drawing
// direction for render offset purposes; bond existence is unordered.
type Bond struct {
	ID     string     `json:"id"`
	From   string     `json:"from"`
	To     string     `json:"to"`
	Order  BondOrder  `json:"order"`
	Stereo BondStereo `json:"stereo,omitempty"`
}

// Molecule is the full editable structure.  Atom and bond order is stable
// (insertion order) so that rendering and hit-testing are deterministic.
type Molecule struct {
	Atoms []Atom `json:"atoms"`
	Bonds []Bond `json:"bonds"`
}

// IsEmpty reports whether the molecule has no atoms.
func (m *Molecule) IsEmpty() bool {
	return m == nil || len(m.Atoms) == 0
}

// Clone returns a deep copy.  Handlers pass clones across the
// orchestrator boundary so in-flight analysis never observes edits.
func (m *Molecule) Clone() *Molecule {
	if m == nil {
		return nil
	}
	c := &Molecule{
		Atoms: make([]Atom, len(m.Atoms)),
		Bonds: make([]Bond, len(m.Bonds)),
	}
	copy(c.Atoms, m.Atoms)
	copy(c.Bonds, m.Bonds)
	return c
}

// ContentHash returns a stable hex digest of the molecule's chemistry:
// elements, charges, and bond topology, with coordinates quantized so that
// sub-pixel drag noise does not change the key.  Used as the analysis
// cache key.
func (m *Molecule) ContentHash() string {
	if m == nil {
		return ""
	}
	lines := make([]string, 0, len(m.Atoms)+len(m.Bonds))
	for _, a := range m.Atoms {
		lines = append(lines, fmt.Sprintf("a|%s|%s|%d|%d|%.1f|%.1f",
			a.ID, a.Element, a.Charge, a.LonePairs, a.X, a.Y))
	}
	for _, b := range m.Bonds {
		from, to := b.From, b.To
		if from > to {
			from, to = to, from
		}
		lines = append(lines, fmt.Sprintf("b|%s|%s|%s", from, to, b.Order))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolution and analysis DTOs
// ─────────────────────────────────────────────────────────────────────────────

// Source identifies which backend produced a result.
type Source string

const (
	SourceAI      Source = "ai"
	SourcePubChem Source = "pubchem"
)

// SearchResult is the outcome of resolving a free-text query into a
// structure.  It is complete or absent: no partially-populated result is
// ever returned.
type SearchResult struct {
	Molecule   Molecule `json:"molecule"`
	SMILES     string   `json:"smiles,omitempty"`
	IUPACName  string   `json:"iupac_name,omitempty"`
	CommonName string   `json:"common_name,omitempty"`
	Formula    string   `json:"formula,omitempty"`
	CID        int64    `json:"cid,omitempty"`
	Source     Source   `json:"source"`
	Degraded   bool     `json:"degraded"`
}

// Reference is the naming metadata carried from a prior resolution that the
// orchestrator can fall back on when deep analysis fails.
type Reference struct {
	SMILES string `json:"smiles,omitempty"`
	Name   string `json:"name,omitempty"`
	CID    int64  `json:"cid,omitempty"`
}

// IsZero reports whether no fallback identifier is available.
func (r Reference) IsZero() bool {
	return r.SMILES == "" && r.Name == "" && r.CID == 0
}

// Stereocenter describes one chiral center found by analysis.
type Stereocenter struct {
	Configuration string `json:"configuration"` // "R", "S", or "undetermined"
	Rationale     string `json:"rationale,omitempty"`
}

// Geometry describes the VSEPR-predicted local geometry of one atom.
type Geometry struct {
	Shape     string `json:"shape"`
	Rationale string `json:"rationale,omitempty"`
}

// NamedStructure pairs a name with an optional mol-block payload, used for
// isomer and conformer listings.
type NamedStructure struct {
	Name     string `json:"name"`
	MolBlock string `json:"mol_block,omitempty"`
}

// AnalysisResult is the outcome of analyzing a drawn structure.  Results are
// replaced wholesale between requests; the only in-place update permitted is
// the asynchronous Properties enrichment, which may add keys but never
// removes or downgrades an existing result.
type AnalysisResult struct {
	Stereocenters map[string]Stereocenter `json:"stereocenters"`
	Geometries    map[string]Geometry     `json:"geometries"`
	Properties    map[string]string       `json:"properties"`
	MolBlock3D    string                  `json:"mol_block_3d,omitempty"`
	Isomers       []NamedStructure        `json:"isomers,omitempty"`
	Conformers    []NamedStructure        `json:"conformers,omitempty"`
	Annotation    string                  `json:"annotation,omitempty"`
	SMILES        string                  `json:"smiles,omitempty"`
	Source        Source                  `json:"source"`
	Degraded      bool                    `json:"degraded"`
}
