// Package providers defines the contracts between the analysis orchestrator
// and the two result sources: the AI reasoning service (primary) and the
// PubChem database (secondary fallback).
package providers

import (
	"context"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// Primary is the AI reasoning service.  Errors carry the provider error
// taxonomy (rate-limited, unavailable, malformed, not-found) so the
// orchestrator can decide between retry and fallback.
type Primary interface {
	// ResolveQuery turns a chemical name or SMILES string into a full
	// SearchResult including a drawable 2D structure.
	ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error)

	// AnalyzeStructure performs deep analysis of a drawn molecule:
	// stereochemistry, VSEPR geometries, properties, 3D payload, isomers
	// and conformers.
	AnalyzeStructure(ctx context.Context, mol *chem.Molecule) (*chem.AnalysisResult, error)
}

// Secondary is the database fallback.  It can only be keyed by an
// identifying string (name, SMILES, or CID) — never by a bare structural
// graph.
type Secondary interface {
	// ResolveQuery looks the query up as a name first, then as a SMILES
	// string.
	ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error)

	// FetchProperties returns baseline physical properties for a known
	// reference.
	FetchProperties(ctx context.Context, ref chem.Reference) (map[string]string, error)

	// FetchMolBlock3D returns a 3D conformer mol block for a known
	// reference.
	FetchMolBlock3D(ctx context.Context, ref chem.Reference) (string, error)
}
