package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// SessionsClient drives editor sessions: lifecycle, drawing commands, and
// resolve/analyze.
type SessionsClient struct {
	client *Client
}

// Session is the server-side view of an editor session.  Plan is the raw
// render plan; frontends decode it with their own drawing types.
type Session struct {
	ID        string          `json:"id"`
	AtomCount int             `json:"atom_count"`
	BondCount int             `json:"bond_count"`
	Target    string          `json:"target,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
}

// RenderPlan is an opaque render plan payload.
type RenderPlan = json.RawMessage

// PointerEvent is one pointer sample in device coordinates.
type PointerEvent struct {
	Phase string  `json:"phase"` // "down" | "move" | "up"
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Tool selects the active editing mode.
type Tool struct {
	Kind    string `json:"kind"`
	Element string `json:"element,omitempty"`
	Order   string `json:"order,omitempty"`
}

// MoleculeSnapshot is a session's structure with its mol-block rendering.
type MoleculeSnapshot struct {
	Molecule *chem.Molecule `json:"molecule"`
	MolBlock string         `json:"mol_block"`
	Target   string         `json:"target,omitempty"`
}

// ResolveOutcome pairs a resolution with whether the session adopted it.
type ResolveOutcome struct {
	Result  *chem.SearchResult `json:"result"`
	Applied bool               `json:"applied"`
}

// AnalyzeOutcome carries an analysis and whether a newer request superseded
// it before completion.
type AnalyzeOutcome struct {
	Result *chem.AnalysisResult `json:"result"`
	Stale  bool                 `json:"stale,omitempty"`
}

// Create opens a new editor session.
func (s *SessionsClient) Create(ctx context.Context) (*Session, error) {
	var out Session
	if err := s.client.post(ctx, "/api/v1/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a session's current state.
func (s *SessionsClient) Get(ctx context.Context, id string) (*Session, error) {
	var out Session
	if err := s.client.get(ctx, "/api/v1/sessions/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete closes a session.
func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, "/api/v1/sessions/"+id)
}

// SendPointer delivers one pointer event and returns the render plan.
func (s *SessionsClient) SendPointer(ctx context.Context, id string, ev PointerEvent) (RenderPlan, error) {
	var plan RenderPlan
	if err := s.client.post(ctx, "/api/v1/sessions/"+id+"/events", ev, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// SelectTool switches the active tool.
func (s *SessionsClient) SelectTool(ctx context.Context, id string, tool Tool) (RenderPlan, error) {
	var plan RenderPlan
	if err := s.client.put(ctx, "/api/v1/sessions/"+id+"/tool", tool, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Zoom applies one discrete zoom step; direction is "in" or "out".
func (s *SessionsClient) Zoom(ctx context.Context, id, direction string) (RenderPlan, error) {
	var plan RenderPlan
	body := map[string]string{"direction": direction}
	if err := s.client.post(ctx, "/api/v1/sessions/"+id+"/zoom", body, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Center recenters the viewport on the molecule.
func (s *SessionsClient) Center(ctx context.Context, id string) (RenderPlan, error) {
	var plan RenderPlan
	if err := s.client.post(ctx, "/api/v1/sessions/"+id+"/center", nil, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// SetCanvas reports the client canvas dimensions.
func (s *SessionsClient) SetCanvas(ctx context.Context, id string, width, height float64) (RenderPlan, error) {
	var plan RenderPlan
	body := map[string]float64{"width": width, "height": height}
	if err := s.client.put(ctx, "/api/v1/sessions/"+id+"/canvas", body, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Molecule fetches the session's structure and mol-block.
func (s *SessionsClient) Molecule(ctx context.Context, id string) (*MoleculeSnapshot, error) {
	var out MoleculeSnapshot
	if err := s.client.get(ctx, "/api/v1/sessions/"+id+"/molecule", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadMolecule replaces the session's structure with a molecule graph.
func (s *SessionsClient) LoadMolecule(ctx context.Context, id string, m *chem.Molecule) (RenderPlan, error) {
	if m == nil {
		return nil, fmt.Errorf("stereo: molecule is required")
	}
	var plan RenderPlan
	body := map[string]interface{}{"molecule": m}
	if err := s.client.put(ctx, "/api/v1/sessions/"+id+"/molecule", body, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// LoadMolBlock replaces the session's structure from a mol-block payload.
func (s *SessionsClient) LoadMolBlock(ctx context.Context, id, molBlock string) (RenderPlan, error) {
	var plan RenderPlan
	body := map[string]string{"mol_block": molBlock}
	if err := s.client.put(ctx, "/api/v1/sessions/"+id+"/molecule", body, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Resolve turns a name or SMILES query into a structure in the session.
func (s *SessionsClient) Resolve(ctx context.Context, id, query string) (*ResolveOutcome, error) {
	var out ResolveOutcome
	body := map[string]string{"query": query}
	if err := s.client.post(ctx, "/api/v1/sessions/"+id+"/resolve", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze runs a deep analysis of the session's current structure.
func (s *SessionsClient) Analyze(ctx context.Context, id string) (*AnalyzeOutcome, error) {
	var out AnalyzeOutcome
	if err := s.client.post(ctx, "/api/v1/sessions/"+id+"/analyze", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
