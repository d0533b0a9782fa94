package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/application/analysis"
	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// stubOrchestrator records calls and serves canned results.
type stubOrchestrator struct {
	mu        sync.Mutex
	resolveFn func(query string) (*chem.SearchResult, error)
	analyzeFn func(mol *chem.Molecule, ref chem.Reference) (*chem.AnalysisResult, error)
	lastRef   chem.Reference
}

func (s *stubOrchestrator) Resolve(_ context.Context, query string) (*chem.SearchResult, error) {
	return s.resolveFn(query)
}

func (s *stubOrchestrator) Analyze(_ context.Context, mol *chem.Molecule, ref chem.Reference, _ analysis.EnrichFunc) (*chem.AnalysisResult, error) {
	s.mu.Lock()
	s.lastRef = ref
	s.mu.Unlock()
	return s.analyzeFn(mol, ref)
}

func (s *stubOrchestrator) receivedRef() chem.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRef
}

func newAnalysisRouter(t *testing.T, stub *stubOrchestrator) (*gin.Engine, *appeditor.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sessions := newSessionService(t)
	r := gin.New()
	api := r.Group("/api/v1")
	NewSessionHandler(sessions).Register(api)
	NewAnalysisHandler(sessions, stub, logging.NewNopLogger()).Register(api)
	return r, sessions
}

func ethanolSearchResult() *chem.SearchResult {
	return &chem.SearchResult{
		Molecule: chem.Molecule{
			Atoms: []chem.Atom{
				{ID: "a1", Element: chem.ElementC, X: 0, Y: 0},
				{ID: "a2", Element: chem.ElementC, X: 40, Y: 0},
				{ID: "a3", Element: chem.ElementO, X: 80, Y: 0},
			},
			Bonds: []chem.Bond{
				{ID: "b1", From: "a1", To: "a2", Order: chem.BondSingle},
				{ID: "b2", From: "a2", To: "a3", Order: chem.BondSingle},
			},
		},
		SMILES:     "CCO",
		CommonName: "ethanol",
		CID:        702,
		Source:     chem.SourceAI,
	}
}

func TestAnalysisHandler_ResolveAppliesResult(t *testing.T) {
	stub := &stubOrchestrator{
		resolveFn: func(string) (*chem.SearchResult, error) { return ethanolSearchResult(), nil },
	}
	r, sessions := newAnalysisRouter(t, stub)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/resolve",
		map[string]string{"query": "ethanol"})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Applied bool `json:"applied"`
		Result  struct {
			SMILES string `json:"smiles"`
		} `json:"result"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Applied)
	assert.Equal(t, "CCO", data.Result.SMILES)

	mol, err := sessions.Molecule(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, mol.Atoms, 3)

	ref, err := sessions.Reference(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ethanol", ref.Name)
	assert.Equal(t, int64(702), ref.CID)
}

func TestAnalysisHandler_ResolveErrorsPropagate(t *testing.T) {
	stub := &stubOrchestrator{
		resolveFn: func(string) (*chem.SearchResult, error) {
			return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found in any source")
		},
	}
	r, _ := newAnalysisRouter(t, stub)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/resolve",
		map[string]string{"query": "unobtainium"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RES_002", env.Error.Code)
}

func TestAnalysisHandler_ResolveUnknownSession(t *testing.T) {
	stub := &stubOrchestrator{
		resolveFn: func(string) (*chem.SearchResult, error) { return ethanolSearchResult(), nil },
	}
	r, _ := newAnalysisRouter(t, stub)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/nope/resolve",
		map[string]string{"query": "ethanol"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalysisHandler_AnalyzeUsesSessionReference(t *testing.T) {
	stub := &stubOrchestrator{
		resolveFn: func(string) (*chem.SearchResult, error) { return ethanolSearchResult(), nil },
		analyzeFn: func(*chem.Molecule, chem.Reference) (*chem.AnalysisResult, error) {
			return &chem.AnalysisResult{
				Stereocenters: map[string]chem.Stereocenter{},
				Geometries:    map[string]chem.Geometry{},
				Properties:    map[string]string{"MolecularWeight": "46.07"},
				SMILES:        "CCO",
				Source:        chem.SourceAI,
			}, nil
		},
	}
	r, _ := newAnalysisRouter(t, stub)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/resolve",
		map[string]string{"query": "ethanol"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Stale  bool `json:"stale"`
		Result struct {
			Properties map[string]string `json:"properties"`
			Source     string            `json:"source"`
		} `json:"result"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Stale)
	assert.Equal(t, "46.07", data.Result.Properties["MolecularWeight"])

	// The reference captured at resolve time reaches the orchestrator.
	assert.Equal(t, "CCO", stub.receivedRef().SMILES)
	assert.Equal(t, int64(702), stub.receivedRef().CID)
}

func TestAnalysisHandler_AnalyzeEmptyMolecule(t *testing.T) {
	stub := &stubOrchestrator{
		analyzeFn: func(mol *chem.Molecule, _ chem.Reference) (*chem.AnalysisResult, error) {
			if mol.IsEmpty() {
				return nil, errors.New(errors.ErrCodeEmptyMolecule, "molecule has no atoms")
			}
			return &chem.AnalysisResult{}, nil
		},
	}
	r, _ := newAnalysisRouter(t, stub)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EDT_008", env.Error.Code)
}

func TestAnalysisHandler_AnalyzeFailureStatus(t *testing.T) {
	stub := &stubOrchestrator{
		analyzeFn: func(*chem.Molecule, chem.Reference) (*chem.AnalysisResult, error) {
			return nil, errors.New(errors.ErrCodeNoFallbackReference,
				"no reference identifier available for fallback lookup")
		},
	}
	r, sessions := newAnalysisRouter(t, stub)
	id := createSession(t, r)

	_, err := sessions.LoadMolecule(context.Background(), id, &chem.Molecule{Atoms: []chem.Atom{
		{ID: "a1", Element: chem.ElementC},
	}})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/analyze", nil)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RES_003", env.Error.Code)
	assert.Equal(t, errors.HTTPStatusForCode(errors.ErrCodeNoFallbackReference), w.Code)
}
