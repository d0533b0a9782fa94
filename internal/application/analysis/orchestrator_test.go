package analysis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/cache"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Provider stubs
// ─────────────────────────────────────────────────────────────────────────────

type stubPrimary struct {
	resolveFn  func(ctx context.Context, query string) (*chem.SearchResult, error)
	analyzeFn  func(ctx context.Context, mol *chem.Molecule) (*chem.AnalysisResult, error)
	resolveCnt int32
	analyzeCnt int32
}

func (p *stubPrimary) ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error) {
	atomic.AddInt32(&p.resolveCnt, 1)
	return p.resolveFn(ctx, query)
}

func (p *stubPrimary) AnalyzeStructure(ctx context.Context, mol *chem.Molecule) (*chem.AnalysisResult, error) {
	atomic.AddInt32(&p.analyzeCnt, 1)
	return p.analyzeFn(ctx, mol)
}

type stubSecondary struct {
	resolveFn  func(ctx context.Context, query string) (*chem.SearchResult, error)
	propsFn    func(ctx context.Context, ref chem.Reference) (map[string]string, error)
	molBlockFn func(ctx context.Context, ref chem.Reference) (string, error)
}

func (s *stubSecondary) ResolveQuery(ctx context.Context, query string) (*chem.SearchResult, error) {
	if s.resolveFn == nil {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "no match")
	}
	return s.resolveFn(ctx, query)
}

func (s *stubSecondary) FetchProperties(ctx context.Context, ref chem.Reference) (map[string]string, error) {
	if s.propsFn == nil {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "no match")
	}
	return s.propsFn(ctx, ref)
}

func (s *stubSecondary) FetchMolBlock3D(ctx context.Context, ref chem.Reference) (string, error) {
	if s.molBlockFn == nil {
		return "", errors.New(errors.ErrCodeCompoundNotFound, "no match")
	}
	return s.molBlockFn(ctx, ref)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func glucoseResult(source chem.Source) *chem.SearchResult {
	return &chem.SearchResult{
		Molecule: chem.Molecule{Atoms: []chem.Atom{
			{ID: "a1", Element: chem.ElementC},
		}},
		SMILES:     "C(C1C(C(C(C(O1)O)O)O)O)O",
		IUPACName:  "glucose",
		CommonName: "glucose",
		Source:     source,
	}
}

func ethanolMolecule() *chem.Molecule {
	return &chem.Molecule{
		Atoms: []chem.Atom{
			{ID: "a1", Element: chem.ElementC},
			{ID: "a2", Element: chem.ElementC, X: 40},
			{ID: "a3", Element: chem.ElementO, X: 80},
		},
		Bonds: []chem.Bond{
			{ID: "b1", From: "a1", To: "a2", Order: chem.BondSingle},
			{ID: "b2", From: "a2", To: "a3", Order: chem.BondSingle},
		},
	}
}

func newTestOrchestrator(t *testing.T, primary *stubPrimary, secondary *stubSecondary) *Orchestrator {
	t.Helper()
	resultCache, err := cache.NewMemoryCache(64, logging.NewNopLogger())
	require.NoError(t, err)

	o := New(primary, secondary, resultCache, nil, config.ProviderConfig{
		Model:             "test-model",
		MaxRetries:        2,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2,
	}, logging.NewNopLogger(), nil)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolve
// ─────────────────────────────────────────────────────────────────────────────

func TestResolve_PrimarySuccess(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, q string) (*chem.SearchResult, error) {
		return glucoseResult(""), nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	got, err := o.Resolve(context.Background(), "  Glucose ")
	require.NoError(t, err)
	assert.Equal(t, chem.SourceAI, got.Source)
	assert.False(t, got.Degraded)
	assert.EqualValues(t, 1, primary.resolveCnt)
}

func TestResolve_EmptyQueryNeverCallsProviders(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		t.Fatal("primary must not be called")
		return nil, nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Resolve(context.Background(), "   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyQuery))
	assert.EqualValues(t, 0, primary.resolveCnt)
}

func TestResolve_CachedByNormalizedQuery(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return glucoseResult(""), nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Resolve(context.Background(), "glucose")
	require.NoError(t, err)
	got, err := o.Resolve(context.Background(), "  GLUCOSE  ")
	require.NoError(t, err)

	assert.Equal(t, "glucose", got.IUPACName)
	assert.EqualValues(t, 1, primary.resolveCnt, "second call must be served from cache")
}

func TestResolve_RateLimitedPrimaryFallsBack(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return nil, errors.RateLimit("slow down")
	}}
	secondary := &stubSecondary{resolveFn: func(_ context.Context, q string) (*chem.SearchResult, error) {
		return glucoseResult(""), nil
	}}
	o := newTestOrchestrator(t, primary, secondary)

	got, err := o.Resolve(context.Background(), "glucose")
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, chem.SourcePubChem, got.Source)
	// MaxRetries=2 means three attempts before giving up on the primary.
	assert.EqualValues(t, 3, primary.resolveCnt)
}

func TestResolve_NonRateLimitErrorIsNotRetried(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return nil, errors.Unavailable("connection refused")
	}}
	secondary := &stubSecondary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return glucoseResult(""), nil
	}}
	o := newTestOrchestrator(t, primary, secondary)

	got, err := o.Resolve(context.Background(), "glucose")
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.EqualValues(t, 1, primary.resolveCnt)
}

func TestResolve_BothSourcesMiss(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return nil, errors.New(errors.ErrCodeCompoundNotFound, "unknown")
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Resolve(context.Background(), "unobtainium")
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompoundNotFound))
}

func TestResolve_DegradedResultIsNotCached(t *testing.T) {
	primary := &stubPrimary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return nil, errors.Unavailable("down")
	}}
	secondary := &stubSecondary{resolveFn: func(_ context.Context, _ string) (*chem.SearchResult, error) {
		return glucoseResult(""), nil
	}}
	o := newTestOrchestrator(t, primary, secondary)

	_, err := o.Resolve(context.Background(), "glucose")
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), "glucose")
	require.NoError(t, err)

	assert.EqualValues(t, 2, primary.resolveCnt, "degraded results must not shadow the primary")
}

// ─────────────────────────────────────────────────────────────────────────────
// Analyze
// ─────────────────────────────────────────────────────────────────────────────

func fullAnalysis() *chem.AnalysisResult {
	return &chem.AnalysisResult{
		Stereocenters: map[string]chem.Stereocenter{
			"a2": {Configuration: "R"},
		},
		Geometries: map[string]chem.Geometry{
			"a2": {Shape: "tetrahedral"},
		},
		Properties: map[string]string{"MolecularWeight": "46.07"},
		SMILES:     "CCO",
	}
}

func TestAnalyze_EmptyMoleculeIsLocalNoOp(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		t.Fatal("primary must not be called")
		return nil, nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Analyze(context.Background(), &chem.Molecule{}, chem.Reference{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyMolecule))
}

func TestAnalyze_PrimarySuccess(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return fullAnalysis(), nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	got, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, nil)
	require.NoError(t, err)
	assert.Equal(t, chem.SourceAI, got.Source)
	assert.False(t, got.Degraded)
	assert.Equal(t, "R", got.Stereocenters["a2"].Configuration)
	o.WaitForEnrichment()
}

func TestAnalyze_CachedByContentHash(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return fullAnalysis(), nil
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, nil)
	require.NoError(t, err)
	o.WaitForEnrichment()

	_, err = o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, primary.analyzeCnt)
}

func TestAnalyze_FallbackBaselineWithReference(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return nil, errors.Unavailable("down")
	}}
	secondary := &stubSecondary{
		propsFn: func(_ context.Context, ref chem.Reference) (map[string]string, error) {
			assert.Equal(t, "ethanol", ref.Name)
			return map[string]string{"MolecularFormula": "C2H6O"}, nil
		},
		molBlockFn: func(_ context.Context, _ chem.Reference) (string, error) {
			return "mock 3d block", nil
		},
	}
	o := newTestOrchestrator(t, primary, secondary)

	got, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{Name: "ethanol"}, nil)
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, chem.SourcePubChem, got.Source)
	assert.Empty(t, got.Stereocenters)
	assert.Empty(t, got.Geometries)
	assert.Equal(t, "C2H6O", got.Properties["MolecularFormula"])
	assert.Equal(t, "mock 3d block", got.MolBlock3D)
	assert.NotEmpty(t, got.Annotation)
}

func TestAnalyze_Missing3DDoesNotFailBaseline(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return nil, errors.Unavailable("down")
	}}
	secondary := &stubSecondary{
		propsFn: func(_ context.Context, _ chem.Reference) (map[string]string, error) {
			return map[string]string{"TPSA": "20.2"}, nil
		},
	}
	o := newTestOrchestrator(t, primary, secondary)

	got, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{SMILES: "CCO"}, nil)
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Empty(t, got.MolBlock3D)
}

func TestAnalyze_NoReferenceFailsOutright(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return nil, errors.Unavailable("down")
	}}
	o := newTestOrchestrator(t, primary, &stubSecondary{})

	_, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoFallbackReference))
}

func TestAnalyze_FallbackAlsoFails(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return nil, errors.Unavailable("down")
	}}
	secondary := &stubSecondary{
		propsFn: func(_ context.Context, _ chem.Reference) (map[string]string, error) {
			return nil, errors.Unavailable("also down")
		},
	}
	o := newTestOrchestrator(t, primary, secondary)

	_, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{Name: "ethanol"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnalysisFailed))
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderUnavailable), "cause chain keeps the primary error")
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrichment
// ─────────────────────────────────────────────────────────────────────────────

func TestAnalyze_EnrichmentFillsGapsOnly(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return fullAnalysis(), nil
	}}
	secondary := &stubSecondary{
		propsFn: func(_ context.Context, ref chem.Reference) (map[string]string, error) {
			assert.Equal(t, "CCO", ref.SMILES, "enrichment keys off the resolved SMILES")
			return map[string]string{
				"MolecularWeight": "999",    // must not overwrite the primary value
				"TPSA":            "20.2",   // new key, merged in
				"XLogP":           "-0.1",   // new key, merged in
			}, nil
		},
	}
	o := newTestOrchestrator(t, primary, secondary)

	var enriched map[string]string
	done := make(chan struct{})
	_, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, func(props map[string]string) {
		enriched = props
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enrichment callback never fired")
	}
	o.WaitForEnrichment()

	assert.Equal(t, "46.07", enriched["MolecularWeight"], "primary values win")
	assert.Equal(t, "20.2", enriched["TPSA"])
	assert.Equal(t, "-0.1", enriched["XLogP"])

	// The cache entry now carries the merged properties.
	got, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "20.2", got.Properties["TPSA"])
	assert.EqualValues(t, 1, primary.analyzeCnt)
}

func TestAnalyze_EnrichmentFailureNeverDowngrades(t *testing.T) {
	primary := &stubPrimary{analyzeFn: func(_ context.Context, _ *chem.Molecule) (*chem.AnalysisResult, error) {
		return fullAnalysis(), nil
	}}
	secondary := &stubSecondary{
		propsFn: func(_ context.Context, _ chem.Reference) (map[string]string, error) {
			return nil, errors.Unavailable("down")
		},
	}
	o := newTestOrchestrator(t, primary, secondary)

	got, err := o.Analyze(context.Background(), ethanolMolecule(), chem.Reference{}, func(map[string]string) {
		t.Error("callback must not fire on enrichment failure")
	})
	require.NoError(t, err)
	o.WaitForEnrichment()

	assert.False(t, got.Degraded)
	assert.Equal(t, "46.07", got.Properties["MolecularWeight"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Retry policy
// ─────────────────────────────────────────────────────────────────────────────

func TestRetryPrimary_BackoffGrowsAndCaps(t *testing.T) {
	primary := &stubPrimary{}
	o := newTestOrchestrator(t, primary, &stubSecondary{})
	o.cfg.MaxRetries = 4

	var delays []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := o.retryPrimary(context.Background(), "resolve", func() error {
		return errors.RateLimit("slow down")
	})
	assert.True(t, errors.IsRateLimited(err))
	require.Len(t, delays, 4)

	// Jitter adds at most 25%; the base doubles each attempt until MaxBackoff.
	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.Less(t, delays[0], 13*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
	assert.LessOrEqual(t, delays[3], 63*time.Millisecond, "capped at MaxBackoff plus jitter")
}

func TestRetryPrimary_ContextCancelStopsBackoff(t *testing.T) {
	primary := &stubPrimary{}
	o := newTestOrchestrator(t, primary, &stubSecondary{})
	o.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.retryPrimary(ctx, "resolve", func() error {
		return errors.RateLimit("slow down")
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}
