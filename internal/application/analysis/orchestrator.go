// Package analysis implements the resolution/analysis orchestrator: it turns
// a free-text query or an edited molecule into a best-effort chemical result,
// retrying the primary AI provider on rate limits, falling back to the public
// chemistry database when the primary fails, and flagging degraded results so
// the caller can tell "secondary source used" apart from "everything failed".
package analysis

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/domain/molecule"
	"github.com/kFady/stereo-site-1/internal/infrastructure/cache"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/prometheus"
	"github.com/kFady/stereo-site-1/internal/infrastructure/storage/minio"
	"github.com/kFady/stereo-site-1/internal/providers"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// enrichTimeout bounds the background property-enrichment request, which
// outlives the caller's request context.
const enrichTimeout = 30 * time.Second

// EnrichFunc receives the merged property map when background enrichment
// completes.  It is never called on enrichment failure.
type EnrichFunc func(props map[string]string)

// Orchestrator coordinates the primary AI provider and the secondary
// chemistry database.  It is safe for concurrent use.
type Orchestrator struct {
	primary   providers.Primary
	secondary providers.Secondary
	cache     cache.ResultCache
	archive   *minio.MolBlockArchive // optional
	cfg       config.ProviderConfig
	logger    logging.Logger
	metrics   *prometheus.AppMetrics

	group singleflight.Group

	// sleep is swapped out in tests so backoff runs instantly.
	sleep func(ctx context.Context, d time.Duration) error

	enrichWG sync.WaitGroup
}

// New builds an orchestrator.  The archive and metrics may be nil.
func New(
	primary providers.Primary,
	secondary providers.Secondary,
	resultCache cache.ResultCache,
	archive *minio.MolBlockArchive,
	cfg config.ProviderConfig,
	logger logging.Logger,
	metrics *prometheus.AppMetrics,
) *Orchestrator {
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		cache:     resultCache,
		archive:   archive,
		cfg:       cfg,
		logger:    logger.Named("orchestrator"),
		metrics:   metrics,
		sleep:     sleepContext,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolve
// ─────────────────────────────────────────────────────────────────────────────

// Resolve turns a chemical name or SMILES string into a drawable structure
// with naming metadata.  The primary provider is tried first (with rate-limit
// retries); any primary failure falls through to the secondary provider, whose
// results are flagged Degraded.  Successful non-degraded resolutions are
// cached by the normalized query so a later identical request never re-invokes
// the primary.
func (o *Orchestrator) Resolve(ctx context.Context, query string) (*chem.SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errors.New(errors.ErrCodeEmptyQuery, "query must not be empty")
	}
	key := "resolve:" + strings.ToLower(trimmed)

	var cached chem.SearchResult
	if err := o.cache.Get(ctx, key, &cached); err == nil {
		o.recordCache("resolve", true)
		o.recordResolve("hit", cached.Source, 0)
		return &cached, nil
	}
	o.recordCache("resolve", false)

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		return o.resolveUncached(ctx, trimmed, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*chem.SearchResult), nil
}

func (o *Orchestrator) resolveUncached(ctx context.Context, query, key string) (*chem.SearchResult, error) {
	start := time.Now()

	var result *chem.SearchResult
	primaryErr := o.retryPrimary(ctx, "resolve", func() error {
		var err error
		result, err = o.primary.ResolveQuery(ctx, query)
		return err
	})
	if primaryErr == nil {
		result.Source = chem.SourceAI
		if err := o.cache.Set(ctx, key, result); err != nil {
			o.logger.Warn("failed to cache resolution", logging.Err(err))
		}
		o.archiveMolecule(result.Molecule)
		o.recordResolve("success", result.Source, time.Since(start))
		return result, nil
	}

	o.logger.Warn("primary resolution failed, trying fallback",
		logging.String("query", query), logging.Err(primaryErr))
	o.recordFallback("resolve", primaryErr)

	fallback, fallbackErr := o.secondary.ResolveQuery(ctx, query)
	if fallbackErr != nil {
		o.recordResolve("failure", "", time.Since(start))
		if errors.IsNotFound(primaryErr) && errors.IsNotFound(fallbackErr) {
			return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found in any source").
				WithDetail(query)
		}
		return nil, errors.Wrap(primaryErr, errors.CodeUnknown, "primary and fallback resolution both failed")
	}

	fallback.Source = chem.SourcePubChem
	fallback.Degraded = true
	// Degraded results are deliberately not cached so the next identical
	// request gets another shot at the primary provider.
	o.recordResolve("degraded", fallback.Source, time.Since(start))
	return fallback, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Analyze
// ─────────────────────────────────────────────────────────────────────────────

// Analyze produces a deep analysis of an edited molecule.  On primary success
// the result returns immediately and a background enrichment merges secondary
// properties into it, never downgrading the success.  On primary failure the
// secondary provider supplies a baseline result keyed by ref; with no usable
// reference the analysis fails outright.
func (o *Orchestrator) Analyze(ctx context.Context, mol *chem.Molecule, ref chem.Reference, onEnriched EnrichFunc) (*chem.AnalysisResult, error) {
	if mol == nil || mol.IsEmpty() {
		return nil, errors.New(errors.ErrCodeEmptyMolecule, "molecule has no atoms")
	}
	key := "analyze:" + mol.ContentHash()

	var cached chem.AnalysisResult
	if err := o.cache.Get(ctx, key, &cached); err == nil {
		o.recordCache("analyze", true)
		o.recordAnalyze("hit", cached.Source, 0)
		return &cached, nil
	}
	o.recordCache("analyze", false)

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		return o.analyzeUncached(ctx, mol, ref, key, onEnriched)
	})
	if err != nil {
		return nil, err
	}
	return v.(*chem.AnalysisResult), nil
}

func (o *Orchestrator) analyzeUncached(ctx context.Context, mol *chem.Molecule, ref chem.Reference, key string, onEnriched EnrichFunc) (*chem.AnalysisResult, error) {
	start := time.Now()

	var result *chem.AnalysisResult
	primaryErr := o.retryPrimary(ctx, "analyze", func() error {
		var err error
		result, err = o.primary.AnalyzeStructure(ctx, mol)
		return err
	})
	if primaryErr == nil {
		result.Source = chem.SourceAI
		if err := o.cache.Set(ctx, key, result); err != nil {
			o.logger.Warn("failed to cache analysis", logging.Err(err))
		}
		o.archiveMolBlock3D(mol.ContentHash(), result.MolBlock3D)
		o.startEnrichment(key, result, ref, onEnriched)
		o.recordAnalyze("success", result.Source, time.Since(start))
		return result, nil
	}

	o.logger.Warn("primary analysis failed", logging.Err(primaryErr))

	if ref.IsZero() {
		o.recordAnalyze("failure", "", time.Since(start))
		return nil, errors.New(errors.ErrCodeNoFallbackReference,
			"no reference identifier available for fallback lookup").WithCause(primaryErr)
	}
	o.recordFallback("analyze", primaryErr)

	baseline, err := o.baselineFromSecondary(ctx, ref)
	if err != nil {
		o.recordAnalyze("failure", "", time.Since(start))
		return nil, errors.Wrap(primaryErr, errors.ErrCodeAnalysisFailed,
			"primary analysis and fallback both failed")
	}
	o.recordAnalyze("degraded", baseline.Source, time.Since(start))
	return baseline, nil
}

// baselineFromSecondary synthesizes a reduced AnalysisResult from the
// reference source: properties plus a best-effort 3D payload, no
// stereochemistry or geometry data.
func (o *Orchestrator) baselineFromSecondary(ctx context.Context, ref chem.Reference) (*chem.AnalysisResult, error) {
	props, err := o.secondary.FetchProperties(ctx, ref)
	if err != nil {
		return nil, err
	}

	molBlock3D, err := o.secondary.FetchMolBlock3D(ctx, ref)
	if err != nil {
		o.logger.Debug("fallback 3D payload unavailable", logging.Err(err))
		molBlock3D = ""
	}

	return &chem.AnalysisResult{
		Stereocenters: map[string]chem.Stereocenter{},
		Geometries:    map[string]chem.Geometry{},
		Properties:    props,
		MolBlock3D:    molBlock3D,
		SMILES:        ref.SMILES,
		Annotation:    "baseline data from the reference database; stereochemistry and geometry analysis unavailable",
		Source:        chem.SourcePubChem,
		Degraded:      true,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Background enrichment
// ─────────────────────────────────────────────────────────────────────────────

// startEnrichment merges secondary-source properties into a successful
// analysis without blocking the caller.  Failures are swallowed: enrichment
// never downgrades a success.
func (o *Orchestrator) startEnrichment(key string, result *chem.AnalysisResult, ref chem.Reference, onEnriched EnrichFunc) {
	enrichRef := ref
	if result.SMILES != "" {
		enrichRef.SMILES = result.SMILES
	}
	if enrichRef.IsZero() {
		return
	}

	base := make(map[string]string, len(result.Properties))
	for k, v := range result.Properties {
		base[k] = v
	}

	o.enrichWG.Add(1)
	go func() {
		defer o.enrichWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
		defer cancel()

		extra, err := o.secondary.FetchProperties(ctx, enrichRef)
		if err != nil {
			o.logger.Debug("property enrichment failed", logging.Err(err))
			return
		}

		// Primary-provided values win; enrichment only fills gaps.
		merged := base
		added := 0
		for k, v := range extra {
			if _, exists := merged[k]; !exists && v != "" {
				merged[k] = v
				added++
			}
		}
		if added == 0 {
			return
		}

		enriched := *result
		enriched.Properties = merged
		if err := o.cache.Set(context.Background(), key, &enriched); err != nil {
			o.logger.Warn("failed to cache enriched analysis", logging.Err(err))
		}
		if onEnriched != nil {
			onEnriched(merged)
		}
	}()
}

// WaitForEnrichment blocks until all in-flight enrichment goroutines finish.
// Intended for graceful shutdown and tests.
func (o *Orchestrator) WaitForEnrichment() {
	o.enrichWG.Wait()
}

// ─────────────────────────────────────────────────────────────────────────────
// Retry policy
// ─────────────────────────────────────────────────────────────────────────────

// retryPrimary runs call, retrying only on rate-limit errors with jittered
// exponential backoff up to the configured budget.  Any other error, and
// budget exhaustion, propagate to the fallback path.
func (o *Orchestrator) retryPrimary(ctx context.Context, operation string, call func() error) error {
	delay := o.cfg.InitialBackoff
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil || !errors.IsRateLimited(err) || attempt >= o.cfg.MaxRetries {
			return err
		}

		if o.metrics != nil {
			o.metrics.RetryTotal.WithLabelValues(operation).Inc()
		}
		o.logger.Warn("primary provider rate limited, backing off",
			logging.String("operation", operation),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay))

		if serr := o.sleep(ctx, jitter(delay)); serr != nil {
			return errors.Wrap(serr, errors.ErrCodeTimeout, "retry backoff interrupted")
		}

		multiplier := o.cfg.BackoffMultiplier
		if multiplier < 1 {
			multiplier = 2
		}
		delay = time.Duration(float64(delay) * multiplier)
		if o.cfg.MaxBackoff > 0 && delay > o.cfg.MaxBackoff {
			delay = o.cfg.MaxBackoff
		}
	}
}

// jitter spreads a delay by up to +25% so synchronized clients do not retry
// in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Archive + metrics plumbing
// ─────────────────────────────────────────────────────────────────────────────

// archiveMolecule stores the resolved structure's 2D mol-block, best effort.
func (o *Orchestrator) archiveMolecule(m chem.Molecule) {
	if o.archive == nil || m.IsEmpty() {
		return
	}
	hash := m.ContentHash()
	block := molecule.EncodeMolBlock(&m, "")
	o.enrichWG.Add(1)
	go func() {
		defer o.enrichWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
		defer cancel()
		if err := o.archive.Put(ctx, hash, minio.Dim2D, block); err != nil {
			o.logger.Debug("mol-block archive write failed", logging.Err(err))
		}
	}()
}

// archiveMolBlock3D stores an analysis 3D payload, best effort.
func (o *Orchestrator) archiveMolBlock3D(hash, block string) {
	if o.archive == nil || block == "" {
		return
	}
	o.enrichWG.Add(1)
	go func() {
		defer o.enrichWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
		defer cancel()
		if err := o.archive.Put(ctx, hash, minio.Dim3D, block); err != nil {
			o.logger.Debug("3D payload archive write failed", logging.Err(err))
		}
	}()
}

func (o *Orchestrator) recordResolve(outcome string, source chem.Source, d time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.ResolveRequestsTotal.WithLabelValues(outcome, string(source)).Inc()
	if d > 0 {
		o.metrics.ResolveDuration.WithLabelValues(string(source)).Observe(d.Seconds())
	}
}

func (o *Orchestrator) recordAnalyze(outcome string, source chem.Source, d time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.AnalyzeRequestsTotal.WithLabelValues(outcome, string(source)).Inc()
	if d > 0 {
		o.metrics.AnalyzeDuration.WithLabelValues(string(source)).Observe(d.Seconds())
	}
}

func (o *Orchestrator) recordFallback(operation string, cause error) {
	if o.metrics == nil {
		return
	}
	o.metrics.FallbackTotal.WithLabelValues(operation, string(errors.GetCode(cause))).Inc()
}

func (o *Orchestrator) recordCache(operation string, hit bool) {
	if o.metrics == nil {
		return
	}
	prometheus.RecordCacheAccess(o.metrics, operation, hit)
}
