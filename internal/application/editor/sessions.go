// Package editor provides the application-level session service wrapping the
// geometry engine.  Each browser tab owns one session; the service serializes
// access to the engine, expires idle sessions, and enforces the stale-result
// discipline for async resolve/analyze responses via generation tokens.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kFady/stereo-site-1/internal/config"
	domeditor "github.com/kFady/stereo-site-1/internal/domain/editor"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/prometheus"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// janitorInterval is how often idle sessions are swept.
const janitorInterval = time.Minute

// session pairs an engine with its bookkeeping.  The mutex guards both the
// engine and the generation counters.
type session struct {
	mu         sync.Mutex
	engine     *domeditor.Engine
	lastAccess time.Time

	// Generation counters for async results.  A resolve/analyze response is
	// applied only when its token still matches; anything older is discarded.
	resolveGen uint64
	analyzeGen uint64

	// lastRef is the naming metadata from the most recent successful
	// resolution, used as the analyze fallback reference.
	lastRef chem.Reference
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	ID        string              `json:"id"`
	Tool      domeditor.Tool      `json:"tool"`
	Viewport  domeditor.Viewport  `json:"viewport"`
	AtomCount int                 `json:"atom_count"`
	BondCount int                 `json:"bond_count"`
	Target    string              `json:"target,omitempty"`
	Plan      *domeditor.RenderPlan `json:"plan,omitempty"`
}

// Service owns all live editor sessions.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	cfg     config.EditorConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// NewService builds the session service and starts the idle-session janitor
// when a TTL is configured.  Metrics may be nil.
func NewService(cfg config.EditorConfig, logger logging.Logger, metrics *prometheus.AppMetrics) *Service {
	s := &Service{
		sessions:    make(map[string]*session),
		cfg:         cfg,
		logger:      logger.Named("editor.sessions"),
		metrics:     metrics,
		stopJanitor: make(chan struct{}),
	}
	if cfg.SessionTTL > 0 {
		go s.janitor()
	}
	return s
}

// Close stops the janitor and drops all sessions.
func (s *Service) Close() {
	s.janitorOnce.Do(func() { close(s.stopJanitor) })
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*session)
	s.setActiveGauge(0)
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create opens a fresh session and returns its info with an initial render.
func (s *Service) Create(_ context.Context) *SessionInfo {
	id := uuid.NewString()
	sess := &session{
		engine:     domeditor.NewEngine(s.cfg),
		lastAccess: time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.setActiveGauge(float64(count))
	s.logger.Info("session created", logging.String("session_id", id))
	return s.info(id, sess, true)
}

// Delete removes a session.  Deleting an unknown session is not an error.
func (s *Service) Delete(_ context.Context, id string) {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if existed {
		s.setActiveGauge(float64(count))
		s.logger.Info("session deleted", logging.String("session_id", id))
	}
}

// Get returns the session's current state without mutating it.
func (s *Service) Get(_ context.Context, id string) (*SessionInfo, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.info(id, sess, true), nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ─────────────────────────────────────────────────────────────────────────────
// Editor operations
// ─────────────────────────────────────────────────────────────────────────────

// HandlePointer feeds one pointer event to the session's engine and returns
// the resulting render plan.
func (s *Service) HandlePointer(_ context.Context, id string, ev domeditor.PointerEvent) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	atomsBefore := sess.engine.Graph().AtomCount()
	bondsBefore := sess.engine.Graph().BondCount()

	plan := sess.engine.HandlePointer(ev)

	if s.metrics != nil {
		tool := sess.engine.Tool()
		s.metrics.EditorEventsTotal.WithLabelValues(string(ev.Phase), string(tool.Kind)).Inc()
		for i := atomsBefore; i < sess.engine.Graph().AtomCount(); i++ {
			atoms := sess.engine.Graph().Atoms()
			s.metrics.EditorAtomsPlaced.WithLabelValues(string(atoms[i].Element)).Inc()
		}
		for i := bondsBefore; i < sess.engine.Graph().BondCount(); i++ {
			bonds := sess.engine.Graph().Bonds()
			s.metrics.EditorBondsCreated.WithLabelValues(string(bonds[i].Order)).Inc()
		}
	}
	return plan, nil
}

// SelectTool switches the session's active tool.
func (s *Service) SelectTool(_ context.Context, id string, tool domeditor.Tool) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.engine.SelectTool(tool); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EditorToolSelections.WithLabelValues(string(tool.Kind)).Inc()
	}
	return sess.engine.Render(), nil
}

// Zoom applies one discrete zoom step.
func (s *Service) Zoom(_ context.Context, id string, in bool) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.engine.Zoom(in)
	return sess.engine.Render(), nil
}

// Center recenters the viewport on the molecule.
func (s *Service) Center(_ context.Context, id string) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.engine.Center()
	return sess.engine.Render(), nil
}

// SetCanvasSize records the client's canvas dimensions.
func (s *Service) SetCanvasSize(_ context.Context, id string, w, h float64) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.engine.SetCanvasSize(w, h)
	return sess.engine.Render(), nil
}

// Molecule returns a detached snapshot of the session's structure.
func (s *Service) Molecule(_ context.Context, id string) (*chem.Molecule, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Molecule(), nil
}

// TargetAtom returns the selected analysis target atom, if any.
func (s *Service) TargetAtom(_ context.Context, id string) (string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.TargetAtom(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Async result adoption
// ─────────────────────────────────────────────────────────────────────────────

// BeginResolve marks the start of a new resolve request and returns its
// generation token.  Any earlier in-flight resolve becomes stale.
func (s *Service) BeginResolve(_ context.Context, id string) (uint64, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.resolveGen++
	return sess.resolveGen, nil
}

// ApplyResolved replaces the session's molecule with a resolved structure,
// but only when the token is still current.  It reports whether the result
// was adopted.
func (s *Service) ApplyResolved(_ context.Context, id string, token uint64, m *chem.Molecule) (bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if token != sess.resolveGen {
		s.recordStaleDiscard("resolve")
		return false, nil
	}
	sess.engine.ReplaceMolecule(m)
	sess.engine.Center()
	return true, nil
}

// BeginAnalyze marks the start of a new analyze request and returns its
// generation token.  Replacing or editing the molecule afterwards does not
// invalidate the token; only a newer analyze request does.
func (s *Service) BeginAnalyze(_ context.Context, id string) (uint64, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.analyzeGen++
	return sess.analyzeGen, nil
}

// AnalyzeCurrent reports whether the token still identifies the newest
// analyze request.  The caller uses this at the point of applying an async
// result; stale results are counted and dropped.
func (s *Service) AnalyzeCurrent(_ context.Context, id string, token uint64) bool {
	sess, err := s.lookup(id)
	if err != nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if token != sess.analyzeGen {
		s.recordStaleDiscard("analyze")
		return false
	}
	return true
}

// SetReference records the naming metadata of the most recent successful
// resolution.  Analyze uses it as the fallback reference.
func (s *Service) SetReference(_ context.Context, id string, ref chem.Reference) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastRef = ref
	return nil
}

// Reference returns the session's last recorded resolution reference.  The
// zero value means the current structure was never resolved.
func (s *Service) Reference(_ context.Context, id string) (chem.Reference, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return chem.Reference{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastRef, nil
}

// LoadMolecule replaces the session's structure directly (sketch load).
func (s *Service) LoadMolecule(_ context.Context, id string, m *chem.Molecule) (*domeditor.RenderPlan, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.engine.ReplaceMolecule(m)
	sess.engine.Center()
	return sess.engine.Render(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "editor session not found").WithDetail(id)
	}
	sess.mu.Lock()
	sess.lastAccess = time.Now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *Service) info(id string, sess *session, withPlan bool) *SessionInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	info := &SessionInfo{
		ID:        id,
		Tool:      sess.engine.Tool(),
		Viewport:  sess.engine.Viewport(),
		AtomCount: sess.engine.Graph().AtomCount(),
		BondCount: sess.engine.Graph().BondCount(),
		Target:    sess.engine.TargetAtom(),
	}
	if withPlan {
		info.Plan = sess.engine.Render()
	}
	return info
}

func (s *Service) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopJanitor:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

// sweep drops sessions idle past the TTL.
func (s *Service) sweep(now time.Time) int {
	cutoff := now.Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if len(expired) > 0 {
		s.setActiveGauge(float64(count))
		s.logger.Info("expired idle sessions", logging.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Service) setActiveGauge(v float64) {
	if s.metrics != nil {
		s.metrics.EditorSessionsActive.WithLabelValues().Set(v)
	}
}

func (s *Service) recordStaleDiscard(operation string) {
	if s.metrics != nil {
		s.metrics.StaleDiscardsTotal.WithLabelValues(operation).Inc()
	}
	s.logger.Debug("discarded stale result", logging.String("operation", operation))
}
