package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/internal/application/analysis"
	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// AnalysisService is the slice of the orchestrator the HTTP layer needs.
type AnalysisService interface {
	Resolve(ctx context.Context, query string) (*chem.SearchResult, error)
	Analyze(ctx context.Context, mol *chem.Molecule, ref chem.Reference, onEnriched analysis.EnrichFunc) (*chem.AnalysisResult, error)
}

// AnalysisHandler runs resolution and deep analysis for a session, applying
// results only when their generation token is still current.
type AnalysisHandler struct {
	sessions     *appeditor.Service
	orchestrator AnalysisService
	logger       logging.Logger
}

// NewAnalysisHandler builds the handler.
func NewAnalysisHandler(sessions *appeditor.Service, orchestrator AnalysisService, logger logging.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		logger:       logger.Named("http.analysis"),
	}
}

// Register mounts the analysis routes on the API group.
func (h *AnalysisHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/resolve", h.resolve)
	rg.POST("/sessions/:id/analyze", h.analyze)
}

type resolveRequest struct {
	Query string `json:"query"`
}

// resolveResponse pairs the resolution with whether the session adopted it.
// Applied is false when a newer resolve superseded this one mid-flight.
type resolveResponse struct {
	Result  *chem.SearchResult `json:"result"`
	Applied bool               `json:"applied"`
}

func (h *AnalysisHandler) resolve(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req resolveRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.sessions.BeginResolve(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.orchestrator.Resolve(ctx, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}

	applied, err := h.sessions.ApplyResolved(ctx, id, token, &result.Molecule)
	if err != nil {
		respondError(c, err)
		return
	}
	if applied {
		ref := chem.Reference{SMILES: result.SMILES, Name: result.CommonName, CID: result.CID}
		if ref.Name == "" {
			ref.Name = result.IUPACName
		}
		if err := h.sessions.SetReference(ctx, id, ref); err != nil {
			respondError(c, err)
			return
		}
	}
	respond(c, http.StatusOK, resolveResponse{Result: result, Applied: applied})
}

// analyzeResponse flags results that lost the generation race: the data is
// still returned to the caller that requested it, but the session state was
// not updated from it.
type analyzeResponse struct {
	Result *chem.AnalysisResult `json:"result"`
	Stale  bool                 `json:"stale,omitempty"`
}

func (h *AnalysisHandler) analyze(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	mol, err := h.sessions.Molecule(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ref, err := h.sessions.Reference(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.sessions.BeginAnalyze(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	// Enrichment lands after this response; the cache picks it up, so the
	// next analyze of the same structure sees the merged properties.
	result, err := h.orchestrator.Analyze(ctx, mol, ref, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	stale := !h.sessions.AnalyzeCurrent(ctx, id, token)
	if stale {
		h.logger.Debug("analysis superseded before completion",
			logging.String("session_id", id))
	}
	respond(c, http.StatusOK, analyzeResponse{Result: result, Stale: stale})
}
