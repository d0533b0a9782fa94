package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	domeditor "github.com/kFady/stereo-site-1/internal/domain/editor"
	"github.com/kFady/stereo-site-1/internal/domain/molecule"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// SessionHandler exposes the editor session lifecycle and drawing surface.
type SessionHandler struct {
	sessions *appeditor.Service
}

// NewSessionHandler builds the handler.
func NewSessionHandler(sessions *appeditor.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Register mounts the session routes on the API group.
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
	rg.GET("/sessions/:id", h.get)
	rg.DELETE("/sessions/:id", h.delete)

	rg.POST("/sessions/:id/events", h.pointerEvent)
	rg.PUT("/sessions/:id/tool", h.selectTool)
	rg.POST("/sessions/:id/zoom", h.zoom)
	rg.POST("/sessions/:id/center", h.center)
	rg.PUT("/sessions/:id/canvas", h.setCanvas)
	rg.GET("/sessions/:id/molecule", h.molecule)
	rg.PUT("/sessions/:id/molecule", h.loadMolecule)
}

func (h *SessionHandler) create(c *gin.Context) {
	info := h.sessions.Create(c.Request.Context())
	respond(c, http.StatusCreated, info)
}

func (h *SessionHandler) get(c *gin.Context) {
	info, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, info)
}

func (h *SessionHandler) delete(c *gin.Context) {
	h.sessions.Delete(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) pointerEvent(c *gin.Context) {
	var ev domeditor.PointerEvent
	if err := bindJSON(c, &ev); err != nil {
		respondError(c, err)
		return
	}
	plan, err := h.sessions.HandlePointer(c.Request.Context(), c.Param("id"), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

func (h *SessionHandler) selectTool(c *gin.Context) {
	var tool domeditor.Tool
	if err := bindJSON(c, &tool); err != nil {
		respondError(c, err)
		return
	}
	plan, err := h.sessions.SelectTool(c.Request.Context(), c.Param("id"), tool)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

type zoomRequest struct {
	Direction string `json:"direction"` // "in" | "out"
}

func (h *SessionHandler) zoom(c *gin.Context) {
	var req zoomRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Direction != "in" && req.Direction != "out" {
		respondError(c, errors.New(errors.ErrCodeValidation, `zoom direction must be "in" or "out"`))
		return
	}
	plan, err := h.sessions.Zoom(c.Request.Context(), c.Param("id"), req.Direction == "in")
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

func (h *SessionHandler) center(c *gin.Context) {
	plan, err := h.sessions.Center(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

type canvasRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *SessionHandler) setCanvas(c *gin.Context) {
	var req canvasRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		respondError(c, errors.New(errors.ErrCodeValidation, "canvas dimensions must be positive"))
		return
	}
	plan, err := h.sessions.SetCanvasSize(c.Request.Context(), c.Param("id"), req.Width, req.Height)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}

// moleculeResponse carries both the structured graph and its mol-block
// serialization.
type moleculeResponse struct {
	Molecule *chem.Molecule `json:"molecule"`
	MolBlock string         `json:"mol_block"`
	Target   string         `json:"target,omitempty"`
}

func (h *SessionHandler) molecule(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	mol, err := h.sessions.Molecule(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	target, err := h.sessions.TargetAtom(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, moleculeResponse{
		Molecule: mol,
		MolBlock: molecule.EncodeMolBlock(mol, ""),
		Target:   target,
	})
}

type loadMoleculeRequest struct {
	Molecule *chem.Molecule `json:"molecule,omitempty"`
	MolBlock string         `json:"mol_block,omitempty"`
}

// loadMolecule replaces the session's structure from either a JSON graph or
// a mol-block payload.
func (h *SessionHandler) loadMolecule(c *gin.Context) {
	var req loadMoleculeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	mol := req.Molecule
	if mol == nil {
		if req.MolBlock == "" {
			respondError(c, errors.New(errors.ErrCodeValidation, "either molecule or mol_block is required"))
			return
		}
		parsed, err := molecule.ParseMolBlock(req.MolBlock)
		if err != nil {
			respondError(c, err)
			return
		}
		mol = parsed
	}

	plan, err := h.sessions.LoadMolecule(c.Request.Context(), c.Param("id"), mol)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}
