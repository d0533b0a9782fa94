package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	"github.com/kFady/stereo-site-1/internal/infrastructure/database/postgres/repositories"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/common"
)

// SketchStore is the persistence surface the sketch endpoints need.
// *repositories.SketchRepository satisfies it.
type SketchStore interface {
	Save(ctx context.Context, s *repositories.Sketch) error
	Update(ctx context.Context, s *repositories.Sketch) error
	FindByID(ctx context.Context, id common.ID) (*repositories.Sketch, error)
	List(ctx context.Context, p common.Pagination) ([]*repositories.Sketch, int64, error)
	Delete(ctx context.Context, id common.ID) error
}

// SketchHandler persists named drawings and loads them back into sessions.
type SketchHandler struct {
	store    SketchStore
	sessions *appeditor.Service
}

// NewSketchHandler builds the handler.
func NewSketchHandler(store SketchStore, sessions *appeditor.Service) *SketchHandler {
	return &SketchHandler{store: store, sessions: sessions}
}

// Register mounts the sketch routes on the API group.
func (h *SketchHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sketches", h.save)
	rg.GET("/sketches", h.list)
	rg.GET("/sketches/:id", h.get)
	rg.PUT("/sketches/:id", h.update)
	rg.DELETE("/sketches/:id", h.delete)
	rg.POST("/sketches/:id/load", h.load)
}

type saveSketchRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// save snapshots a session's current molecule under a unique name.
func (h *SketchHandler) save(c *gin.Context) {
	ctx := c.Request.Context()

	var req saveSketchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Name == "" {
		respondError(c, errors.New(errors.ErrCodeValidation, "sketch name is required"))
		return
	}

	mol, err := h.sessions.Molecule(ctx, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if mol.IsEmpty() {
		respondError(c, errors.New(errors.ErrCodeEmptyMolecule, "cannot save an empty drawing"))
		return
	}

	sketch := &repositories.Sketch{
		ID:          common.NewID(),
		Name:        req.Name,
		Molecule:    *mol,
		ContentHash: mol.ContentHash(),
	}
	if err := h.store.Save(ctx, sketch); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, sketch)
}

func (h *SketchHandler) list(c *gin.Context) {
	p := parsePagination(c)
	sketches, total, err := h.store.List(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	p.Total = total
	respondPage(c, sketches, p)
}

func (h *SketchHandler) get(c *gin.Context) {
	sketch, err := h.store.FindByID(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sketch)
}

type updateSketchRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// update renames a sketch and, when a session is given, re-snapshots its
// molecule.
func (h *SketchHandler) update(c *gin.Context) {
	ctx := c.Request.Context()

	var req updateSketchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sketch, err := h.store.FindByID(ctx, common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Name != "" {
		sketch.Name = req.Name
	}
	if req.SessionID != "" {
		mol, err := h.sessions.Molecule(ctx, req.SessionID)
		if err != nil {
			respondError(c, err)
			return
		}
		if mol.IsEmpty() {
			respondError(c, errors.New(errors.ErrCodeEmptyMolecule, "cannot save an empty drawing"))
			return
		}
		sketch.Molecule = *mol
		sketch.ContentHash = mol.ContentHash()
	}

	if err := h.store.Update(ctx, sketch); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, sketch)
}

func (h *SketchHandler) delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), common.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type loadSketchRequest struct {
	SessionID string `json:"session_id"`
}

// load replaces a session's drawing with the stored sketch and recenters.
func (h *SketchHandler) load(c *gin.Context) {
	ctx := c.Request.Context()

	var req loadSketchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sketch, err := h.store.FindByID(ctx, common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	plan, err := h.sessions.LoadMolecule(ctx, req.SessionID, &sketch.Molecule)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, plan)
}
