package editor

import (
	"math"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/domain/molecule"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Tools
// ─────────────────────────────────────────────────────────────────────────────

// ToolKind enumerates the editor's interaction modes.
type ToolKind string

const (
	ToolPan    ToolKind = "pan"
	ToolAtom   ToolKind = "atom"   // place or retype atoms of Tool.Element
	ToolBond   ToolKind = "bond"   // drag bonds of Tool.Order
	ToolErase  ToolKind = "erase"  // atom first (cascade), else bond
	ToolTarget ToolKind = "target" // select the analysis target atom
	ToolRing   ToolKind = "ring"   // stamp a six-membered ring
)

// Tool is the active interaction mode plus its parameters.
type Tool struct {
	Kind    ToolKind       `json:"kind"`
	Element chem.Element   `json:"element,omitempty"`
	Order   chem.BondOrder `json:"order,omitempty"`
}

// Validate checks the tool selection for completeness.
func (t Tool) Validate() error {
	switch t.Kind {
	case ToolPan, ToolErase, ToolTarget, ToolRing:
		return nil
	case ToolAtom:
		if !t.Element.IsValid() {
			return errors.New(errors.ErrCodeUnknownElement, "atom tool requires a valid element").
				WithDetail(string(t.Element))
		}
		return nil
	case ToolBond:
		if !t.Order.IsValid() {
			return errors.InvalidParam("bond tool requires a valid order").
				WithDetail(string(t.Order))
		}
		return nil
	default:
		return errors.New(errors.ErrCodeUnknownTool, "unknown tool").WithDetail(string(t.Kind))
	}
}

// PointerPhase is the gesture stage of a pointer event.
type PointerPhase string

const (
	PhaseDown PointerPhase = "down"
	PhaseMove PointerPhase = "move"
	PhaseUp   PointerPhase = "up"
)

// PointerEvent is one pointer sample in device coordinates.
type PointerEvent struct {
	Phase PointerPhase `json:"phase"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
}

// dragState tracks an in-flight gesture between down and up.
type dragState struct {
	panning    bool
	lastDevice Point
	bondOrigin string // atom ID the bond drag started from; "" when not dragging
	current    Point  // current device position, for the preview segment
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Engine is one editor session's interactive state: the molecule graph, the
// viewport, the active tool, and any gesture in flight.  The engine is not
// synchronized; the session service serializes access.
//
// Invalid gestures (bonding an atom to itself, erasing empty space,
// duplicate bonds) are deliberately silent no-ops: the caller always gets a
// fresh render plan and the user just sees nothing happen.
type Engine struct {
	graph    *molecule.Graph
	viewport Viewport
	tool     Tool
	drag     dragState
	target   string // selected analysis target atom ID
	cfg      config.EditorConfig
	canvasW  float64
	canvasH  float64
}

// NewEngine builds an engine with an empty graph.
func NewEngine(cfg config.EditorConfig) *Engine {
	return &Engine{
		graph:    molecule.NewGraph(),
		viewport: NewViewport(),
		tool:     Tool{Kind: ToolPan},
		cfg:      cfg,
		canvasW:  800,
		canvasH:  600,
	}
}

// SetCanvasSize records the drawing surface dimensions used by Center.
func (e *Engine) SetCanvasSize(w, h float64) {
	if w > 0 {
		e.canvasW = w
	}
	if h > 0 {
		e.canvasH = h
	}
}

// Graph exposes the underlying molecule graph.
func (e *Engine) Graph() *molecule.Graph { return e.graph }

// Viewport returns the current view transform.
func (e *Engine) Viewport() Viewport { return e.viewport }

// Tool returns the active tool.
func (e *Engine) Tool() Tool { return e.tool }

// TargetAtom returns the selected analysis target atom ID, if any.
func (e *Engine) TargetAtom() string { return e.target }

// Molecule returns a detached snapshot of the current structure.
func (e *Engine) Molecule() *chem.Molecule { return e.graph.Snapshot() }

// ReplaceMolecule swaps in a new structure (resolved search result or loaded
// sketch), cancels any gesture, and clears the target selection.
func (e *Engine) ReplaceMolecule(m *chem.Molecule) {
	e.graph = molecule.FromMolecule(m)
	e.drag = dragState{}
	e.target = ""
}

// SelectTool switches the active tool.  Switching cancels an in-flight
// gesture.
func (e *Engine) SelectTool(t Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.tool = t
	e.drag = dragState{}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Viewport operations
// ─────────────────────────────────────────────────────────────────────────────

// Zoom multiplies the scale by the configured step (in > 0) or its inverse,
// clamped to the configured bounds and anchored at the canvas center.
func (e *Engine) Zoom(in bool) {
	factor := e.cfg.ZoomStep
	if !in {
		factor = 1 / e.cfg.ZoomStep
	}
	e.viewport.ZoomBy(factor, e.cfg.MinScale, e.cfg.MaxScale,
		Point{X: e.canvasW / 2, Y: e.canvasH / 2})
}

// Center sets the offset so the molecule's bounding-box center maps to the
// canvas center at the current scale.  No-op when the graph is empty.
func (e *Engine) Center() {
	minX, minY, maxX, maxY, ok := e.graph.BoundingBox()
	if !ok {
		return
	}
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	e.viewport.OffsetX = e.canvasW/2 - cx*e.viewport.Scale
	e.viewport.OffsetY = e.canvasH/2 - cy*e.viewport.Scale
}

// ─────────────────────────────────────────────────────────────────────────────
// Pointer protocol
// ─────────────────────────────────────────────────────────────────────────────

// HandlePointer advances the gesture state machine with one pointer sample
// and returns the resulting render plan.  Editor-local errors never escape:
// an invalid gesture simply leaves the structure unchanged.
func (e *Engine) HandlePointer(ev PointerEvent) *RenderPlan {
	device := Point{X: ev.X, Y: ev.Y}
	switch ev.Phase {
	case PhaseDown:
		e.pointerDown(device)
	case PhaseMove:
		e.pointerMove(device)
	case PhaseUp:
		e.pointerUp(device)
	}
	return e.Render()
}

func (e *Engine) pointerDown(device Point) {
	model := e.viewport.ToModel(device)

	switch e.tool.Kind {
	case ToolPan:
		e.drag.panning = true
		e.drag.lastDevice = device

	case ToolAtom:
		if atom, ok := e.hitAtom(model); ok {
			_ = e.graph.RetypeAtom(atom.ID, e.tool.Element)
			return
		}
		_, _ = e.graph.AddAtom(e.tool.Element, model.X, model.Y)

	case ToolBond:
		if atom, ok := e.hitAtom(model); ok {
			e.drag.bondOrigin = atom.ID
			e.drag.current = device
			return
		}
		if bond, ok := e.hitBond(model); ok {
			_ = e.graph.RetypeBond(bond.ID, e.tool.Order)
			return
		}
		// Down on empty space first creates the origin atom.
		atom, err := e.graph.AddAtom(chem.ElementC, model.X, model.Y)
		if err != nil {
			return
		}
		e.drag.bondOrigin = atom.ID
		e.drag.current = device

	case ToolErase:
		if atom, ok := e.hitAtom(model); ok {
			_, _ = e.graph.EraseAtom(atom.ID)
			if e.target == atom.ID {
				e.target = ""
			}
			return
		}
		if bond, ok := e.hitBond(model); ok {
			_ = e.graph.EraseBond(bond.ID)
		}

	case ToolTarget:
		if atom, ok := e.hitAtom(model); ok {
			e.target = atom.ID
		}

	case ToolRing:
		e.stampRing(model)
		e.tool = Tool{Kind: ToolPan}
	}
}

func (e *Engine) pointerMove(device Point) {
	if e.drag.panning {
		e.viewport.Pan(device.X-e.drag.lastDevice.X, device.Y-e.drag.lastDevice.Y)
		e.drag.lastDevice = device
		return
	}
	if e.drag.bondOrigin != "" {
		e.drag.current = device
	}
}

func (e *Engine) pointerUp(device Point) {
	if e.drag.panning {
		e.drag.panning = false
		return
	}
	origin := e.drag.bondOrigin
	if origin == "" {
		return
	}
	e.drag.bondOrigin = ""

	model := e.viewport.ToModel(device)
	if atom, ok := e.hitAtom(model); ok {
		if atom.ID == origin {
			return // up on origin cancels
		}
		// Duplicate pairs are a silent no-op.
		_, _ = e.graph.AddBond(origin, atom.ID, e.tool.Order)
		return
	}

	// Up on empty space: grow a new carbon one bond length from the origin,
	// snapping the angle while the origin is lightly substituted.
	originAtom, ok := e.graph.Atom(origin)
	if !ok {
		return
	}
	angle := math.Atan2(model.Y-originAtom.Y, model.X-originAtom.X)
	if e.graph.IncidentBondCount(origin) < 4 {
		angle = snapAngle(angle)
	}
	nx := originAtom.X + e.cfg.BondLength*math.Cos(angle)
	ny := originAtom.Y + e.cfg.BondLength*math.Sin(angle)

	atom, err := e.graph.AddAtom(chem.ElementC, nx, ny)
	if err != nil {
		return
	}
	_, _ = e.graph.AddBond(origin, atom.ID, e.tool.Order)
	e.tool = Tool{Kind: ToolPan}
}

// snapAngle rounds an angle to the nearest multiple of 60 degrees.
func snapAngle(angle float64) float64 {
	const step = math.Pi / 3
	return math.Round(angle/step) * step
}

// ─────────────────────────────────────────────────────────────────────────────
// Ring stamp
// ─────────────────────────────────────────────────────────────────────────────

// stampRing appends a six-carbon ring centered at the given model point:
// vertices at 60-degree increments on the configured radius, cyclically
// bonded with alternating single/double orders.
func (e *Engine) stampRing(center Point) {
	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		angle := float64(i)*math.Pi/3 - math.Pi/2
		a, err := e.graph.AddAtom(chem.ElementC,
			center.X+e.cfg.RingRadius*math.Cos(angle),
			center.Y+e.cfg.RingRadius*math.Sin(angle),
		)
		if err != nil {
			return
		}
		ids = append(ids, a.ID)
	}
	for i := 0; i < 6; i++ {
		order := chem.BondSingle
		if i%2 == 1 {
			order = chem.BondDouble
		}
		_, _ = e.graph.AddBond(ids[i], ids[(i+1)%6], order)
	}
}
