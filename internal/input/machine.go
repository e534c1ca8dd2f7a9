// Package input turns raw pointer events into document edits. In brush mode
// a press starts a stroke that grows while the pointer moves; in move mode a
// press picks a handle or a layer and the drag transforms it.
package input

import (
	"errors"
	"math"

	"mockup-studio/internal/document"
	"mockup-studio/internal/errs"
	"mockup-studio/internal/viewport"
	"mockup-studio/pkg/geometry"

	"go.uber.org/zap"
)

const (
	defaultHandleRadius = 10.0
	defaultRotateOffset = 30.0
	// minScaleDistance avoids dividing by a press taken at the pivot.
	minScaleDistance = 1e-6
)

// Tool is the active editing mode.
type Tool int

const (
	ToolMove Tool = iota
	ToolBrush
)

func (t Tool) String() string {
	switch t {
	case ToolMove:
		return "move"
	case ToolBrush:
		return "brush"
	default:
		return "unknown"
	}
}

// ParseTool maps a tool name back to a Tool. Unknown names are ToolMove.
func ParseTool(s string) Tool {
	if s == "brush" {
		return ToolBrush
	}
	return ToolMove
}

// State is the gesture in progress.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateDragging
	StateScaling
	StateRotating
)

func (s State) String() string {
	return [...]string{"idle", "drawing", "dragging", "scaling", "rotating"}[s]
}

// EventKind is the pointer phase.
type EventKind int

const (
	Down EventKind = iota
	Move
	Up
	// Cancel covers pointer loss, e.g. leaving the element mid-gesture.
	Cancel
)

// Event is one pointer sample in display coordinates.
type Event struct {
	Kind      EventKind
	PointerID int
	Pos       geometry.Point2D
}

// Result tells the caller what to refresh.
type Result struct {
	Redraw           bool
	SelectionChanged bool
	LayersChanged    bool
}

func (r Result) merge(o Result) Result {
	return Result{
		Redraw:           r.Redraw || o.Redraw,
		SelectionChanged: r.SelectionChanged || o.SelectionChanged,
		LayersChanged:    r.LayersChanged || o.LayersChanged,
	}
}

// Handle identifies a transform handle on the selection overlay.
type Handle int

const (
	HandleNone Handle = iota
	HandleScale
	HandleRotate
)

// Overlay is the selection overlay in display coordinates.
type Overlay struct {
	Outline   []geometry.Point2D
	Scale     geometry.Point2D
	Rotate    geometry.Point2D
	TopCenter geometry.Point2D
	Radius    float64
}

// Machine is the pointer state machine for one document. It is not safe for
// concurrent use; events arrive on the UI thread.
type Machine struct {
	doc   *document.Document
	vp    *viewport.Viewport
	brush *document.Brush

	tool  Tool
	state State

	tracking bool
	pointer  int

	handleRadius float64
	rotateOffset float64

	// gesture
	layerID    string
	pivot      geometry.Point2D
	start      geometry.Point2D
	origin     document.Transform
	startDist  float64
	startAngle float64

	logger *zap.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithHandleRadius sets the handle hit radius in display pixels.
func WithHandleRadius(r float64) Option {
	return func(m *Machine) { m.handleRadius = r }
}

// WithRotateHandleOffset sets how far above the top edge the rotate handle
// sits, in display pixels.
func WithRotateHandleOffset(d float64) Option {
	return func(m *Machine) { m.rotateOffset = d }
}

// WithLogger sets the machine logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// New creates an idle machine in move mode.
func New(doc *document.Document, vp *viewport.Viewport, brush *document.Brush, opts ...Option) *Machine {
	m := &Machine{
		doc:          doc,
		vp:           vp,
		brush:        brush,
		tool:         ToolMove,
		handleRadius: defaultHandleRadius,
		rotateOffset: defaultRotateOffset,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Tool() Tool   { return m.tool }
func (m *Machine) State() State { return m.state }

// SetTool switches mode. A stroke in progress is finalized and any move
// gesture ends; the selection is left alone.
func (m *Machine) SetTool(t Tool) Result {
	var res Result
	if m.state != StateIdle {
		res = m.finish()
	}
	if m.tool != t {
		m.logger.Debug("Tool changed", zap.Stringer("from", m.tool), zap.Stringer("to", t))
		m.tool = t
		res.Redraw = true
	}
	return res
}

// Handle feeds one pointer event through the machine.
func (m *Machine) Handle(ev Event) Result {
	switch ev.Kind {
	case Down:
		if m.tracking {
			return Result{}
		}
		m.tracking = true
		m.pointer = ev.PointerID
		return m.down(m.vp.ToCanonical(ev.Pos), ev.Pos)
	case Move:
		if !m.tracking || ev.PointerID != m.pointer {
			return Result{}
		}
		return m.move(m.vp.ToCanonical(ev.Pos))
	case Up, Cancel:
		if !m.tracking || ev.PointerID != m.pointer {
			return Result{}
		}
		return m.finish()
	}
	return Result{}
}

func (m *Machine) down(p, display geometry.Point2D) Result {
	if m.tool == ToolBrush {
		m.doc.AddStroke(p, m.brush.Style())
		m.state = StateDrawing
		return Result{Redraw: true, LayersChanged: true}
	}

	if img, ok := m.doc.SelectedLayer(); ok {
		switch m.handleAt(img, display) {
		case HandleScale:
			m.begin(StateScaling, img, p)
			return Result{Redraw: true}
		case HandleRotate:
			m.begin(StateRotating, img, p)
			return Result{Redraw: true}
		}
	}

	// The topmost layer under the pointer wins, even over the selection.
	before := m.doc.Selected()
	id := m.doc.SelectAt(p)
	res := Result{Redraw: before != id, SelectionChanged: before != id}
	if id == "" {
		// nothing to drag, but keep tracking so stray moves are swallowed
		return res
	}
	img, ok := m.doc.ImageLayer(id)
	if !ok {
		return res
	}
	m.begin(StateDragging, img, p)
	return res
}

func (m *Machine) begin(s State, img *document.ImageLayer, p geometry.Point2D) {
	m.state = s
	m.layerID = img.ID()
	m.origin = img.Transform()
	m.start = p
	m.pivot = img.Center()
	m.startDist = p.Distance(m.pivot)
	m.startAngle = math.Atan2(p.Y-m.pivot.Y, p.X-m.pivot.X)
}

func (m *Machine) move(p geometry.Point2D) Result {
	switch m.state {
	case StateDrawing:
		if m.doc.AppendToActiveStroke(p) {
			return Result{Redraw: true, LayersChanged: true}
		}
		return Result{}
	case StateDragging:
		t := m.origin
		t.X += p.X - m.start.X
		t.Y += p.Y - m.start.Y
		return m.apply(t)
	case StateScaling:
		if m.startDist < minScaleDistance {
			return Result{}
		}
		f := p.Distance(m.pivot) / m.startDist
		t := m.origin
		t.Width = m.origin.Width * f
		t.Height = m.origin.Height * f
		t.X = m.pivot.X - t.Width/2
		t.Y = m.pivot.Y - t.Height/2
		return m.apply(t)
	case StateRotating:
		a := math.Atan2(p.Y-m.pivot.Y, p.X-m.pivot.X)
		t := m.origin
		t.Rotation = m.origin.Rotation + geometry.RadToDeg(a-m.startAngle)
		return m.apply(t)
	}
	return Result{}
}

func (m *Machine) apply(t document.Transform) Result {
	err := m.doc.SetTransform(m.layerID, t)
	if errors.Is(err, errs.ErrStaleSelection) {
		m.logger.Debug("Gesture target vanished", zap.Error(err))
		m.state = StateIdle
		return Result{Redraw: true, SelectionChanged: true}
	}
	if err != nil {
		m.logger.Warn("Failed to apply transform", zap.Error(err))
		return Result{}
	}
	return Result{Redraw: true, LayersChanged: true}
}

// finish ends whatever gesture is active and releases the pointer.
func (m *Machine) finish() Result {
	var res Result
	if m.state == StateDrawing {
		if m.doc.FinalizeStroke() != "" {
			res = res.merge(Result{Redraw: true, LayersChanged: true})
		}
	} else if m.state != StateIdle {
		res.Redraw = true
	}
	m.state = StateIdle
	m.tracking = false
	m.layerID = ""
	return res
}

// Overlay returns the selection overlay for the selected layer in display
// coordinates. It reports false when nothing is selected or in brush mode.
func (m *Machine) Overlay() (Overlay, bool) {
	if m.tool != ToolMove {
		return Overlay{}, false
	}
	img, ok := m.doc.SelectedLayer()
	if !ok {
		return Overlay{}, false
	}
	return m.overlay(img), true
}

func (m *Machine) overlay(img *document.ImageLayer) Overlay {
	fwd := m.vp.Forward()
	outline := geometry.TransformPoints(fwd, img.Outline())
	top := outline[0].Add(outline[1]).Scale(0.5)
	rad := geometry.DegToRad(img.Props().Rotation)
	up := geometry.Point2D{X: math.Sin(rad), Y: -math.Cos(rad)}
	return Overlay{
		Outline:   outline,
		Scale:     outline[2],
		Rotate:    top.Add(up.Scale(m.rotateOffset)),
		TopCenter: top,
		Radius:    m.handleRadius,
	}
}

// HandleAt reports which handle of the current selection lies under display
// point p. The canvas uses it for cursor feedback.
func (m *Machine) HandleAt(p geometry.Point2D) Handle {
	if m.tool != ToolMove {
		return HandleNone
	}
	img, ok := m.doc.SelectedLayer()
	if !ok {
		return HandleNone
	}
	return m.handleAt(img, p)
}

func (m *Machine) handleAt(img *document.ImageLayer, p geometry.Point2D) Handle {
	o := m.overlay(img)
	if p.Distance(o.Scale) <= o.Radius {
		return HandleScale
	}
	if p.Distance(o.Rotate) <= o.Radius {
		return HandleRotate
	}
	return HandleNone
}
