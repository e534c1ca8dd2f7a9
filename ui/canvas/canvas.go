// Package canvas provides the editor surface: a live preview of the
// document with pointer editing, wheel zoom and pan.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"mockup-studio/internal/app"
	"mockup-studio/internal/input"
	"mockup-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
)

// EditorCanvas shows the document through the session viewport. The primary
// button edits through the input machine; the secondary and middle buttons
// pan; the wheel zooms about the cursor.
type EditorCanvas struct {
	widget.BaseWidget

	state  *app.State
	logger *zap.Logger
	style  OverlayStyle

	raster     *fynecanvas.Raster
	background *fynecanvas.Rectangle

	// Frame cache, shared with the raster generator.
	mu    sync.Mutex
	frame *image.RGBA
	dirty bool

	// Interaction state
	panning bool
	pressed bool
	lastPos fyne.Position
	cursor  desktop.Cursor

	// Callbacks
	onPointer func(pos geometry.Point2D)
}

var (
	_ fyne.Widget            = (*EditorCanvas)(nil)
	_ desktop.Mouseable      = (*EditorCanvas)(nil)
	_ desktop.Hoverable      = (*EditorCanvas)(nil)
	_ desktop.Cursorable     = (*EditorCanvas)(nil)
	_ fyne.Draggable         = (*EditorCanvas)(nil)
	_ fyne.Scrollable        = (*EditorCanvas)(nil)
	_ fyne.SecondaryTappable = (*EditorCanvas)(nil)
)

// NewEditorCanvas creates the canvas and subscribes it to session events.
func NewEditorCanvas(state *app.State, logger *zap.Logger) *EditorCanvas {
	if logger == nil {
		logger = zap.NewNop()
	}
	ec := &EditorCanvas{
		state:      state,
		logger:     logger,
		style:      DefaultOverlayStyle(),
		dirty:      true,
		background: fynecanvas.NewRectangle(color.NRGBA{R: 0xe9, G: 0xec, B: 0xef, A: 0xff}),
		cursor:     desktop.DefaultCursor,
	}
	ec.raster = fynecanvas.NewRaster(ec.draw)
	ec.raster.ScaleMode = fynecanvas.ImageScaleFastest

	for _, ev := range []app.EventType{
		app.EventLayersChanged,
		app.EventSelectionChanged,
		app.EventToolChanged,
		app.EventViewportChanged,
		app.EventMockupChanged,
		app.EventConfigReloaded,
	} {
		state.On(ev, func(interface{}) { ec.Refresh() })
	}

	ec.ExtendBaseWidget(ec)
	return ec
}

// SetOnPointer registers a callback with the canonical position under the
// pointer, for the status bar.
func (ec *EditorCanvas) SetOnPointer(fn func(pos geometry.Point2D)) {
	ec.onPointer = fn
}

// SetOverlayStyle changes the selection overlay colours.
func (ec *EditorCanvas) SetOverlayStyle(st OverlayStyle) {
	ec.style = st
	ec.Refresh()
}

// Refresh re-renders the preview.
func (ec *EditorCanvas) Refresh() {
	ec.invalidate()
	ec.BaseWidget.Refresh()
}

// Fit sizes the preview to the widget and resets zoom and pan.
func (ec *EditorCanvas) Fit() {
	size := ec.Size()
	ec.state.FitView(float64(size.Width), float64(size.Height))
}

// Resize keeps the whole canvas visible as the widget changes size. Zoom
// and pan are kept.
func (ec *EditorCanvas) Resize(size fyne.Size) {
	if size.Width > 0 && size.Height > 0 {
		cw, ch := ec.state.Document().Size()
		k := min(float64(size.Width)/float64(cw), float64(size.Height)/float64(ch))
		ec.state.SetDisplayWidth(float64(cw) * k)
	}
	ec.BaseWidget.Resize(size)
}

func (ec *EditorCanvas) MinSize() fyne.Size {
	return fyne.NewSize(200, 200)
}

// CreateRenderer implements fyne.Widget.
func (ec *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &editorRenderer{canvas: ec}
}

// MouseDown starts a gesture.
func (ec *EditorCanvas) MouseDown(ev *desktop.MouseEvent) {
	ec.lastPos = ev.Position
	if ev.Button != desktop.MouseButtonPrimary {
		ec.panning = true
		return
	}
	ec.pressed = true
	ec.pointer(input.Down, ev.Position)
}

// MouseUp ends a gesture. A drag also ends through DragEnd; the second end
// is ignored by the input machine.
func (ec *EditorCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ec.panning {
		ec.panning = false
		return
	}
	if ec.pressed {
		ec.pressed = false
		ec.pointer(input.Up, ev.Position)
	}
}

// Dragged moves the active gesture or pans the view.
func (ec *EditorCanvas) Dragged(ev *fyne.DragEvent) {
	if ec.panning {
		ec.state.PanBy(float64(ev.Dragged.DX), float64(ev.Dragged.DY))
		ec.lastPos = ev.Position
		return
	}
	ec.lastPos = ev.Position
	ec.pointer(input.Move, ev.Position)
}

// DragEnd finishes the active gesture.
func (ec *EditorCanvas) DragEnd() {
	if ec.panning {
		ec.panning = false
		return
	}
	if ec.pressed {
		ec.pressed = false
		ec.pointer(input.Up, ec.lastPos)
	}
}

// TappedSecondary is consumed so a right click does not reach the window.
func (ec *EditorCanvas) TappedSecondary(*fyne.PointEvent) {}

// Scrolled zooms about the cursor.
func (ec *EditorCanvas) Scrolled(ev *fyne.ScrollEvent) {
	step := ec.state.Config().Viewport.ZoomStep
	factor := step
	if ev.Scrolled.DY < 0 {
		factor = 1 / step
	} else if ev.Scrolled.DY == 0 {
		return
	}
	ec.state.ZoomAt(factor, toPoint(ev.Position))
}

func (ec *EditorCanvas) MouseIn(ev *desktop.MouseEvent) {
	ec.hover(ev.Position)
}

func (ec *EditorCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ec.hover(ev.Position)
}

// MouseOut cancels a gesture when the pointer leaves the canvas.
func (ec *EditorCanvas) MouseOut() {
	if ec.pressed {
		ec.pressed = false
		ec.pointer(input.Cancel, ec.lastPos)
	}
	ec.panning = false
}

// Cursor implements desktop.Cursorable.
func (ec *EditorCanvas) Cursor() desktop.Cursor {
	return ec.cursor
}

func (ec *EditorCanvas) hover(pos fyne.Position) {
	p := toPoint(pos)
	switch {
	case ec.state.Input().Tool() == input.ToolBrush:
		ec.cursor = desktop.CrosshairCursor
	case ec.state.Input().HandleAt(p) != input.HandleNone:
		ec.cursor = desktop.PointerCursor
	default:
		ec.cursor = desktop.DefaultCursor
	}
	if ec.onPointer != nil {
		ec.onPointer(ec.state.Viewport().ToCanonical(p))
	}
}

func (ec *EditorCanvas) pointer(kind input.EventKind, pos fyne.Position) {
	if res := ec.state.HandlePointer(input.Event{Kind: kind, Pos: toPoint(pos)}); res.Redraw {
		ec.Refresh()
	}
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

type editorRenderer struct {
	canvas *EditorCanvas
}

// Layout pins the raster to the top-left at display size so widget
// positions are display coordinates.
func (r *editorRenderer) Layout(size fyne.Size) {
	r.canvas.background.Resize(size)
	w, h := r.canvas.state.Viewport().DisplaySize()
	r.canvas.raster.Move(fyne.NewPos(0, 0))
	r.canvas.raster.Resize(fyne.NewSize(float32(w), float32(h)))
}

func (r *editorRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *editorRenderer) Refresh() {
	r.canvas.background.FillColor = theme.Color(theme.ColorNameInputBackground)
	r.Layout(r.canvas.Size())
	r.canvas.background.Refresh()
	r.canvas.raster.Refresh()
}

func (r *editorRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.background, r.canvas.raster}
}

func (r *editorRenderer) Destroy() {}
