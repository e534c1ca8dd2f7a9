// Package app wires the editing session together: the document, its viewport,
// the pointer machine, import, preview rendering, mockups and export.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"sync"

	"mockup-studio/internal/config"
	"mockup-studio/internal/document"
	"mockup-studio/internal/export"
	"mockup-studio/internal/image"
	"mockup-studio/internal/input"
	"mockup-studio/internal/mockup"
	"mockup-studio/internal/viewport"
	"mockup-studio/pkg/geometry"

	"go.uber.org/zap"
)

// ErrNoSelection is returned by operations on the selected layer when there
// is none.
var ErrNoSelection = errors.New("no layer selected")

// State is one editing session. The document, viewport and input machine are
// driven from the UI thread; export may run elsewhere from a Snapshot.
type State struct {
	mu sync.RWMutex

	cfg *config.Config

	doc        *document.Document
	vp         *viewport.Viewport
	brush      *document.Brush
	input      *input.Machine
	decoder    *image.Decoder
	compositor *image.Compositor
	exporter   *export.Exporter
	mockups    *mockup.Library
	side       mockup.Side

	logger *zap.Logger

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different session events.
type EventType int

const (
	EventLayersChanged EventType = iota
	EventSelectionChanged
	EventToolChanged
	EventBrushChanged
	EventViewportChanged
	EventMockupChanged
	EventImported
	EventExported
	EventConfigReloaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a session for cfg. Mockups are not read until
// LoadMockups.
func NewState(cfg *config.Config, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, h := cfg.Canvas.Width, cfg.Canvas.Height

	doc := document.New(w, h, document.WithLogger(logger.Named("document")))
	vp := viewport.New(w, h,
		viewport.WithZoomRange(cfg.Viewport.ZoomMin, cfg.Viewport.ZoomMax, cfg.Viewport.ZoomStep),
		viewport.WithDisplayWidth(cfg.Editor.DisplayWidth),
		viewport.WithLogger(logger.Named("viewport")),
	)
	brush := document.NewBrush(cfg.Brush.Color, cfg.Brush.Width, cfg.Brush.MaxWidth, logger)

	s := &State{
		cfg:   cfg,
		doc:   doc,
		vp:    vp,
		brush: brush,
		input: input.New(doc, vp, brush,
			input.WithHandleRadius(cfg.Editor.HandleRadius),
			input.WithRotateHandleOffset(cfg.Editor.RotateHandleOffset),
			input.WithLogger(logger.Named("input")),
		),
		decoder: image.NewDecoder(
			image.WithMaxBytes(cfg.Import.MaxBytes),
			image.WithMaxSide(cfg.Import.MaxSide),
			image.WithDecoderLogger(logger.Named("import")),
		),
		mockups:   mockup.NewLibrary(cfg.Mockups, w, h, logger.Named("mockup")),
		logger:    logger,
		listeners: make(map[EventType][]EventListener),
	}
	s.compositor, s.exporter = newPipeline(cfg, logger)
	return s
}

func newPipeline(cfg *config.Config, logger *zap.Logger) (*image.Compositor, *export.Exporter) {
	c := image.NewCompositor(
		image.WithTension(cfg.Brush.Tension),
		image.WithMaxPixels(cfg.Canvas.MaxPixels),
		image.WithCompositorLogger(logger.Named("render")),
	)
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		logger.Warn("Unknown export format, using png", zap.Error(err))
		format = export.FormatPNG
	}
	e := export.New(
		export.WithFormat(format),
		export.WithPixelScale(cfg.Export.PixelScale),
		export.WithJPEGQuality(cfg.Export.JPEGQuality),
		export.WithCompositor(c),
		export.WithLogger(logger.Named("export")),
	)
	return c, e
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) Document() *document.Document { return s.doc }
func (s *State) Viewport() *viewport.Viewport { return s.vp }
func (s *State) Brush() *document.Brush       { return s.brush }
func (s *State) Input() *input.Machine        { return s.input }
func (s *State) Mockups() *mockup.Library     { return s.mockups }

// Config returns the active configuration.
func (s *State) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Exporter returns the current export pipeline.
func (s *State) Exporter() *export.Exporter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter
}

// LoadMockups reads the presets and shows the configured default. Missing
// assets are replaced by placeholders and reported in the error.
func (s *State) LoadMockups() error {
	err := s.mockups.Load()
	s.SetMockup(s.mockups.Default())
	return err
}

// SetMockup swaps the background. Layers are untouched.
func (s *State) SetMockup(side mockup.Side) {
	p := s.mockups.Get(side)
	s.doc.SetBackground(p.Image)

	s.mu.Lock()
	s.side = side
	s.mu.Unlock()

	s.logger.Debug("Mockup selected", zap.String("side", string(side)), zap.Bool("placeholder", p.Placeholder))
	s.Emit(EventMockupChanged, side)
}

// MockupSide returns the visible preset.
func (s *State) MockupSide() mockup.Side {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.side
}

// ToggleMockup flips between front and back.
func (s *State) ToggleMockup() mockup.Side {
	next := mockup.Back
	if s.MockupSide() == mockup.Back {
		next = mockup.Front
	}
	s.SetMockup(next)
	return next
}

// ImportBytes decodes data and places it as a new layer at the configured
// offset. The new layer is selected and the tool switches to move. On error
// the document is unchanged.
func (s *State) ImportBytes(data []byte) (string, error) {
	dec, err := s.decoder.Decode(data)
	if err != nil {
		s.logger.Error("Import failed", zap.Error(err))
		return "", err
	}
	return s.place(dec)
}

// ImportFile reads and imports the file at path.
func (s *State) ImportFile(path string) (string, error) {
	dec, err := s.decoder.DecodeFile(path)
	if err != nil {
		s.logger.Error("Import failed", zap.String("path", path), zap.Error(err))
		return "", err
	}
	return s.place(dec)
}

func (s *State) place(dec *image.Decoded) (string, error) {
	cfg := s.Config().Import
	id, err := s.doc.AddImageLayer(dec.Image, document.Placement{
		X:      cfg.OffsetX,
		Y:      cfg.OffsetY,
		Width:  float64(dec.NativeWidth) * cfg.Scale,
		Height: float64(dec.NativeHeight) * cfg.Scale,
	})
	if err != nil {
		return "", err
	}
	if err := s.doc.Select(id); err != nil {
		return "", fmt.Errorf("failed to select imported layer: %w", err)
	}
	s.SetTool(input.ToolMove)

	s.Emit(EventImported, id)
	s.Emit(EventLayersChanged, nil)
	s.Emit(EventSelectionChanged, id)
	return id, nil
}

// HandlePointer routes a pointer event through the input machine and emits
// the resulting events.
func (s *State) HandlePointer(ev input.Event) input.Result {
	res := s.input.Handle(ev)
	s.emitResult(res)
	return res
}

// SetTool switches editing mode, finalizing any stroke in progress.
func (s *State) SetTool(t input.Tool) {
	prev := s.input.Tool()
	res := s.input.SetTool(t)
	s.emitResult(res)
	if prev != t {
		s.Emit(EventToolChanged, t)
	}
}

func (s *State) emitResult(res input.Result) {
	if res.LayersChanged {
		s.Emit(EventLayersChanged, nil)
	}
	if res.SelectionChanged {
		s.Emit(EventSelectionChanged, s.doc.Selected())
	}
}

// SetBrushColor sets the colour for the next stroke.
func (s *State) SetBrushColor(hex string) error {
	if err := s.brush.SetColor(hex); err != nil {
		return err
	}
	s.Emit(EventBrushChanged, s.brush.Style())
	return nil
}

// SetBrushWidth sets the width for the next stroke and returns the clamped
// value.
func (s *State) SetBrushWidth(w float64) float64 {
	got := s.brush.SetWidth(w)
	s.Emit(EventBrushChanged, s.brush.Style())
	return got
}

// SetSelectedOpacity changes the opacity of the selected layer.
func (s *State) SetSelectedOpacity(o float64) error {
	id := s.doc.Selected()
	if id == "" {
		return ErrNoSelection
	}
	if err := s.doc.SetOpacity(id, o); err != nil {
		return err
	}
	s.Emit(EventLayersChanged, nil)
	return nil
}

// Deselect clears the selection.
func (s *State) Deselect() {
	if s.doc.Selected() == "" {
		return
	}
	_ = s.doc.Select("")
	s.Emit(EventSelectionChanged, "")
}

// DeleteSelected removes the selected layer.
func (s *State) DeleteSelected() error {
	id := s.doc.Selected()
	if id == "" {
		return ErrNoSelection
	}
	if err := s.doc.Remove(id); err != nil {
		return err
	}
	s.Emit(EventLayersChanged, nil)
	s.Emit(EventSelectionChanged, "")
	return nil
}

// DuplicateSelected copies the selected layer and selects the copy.
func (s *State) DuplicateSelected() (string, error) {
	id := s.doc.Selected()
	if id == "" {
		return "", ErrNoSelection
	}
	dup, err := s.doc.Duplicate(id, s.Config().Editor.DuplicateOffset)
	if err != nil {
		return "", err
	}
	if err := s.doc.Select(dup); err != nil {
		return "", err
	}
	s.Emit(EventLayersChanged, nil)
	s.Emit(EventSelectionChanged, dup)
	return dup, nil
}

// RaiseSelected moves the selected layer above every other layer, strokes
// included.
func (s *State) RaiseSelected() error {
	id := s.doc.Selected()
	if id == "" {
		return ErrNoSelection
	}
	if err := s.doc.RaiseToTop(id); err != nil {
		return err
	}
	s.Emit(EventLayersChanged, nil)
	return nil
}

// Clear removes every stroke. Images stay.
func (s *State) Clear() int {
	n := s.doc.RemoveAll()
	s.Emit(EventLayersChanged, nil)
	return n
}

// ZoomIn zooms one step about the viewport centre.
func (s *State) ZoomIn() float64 { return s.zoomed(s.vp.ZoomIn()) }

// ZoomOut zooms out one step about the viewport centre.
func (s *State) ZoomOut() float64 { return s.zoomed(s.vp.ZoomOut()) }

// ZoomAt zooms by factor keeping the display point under the cursor fixed.
func (s *State) ZoomAt(factor float64, display geometry.Point2D) float64 {
	return s.zoomed(s.vp.ZoomAt(factor, display))
}

// PanBy scrolls the view by display pixels.
func (s *State) PanBy(dx, dy float64) {
	s.vp.PanBy(dx, dy)
	s.Emit(EventViewportChanged, s.vp.State())
}

// ResetView returns to zoom 1 with no pan.
func (s *State) ResetView() {
	s.vp.Reset()
	s.Emit(EventViewportChanged, s.vp.State())
}

// SetDisplayWidth rescales the preview to a new element width.
func (s *State) SetDisplayWidth(w float64) {
	s.vp.SetDisplayWidth(w)
	s.Emit(EventViewportChanged, s.vp.State())
}

// FitView sizes the preview to fit a w x h area and resets zoom and pan.
func (s *State) FitView(w, h float64) {
	s.vp.FitWidth(w, h)
	s.Emit(EventViewportChanged, s.vp.State())
}

func (s *State) zoomed(z float64) float64 {
	s.Emit(EventViewportChanged, s.vp.State())
	return z
}

// RenderPreview draws the document through the viewport at display size.
func (s *State) RenderPreview(ctx context.Context) (*goimage.RGBA, error) {
	w, h := s.vp.DisplaySize()
	return s.RenderPreviewSize(ctx, int(w+0.5), int(h+0.5))
}

// RenderPreviewSize draws the preview into a w x h pixel buffer. The view is
// stretched uniformly from display units, which lets HiDPI canvases render
// at device resolution.
func (s *State) RenderPreviewSize(ctx context.Context, w, h int) (*goimage.RGBA, error) {
	dw, _ := s.vp.DisplaySize()
	k := float64(w) / dw
	s.mu.RLock()
	c := s.compositor
	s.mu.RUnlock()
	return c.Render(ctx, s.doc.Snapshot(), image.Target{
		Width:     w,
		Height:    h,
		Transform: geometry.Scale(k, k).Compose(s.vp.Forward()),
		Preview:   true,
	})
}

// Snapshot freezes the document for an off-thread export.
func (s *State) Snapshot() document.Snapshot {
	return s.doc.Snapshot()
}

// Export renders one variant from the current document.
func (s *State) Export(ctx context.Context, includeBackground bool) ([]byte, error) {
	return s.Exporter().Export(ctx, s.Snapshot(), includeBackground, 0)
}

// ExportFiles writes both variants of snap into dir. It may run off the UI
// goroutine and emits nothing; the caller reports the paths with
// NotifyExported once back on the UI goroutine.
func (s *State) ExportFiles(ctx context.Context, snap document.Snapshot, dir string) ([]string, error) {
	return s.Exporter().WriteFiles(ctx, snap, dir, 0)
}

// NotifyExported emits EventExported with the written paths.
func (s *State) NotifyExported(paths []string) {
	s.Emit(EventExported, paths)
}

// SetExportFormat switches the export encoder for this session. The config
// file is not written.
func (s *State) SetExportFormat(f export.Format) {
	s.mu.Lock()
	cfg := *s.cfg
	cfg.Export.Format = string(f)
	s.cfg = &cfg
	s.compositor, s.exporter = newPipeline(s.cfg, s.logger)
	s.mu.Unlock()
}

// ApplyConfig adopts a reloaded configuration. Canvas size is fixed for the
// session, so a changed size is logged and ignored.
func (s *State) ApplyConfig(cfg *config.Config) {
	old := s.Config()
	if cfg.Canvas.Width != old.Canvas.Width || cfg.Canvas.Height != old.Canvas.Height {
		s.logger.Warn("Canvas size change needs a new session",
			zap.Int("width", cfg.Canvas.Width), zap.Int("height", cfg.Canvas.Height))
		cfg.Canvas = old.Canvas
	}
	c, e := newPipeline(cfg, s.logger)

	s.mu.Lock()
	s.cfg = cfg
	s.compositor, s.exporter = c, e
	s.mu.Unlock()

	if err := s.mockups.Reconfigure(cfg.Mockups); err != nil {
		s.logger.Warn("Mockups reloaded with placeholders", zap.Error(err))
	}
	s.SetMockup(s.MockupSide())
	s.Emit(EventConfigReloaded, cfg)
}

// ReloadMockups re-reads the mockup assets and refreshes the background.
func (s *State) ReloadMockups() error {
	err := s.mockups.Load()
	s.SetMockup(s.MockupSide())
	return err
}
