package document

import (
	"errors"
	"image"
	"sync"

	"mockup-studio/internal/errs"
	"mockup-studio/pkg/geometry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStrokeLayer is returned when a selection or transform targets a stroke.
var ErrStrokeLayer = errors.New("stroke layers cannot be selected or transformed")

// minLayerSide keeps image layers from collapsing to zero area.
const minLayerSide = 1.0

// Document is the editing session's layer stack. Layer order is z-order;
// later layers draw on top. The background mockup is kept outside the stack.
type Document struct {
	mu sync.RWMutex

	width, height int

	layers   []Layer
	selected string
	active   *StrokeLayer

	background        image.Image
	backgroundEnabled bool

	version uint64
	logger  *zap.Logger
	newID   func() string
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithIDGenerator replaces uuid-based ids, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(d *Document) { d.newID = gen }
}

// New creates an empty document with fixed canonical dimensions.
func New(width, height int, opts ...Option) *Document {
	d := &Document{
		width:             width,
		height:            height,
		backgroundEnabled: true,
		logger:            zap.NewNop(),
		newID:             uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Size returns the canonical dimensions.
func (d *Document) Size() (width, height int) {
	return d.width, d.height
}

// Version increases on every mutation. Renderers use it to skip redraws.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Len returns the number of layers.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.layers)
}

// Layers returns the layers bottom to top. The slice is a copy; the layers
// are live and must not be retained across mutations. Use Snapshot for that.
func (d *Document) Layers() []Layer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Layer(nil), d.layers...)
}

// Layer looks up a layer by id.
func (d *Document) Layer(id string) (Layer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return d.layers[i], true
}

// ImageLayer looks up an image layer by id.
func (d *Document) ImageLayer(id string) (*ImageLayer, bool) {
	l, ok := d.Layer(id)
	if !ok {
		return nil, false
	}
	img, ok := l.(*ImageLayer)
	return img, ok
}

// Placement positions a new image layer. Zero Width/Height use the
// bitmap's native size; zero Opacity means fully opaque.
type Placement struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
	Opacity       float64
}

// AddImageLayer appends a bitmap on top of the stack and returns its id.
func (d *Document) AddImageLayer(bitmap image.Image, p Placement) (string, error) {
	if bitmap == nil || bitmap.Bounds().Empty() {
		return "", errs.Import("add image layer", errors.New("empty bitmap"))
	}
	b := bitmap.Bounds()
	if p.Width <= 0 {
		p.Width = float64(b.Dx())
	}
	if p.Height <= 0 {
		p.Height = float64(b.Dy())
	}
	if p.Opacity <= 0 {
		p.Opacity = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	layer := &ImageLayer{
		id:     d.newID(),
		props:  DefaultProps(),
		bitmap: bitmap,
	}
	d.applyTransform(layer, Transform{
		X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
		Rotation: p.Rotation, Opacity: p.Opacity,
	})
	d.layers = append(d.layers, layer)
	d.touch()

	d.logger.Debug("Image layer added",
		zap.String("id", layer.id),
		zap.Int("bitmap_width", b.Dx()),
		zap.Int("bitmap_height", b.Dy()),
		zap.Float64("width", layer.width),
		zap.Float64("height", layer.height),
	)
	return layer.id, nil
}

// AddStroke starts a new stroke at p and returns its id. Any active stroke
// is finalized first.
func (d *Document) AddStroke(p geometry.Point2D, style StrokeStyle) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.finalizeLocked()
	s := &StrokeLayer{
		id:    d.newID(),
		props: DefaultProps(),
		style: style,
	}
	s.append(p)
	d.layers = append(d.layers, s)
	d.active = s
	d.touch()
	return s.id
}

// AppendToActiveStroke adds p to the active stroke. It reports false when no
// stroke is active.
func (d *Document) AppendToActiveStroke(p geometry.Point2D) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return false
	}
	d.active.append(p)
	d.touch()
	return true
}

// FinalizeStroke freezes the active stroke and returns its id, or "" if
// none was active.
func (d *Document) FinalizeStroke() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalizeLocked()
}

// ActiveStroke returns the id of the stroke being drawn, or "".
func (d *Document) ActiveStroke() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return ""
	}
	return d.active.id
}

func (d *Document) finalizeLocked() string {
	if d.active == nil {
		return ""
	}
	s := d.active
	s.finalized = true
	d.active = nil
	d.touch()
	d.logger.Debug("Stroke finalized", zap.String("id", s.id), zap.Int("points", len(s.points)))
	return s.id
}

// Selected returns the selected layer id, or "".
func (d *Document) Selected() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// SelectedLayer returns the selected image layer, if any.
func (d *Document) SelectedLayer() (*ImageLayer, bool) {
	id := d.Selected()
	if id == "" {
		return nil, false
	}
	return d.ImageLayer(id)
}

// Select sets the selection. An empty id clears it. Unknown ids and stroke
// ids leave the selection unchanged and return an error.
func (d *Document) Select(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == "" {
		if d.selected != "" {
			d.selected = ""
			d.touch()
		}
		return nil
	}
	i := d.indexOf(id)
	if i < 0 {
		return errs.StaleSelection("select", id)
	}
	if d.layers[i].Kind() != KindImage {
		return ErrStrokeLayer
	}
	if d.selected != id {
		d.selected = id
		d.touch()
	}
	return nil
}

// SelectAt hit-tests canonical point p and selects the topmost image layer
// there, or clears the selection over empty space. It returns the new
// selection.
func (d *Document) SelectAt(p geometry.Point2D) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, _ := d.hitTestLocked(p)
	if d.selected != id {
		d.selected = id
		d.touch()
	}
	return id
}

// SetTransform replaces an image layer's placement. Width, height and
// opacity are clamped into range; rotation is normalised. A missing id is a
// no-op reported as a stale selection; stroke ids return ErrStrokeLayer.
func (d *Document) SetTransform(id string, t Transform) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := d.imageLocked("set transform", id)
	if err != nil {
		return err
	}
	d.applyTransform(img, t)
	d.touch()
	return nil
}

// SetOpacity changes only the opacity of an image layer.
func (d *Document) SetOpacity(id string, opacity float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := d.imageLocked("set opacity", id)
	if err != nil {
		return err
	}
	t := img.Transform()
	t.Opacity = opacity
	d.applyTransform(img, t)
	d.touch()
	return nil
}

// SetVisible shows or hides any layer.
func (d *Document) SetVisible(id string, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return errs.StaleSelection("set visible", id)
	}
	switch l := d.layers[i].(type) {
	case *ImageLayer:
		l.props.Visible = visible
	case *StrokeLayer:
		l.props.Visible = visible
	}
	d.touch()
	return nil
}

// applyTransform computes every field before assigning any.
func (d *Document) applyTransform(img *ImageLayer, t Transform) {
	w := d.clamp("layer width", t.Width, minLayerSide, float64(d.maxSide()))
	h := d.clamp("layer height", t.Height, minLayerSide, float64(d.maxSide()))
	o := d.clamp("opacity", t.Opacity, 0, 1)
	r := normalizeDegrees(t.Rotation)

	img.props.X, img.props.Y = t.X, t.Y
	img.width, img.height = w, h
	img.props.Rotation = r
	img.props.Opacity = o
}

// maxSide bounds layer dimensions to a generous multiple of the canvas.
func (d *Document) maxSide() int {
	m := d.width
	if d.height > m {
		m = d.height
	}
	return m * 8
}

func (d *Document) clamp(what string, v, lo, hi float64) float64 {
	c := geometry.Clamp(v, lo, hi)
	if c != v {
		d.logger.Debug("Value clamped",
			zap.Error(errs.Bounds(what, v, lo, hi)),
			zap.Float64("applied", c),
		)
	}
	return c
}

// RemoveAll deletes every stroke, including one being drawn. Image layers
// are kept. It returns the number of strokes removed.
func (d *Document) RemoveAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := make([]Layer, 0, len(d.layers))
	removed := 0
	for _, l := range d.layers {
		if l.Kind() == KindStroke {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	d.layers = kept
	d.active = nil
	d.dropDanglingSelection()
	d.touch()

	d.logger.Debug("Strokes cleared", zap.Int("removed", removed))
	return removed
}

// Remove deletes one layer and clears the selection if it pointed there.
func (d *Document) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return errs.StaleSelection("remove", id)
	}
	if d.active != nil && d.active.id == id {
		d.active = nil
	}
	d.layers = append(d.layers[:i:i], d.layers[i+1:]...)
	d.dropDanglingSelection()
	d.touch()
	return nil
}

// Duplicate copies an image layer, offsets it and places it on top. The
// bitmap is shared since layers never modify it.
func (d *Document) Duplicate(id string, offset float64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := d.imageLocked("duplicate", id)
	if err != nil {
		return "", err
	}
	c := img.clone()
	c.id = d.newID()
	c.props.X += offset
	c.props.Y += offset
	d.layers = append(d.layers, c)
	d.touch()
	return c.id, nil
}

// RaiseToTop moves a layer to the top of the stack.
func (d *Document) RaiseToTop(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return errs.StaleSelection("raise", id)
	}
	l := d.layers[i]
	d.layers = append(d.layers[:i:i], d.layers[i+1:]...)
	d.layers = append(d.layers, l)
	d.touch()
	return nil
}

// SetBackground replaces the mockup image. nil removes it.
func (d *Document) SetBackground(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.background = img
	d.touch()
}

// Background returns the mockup image, which may be nil.
func (d *Document) Background() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.background
}

// SetBackgroundEnabled toggles drawing of the mockup in the live preview.
func (d *Document) SetBackgroundEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backgroundEnabled != enabled {
		d.backgroundEnabled = enabled
		d.touch()
	}
}

// BackgroundEnabled reports whether the mockup is drawn.
func (d *Document) BackgroundEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.backgroundEnabled
}

func (d *Document) imageLocked(op, id string) (*ImageLayer, error) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, errs.StaleSelection(op, id)
	}
	img, ok := d.layers[i].(*ImageLayer)
	if !ok {
		return nil, ErrStrokeLayer
	}
	return img, nil
}

func (d *Document) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, l := range d.layers {
		if l.ID() == id {
			return i
		}
	}
	return -1
}

func (d *Document) dropDanglingSelection() {
	if d.selected != "" && d.indexOf(d.selected) < 0 {
		d.selected = ""
	}
}

func (d *Document) touch() {
	d.version++
}
