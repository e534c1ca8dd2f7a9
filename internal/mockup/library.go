// Package mockup loads the garment images drawn behind the artwork.
package mockup

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"mockup-studio/internal/config"
	mimage "mockup-studio/internal/image"

	"github.com/anthonynsimon/bild/transform"
	"github.com/gogpu/gg"
	"go.uber.org/zap"
)

// Side names a preset.
type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

// Sides lists the presets in display order.
func Sides() []Side { return []Side{Front, Back} }

// ParseSide accepts "front" or "back".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Front, Back:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown mockup side %q", s)
}

// Label is the toolbar caption.
func (s Side) Label() string {
	if s == Back {
		return "Back"
	}
	return "Front"
}

const thumbnailWidth = 96

// Preset is one loaded mockup.
type Preset struct {
	Side      Side
	Path      string
	Image     image.Image
	Thumbnail image.Image
	// Placeholder is set when the asset was missing or unreadable.
	Placeholder bool
}

// Library holds the front and back presets. Reload is safe to call while
// the UI reads presets.
type Library struct {
	mu      sync.RWMutex
	cfg     config.MockupConfig
	presets map[Side]*Preset

	canvasW, canvasH int
	decoder          *mimage.Decoder
	logger           *zap.Logger
}

// NewLibrary creates an empty library; call Load to read the assets.
func NewLibrary(cfg config.MockupConfig, canvasW, canvasH int, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		cfg:     cfg,
		presets: make(map[Side]*Preset),
		canvasW: canvasW,
		canvasH: canvasH,
		decoder: mimage.NewDecoder(
			mimage.WithMaxSide(max(canvasW, canvasH)),
			mimage.WithDecoderLogger(logger),
		),
		logger: logger,
	}
}

// Dir returns the directory assets are read from.
func (l *Library) Dir() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Dir
}

// Load reads both presets. A missing or undecodable asset is replaced by a
// drawn placeholder; the returned error joins every such failure so callers
// can surface it without losing the placeholders.
func (l *Library) Load() error {
	l.mu.RLock()
	cfg := l.cfg
	l.mu.RUnlock()

	presets := make(map[Side]*Preset, 2)
	var errList []error
	for _, side := range Sides() {
		p, err := l.load(cfg, side)
		if err != nil {
			errList = append(errList, err)
			l.logger.Warn("Mockup unavailable, using placeholder",
				zap.String("side", string(side)), zap.Error(err))
		}
		presets[side] = p
	}

	l.mu.Lock()
	l.presets = presets
	l.mu.Unlock()
	return errors.Join(errList...)
}

// Reconfigure swaps the config section and reloads.
func (l *Library) Reconfigure(cfg config.MockupConfig) error {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return l.Load()
}

// Get returns a preset, falling back to a placeholder if Load never ran.
func (l *Library) Get(side Side) *Preset {
	l.mu.RLock()
	p, ok := l.presets[side]
	l.mu.RUnlock()
	if ok {
		return p
	}
	return l.placeholder(side, "")
}

// Default returns the configured default side.
func (l *Library) Default() Side {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, err := ParseSide(l.cfg.Default); err == nil {
		return s
	}
	return Front
}

func (l *Library) load(cfg config.MockupConfig, side Side) (*Preset, error) {
	name := cfg.Front
	if side == Back {
		name = cfg.Back
	}
	path := name
	if cfg.Dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(cfg.Dir, name)
	}
	if _, err := os.Stat(path); err != nil {
		return l.placeholder(side, path), fmt.Errorf("failed to open mockup %s: %w", path, err)
	}
	dec, err := l.decoder.DecodeFile(path)
	if err != nil {
		return l.placeholder(side, path), fmt.Errorf("failed to load mockup %s: %w", path, err)
	}
	l.logger.Info("Mockup loaded",
		zap.String("side", string(side)),
		zap.String("path", path),
		zap.Int("width", dec.Width()),
		zap.Int("height", dec.Height()),
	)
	return &Preset{
		Side:      side,
		Path:      path,
		Image:     dec.Image,
		Thumbnail: thumbnail(dec.Image),
	}, nil
}

func (l *Library) placeholder(side Side, path string) *Preset {
	img := Placeholder(side, l.canvasW/10, l.canvasH/10)
	return &Preset{Side: side, Path: path, Image: img, Thumbnail: thumbnail(img), Placeholder: true}
}

func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= thumbnailWidth {
		return img
	}
	h := max(1, b.Dy()*thumbnailWidth/b.Dx())
	return transform.Resize(img, thumbnailWidth, h, transform.Linear)
}

// Placeholder draws a plain T-shirt silhouette at w x h. The back view
// has a higher neckline.
func Placeholder(side Side, w, h int) image.Image {
	w, h = max(w, 16), max(h, 16)
	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.ClearWithColor(gg.Hex("#f1f3f5"))

	fw, fh := float64(w), float64(h)
	neck := 0.14
	if side == Back {
		neck = 0.08
	}
	// Outline in unit coordinates, clockwise from the left shoulder.
	shape := [][2]float64{
		{0.34, 0.08}, {0.42, 0.08 + neck/2}, {0.5, 0.08 + neck}, {0.58, 0.08 + neck/2},
		{0.66, 0.08}, {0.92, 0.2}, {0.84, 0.36}, {0.74, 0.31},
		{0.74, 0.94}, {0.26, 0.94}, {0.26, 0.31}, {0.16, 0.36}, {0.08, 0.2},
	}
	dc.MoveTo(shape[0][0]*fw, shape[0][1]*fh)
	for _, p := range shape[1:] {
		dc.LineTo(p[0]*fw, p[1]*fh)
	}
	dc.ClosePath()
	dc.SetHexColor("#ffffff")
	_ = dc.FillPreserve()
	dc.SetHexColor("#adb5bd")
	dc.SetLineWidth(max(1, fw/200))
	dc.SetLineJoin(gg.LineJoinRound)
	_ = dc.Stroke()

	return dc.Image()
}
