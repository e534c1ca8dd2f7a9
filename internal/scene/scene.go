// Package scene reads a composition described in YAML so it can be rendered
// without the editor.
//
//	canvas: {width: 1200, height: 1000}
//	mockup: front            # front, back, a file path, or empty for none
//	layers:
//	  - image: art.png
//	    x: 100
//	    y: 150
//	    rotation: 15
//	  - stroke:
//	      color: "#d63384"
//	      width: 4
//	      points: [[950, 100], [1000, 110], [1150, 130]]
//
// Layers are listed bottom to top. Relative paths resolve against the scene
// file's directory.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mockup-studio/internal/config"
	"mockup-studio/internal/document"
	mimage "mockup-studio/internal/image"
	"mockup-studio/internal/mockup"
	"mockup-studio/pkg/geometry"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scene is a parsed scene file.
type Scene struct {
	Canvas *Canvas `yaml:"canvas"`
	Mockup string  `yaml:"mockup"`
	Layers []Layer `yaml:"layers" validate:"dive"`

	// dir is where relative paths resolve.
	dir string
}

// Canvas overrides the configured canonical size.
type Canvas struct {
	Width  int `yaml:"width" validate:"min=1"`
	Height int `yaml:"height" validate:"min=1"`
}

// Layer is either an image or a stroke.
type Layer struct {
	Image    string   `yaml:"image" validate:"required_without=Stroke,excluded_with=Stroke"`
	X        float64  `yaml:"x"`
	Y        float64  `yaml:"y"`
	Width    float64  `yaml:"width" validate:"gte=0"`
	Height   float64  `yaml:"height" validate:"gte=0"`
	Rotation float64  `yaml:"rotation"`
	Opacity  *float64 `yaml:"opacity" validate:"omitempty,gte=0,lte=1"`
	Hidden   bool     `yaml:"hidden"`

	Stroke *Stroke `yaml:"stroke"`
}

// Stroke is a finished freehand stroke in canonical coordinates.
type Stroke struct {
	Color  string       `yaml:"color" validate:"required"`
	Width  float64      `yaml:"width" validate:"gt=0"`
	Points [][2]float64 `yaml:"points" validate:"min=1"`
}

// Load reads and validates the scene at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes and validates scene YAML. Relative paths resolve against the
// working directory.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	for i, l := range s.Layers {
		if l.Stroke != nil {
			if _, _, err := document.ParseColor(l.Stroke.Color); err != nil {
				return nil, fmt.Errorf("invalid scene: layer %d: %w", i, err)
			}
		}
	}
	return &s, nil
}

// Size returns the canvas size, falling back to cfg.
func (s *Scene) Size(cfg config.CanvasConfig) (int, int) {
	if s.Canvas != nil {
		return s.Canvas.Width, s.Canvas.Height
	}
	return cfg.Width, cfg.Height
}

func (s *Scene) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Build creates a document from the scene. Images are decoded with the
// import limits from cfg; an image without a size takes its native size
// times the import scale. A named mockup side comes from the configured
// library and falls back to a placeholder like the editor does.
func (s *Scene) Build(cfg *config.Config, logger *zap.Logger) (*document.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, h := s.Size(cfg.Canvas)
	if w*h > cfg.Canvas.MaxPixels {
		return nil, fmt.Errorf("scene canvas %dx%d exceeds max_pixels %d", w, h, cfg.Canvas.MaxPixels)
	}
	doc := document.New(w, h, document.WithLogger(logger.Named("document")))
	dec := mimage.NewDecoder(
		mimage.WithMaxBytes(cfg.Import.MaxBytes),
		mimage.WithMaxSide(cfg.Import.MaxSide),
		mimage.WithDecoderLogger(logger.Named("import")),
	)

	if err := s.background(doc, dec, cfg, w, h, logger); err != nil {
		return nil, err
	}
	brush := document.NewBrush(cfg.Brush.Color, cfg.Brush.Width, cfg.Brush.MaxWidth, logger.Named("brush"))

	for i, l := range s.Layers {
		var err error
		if l.Stroke != nil {
			err = addStroke(doc, brush, l.Stroke)
		} else {
			err = s.addImage(doc, dec, l, cfg.Import.Scale)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build layer %d: %w", i, err)
		}
	}
	logger.Info("Scene built",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("layers", doc.Len()),
	)
	return doc, nil
}

func (s *Scene) background(doc *document.Document, dec *mimage.Decoder, cfg *config.Config, w, h int, logger *zap.Logger) error {
	if s.Mockup == "" {
		return nil
	}
	if side, err := mockup.ParseSide(s.Mockup); err == nil {
		lib := mockup.NewLibrary(cfg.Mockups, w, h, logger.Named("mockup"))
		if err := lib.Load(); err != nil {
			logger.Warn("Scene mockup uses placeholder", zap.Error(err))
		}
		doc.SetBackground(lib.Get(side).Image)
		return nil
	}
	bg, err := dec.DecodeFile(s.resolve(s.Mockup))
	if err != nil {
		return fmt.Errorf("failed to load scene mockup: %w", err)
	}
	doc.SetBackground(bg.Image)
	return nil
}

func (s *Scene) addImage(doc *document.Document, dec *mimage.Decoder, l Layer, scale float64) error {
	img, err := dec.DecodeFile(s.resolve(l.Image))
	if err != nil {
		return err
	}
	p := document.Placement{
		X:        l.X,
		Y:        l.Y,
		Width:    l.Width,
		Height:   l.Height,
		Rotation: l.Rotation,
	}
	if p.Width == 0 {
		p.Width = float64(img.NativeWidth) * scale
	}
	if p.Height == 0 {
		p.Height = float64(img.NativeHeight) * scale
	}
	id, err := doc.AddImageLayer(img.Image, p)
	if err != nil {
		return err
	}
	// Placement treats zero opacity as unset.
	if l.Opacity != nil {
		if err := doc.SetOpacity(id, *l.Opacity); err != nil {
			return err
		}
	}
	if l.Hidden {
		return doc.SetVisible(id, false)
	}
	return nil
}

// addStroke draws st with brush, so the width is clamped to
// [1, brush.max_width] exactly as in the editor.
func addStroke(doc *document.Document, brush *document.Brush, st *Stroke) error {
	if err := brush.SetColor(st.Color); err != nil {
		return err
	}
	if len(st.Points) == 0 {
		return errors.New("stroke has no points")
	}
	brush.SetWidth(st.Width)
	doc.AddStroke(geometry.Point2D{X: st.Points[0][0], Y: st.Points[0][1]}, brush.Style())
	for _, p := range st.Points[1:] {
		doc.AppendToActiveStroke(geometry.Point2D{X: p[0], Y: p[1]})
	}
	doc.FinalizeStroke()
	return nil
}
