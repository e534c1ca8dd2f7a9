// Package config loads and validates editor configuration.
//
// Values are layered from lowest to highest priority:
//  1. Defaults (in code)
//  2. YAML file (config.yaml under the user config directory, or an explicit path)
//  3. MOCKUP_* environment variables
//
// The merged result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppName is used for the config directory and window title.
const AppName = "mockup-studio"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOCKUP_"

// Config is the full editor configuration.
type Config struct {
	Canvas   CanvasConfig   `yaml:"canvas"`
	Viewport ViewportConfig `yaml:"viewport"`
	Brush    BrushConfig    `yaml:"brush"`
	Import   ImportConfig   `yaml:"import"`
	Export   ExportConfig   `yaml:"export"`
	Mockups  MockupConfig   `yaml:"mockups"`
	Editor   EditorConfig   `yaml:"editor"`
	Log      LogConfig      `yaml:"log"`

	// LoadedFrom lists the sources merged into this config, in order.
	LoadedFrom []string `yaml:"-"`
}

// CanvasConfig fixes the canonical document resolution.
type CanvasConfig struct {
	Width  int `yaml:"width" validate:"min=1"`
	Height int `yaml:"height" validate:"min=1"`
	// MaxPixels caps any single render target (width*height).
	MaxPixels int `yaml:"max_pixels" validate:"min=1"`
}

// ViewportConfig bounds the live zoom.
type ViewportConfig struct {
	ZoomMin  float64 `yaml:"zoom_min" validate:"gt=0"`
	ZoomMax  float64 `yaml:"zoom_max" validate:"gtfield=ZoomMin"`
	ZoomStep float64 `yaml:"zoom_step" validate:"gt=1"`
}

// BrushConfig holds the initial brush settings.
type BrushConfig struct {
	Color    string  `yaml:"color" validate:"hexcolor"`
	Width    float64 `yaml:"width" validate:"gte=1"`
	MaxWidth float64 `yaml:"max_width" validate:"gtefield=Width"`
	// Tension controls stroke smoothing; 0 draws straight segments.
	Tension float64 `yaml:"tension" validate:"gte=0,lte=1"`
}

// ImportConfig controls where new artwork lands.
type ImportConfig struct {
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	// Scale is applied to the bitmap's native size to get the layer size.
	Scale    float64 `yaml:"scale" validate:"gt=0,lte=1"`
	MaxBytes int64   `yaml:"max_bytes" validate:"gt=0"`
	// MaxSide downsamples bitmaps whose longest side exceeds it. 0 disables.
	MaxSide int `yaml:"max_side" validate:"gte=0"`
}

// ExportConfig controls the export pipeline.
type ExportConfig struct {
	Format      string  `yaml:"format" validate:"oneof=png jpeg pdf"`
	PixelScale  float64 `yaml:"pixel_scale" validate:"gt=0,lte=8"`
	JPEGQuality int     `yaml:"jpeg_quality" validate:"min=1,max=100"`
	Dir         string  `yaml:"dir"`
}

// MockupConfig names the background presets.
type MockupConfig struct {
	Dir     string `yaml:"dir"`
	Front   string `yaml:"front" validate:"required"`
	Back    string `yaml:"back" validate:"required"`
	Default string `yaml:"default" validate:"oneof=front back"`
}

// EditorConfig holds interaction tuning. Distances are in display pixels.
type EditorConfig struct {
	HandleRadius       float64 `yaml:"handle_radius" validate:"gt=0"`
	RotateHandleOffset float64 `yaml:"rotate_handle_offset" validate:"gt=0"`
	DuplicateOffset    float64 `yaml:"duplicate_offset"`
	DisplayWidth       float64 `yaml:"display_width" validate:"gt=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:     4500,
			Height:    5000,
			MaxPixels: 200_000_000,
		},
		Viewport: ViewportConfig{
			ZoomMin:  0.05,
			ZoomMax:  3.0,
			ZoomStep: 1.2,
		},
		Brush: BrushConfig{
			Color:    "#d63384",
			Width:    4,
			MaxWidth: 120,
			Tension:  0.5,
		},
		Import: ImportConfig{
			OffsetX:  100,
			OffsetY:  150,
			Scale:    1,
			MaxBytes: 64 << 20,
		},
		Export: ExportConfig{
			Format:      "png",
			PixelScale:  1,
			JPEGQuality: 100,
		},
		Mockups: MockupConfig{
			Front:   "MOCAP_FRONT.png",
			Back:    "MOCAP_BACK.png",
			Default: "front",
		},
		Editor: EditorConfig{
			HandleRadius:       10,
			RotateHandleOffset: 30,
			DuplicateOffset:    20,
			DisplayWidth:       600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.config/mockup-studio/config.yaml (or the platform
// equivalent).
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, AppName, "config.yaml")
}

// ResolvePath returns path, or $MOCKUP_CONFIG, or DefaultPath, whichever is
// set first.
func ResolvePath(path string) string {
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	return path
}

// Load merges defaults, the YAML file at path and the environment. An empty
// path means DefaultPath (or $MOCKUP_CONFIG). A missing file is not an error.
func Load(path string) (*Config, error) {
	path = ResolvePath(path)

	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else {
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	if cfg.loadEnvironmentVariables() {
		cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")
	}

	cfg.resolvePaths(path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadEnvironmentVariables overlays MOCKUP_* variables and reports whether
// any were set.
func (c *Config) loadEnvironmentVariables() bool {
	found := false
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
			found = true
		}
	}
	num := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
				found = true
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
				found = true
			}
		}
	}

	integer("CANVAS_WIDTH", &c.Canvas.Width)
	integer("CANVAS_HEIGHT", &c.Canvas.Height)
	num("ZOOM_MIN", &c.Viewport.ZoomMin)
	num("ZOOM_MAX", &c.Viewport.ZoomMax)
	str("BRUSH_COLOR", &c.Brush.Color)
	num("BRUSH_WIDTH", &c.Brush.Width)
	num("BRUSH_MAX_WIDTH", &c.Brush.MaxWidth)
	str("EXPORT_FORMAT", &c.Export.Format)
	str("EXPORT_DIR", &c.Export.Dir)
	num("EXPORT_PIXEL_SCALE", &c.Export.PixelScale)
	integer("EXPORT_JPEG_QUALITY", &c.Export.JPEGQuality)
	str("MOCKUP_DIR", &c.Mockups.Dir)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_DEVELOPMENT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Development = b
			found = true
		}
	}
	return found
}

// resolvePaths makes a relative mockup dir relative to the config file.
func (c *Config) resolvePaths(configPath string) {
	if c.Mockups.Dir != "" && !filepath.IsAbs(c.Mockups.Dir) {
		c.Mockups.Dir = filepath.Join(filepath.Dir(configPath), c.Mockups.Dir)
	}
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
