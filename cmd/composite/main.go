// Command composite renders a YAML scene to the mockup and clean exports
// without opening the editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"mockup-studio/internal/config"
	"mockup-studio/internal/document"
	"mockup-studio/internal/export"
	"mockup-studio/internal/image"
	"mockup-studio/internal/logging"
	"mockup-studio/internal/scene"
	"mockup-studio/internal/version"

	"go.uber.org/zap"
)

func main() {
	scenePath := flag.String("scene", "", "Path to the scene YAML")
	configPath := flag.String("config", "", "Path to config.yaml (default: user config dir)")
	outDir := flag.String("o", "", "Output directory (default: export.dir or the scene's directory)")
	format := flag.String("format", "", "Output format: png, jpeg or pdf (default from config)")
	scale := flag.Float64("scale", 0, "Pixel scale, e.g. 2 for double resolution (default from config)")
	variant := flag.String("variant", "both", "Which export to write: both, mockup or clean")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *scenePath == "" {
		fmt.Println("Usage: composite -scene <scene.yaml> [-o <dir>] [-format png|jpeg|pdf] [-scale 2] [-variant both|mockup|clean]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	if *format != "" {
		cfg.Export.Format = *format
	}
	if *scale > 0 {
		cfg.Export.PixelScale = *scale
	}
	f, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	sc, err := scene.Load(*scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scene: %v\n", err)
		os.Exit(1)
	}
	doc, err := sc.Build(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build scene: %v\n", err)
		os.Exit(1)
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = filepath.Dir(*scenePath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := export.New(
		export.WithFormat(f),
		export.WithPixelScale(cfg.Export.PixelScale),
		export.WithJPEGQuality(cfg.Export.JPEGQuality),
		export.WithCompositor(image.NewCompositor(
			image.WithTension(cfg.Brush.Tension),
			image.WithMaxPixels(cfg.Canvas.MaxPixels),
			image.WithCompositorLogger(logger.Named("render")),
		)),
		export.WithLogger(logger.Named("export")),
	)
	snap := doc.Snapshot()

	var paths []string
	switch *variant {
	case "both":
		paths, err = exp.WriteFiles(ctx, snap, dir, 0)
	case string(export.VariantMockup), string(export.VariantClean):
		paths, err = writeOne(ctx, exp, snap, dir, export.Variant(*variant))
	default:
		err = fmt.Errorf("unknown variant %q", *variant)
	}
	if err != nil {
		logger.Error("Export failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func writeOne(ctx context.Context, exp *export.Exporter, snap document.Snapshot, dir string, v export.Variant) ([]string, error) {
	data, err := exp.Export(ctx, snap, v == export.VariantMockup, 0)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, export.FileName(v, exp.Format()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return []string{path}, nil
}
