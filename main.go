// Package main provides the entry point for the Mockup Studio editor.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"mockup-studio/internal/app"
	"mockup-studio/internal/config"
	"mockup-studio/internal/logging"
	"mockup-studio/internal/version"
	"mockup-studio/ui/mainwindow"
	"mockup-studio/ui/prefs"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"
)

const appID = "io.github.mockupstudio"

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: user config dir)")
	noWatch := flag.Bool("no-watch", false, "Do not reload config and mockups when they change on disk")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting",
		zap.String("version", version.String()),
		zap.Strings("config_sources", cfg.LoadedFrom),
		zap.Int("canvas_width", cfg.Canvas.Width),
		zap.Int("canvas_height", cfg.Canvas.Height),
	)

	state := app.NewState(cfg, logger.Named("session"))
	if err := state.LoadMockups(); err != nil {
		logger.Warn("Some mockups are placeholders", zap.Error(err))
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.MockupStudioTheme{})

	win := mainwindow.New(fyneApp, state, prefs.Load(), logger.Named("ui"))

	// Each flag.Arg is an image to import on startup.
	for _, path := range flag.Args() {
		if _, err := state.ImportFile(path); err != nil {
			logger.Error("Failed to import", zap.String("path", path), zap.Error(err))
		}
	}

	if !*noWatch {
		if reloader := setupHotReload(*configPath, cfg, state, logger.Named("watcher")); reloader != nil {
			defer reloader.Stop()
		}
	}

	stopAutosave := autosavePreferences(win, prefsInterval)
	defer stopAutosave()

	win.ShowAndRun()
}

const prefsInterval = 30 * time.Second

// autosavePreferences flushes changed preferences periodically so a crash
// loses little.
func autosavePreferences(win *mainwindow.MainWindow, every time.Duration) func() {
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fyne.Do(win.SavePreferencesIfChanged)
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// setupHotReload re-applies the config file and mockup images when they
// change on disk.
func setupHotReload(configPath string, cfg *config.Config, state *app.State, logger *zap.Logger) *app.HotReloader {
	path := config.ResolvePath(configPath)
	reloader, err := app.NewHotReloader(path, cfg.Mockups.Dir, app.DefaultDebounce, logger)
	if err != nil {
		logger.Warn("Hot reload disabled", zap.Error(err))
		return nil
	}

	reloader.OnConfig(func(next *config.Config) {
		fyne.Do(func() { state.ApplyConfig(next) })
	})
	reloader.OnMockups(func() {
		fyne.Do(func() {
			if err := state.ReloadMockups(); err != nil {
				logger.Warn("Mockups reloaded with placeholders", zap.Error(err))
			}
		})
	})

	reloader.Start()
	logger.Info("Watching for changes",
		zap.String("config", path),
		zap.String("mockups", cfg.Mockups.Dir),
		zap.Duration("debounce", app.DefaultDebounce),
	)
	return reloader
}
