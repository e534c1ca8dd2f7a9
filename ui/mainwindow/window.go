// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"
	"strings"

	"mockup-studio/internal/app"
	"mockup-studio/internal/document"
	"mockup-studio/internal/input"
	"mockup-studio/internal/mockup"
	"mockup-studio/internal/version"
	"mockup-studio/pkg/geometry"
	"mockup-studio/ui/canvas"
	"mockup-studio/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
)

const appTitle = "Mockup Studio"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	prefs  *prefs.Prefs
	logger *zap.Logger

	canvas    *canvas.EditorCanvas
	statusBar *widget.Label
	posLabel  *widget.Label
	toolbar   *toolbar
}

// New creates the main window and restores preferences.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, logger *zap.Logger) *MainWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
		logger: logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.restorePreferences()

	win.SetCloseIntercept(func() {
		mw.SavePreferences()
		win.Close()
	})
	win.Resize(fyne.NewSize(1100, 900))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewEditorCanvas(mw.state, mw.logger.Named("canvas"))
	mw.statusBar = widget.NewLabel("Ready")
	mw.posLabel = widget.NewLabel("")
	mw.canvas.SetOnPointer(func(p geometry.Point2D) {
		mw.posLabel.SetText(fmt.Sprintf("%.0f, %.0f", p.X, p.Y))
	})

	mw.toolbar = newToolbar(mw)

	status := container.NewBorder(nil, nil, nil, mw.posLabel, mw.statusBar)

	content := container.NewBorder(
		mw.toolbar.Container(), // top
		status,                 // bottom
		nil,                    // left
		nil,                    // right
		mw.canvas,              // center
	)
	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Import Image...", mw.onImport),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export...", mw.onExport),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reload Mockups", mw.onReloadMockups),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Duplicate", mw.onDuplicate),
		fyne.NewMenuItem("Bring to Front", mw.onBringToFront),
		fyne.NewMenuItem("Delete", mw.onDelete),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Strokes", mw.onClear),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.onFit),
		fyne.NewMenuItem("Reset View", mw.onResetView),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Toggle Front/Back", mw.onToggleMockup),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupShortcuts binds single keys while the canvas has the window.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.onDelete()
		case fyne.KeyB:
			mw.setTool(input.ToolBrush)
		case fyne.KeyV:
			mw.setTool(input.ToolMove)
		case fyne.KeyD:
			mw.onDuplicate()
		case fyne.KeyF:
			mw.onBringToFront()
		case fyne.KeyEscape:
			mw.state.Deselect()
		}
	})
	mw.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case '+', '=':
			mw.onZoomIn()
		case '-':
			mw.onZoomOut()
		case '0':
			mw.onResetView()
		}
	})
}

// setupEventHandlers registers for session events. Every emitter runs on the
// UI goroutine; the file watcher hops there with fyne.Do.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSelectionChanged, func(interface{}) {
		mw.toolbar.syncSelection()
	})

	mw.state.On(app.EventToolChanged, func(data interface{}) {
		if t, ok := data.(input.Tool); ok {
			mw.toolbar.syncTool(t)
			mw.prefs.SetString(prefs.KeyTool, t.String())
		}
	})

	mw.state.On(app.EventBrushChanged, func(data interface{}) {
		if st, ok := data.(document.StrokeStyle); ok {
			mw.toolbar.syncBrush(st)
			mw.prefs.SetString(prefs.KeyBrushColor, st.Hex)
			mw.prefs.SetFloat(prefs.KeyBrushWidth, st.Width)
		}
	})

	mw.state.On(app.EventMockupChanged, func(data interface{}) {
		if side, ok := data.(mockup.Side); ok {
			mw.toolbar.syncMockup(side)
			mw.prefs.SetString(prefs.KeyMockupSide, string(side))
		}
	})

	mw.state.On(app.EventViewportChanged, func(interface{}) {
		mw.toolbar.syncZoom(mw.state.Viewport().Zoom())
	})

	mw.state.On(app.EventImported, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Imported layer %v", data))
	})

	mw.state.On(app.EventExported, func(data interface{}) {
		if paths, ok := data.([]string); ok {
			mw.logger.Info("Export finished", zap.Strings("paths", paths))
			mw.updateStatus("Exported " + strings.Join(paths, ", "))
		}
	})

	mw.state.On(app.EventConfigReloaded, func(interface{}) {
		mw.toolbar.syncExportFormat()
		mw.updateStatus("Configuration reloaded")
	})
}

// restorePreferences applies the saved tool, brush and mockup.
func (mw *MainWindow) restorePreferences() {
	if hex := mw.prefs.String(prefs.KeyBrushColor); hex != "" {
		if err := mw.state.SetBrushColor(hex); err != nil {
			mw.logger.Debug("Ignoring saved brush colour", zap.String("color", hex), zap.Error(err))
		}
	}
	if w := mw.prefs.FloatWithFallback(prefs.KeyBrushWidth, 0); w > 0 {
		mw.state.SetBrushWidth(w)
	}
	if side, err := mockup.ParseSide(mw.prefs.String(prefs.KeyMockupSide)); err == nil {
		mw.state.SetMockup(side)
	}
	mw.setTool(input.ParseTool(mw.prefs.String(prefs.KeyTool)))

	mw.toolbar.syncBrush(mw.state.Brush().Style())
	mw.toolbar.syncTool(mw.state.Input().Tool())
	mw.toolbar.syncMockup(mw.state.MockupSide())
	mw.toolbar.syncSelection()
}

// SavePreferences writes preferences to disk.
func (mw *MainWindow) SavePreferences() {
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn("Failed to save preferences", zap.Error(err))
	}
}

// SavePreferencesIfChanged writes preferences only if something changed.
func (mw *MainWindow) SavePreferencesIfChanged() {
	if err := mw.prefs.SaveIfChanged(); err != nil {
		mw.logger.Warn("Failed to save preferences", zap.Error(err))
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// showError logs err and shows it in a dialog.
func (mw *MainWindow) showError(what string, err error) {
	mw.logger.Error(what, zap.Error(err))
	mw.updateStatus(what)
	dialog.ShowError(err, mw.Window)
}

// lastDir returns a saved directory as a ListableURI, or nil.
func (mw *MainWindow) lastDir(key string) fyne.ListableURI {
	path := mw.prefs.String(key)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Place artwork on a garment mockup, annotate it, and export\n"+
			"the composition with and without the mockup.",
			appTitle, version.String()),
		mw.Window)
}
