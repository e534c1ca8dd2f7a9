package mainwindow

import (
	"context"
	"fmt"
	"io"

	mimage "mockup-studio/internal/image"
	"mockup-studio/internal/input"
	"mockup-studio/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

func (mw *MainWindow) setTool(t input.Tool) {
	mw.state.SetTool(t)
	if t == input.ToolBrush {
		mw.updateStatus("Brush: drag on the canvas to draw")
	} else {
		mw.updateStatus("Move: drag a layer, its corner handle scales, the top handle rotates")
	}
}

func (mw *MainWindow) onImport() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mw.showError("Import failed", err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			mw.showError("Import failed", fmt.Errorf("failed to read %s: %w", reader.URI().Name(), err))
			return
		}
		if _, err := mw.state.ImportBytes(data); err != nil {
			mw.showError("Import failed", err)
			return
		}
		if reader.URI().Scheme() == "file" {
			mw.saveLastDir(reader.URI().Path())
		}
		mw.updateStatus("Imported " + reader.URI().Name())
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(mimage.SupportedFormats()))
	if loc := mw.lastDir(prefs.KeyLastDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onExport asks for a folder and writes both variants there. Rendering runs
// off the UI goroutine from a snapshot, so editing can continue.
func (mw *MainWindow) onExport() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			mw.showError("Export failed", err)
			return
		}
		if dir == nil {
			return
		}
		mw.prefs.SetString(prefs.KeyExportDir, dir.Path())
		mw.exportTo(dir.Path())
	}, mw.Window)

	if loc := mw.lastDir(prefs.KeyExportDir); loc != nil {
		fd.SetLocation(loc)
	} else if d := mw.state.Config().Export.Dir; d != "" {
		if loc, err := storage.ListerForURI(storage.NewFileURI(d)); err == nil {
			fd.SetLocation(loc)
		}
	}
	fd.Show()
}

func (mw *MainWindow) exportTo(dir string) {
	snap := mw.state.Snapshot()
	ctx, cancel := context.WithCancel(context.Background())

	progress := dialog.NewCustom("Exporting", "Cancel", widget.NewProgressBarInfinite(), mw.Window)
	progress.SetOnClosed(cancel)
	progress.Show()
	mw.updateStatus("Exporting...")

	go func() {
		defer cancel()
		paths, err := mw.state.ExportFiles(ctx, snap, dir)
		fyne.Do(func() {
			progress.Hide()
			if err != nil {
				if ctx.Err() != nil {
					mw.updateStatus("Export cancelled")
					return
				}
				mw.showError("Export failed", err)
				return
			}
			mw.state.NotifyExported(paths)
		})
	}()
}

func (mw *MainWindow) onReloadMockups() {
	if err := mw.state.ReloadMockups(); err != nil {
		mw.updateStatus("Mockups reloaded with placeholders: " + err.Error())
		return
	}
	mw.updateStatus("Mockups reloaded")
}

func (mw *MainWindow) onDuplicate() {
	if _, err := mw.state.DuplicateSelected(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onBringToFront() {
	if err := mw.state.RaiseSelected(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onDelete() {
	if err := mw.state.DeleteSelected(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onClear() {
	n := mw.state.Clear()
	mw.updateStatus(fmt.Sprintf("Removed %d strokes", n))
}

func (mw *MainWindow) onZoomIn() {
	mw.state.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.state.ZoomOut()
}

func (mw *MainWindow) onFit() {
	mw.canvas.Fit()
}

func (mw *MainWindow) onResetView() {
	mw.state.ResetView()
}

func (mw *MainWindow) onToggleMockup() {
	side := mw.state.ToggleMockup()
	mw.updateStatus("Mockup: " + side.Label())
}
