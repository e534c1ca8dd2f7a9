package mainwindow

import (
	"fmt"
	"image/color"

	"mockup-studio/internal/document"
	"mockup-studio/internal/export"
	"mockup-studio/internal/input"
	"mockup-studio/internal/mockup"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	toolMove  = "Move"
	toolBrush = "Brush"
)

// toolbar holds the editing controls above the canvas.
type toolbar struct {
	mw *MainWindow

	tool       *widget.RadioGroup
	colorEntry *widget.Entry
	swatch     *fynecanvas.Rectangle
	width      *widget.Slider
	widthLabel *widget.Label

	opacity      *widget.Slider
	deleteBtn    *widget.Button
	duplicateBtn *widget.Button
	raiseBtn     *widget.Button

	mockupSelect *widget.Select
	zoomLabel    *widget.Label
	formatSelect *widget.Select

	// syncing suppresses control callbacks while the toolbar mirrors state.
	syncing bool

	content fyne.CanvasObject
}

func newToolbar(mw *MainWindow) *toolbar {
	tb := &toolbar{mw: mw}
	brush := mw.state.Brush()

	importBtn := widget.NewButtonWithIcon("Import", theme.FolderOpenIcon(), mw.onImport)

	tb.tool = widget.NewRadioGroup([]string{toolMove, toolBrush}, func(s string) {
		if tb.syncing || s == "" {
			return
		}
		if s == toolBrush {
			mw.setTool(input.ToolBrush)
		} else {
			mw.setTool(input.ToolMove)
		}
	})
	tb.tool.Horizontal = true
	tb.tool.Required = true

	tb.swatch = fynecanvas.NewRectangle(color.Black)
	tb.swatch.SetMinSize(fyne.NewSize(20, 20))
	tb.swatch.CornerRadius = 4
	pickBtn := widget.NewButton("...", tb.showColorPicker)

	tb.colorEntry = widget.NewEntry()
	tb.colorEntry.SetPlaceHolder("#d63384")
	tb.colorEntry.OnSubmitted = func(s string) {
		if err := mw.state.SetBrushColor(s); err != nil {
			mw.updateStatus(fmt.Sprintf("Invalid colour %q", s))
			tb.syncBrush(mw.state.Brush().Style())
		}
	}

	tb.width = widget.NewSlider(1, brush.MaxWidth())
	tb.width.Step = 1
	tb.widthLabel = widget.NewLabel("")
	tb.width.OnChanged = func(v float64) {
		if tb.syncing {
			return
		}
		mw.state.SetBrushWidth(v)
	}

	tb.opacity = widget.NewSlider(0, 1)
	tb.opacity.Step = 0.01
	tb.opacity.OnChanged = func(v float64) {
		if tb.syncing {
			return
		}
		if err := mw.state.SetSelectedOpacity(v); err != nil {
			mw.updateStatus(err.Error())
		}
	}

	tb.deleteBtn = widget.NewButtonWithIcon("", theme.DeleteIcon(), mw.onDelete)
	tb.duplicateBtn = widget.NewButtonWithIcon("", theme.ContentCopyIcon(), mw.onDuplicate)
	tb.raiseBtn = widget.NewButtonWithIcon("", theme.MoveUpIcon(), mw.onBringToFront)
	clearBtn := widget.NewButtonWithIcon("Clear", theme.ContentClearIcon(), mw.onClear)

	var sideLabels []string
	for _, s := range mockup.Sides() {
		sideLabels = append(sideLabels, s.Label())
	}
	tb.mockupSelect = widget.NewSelect(sideLabels, func(label string) {
		if tb.syncing {
			return
		}
		for _, s := range mockup.Sides() {
			if s.Label() == label {
				mw.state.SetMockup(s)
			}
		}
	})

	tb.zoomLabel = widget.NewLabel("100%")
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), mw.onZoomOut)
	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), mw.onZoomIn)
	fit := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), mw.onFit)

	tb.formatSelect = widget.NewSelect([]string{
		string(export.FormatPNG), string(export.FormatJPEG), string(export.FormatPDF),
	}, func(s string) {
		if tb.syncing {
			return
		}
		f, err := export.ParseFormat(s)
		if err != nil {
			return
		}
		mw.state.SetExportFormat(f)
	})
	exportBtn := widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), mw.onExport)

	brushRow := container.NewHBox(
		importBtn,
		widget.NewSeparator(),
		tb.tool,
		widget.NewSeparator(),
		tb.swatch, pickBtn,
		container.NewGridWrap(fyne.NewSize(90, tb.colorEntry.MinSize().Height), tb.colorEntry),
		widget.NewLabel("Width"),
		container.NewGridWrap(fyne.NewSize(140, tb.width.MinSize().Height), tb.width),
		tb.widthLabel,
	)
	editRow := container.NewHBox(
		widget.NewLabel("Opacity"),
		container.NewGridWrap(fyne.NewSize(120, tb.opacity.MinSize().Height), tb.opacity),
		tb.duplicateBtn,
		tb.raiseBtn,
		tb.deleteBtn,
		clearBtn,
		widget.NewSeparator(),
		widget.NewLabel("Mockup"),
		tb.mockupSelect,
		widget.NewSeparator(),
		zoomOut, tb.zoomLabel, zoomIn, fit,
		widget.NewSeparator(),
		tb.formatSelect,
		exportBtn,
	)
	tb.content = container.NewVBox(brushRow, editRow)

	tb.syncExportFormat()
	tb.syncZoom(mw.state.Viewport().Zoom())
	return tb
}

// Container returns the toolbar for embedding in layouts.
func (tb *toolbar) Container() fyne.CanvasObject {
	return tb.content
}

func (tb *toolbar) showColorPicker() {
	picker := dialog.NewColorPicker("Brush Colour", "Choose the stroke colour", func(c color.Color) {
		cf, ok := colorful.MakeColor(c)
		if !ok {
			return
		}
		if err := tb.mw.state.SetBrushColor(cf.Hex()); err != nil {
			tb.mw.updateStatus(err.Error())
		}
	}, tb.mw.Window)
	picker.Advanced = true
	picker.SetColor(tb.mw.state.Brush().Style().Color)
	picker.Show()
}

func (tb *toolbar) syncTool(t input.Tool) {
	tb.syncing = true
	defer func() { tb.syncing = false }()
	if t == input.ToolBrush {
		tb.tool.SetSelected(toolBrush)
	} else {
		tb.tool.SetSelected(toolMove)
	}
}

func (tb *toolbar) syncBrush(st document.StrokeStyle) {
	tb.syncing = true
	defer func() { tb.syncing = false }()
	tb.colorEntry.SetText(st.Hex)
	tb.swatch.FillColor = st.Color
	tb.swatch.Refresh()
	tb.width.SetValue(st.Width)
	tb.widthLabel.SetText(fmt.Sprintf("%.0f px", st.Width))
}

// syncSelection enables the layer controls when an image is selected.
func (tb *toolbar) syncSelection() {
	tb.syncing = true
	defer func() { tb.syncing = false }()
	img, ok := tb.mw.state.Document().SelectedLayer()
	for _, w := range []fyne.Disableable{tb.opacity, tb.deleteBtn, tb.duplicateBtn, tb.raiseBtn} {
		if ok {
			w.Enable()
		} else {
			w.Disable()
		}
	}
	if ok {
		tb.opacity.SetValue(img.Props().Opacity)
	}
}

func (tb *toolbar) syncMockup(side mockup.Side) {
	tb.syncing = true
	defer func() { tb.syncing = false }()
	tb.mockupSelect.SetSelected(side.Label())
}

func (tb *toolbar) syncZoom(z float64) {
	tb.zoomLabel.SetText(fmt.Sprintf("%.0f%%", z*100))
}

func (tb *toolbar) syncExportFormat() {
	tb.syncing = true
	defer func() { tb.syncing = false }()
	tb.formatSelect.SetSelected(string(tb.mw.state.Exporter().Format()))
}
