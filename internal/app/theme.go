package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// MockupStudioTheme tints the default theme with the brush accent.
type MockupStudioTheme struct{}

var _ fyne.Theme = (*MockupStudioTheme)(nil)

func (t *MockupStudioTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xD6, G: 0x33, B: 0x84, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xD6, G: 0x33, B: 0x84, A: 0x40}
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0xD6, G: 0x33, B: 0x84, A: 0x80}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *MockupStudioTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *MockupStudioTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *MockupStudioTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameInlineIcon:
		return 22
	default:
		return theme.DefaultTheme().Size(name)
	}
}
