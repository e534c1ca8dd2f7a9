package document

import "image"

// Snapshot is an immutable copy of everything the renderer needs. It is safe
// to render from another goroutine while the document keeps changing.
type Snapshot struct {
	Width, Height int

	// Layers are copies, bottom to top. Bitmaps are shared and read-only.
	Layers []Layer

	Background        image.Image
	BackgroundEnabled bool

	// Selected is the selection at snapshot time, for overlays.
	Selected string
	Version  uint64
}

// Snapshot copies the draw list.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	layers := make([]Layer, len(d.layers))
	for i, l := range d.layers {
		switch v := l.(type) {
		case *ImageLayer:
			layers[i] = v.clone()
		case *StrokeLayer:
			layers[i] = v.clone()
		}
	}
	return Snapshot{
		Width:             d.width,
		Height:            d.height,
		Layers:            layers,
		Background:        d.background,
		BackgroundEnabled: d.backgroundEnabled,
		Selected:          d.selected,
		Version:           d.version,
	}
}

// WithoutBackground returns a copy of s that omits the mockup. The receiver
// is unchanged.
func (s Snapshot) WithoutBackground() Snapshot {
	s.BackgroundEnabled = false
	return s
}
