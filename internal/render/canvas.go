package render

import "math"

// Rect is an axis-aligned region in data coordinates.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Dx returns the width of r.
func (r Rect) Dx() float64 { return r.MaxX - r.MinX }

// Dy returns the height of r.
func (r Rect) Dy() float64 { return r.MaxY - r.MinY }

// Expand returns r grown by frac of its size on every side.
func (r Rect) Expand(frac float64) Rect {
	dx, dy := r.Dx()*frac, r.Dy()*frac
	return Rect{MinX: r.MinX - dx, MinY: r.MinY - dy, MaxX: r.MaxX + dx, MaxY: r.MaxY + dy}
}

// nonDegenerate pads zero-size axes so a single point still gets a view.
func (r Rect) nonDegenerate() Rect {
	if r.Dx() <= 0 {
		pad := math.Max(math.Abs(r.MinX)*0.5, 0.5)
		r.MinX, r.MaxX = r.MinX-pad, r.MaxX+pad
	}
	if r.Dy() <= 0 {
		pad := math.Max(math.Abs(r.MinY)*0.5, 0.5)
		r.MinY, r.MaxY = r.MinY-pad, r.MaxY+pad
	}
	return r
}

// canvas maps data coordinates to pixels with an equal aspect ratio. The data
// view is centered; the unused axis is padded.
type canvas struct {
	Width, Height int
	view          Rect
	scale         float64
	offX, offY    float64
}

func newCanvas(width, height int, view Rect) canvas {
	view = view.nonDegenerate()

	scale := math.Min(float64(width)/view.Dx(), float64(height)/view.Dy())

	return canvas{
		Width:  width,
		Height: height,
		view:   view,
		scale:  scale,
		offX:   (float64(width) - view.Dx()*scale) / 2,
		offY:   (float64(height) - view.Dy()*scale) / 2,
	}
}

// PixelFor returns the fractional pixel position of (x, y). The y axis points
// up in data space and down in image space.
func (c *canvas) PixelFor(x, y float64) (float64, float64) {
	px := c.offX + (x-c.view.MinX)*c.scale
	py := float64(c.Height) - (c.offY + (y-c.view.MinY)*c.scale)
	return px, py
}

// pixelsPerUnit converts a length in data units to pixels.
func (c *canvas) pixelsPerUnit() float64 {
	return c.scale
}
