// Package render draws point sets as scatter images.
//
// Marker sizes follow the scatter-plot convention of an area in points²; a
// marker may instead carry a radius in data units, used to draw the disks of
// a clustering hierarchy. Views keep an equal aspect ratio and axes are never
// drawn.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const (
	DefaultWidth  = 1920
	DefaultHeight = 1440
	DefaultDPI    = 300
	DefaultMargin = 0.05
)

// Marker is one disc on the plot. Exactly one of Area (points²) and
// DataRadius (data units) is expected to be positive; a marker with neither
// is not drawn.
type Marker struct {
	X, Y       float64
	Area       float64
	DataRadius float64
	Color      color.NRGBA
}

// Layer is a group of markers drawn in order. Later layers cover earlier ones.
type Layer struct {
	Label   string
	Markers []Marker
}

// Plot describes one figure.
type Plot struct {
	Width, Height int
	DPI           float64
	Background    color.NRGBA
	// View fixes the visible region; nil fits the data.
	View   *Rect
	Margin float64
	Layers []Layer
}

// NewPlot returns an empty plot with the default size and a white background.
func NewPlot() *Plot {
	return &Plot{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		DPI:        DefaultDPI,
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Margin:     DefaultMargin,
	}
}

// AddLayer appends l to the plot.
func (p *Plot) AddLayer(l Layer) {
	p.Layers = append(p.Layers, l)
}

// MarkerCount returns the number of markers over all layers.
func (p *Plot) MarkerCount() int {
	n := 0
	for _, l := range p.Layers {
		n += len(l.Markers)
	}
	return n
}

// Bounds returns the visible data region: View when set, otherwise the
// extent of every marker centre (and data-radius disc) grown by Margin.
func (p *Plot) Bounds() Rect {
	if p.View != nil {
		return *p.View
	}

	r := Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	seen := false
	for _, l := range p.Layers {
		for _, m := range l.Markers {
			ext := math.Max(m.DataRadius, 0)
			r.MinX = math.Min(r.MinX, m.X-ext)
			r.MinY = math.Min(r.MinY, m.Y-ext)
			r.MaxX = math.Max(r.MaxX, m.X+ext)
			r.MaxY = math.Max(r.MaxY, m.Y+ext)
			seen = true
		}
	}

	if !seen {
		return Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}
	}

	return r.nonDegenerate().Expand(p.Margin)
}

// pixelRadius returns the on-screen radius of m.
func (p *Plot) pixelRadius(c *canvas, m Marker) float64 {
	if m.DataRadius > 0 {
		return m.DataRadius * c.pixelsPerUnit()
	}
	if m.Area > 0 {
		return math.Sqrt(m.Area) / 2 * p.DPI / 72
	}
	return 0
}

// Rasterize draws the plot into a new RGBA image.
func (p *Plot) Rasterize() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)

	c := newCanvas(p.Width, p.Height, p.Bounds())
	z := vector.NewRasterizer(0, 0)

	for _, l := range p.Layers {
		for _, m := range l.Markers {
			r := p.pixelRadius(&c, m)
			if r <= 0 || m.Color.A == 0 {
				continue
			}
			cx, cy := c.PixelFor(m.X, m.Y)
			fillDisc(img, z, cx, cy, r, m.Color)
		}
	}

	return img
}

// kappa places cubic Bézier control points for a quarter circle.
const kappa = 0.5522847498

// fillDisc composites an anti-aliased disc over dst. The rasterizer is sized
// to the disc's bounding box clipped to dst.
func fillDisc(dst *image.RGBA, z *vector.Rasterizer, cx, cy, r float64, c color.NRGBA) {
	box := image.Rect(
		int(math.Floor(cx-r)), int(math.Floor(cy-r)),
		int(math.Ceil(cx+r)), int(math.Ceil(cy+r)),
	).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}

	z.Reset(box.Dx(), box.Dy())
	z.DrawOp = draw.Over

	x := float32(cx - float64(box.Min.X))
	y := float32(cy - float64(box.Min.Y))
	rr := float32(r)
	k := float32(kappa) * rr

	z.MoveTo(x+rr, y)
	z.CubeTo(x+rr, y+k, x+k, y+rr, x, y+rr)
	z.CubeTo(x-k, y+rr, x-rr, y+k, x-rr, y)
	z.CubeTo(x-rr, y-k, x-k, y-rr, x, y-rr)
	z.CubeTo(x+k, y-rr, x+rr, y-k, x+rr, y)
	z.ClosePath()

	z.Draw(dst, box, image.NewUniform(c), image.Point{})
}
