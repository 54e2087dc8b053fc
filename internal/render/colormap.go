package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Colormap maps a normalised value in [0, 1] to a colour.
type Colormap func(t float64) color.NRGBA

// Greys runs from white at 0 to black at 1.
func Greys(t float64) color.NRGBA {
	v := uint8(math.Round(255 * (1 - clamp(t, 0, 1))))
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

// Reversed runs c from 1 down to 0.
func Reversed(c Colormap) Colormap {
	return func(t float64) color.NRGBA { return c(1 - t) }
}

// Gradient interpolates linearly from lo at 0 to hi at 1.
func Gradient(lo, hi color.NRGBA) Colormap {
	mix := func(a, b uint8, t float64) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return func(t float64) color.NRGBA {
		t = clamp(t, 0, 1)
		return color.NRGBA{R: mix(lo.R, hi.R, t), G: mix(lo.G, hi.G, t), B: mix(lo.B, hi.B, t), A: mix(lo.A, hi.A, t)}
	}
}

var colormaps = map[string]Colormap{
	"greys":   Greys,
	"greys_r": Reversed(Greys),
	"blues":   Gradient(color.NRGBA{R: 0xf7, G: 0xfb, B: 0xff, A: 255}, color.NRGBA{R: 0x08, G: 0x30, B: 0x6b, A: 255}),
	"reds":    Gradient(color.NRGBA{R: 0xff, G: 0xf5, B: 0xf0, A: 255}, color.NRGBA{R: 0x67, G: 0x00, B: 0x0d, A: 255}),
}

// ColormapByName resolves a colormap name such as "Greys" or "Greys_r".
func ColormapByName(name string) (Colormap, error) {
	if c, ok := colormaps[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown colormap %q", name)
}

// Normalize rescales values linearly onto [0, 1] using their own min and max.
// A constant input maps to 0.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi == lo {
		return out
	}

	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// Tab10 is the default categorical colour cycle.
var Tab10 = []color.NRGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	{R: 0x94, G: 0x67, B: 0xbd, A: 255},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 255},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 255},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 255},
	{R: 0xbc, G: 0xbd, B: 0x22, A: 255},
	{R: 0x17, G: 0xbe, B: 0xcf, A: 255},
}

// Cycle returns the i-th colour of the Tab10 cycle.
func Cycle(i int) color.NRGBA {
	if i < 0 {
		i = -i
	}
	return Tab10[i%len(Tab10)]
}

var namedColors = map[string]color.NRGBA{
	"white":   {R: 255, G: 255, B: 255, A: 255},
	"w":       {R: 255, G: 255, B: 255, A: 255},
	"black":   {A: 255},
	"k":       {A: 255},
	"red":     {R: 255, A: 255},
	"r":       {R: 255, A: 255},
	"green":   {G: 128, A: 255},
	"g":       {G: 128, A: 255},
	"blue":    {B: 255, A: 255},
	"b":       {B: 255, A: 255},
	"cyan":    {G: 255, B: 255, A: 255},
	"c":       {G: 255, B: 255, A: 255},
	"magenta": {R: 255, B: 255, A: 255},
	"m":       {R: 255, B: 255, A: 255},
	"yellow":  {R: 255, G: 255, A: 255},
	"y":       {R: 255, G: 255, A: 255},
	"purple":  {R: 128, B: 128, A: 255},
	"orange":  {R: 255, G: 165, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
}

// Named resolves a colour name or a "#rrggbb" hex string.
func Named(name string) (color.NRGBA, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return c, nil
	}

	if strings.HasPrefix(name, "#") && len(name) == 7 {
		var r, g, b uint8
		if _, err := fmt.Sscanf(name, "#%02x%02x%02x", &r, &g, &b); err == nil {
			return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
		}
	}

	return color.NRGBA{}, fmt.Errorf("unknown color %q", name)
}

// WithAlpha returns c with its opacity replaced by alpha in [0, 1].
func WithAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(255 * clamp(alpha, 0, 1)))
	return c
}

func clamp(v, min, max float64) float64 {
	if v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}
