package render

import (
	"errors"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// ErrUnknownFormat is returned by Save for an unsupported file extension.
var ErrUnknownFormat = errors.New("unknown file format")

// Formats lists the extensions Save understands.
var Formats = []string{".png", ".jpg", ".jpeg", ".gif", ".svg"}

// NormalizeFormat turns "png", ".PNG" and friends into ".png".
func NormalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		return ".png", nil
	}
	if !strings.HasPrefix(f, ".") {
		f = "." + f
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %s", ErrUnknownFormat, format)
}

// Save writes the plot to path, choosing the encoder from the extension. The
// parent directory is created when missing.
func (p *Plot) Save(path string) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, err := NormalizeFormat(ext); err != nil || ext == "" {
		return fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	return p.Encode(f, ext)
}

// Encode writes the plot to w in the format named by ext.
func (p *Plot) Encode(w io.Writer, ext string) error {
	switch ext {
	case ".svg":
		return p.WriteSVG(w)
	case ".png":
		return png.Encode(w, p.Rasterize())
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, p.Rasterize(), &jpeg.Options{Quality: 95})
	case ".gif":
		return gif.Encode(w, p.Rasterize(), nil)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
}

// WriteSVG writes the plot as an SVG document. Coordinates are rounded to
// whole pixels; markers smaller than a pixel get radius 1.
func (p *Plot) WriteSVG(w io.Writer) error {
	c := newCanvas(p.Width, p.Height, p.Bounds())

	doc := svg.New(w)
	doc.Start(p.Width, p.Height)
	doc.Rect(0, 0, p.Width, p.Height, fillStyle(p.Background))

	for _, l := range p.Layers {
		if l.Label != "" {
			doc.Gid(svgID(l.Label))
		} else {
			doc.Group()
		}
		for _, m := range l.Markers {
			r := p.pixelRadius(&c, m)
			if r <= 0 || m.Color.A == 0 {
				continue
			}
			cx, cy := c.PixelFor(m.X, m.Y)
			doc.Circle(int(math.Round(cx)), int(math.Round(cy)), max(1, int(math.Round(r))), fillStyle(m.Color))
		}
		doc.Gend()
	}

	doc.End()
	return nil
}

func fillStyle(c interface{ RGBA() (r, g, b, a uint32) }) string {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return "fill:none"
	}
	// RGBA is premultiplied; undo it for the CSS colour.
	un := func(v uint32) int { return int(math.Round(float64(v) * 255 / float64(a))) }
	return fmt.Sprintf("fill:rgb(%d,%d,%d);fill-opacity:%.3f", un(r), un(g), un(b), float64(a)/0xffff)
}

func svgID(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}
