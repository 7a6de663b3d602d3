// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package palette converts temperature frames to color-mapped images.
//
// A palette is a strip of colors, one per 0.1°C bucket of the configured
// window. Strips can be portrait or landscape; the longer axis is used.
package palette

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"

	// Palettes are usually shipped as PNG.
	_ "image/png"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyFrame is returned when mapping a frame without cells.
	ErrEmptyFrame = errors.New("palette: empty frame")
	// ErrPaletteTooShort is returned when the palette has fewer colors than
	// the temperature window has buckets.
	ErrPaletteTooShort = errors.New("palette: palette shorter than temperature window")
)

// Palette is an immutable color lookup table. It is safe for concurrent use.
type Palette struct {
	colors []color.RGBA
}

// New reads the lookup table along the longer axis of img: the first column
// of a portrait strip, the first row of a landscape one.
func New(img image.Image) *Palette {
	b := img.Bounds()
	var out []color.RGBA
	if b.Dx() < b.Dy() {
		out = make([]color.RGBA, 0, b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			out = append(out, opaque(img.At(b.Min.X, y)))
		}
	} else {
		out = make([]color.RGBA, 0, b.Dx())
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, opaque(img.At(x, b.Min.Y)))
		}
	}
	return &Palette{colors: out}
}

// FromColors builds a palette from a raw pixel table. c is copied.
func FromColors(c []color.RGBA) *Palette {
	out := make([]color.RGBA, len(c))
	copy(out, c)
	return &Palette{colors: out}
}

// Load decodes a palette image.
func Load(r io.Reader) (*Palette, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "palette: decode")
	}
	return New(img), nil
}

// LoadFile decodes the palette image at path.
func LoadFile(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Load(f)
	return p, errors.Wrap(err, path)
}

// Len returns the number of colors.
func (p *Palette) Len() int {
	return len(p.colors)
}

// At returns the color at index i.
func (p *Palette) At(i int) color.RGBA {
	return p.colors[i]
}

// Color returns the color for temperature t.
func (p *Palette) Color(t float32, o *Options) color.RGBA {
	return p.colors[Index(t, o)]
}

// Options controls the mapping. The zero value is not valid, use
// DefaultOptions.
type Options struct {
	Start        float32 // Lowest temperature of the window, in °C.
	End          float32 // Highest temperature of the window, in °C; exclusive.
	Compensation float32 // Added to every reading before lookup.
	Scale        int     // Each cell is painted as a Scale x Scale block.
	Extra        Drawer  // Optional; runs after the cells are painted.
}

// DefaultOptions returns the window used by the reference devices: 5°C to
// 41°C, +6°C compensation, 10x10 blocks.
func DefaultOptions() Options {
	return Options{Start: 5, End: 41, Compensation: 6, Scale: 10}
}

// Buckets returns the number of 0.1°C buckets in the window.
func (o *Options) Buckets() int {
	return decis(o.End) - decis(o.Start)
}

// Index returns the palette offset for temperature t.
//
// t is compensated, quantized to 0.1°C and clamped to
// [floor(Start*10), floor(End*10)-1] before being offset by floor(Start*10).
// The clamp happens before the integer conversion so out of range readings,
// including ±Inf, land on the edge buckets. NaN maps to the first bucket.
func Index(t float32, o *Options) int {
	start := decis(o.Start)
	end := decis(o.End)
	y := math.Floor(float64((t + o.Compensation) * 10))
	switch {
	case math.IsNaN(y) || y <= float64(start):
		return 0
	case y >= float64(end-1):
		return end - 1 - start
	}
	return int(y) - start
}

// Map paints f into a new image of (W*Scale)x(H*Scale) pixels.
//
// It is a pure function: the same inputs always produce the same pixels.
func Map(f *thermo.Frame, p *Palette, o *Options) (*image.RGBA, error) {
	if f == nil || f.W <= 0 || f.H <= 0 || len(f.Pix) < f.W*f.H {
		return nil, ErrEmptyFrame
	}
	if o.Buckets() <= 0 {
		return nil, errors.Errorf("palette: invalid window [%g, %g)", o.Start, o.End)
	}
	if p.Len() < o.Buckets() {
		return nil, errors.Wrapf(ErrPaletteTooShort, "%d < %d", p.Len(), o.Buckets())
	}
	scale := o.Scale
	if scale <= 0 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, f.W*scale, f.H*scale))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			c := p.Color(f.Pix[y*f.W+x], o)
			r := image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale)
			draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
		}
	}
	if o.Extra != nil {
		o.Extra.Draw(img)
	}
	return img, nil
}

// MapFlat maps a flat square array; the side is floor(sqrt(len(data))) and
// trailing cells are ignored.
func MapFlat(data []float32, p *Palette, o *Options) (*image.RGBA, error) {
	side := int(math.Sqrt(float64(len(data))))
	if side == 0 {
		return nil, ErrEmptyFrame
	}
	return Map(&thermo.Frame{W: side, H: side, Pix: data[:side*side]}, p, o)
}

//

// decis returns floor(v*10) computed in float32 like the sensor values.
func decis(v float32) int {
	return int(math.Floor(float64(v * 10)))
}

// opaque drops the alpha channel, keeping the straight (non premultiplied)
// color.
func opaque(c color.Color) color.RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xFF}
}
