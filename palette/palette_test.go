// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/maruel/go-thermo/thermo"
)

func TestIndex(t *testing.T) {
	o := DefaultOptions()
	data := []struct {
		t   float32
		idx int
	}{
		{30, 310}, // 30+6=36 -> 360, [50, 409] -> 360-50
		{-1, 0},   // Start - Compensation.
		{-40, 0},  // Clamped low.
		{-0.75, 2},
		{-0.5, 5},
		{34.5, 355},
		{35, 359},   // End - Compensation.
		{120, 359},  // Clamped high.
		{0, 10},
		{1e18, 359},
		{1e30, 359},
		{float32(math.Inf(1)), 359},
		{-1e30, 0},
		{float32(math.Inf(-1)), 0},
		{float32(math.NaN()), 0},
	}
	for i, line := range data {
		if idx := Index(line.t, &o); idx != line.idx {
			t.Fatalf("#%d: Index(%g) = %d, want %d", i, line.t, idx, line.idx)
		}
	}
	if b := o.Buckets(); b != 360 {
		t.Fatal(b)
	}
}

func TestIndex_noCompensation(t *testing.T) {
	o := Options{Start: -10, End: 10, Scale: 1}
	if idx := Index(-10, &o); idx != 0 {
		t.Fatal(idx)
	}
	// floor, not truncation.
	if idx := Index(-9.95, &o); idx != 0 {
		t.Fatal(idx)
	}
	if idx := Index(0, &o); idx != 100 {
		t.Fatal(idx)
	}
	if idx := Index(10, &o); idx != 199 {
		t.Fatal(idx)
	}
}

func TestNew_axis(t *testing.T) {
	portrait := image.NewRGBA(image.Rect(0, 0, 2, 400))
	landscape := image.NewRGBA(image.Rect(0, 0, 400, 2))
	for i := 0; i < 400; i++ {
		portrait.Set(0, i, color.RGBA{R: uint8(i), A: 0xFF})
		portrait.Set(1, i, color.RGBA{G: 0xFF, A: 0xFF})
		landscape.Set(i, 0, color.RGBA{R: uint8(i), A: 0xFF})
		landscape.Set(i, 1, color.RGBA{G: 0xFF, A: 0xFF})
	}
	for _, img := range []image.Image{portrait, landscape} {
		p := New(img)
		if p.Len() != 400 {
			t.Fatal(p.Len())
		}
		if c := p.At(310); c != (color.RGBA{R: 310 & 0xFF, A: 0xFF}) {
			t.Fatal(c)
		}
	}
}

func TestLoad(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 360, 1))
	for i := 0; i < 360; i++ {
		src.Set(i, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 0x80})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	p, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// Semi transparent pixels keep their straight color.
	if p.Len() != 360 || p.At(0) != (color.RGBA{R: 1, G: 2, B: 3, A: 0xFF}) {
		t.Fatal(p.Len(), p.At(0))
	}
	if _, err := Load(bytes.NewReader([]byte("not a png"))); err == nil {
		t.Fatal("expected decode failure")
	}
	if _, err := LoadFile("/nonexistent/palette.png"); err == nil {
		t.Fatal("expected open failure")
	}
}

func TestMap(t *testing.T) {
	p := ramp(360)
	o := DefaultOptions()
	f, _ := thermo.FrameFromRows([][]float32{{30, -50}, {35, 0}})
	img, err := Map(f, p, &o)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b != image.Rect(0, 0, 20, 20) {
		t.Fatal(b)
	}
	check := func(x, y, idx int) {
		if c := img.RGBAAt(x, y); c != p.At(idx) {
			t.Fatalf("(%d,%d) = %v, want %v", x, y, c, p.At(idx))
		}
	}
	for _, pt := range []image.Point{image.Pt(0, 0), image.Pt(9, 9), image.Pt(5, 3)} {
		check(pt.X, pt.Y, 310)
		check(pt.X+10, pt.Y, 0)
		check(pt.X, pt.Y+10, 359)
		check(pt.X+10, pt.Y+10, 10)
	}
}

func TestMap_deterministic(t *testing.T) {
	p := ramp(360)
	o := DefaultOptions()
	o.Extra = DefaultCenterRect()
	f := thermo.NewFrame(32, 32)
	for i := range f.Pix {
		f.Pix[i] = float32(i%37) - 3.3
	}
	a, err := Map(f, p, &o)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Map(f, p, &o)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("mapping is not deterministic")
	}
}

func TestMap_errors(t *testing.T) {
	o := DefaultOptions()
	if _, err := Map(thermo.NewFrame(0, 0), ramp(360), &o); err != ErrEmptyFrame {
		t.Fatal(err)
	}
	if _, err := Map(thermo.NewFrame(2, 2), ramp(359), &o); !errors.Is(err, ErrPaletteTooShort) {
		t.Fatal(err)
	}
	bad := Options{Start: 10, End: 10, Scale: 1}
	if _, err := Map(thermo.NewFrame(2, 2), ramp(360), &bad); err == nil {
		t.Fatal("empty window")
	}
	if _, err := MapFlat(nil, ramp(360), &o); err != ErrEmptyFrame {
		t.Fatal(err)
	}
}

func TestMapFlat(t *testing.T) {
	o := DefaultOptions()
	o.Scale = 1
	data := make([]float32, 10) // side 3, last cell ignored.
	for i := range data {
		data[i] = 30
	}
	img, err := MapFlat(data, ramp(360), &o)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b != image.Rect(0, 0, 3, 3) {
		t.Fatal(b)
	}
}

func TestCenterRect(t *testing.T) {
	p := ramp(360)
	o := DefaultOptions()
	f := thermo.NewFrame(4, 4)
	for i := range f.Pix {
		f.Pix[i] = 30
	}
	base, err := Map(f, p, &o)
	if err != nil {
		t.Fatal(err)
	}
	d := DefaultCenterRect()
	o.Extra = d
	img, err := Map(f, p, &o)
	if err != nil {
		t.Fatal(err)
	}
	r := d.Rect(img.Bounds())
	if r != image.Rect(10, 10, 30, 30) {
		t.Fatal(r)
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			pt := image.Pt(x, y)
			got := img.RGBAAt(x, y)
			onBorder := pt.In(r) && !pt.In(r.Inset(1))
			switch {
			case onBorder && got != d.Color:
				t.Fatalf("(%d,%d) = %v, want border", x, y, got)
			case !onBorder && got != base.RGBAAt(x, y):
				t.Fatalf("(%d,%d) was altered", x, y)
			}
		}
	}
}

//

// ramp returns a palette where each index has a distinct color.
func ramp(n int) *Palette {
	c := make([]color.RGBA, n)
	for i := range c {
		c[i] = color.RGBA{R: uint8(i), G: uint8(i >> 8), B: 0x80, A: 0xFF}
	}
	return FromColors(c)
}

func TestGradient(t *testing.T) {
	black := color.RGBA{0, 0, 0, 0xFF}
	white := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	p := Gradient(3, black, white)
	if p.Len() != 3 {
		t.Fatal(p.Len())
	}
	if p.At(0) != black || p.At(2) != white {
		t.Fatal(p.At(0), p.At(2))
	}
	if c := p.At(1); c != (color.RGBA{0x80, 0x80, 0x80, 0xFF}) {
		t.Fatal(c)
	}
	if Gradient(0, black).Len() != 0 {
		t.Fatal("empty")
	}
	if c := Gradient(2, color.RGBA{1, 2, 3, 0}).At(1); c != (color.RGBA{1, 2, 3, 0xFF}) {
		t.Fatal(c)
	}
}

func TestIronbow(t *testing.T) {
	o := DefaultOptions()
	p := Ironbow(o.Buckets())
	if p.Len() != o.Buckets() {
		t.Fatal(p.Len())
	}
	if _, err := Map(thermo.NewFrame(4, 4), p, &o); err != nil {
		t.Fatal(err)
	}
	// Hotter is brighter.
	lo, hi := p.At(0), p.At(p.Len()-1)
	if int(lo.R)+int(lo.G)+int(lo.B) >= int(hi.R)+int(hi.G)+int(hi.B) {
		t.Fatal(lo, hi)
	}
}
