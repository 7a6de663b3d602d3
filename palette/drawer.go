// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"image"
	"image/color"
	"image/draw"
)

// Drawer composes extra content on a mapped image. It must only touch pixels
// inside its own region.
type Drawer interface {
	Draw(img *image.RGBA)
}

// CenterRect outlines a square centered on the image.
type CenterRect struct {
	Size   int // Side of the square, in pixels.
	Border int // Stroke width, drawn inward.
	Color  color.RGBA
}

// DefaultCenterRect is a 20 pixels blue square with a 1 pixel stroke.
func DefaultCenterRect() *CenterRect {
	return &CenterRect{Size: 20, Border: 1, Color: color.RGBA{B: 0xFF, A: 0xFF}}
}

// Rect returns the outlined rectangle for an image of bounds b.
func (c *CenterRect) Rect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	return image.Rect((w-c.Size)/2, (h-c.Size)/2, (w+c.Size)/2, (h+c.Size)/2).Add(b.Min)
}

// Draw implements Drawer.
func (c *CenterRect) Draw(img *image.RGBA) {
	r := c.Rect(img.Bounds()).Intersect(img.Bounds())
	if r.Empty() || c.Border <= 0 {
		return
	}
	bw := c.Border
	if bw > r.Dx()/2+1 {
		bw = r.Dx()/2 + 1
	}
	src := &image.Uniform{C: c.Color}
	for _, e := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+bw),
		image.Rect(r.Min.X, r.Max.Y-bw, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+bw, r.Max.Y),
		image.Rect(r.Max.X-bw, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(img, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
