// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermo

import (
	"errors"
	"image"
)

// Frame is one temperature sample array from the sensor.
//
// Pix is row-major, each cell is in °C. The usual shape is 32x32 but drivers
// are free to report what the hardware provides, e.g. 80x60 for a Lepton.
//
// A Frame handed to a consumer is owned by that consumer; sensors never reuse
// it after delivery.
type Frame struct {
	W   int
	H   int
	Pix []float32
}

// NewFrame returns a zeroed frame of w x h cells.
func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h, Pix: make([]float32, w*h)}
}

// FrameFromRows copies a native 2-D array into a Frame. All rows must have the
// same length.
func FrameFromRows(rows [][]float32) (*Frame, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("thermo: empty frame")
	}
	f := NewFrame(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != f.W {
			return nil, errors.New("thermo: ragged frame")
		}
		copy(f.Pix[y*f.W:], row)
	}
	return f, nil
}

// Bounds returns the grid rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.W, f.H)
}

// At returns the temperature at x, y.
func (f *Frame) At(x, y int) float32 {
	return f.Pix[y*f.W+x]
}

// Set sets the temperature at x, y.
func (f *Frame) Set(x, y int, v float32) {
	f.Pix[y*f.W+x] = v
}

// Clone returns an exclusively owned copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{W: f.W, H: f.H, Pix: make([]float32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// Rows returns the frame as a freshly allocated 2-D array.
func (f *Frame) Rows() [][]float32 {
	out := make([][]float32, f.H)
	for y := range out {
		out[y] = make([]float32, f.W)
		copy(out[y], f.Pix[y*f.W:(y+1)*f.W])
	}
	return out
}

// MinMax returns the lowest and highest value in r, clipped to the frame.
func (f *Frame) MinMax(r image.Rectangle) (min, max float32) {
	r = r.Intersect(f.Bounds())
	first := true
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := f.Pix[y*f.W+x]
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

// Equal returns true if both frames have the same shape and values.
func (f *Frame) Equal(r *Frame) bool {
	if f.W != r.W || f.H != r.H {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != r.Pix[i] {
			return false
		}
	}
	return true
}
