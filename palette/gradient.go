// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"image/color"
)

// Gradient returns a palette of n colors linearly interpolated between stops.
func Gradient(n int, stops ...color.RGBA) *Palette {
	if n <= 0 || len(stops) == 0 {
		return &Palette{}
	}
	out := make([]color.RGBA, n)
	if len(stops) == 1 || n == 1 {
		c := stops[0]
		c.A = 0xFF
		for i := range out {
			out[i] = c
		}
		return &Palette{colors: out}
	}
	segments := len(stops) - 1
	for i := range out {
		// Position in [0, segments].
		pos := float64(i) * float64(segments) / float64(n-1)
		s := int(pos)
		if s >= segments {
			s = segments - 1
		}
		frac := pos - float64(s)
		a, b := stops[s], stops[s+1]
		out[i] = color.RGBA{
			R: lerp(a.R, b.R, frac),
			G: lerp(a.G, b.G, frac),
			B: lerp(a.B, b.B, frac),
			A: 0xFF,
		}
	}
	return &Palette{colors: out}
}

// Ironbow returns the classic thermography palette with n colors. Use
// Options.Buckets to size it for a temperature window.
func Ironbow(n int) *Palette {
	return Gradient(n,
		color.RGBA{0x00, 0x00, 0x0A, 0xFF},
		color.RGBA{0x4B, 0x00, 0x8C, 0xFF},
		color.RGBA{0xB4, 0x0F, 0x8C, 0xFF},
		color.RGBA{0xE6, 0x46, 0x1E, 0xFF},
		color.RGBA{0xFA, 0xA0, 0x00, 0xFF},
		color.RGBA{0xFF, 0xE6, 0x50, 0xFF},
		color.RGBA{0xFF, 0xFF, 0xF0, 0xFF},
	)
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
