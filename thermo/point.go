// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermo

import (
	"fmt"
	"sort"
)

// Point is a grid coordinate with the temperature sampled there.
//
// Value is derived from the frame; call Update whenever X, Y or the frame
// changes.
type Point struct {
	X     int
	Y     int
	Value float32
}

// PointAt samples f at x, y.
func PointAt(f *Frame, x, y int) Point {
	return Point{X: x, Y: y, Value: f.At(x, y)}
}

// Update resamples the value from f.
func (p *Point) Update(f *Frame) {
	p.Value = f.At(p.X, p.Y)
}

// Less orders points by value.
func (p Point) Less(o Point) bool {
	return p.Value < o.Value
}

func (p Point) String() string {
	return fmt.Sprintf("{%.1f(%02d,%02d)}", p.Value, p.X, p.Y)
}

// Hottest returns the n hottest cells of f, hottest first.
func Hottest(f *Frame, n int) []Point {
	pts := points(f)
	sort.SliceStable(pts, func(i, j int) bool { return pts[j].Less(pts[i]) })
	return head(pts, n)
}

// Coldest returns the n coldest cells of f, coldest first.
func Coldest(f *Frame, n int) []Point {
	pts := points(f)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Less(pts[j]) })
	return head(pts, n)
}

//

func points(f *Frame) []Point {
	out := make([]Point, 0, len(f.Pix))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			out = append(out, Point{X: x, Y: y, Value: f.Pix[y*f.W+x]})
		}
	}
	return out
}

func head(pts []Point, n int) []Point {
	if n < len(pts) {
		pts = pts[:n]
	}
	return pts
}
