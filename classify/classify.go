// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package classify implements body temperature classifiers.
//
// Importing this package registers "average" and "snapshot" in
// registry.Default.
package classify

import (
	"image"

	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
)

func init() {
	registry.MustRegisterClassifier("average", func() (thermo.Classifier, error) {
		return NewAverage(), nil
	})
	registry.MustRegisterClassifier("snapshot", func() (thermo.Classifier, error) {
		return NewSnapshot(), nil
	})
}

// Range is the plausible skin temperature interval, in °C.
type Range struct {
	Min float32
	Max float32
}

// Contains returns true if v is within [Min, Max].
func (r Range) Contains(v float32) bool {
	return v >= r.Min && v <= r.Max
}

// DefaultRange accepts readings between 30°C and 45°C.
var DefaultRange = Range{Min: 30, Max: 45}

// Snapshot reports the hottest cell of the region as soon as one frame has it
// within range.
type Snapshot struct {
	Range  Range
	Region image.Rectangle // Empty means the central half of the frame.
}

// NewSnapshot returns a Snapshot with DefaultRange.
func NewSnapshot() *Snapshot {
	return &Snapshot{Range: DefaultRange}
}

// Classify implements thermo.Classifier.
func (s *Snapshot) Classify(f *thermo.Frame, r *thermo.Result) {
	s.ClassifyRegion(f, s.Region, r)
}

// ClassifyRegion implements thermo.RegionClassifier.
func (s *Snapshot) ClassifyRegion(f *thermo.Frame, region image.Rectangle, r *thermo.Result) {
	if r.Confident() {
		return
	}
	_, max := f.MinMax(regionOf(f, region))
	if s.Range.Contains(max) {
		r.Set(thermo.Snapshot, max)
	}
}

// Average reports the mean of the region's hottest cell once Window
// consecutive frames agree within Tolerance.
type Average struct {
	Range     Range
	Region    image.Rectangle // Empty means the central half of the frame.
	Window    int
	Tolerance float32

	samples []float32
}

// NewAverage returns an Average over 10 frames agreeing within 0.3°C.
func NewAverage() *Average {
	return &Average{Range: DefaultRange, Window: 10, Tolerance: 0.3}
}

// Classify implements thermo.Classifier.
func (a *Average) Classify(f *thermo.Frame, r *thermo.Result) {
	a.ClassifyRegion(f, a.Region, r)
}

// ClassifyRegion implements thermo.RegionClassifier.
func (a *Average) ClassifyRegion(f *thermo.Frame, region image.Rectangle, r *thermo.Result) {
	if r.Confident() {
		return
	}
	_, max := f.MinMax(regionOf(f, region))
	if !a.Range.Contains(max) {
		// Subject moved away; start over.
		a.samples = a.samples[:0]
		return
	}
	window := a.Window
	if window <= 0 {
		window = 1
	}
	a.samples = append(a.samples, max)
	if len(a.samples) > window {
		a.samples = a.samples[len(a.samples)-window:]
	}
	if len(a.samples) < window {
		return
	}
	lo, hi, sum := a.samples[0], a.samples[0], float32(0)
	for _, v := range a.samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	if hi-lo <= a.Tolerance {
		r.Set(thermo.Average, sum/float32(len(a.samples)))
	}
}

// Reset forgets the accumulated history so the instance can be reused for a
// new attempt.
func (a *Average) Reset() {
	a.samples = a.samples[:0]
}

//

func regionOf(f *thermo.Frame, region image.Rectangle) image.Rectangle {
	if region.Empty() {
		return image.Rect(f.W/4, f.H/4, f.W-f.W/4, f.H-f.H/4)
	}
	return region
}
