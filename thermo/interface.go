// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermo defines the frames, results and contracts shared by thermal
// sensor drivers, classification algorithms and the engines bridging them.
package thermo

import (
	"context"
	"image"

	"periph.io/x/periph/conn/physic"
)

// Session is one open connection to a thermal sensor. This interface can be
// mocked, see package thermotest.
//
// A Session is stateful and not reentrant: Stream must be called from a
// single goroutine at a time. Stop may be called from any goroutine.
type Session interface {
	// Available is a side-effect-free capability check.
	Available() bool
	// Stream blocks, calling fn once per acquired frame. fn owns the frame.
	//
	// It returns nil once ctx is done or Stop was called, and a *DeviceError
	// on sensor fault. Calling Stream while a previous call has not returned
	// fails with ErrInvalidState.
	Stream(ctx context.Context, fn func(f *Frame)) error
	// Stop requests the in-flight Stream to return as soon as possible. It is
	// idempotent and does not wait.
	Stop()
}

// Classifier turns incoming frames into a Result.
//
// Classify is called once per frame and mutates r in place, moving it from
// Unknown toward Average or Snapshot based on its own history. It must not
// retain f past the call.
type Classifier interface {
	Classify(f *Frame, r *Result)
}

// RegionClassifier is implemented by classifiers that can restrict their
// sampling to a region of the frame.
type RegionClassifier interface {
	Classifier
	ClassifyRegion(f *Frame, region image.Rectangle, r *Result)
}

// Versioner is implemented by sessions that can report their firmware version.
type Versioner interface {
	Version() (string, error)
}

// AmbientSensor is implemented by sessions that can read the ambient (housing)
// temperature.
type AmbientSensor interface {
	Ambient() (physic.Temperature, error)
}

// SessionFactory creates a new Session.
type SessionFactory func() (Session, error)

// ClassifierFactory creates a new Classifier. Each measurement attempt gets
// its own instance.
type ClassifierFactory func() (Classifier, error)

// Info is what a sensor reports about itself.
type Info struct {
	Available bool
	Version   string             // Empty if not supported.
	Ambient   physic.Temperature // Zero if not supported.
}

// Celsius converts t to °C.
func Celsius(t physic.Temperature) float32 {
	return float32(float64(t-physic.ZeroCelsius) / float64(physic.Celsius))
}

// FromCelsius converts °C to a physic.Temperature.
func FromCelsius(c float32) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(float64(c)*float64(physic.Celsius))
}
