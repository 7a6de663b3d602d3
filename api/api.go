// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api defines the JSON messages exchanged by thermo.
package api

import (
	"time"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

// PushRequestItem is one measurement.
type PushRequestItem struct {
	Timestamp   time.Time
	Temperature float32 // °C
	Kind        string  // thermo.Kind
	PNG         []byte  `json:",omitempty"` // Color mapped latest frame, optional.
}

// PushRequest is sent to a collector to record measurements.
type PushRequest struct {
	ID     int64
	Secret []byte
	Items  []PushRequestItem
}

// Validate returns an error if the request can't be accepted.
func (p *PushRequest) Validate() error {
	if p.ID == 0 || len(p.Secret) == 0 {
		return errors.New("api: ID and Secret are required")
	}
	if len(p.Items) == 0 {
		return errors.New("api: no item")
	}
	return nil
}

// PushResponse is the collector reply.
type PushResponse struct {
	OK    bool
	Error string `json:",omitempty"`
}

// Point is a cell and its temperature.
type Point struct {
	X, Y  int
	Value float32
}

// Measurement is the reply of the measure endpoint.
type Measurement struct {
	Temperature float32
	Kind        string
	Hottest     []Point `json:",omitempty"`
	Duration    time.Duration
}

// Info is the reply of the info endpoint.
type Info struct {
	Available bool
	Version   string  `json:",omitempty"`
	Ambient   float32 // °C
	Holder    string  `json:",omitempty"`
}

// Metadata describes a frame sent on the live stream.
type Metadata struct {
	Frame    uint64
	Min, Max float32
	Hottest  Point
	Dropped  uint64
}

// Error is returned by endpoints on failure.
type Error struct {
	Error string
}

// NewItem converts a confident result.
func NewItem(now time.Time, r *thermo.Result, png []byte) PushRequestItem {
	return PushRequestItem{Timestamp: now, Temperature: r.Temperature, Kind: r.Kind.String(), PNG: png}
}

// NewMeasurement converts a result, including its n hottest cells.
func NewMeasurement(r *thermo.Result, n int, d time.Duration) *Measurement {
	m := &Measurement{Temperature: r.Temperature, Kind: r.Kind.String(), Duration: d}
	if r.Latest != nil {
		m.Hottest = NewPoints(thermo.Hottest(r.Latest, n))
	}
	return m
}

// NewPoints converts points.
func NewPoints(pts []thermo.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X, Y: p.Y, Value: p.Value}
	}
	return out
}

// NewInfo converts sensor info.
func NewInfo(i *thermo.Info, holder string) *Info {
	return &Info{Available: i.Available, Version: i.Version, Ambient: thermo.Celsius(i.Ambient), Holder: holder}
}
