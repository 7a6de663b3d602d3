// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermo

import "fmt"

// Kind is the confidence state of a Result.
type Kind int

// Valid values for Kind.
const (
	// Unknown means the temperature is not determined yet.
	Unknown Kind = 0
	// Average is a value converged over several frames. Accurate but slower.
	Average Kind = 1
	// Snapshot is a single frame estimate. Fast but less accurate.
	Snapshot Kind = 2
)

func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case Average:
		return "Average"
	case Snapshot:
		return "Snapshot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the outcome of a measurement attempt.
//
// Kind only moves forward within one attempt: once it is Average or Snapshot,
// Set is a no-op.
type Result struct {
	Kind        Kind
	Temperature float32 // Valid only when Kind != Unknown.
	Latest      *Frame  // Most recent frame observed when the result was produced.
}

// Confident returns true once the result is Average or Snapshot.
func (r *Result) Confident() bool {
	return r.Kind != Unknown
}

// Set records the kind and temperature. It returns false and leaves the result
// untouched if the result was already confident.
func (r *Result) Set(k Kind, temperature float32) bool {
	if r.Kind != Unknown {
		return false
	}
	r.Kind = k
	r.Temperature = temperature
	return true
}

func (r *Result) String() string {
	if r.Kind == Unknown {
		return "Unknown"
	}
	return fmt.Sprintf("%.1f°C (%s)", r.Temperature, r.Kind)
}
