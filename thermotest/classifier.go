// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermotest

import (
	"sync"

	"github.com/maruel/go-thermo/thermo"
)

// Classifier becomes confident after seeing After frames, reporting the
// hottest cell of the last frame.
//
// After == 0 means it never becomes confident.
type Classifier struct {
	After int
	Kind  thermo.Kind // Defaults to thermo.Snapshot.

	mu    sync.Mutex
	calls int
}

// Classify implements thermo.Classifier.
func (c *Classifier) Classify(f *thermo.Frame, r *thermo.Result) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.After == 0 || n < c.After {
		return
	}
	k := c.Kind
	if k == thermo.Unknown {
		k = thermo.Snapshot
	}
	_, max := f.MinMax(f.Bounds())
	r.Set(k, max)
}

// Calls returns the number of frames classified.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
