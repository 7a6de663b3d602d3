// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

// ErrSessionEnded is returned by Measure when the sensor stopped streaming
// before a confident result and without reporting an error.
var ErrSessionEnded = errors.New("thermometer: session ended before a confident result")

// Measure starts a session and feeds every frame to c until it reports a
// confident result.
//
// If c is nil, a classifier is created with Options.Classifier. There is no
// built-in timeout: Measure runs until the result is confident, the sensor
// fails or ctx is done. When both completion and cancellation happen, the one
// recorded first wins. Measure returns only after the session was stopped and
// the Arbiter released.
//
// It fails with thermo.ErrSessionBusy if a session is already live.
func (t *Thermometer) Measure(ctx context.Context, c thermo.Classifier) (*thermo.Result, error) {
	if c == nil {
		if t.classifier == nil {
			return nil, errors.New("thermometer: no classifier")
		}
		var err error
		if c, err = t.classifier(); err != nil {
			return nil, err
		}
	}
	type outcome struct {
		res *thermo.Result
		err error
	}
	out := make(chan outcome, 1)
	res := &thermo.Result{}
	satisfied := false
	fn := func(r *run, f *thermo.Frame) {
		if satisfied {
			return
		}
		c.Classify(f, res)
		res.Latest = f
		t.framesClassified.Add(1)
		if res.Confident() {
			satisfied = true
			r.stop(errSatisfied)
		}
	}
	end := func(r *run, err error) {
		switch cause := context.Cause(r.ctx); {
		case cause == errSatisfied:
			out <- outcome{res: res}
		case err != nil:
			out <- outcome{err: err}
		case cause != nil:
			out <- outcome{err: cause}
		default:
			out <- outcome{err: ErrSessionEnded}
		}
	}
	r, err := t.open(ctx, newOwner("measure"), fn, end)
	if err != nil {
		if ctx.Err() != nil {
			t.measureCancelled.Add(1)
		} else {
			t.measureFailed.Add(1)
		}
		return nil, err
	}
	var o outcome
	select {
	case o = <-out:
	case <-ctx.Done():
		r.stop(ctx.Err())
		o = <-out
	}
	<-r.done
	switch {
	case o.err == nil:
		t.measurements.Add(1)
		r.log.WithField("temperature", o.res.Temperature).Debugf("measured %s", o.res)
	case errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded):
		t.measureCancelled.Add(1)
	default:
		t.measureFailed.Add(1)
	}
	return o.res, o.err
}
