// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermometer bridges a blocking, single session thermal sensor to
// two consumption modes: a latest-value frame stream for live rendering and a
// one-shot confident measurement.
//
// At most one session is live at a time, arbitrated by an Arbiter, and every
// session call runs on a single dedicated worker goroutine.
package thermometer

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures a Thermometer.
type Options struct {
	// Sensor creates a session each time a stream or measurement starts.
	// Required.
	Sensor thermo.SessionFactory
	// Classifier is used by Measure when no classifier is supplied.
	Classifier thermo.ClassifierFactory
	// Log defaults to logrus.StandardLogger().
	Log logrus.FieldLogger
}

// Stats are cumulative counters.
type Stats struct {
	Sessions         uint64 // Sessions opened.
	Busy             uint64 // Requests rejected with thermo.ErrSessionBusy.
	DeviceErrors     uint64 //
	FramesDelivered  uint64 // Frames returned by Stream.Next.
	FramesDropped    uint64 // Frames overwritten before being consumed.
	FramesClassified uint64 //
	Measurements     uint64 // Confident results returned.
	MeasureCancelled uint64 //
	MeasureFailed    uint64 //
}

// Thermometer is the consumer facing API. It is safe for concurrent use.
type Thermometer struct {
	sensor     thermo.SessionFactory
	classifier thermo.ClassifierFactory
	log        logrus.FieldLogger
	arbiter    Arbiter
	worker     *worker

	sessions         atomic.Uint64
	busy             atomic.Uint64
	deviceErrors     atomic.Uint64
	framesDelivered  atomic.Uint64
	framesDropped    atomic.Uint64
	framesClassified atomic.Uint64
	measurements     atomic.Uint64
	measureCancelled atomic.Uint64
	measureFailed    atomic.Uint64
}

// New returns a Thermometer. Close it to stop the worker.
func New(o *Options) (*Thermometer, error) {
	if o.Sensor == nil {
		return nil, errors.New("thermometer: Sensor factory is required")
	}
	t := &Thermometer{sensor: o.Sensor, classifier: o.Classifier, log: o.Log, worker: newWorker()}
	if t.log == nil {
		t.log = logrus.StandardLogger()
	}
	return t, nil
}

// Close stops the worker. Streams and measurements must be terminated first;
// Close waits for the running one to return.
func (t *Thermometer) Close() error {
	t.worker.close()
	return nil
}

// Holder returns the owner of the session, or "" if idle.
func (t *Thermometer) Holder() string {
	return t.arbiter.Holder()
}

// Stats returns a snapshot of the counters.
func (t *Thermometer) Stats() Stats {
	return Stats{
		Sessions:         t.sessions.Load(),
		Busy:             t.busy.Load(),
		DeviceErrors:     t.deviceErrors.Load(),
		FramesDelivered:  t.framesDelivered.Load(),
		FramesDropped:    t.framesDropped.Load(),
		FramesClassified: t.framesClassified.Load(),
		Measurements:     t.measurements.Load(),
		MeasureCancelled: t.measureCancelled.Load(),
		MeasureFailed:    t.measureFailed.Load(),
	}
}

// Info opens a session just long enough to query it.
func (t *Thermometer) Info(ctx context.Context) (*thermo.Info, error) {
	owner := newOwner("info")
	if err := t.acquire(owner); err != nil {
		return nil, err
	}
	defer t.arbiter.Release(owner)
	type res struct {
		info *thermo.Info
		err  error
	}
	out := make(chan res, 1)
	job := func() {
		s, err := t.sensor()
		if err != nil {
			out <- res{err: thermo.NewDeviceError("open", err)}
			return
		}
		if c, ok := s.(io.Closer); ok {
			defer c.Close()
		}
		i := &thermo.Info{Available: s.Available()}
		if v, ok := s.(thermo.Versioner); ok {
			if i.Version, err = v.Version(); err != nil {
				out <- res{err: thermo.NewDeviceError("version", err)}
				return
			}
		}
		if a, ok := s.(thermo.AmbientSensor); ok {
			if i.Ambient, err = a.Ambient(); err != nil {
				out <- res{err: thermo.NewDeviceError("ambient", err)}
				return
			}
		}
		out <- res{info: i}
	}
	if err := t.worker.submit(ctx, job); err != nil {
		return nil, err
	}
	// The job doesn't block on the sensor stream so it is not cancellable.
	r := <-out
	if r.err != nil {
		t.deviceErrors.Add(1)
	}
	return r.info, r.err
}

// Private details.

// Cancel causes for a session, distinguishing why it was asked to close.
var (
	errConsumerClosed = errors.New("thermometer: closed by consumer")
	errSatisfied      = errors.New("thermometer: measurement complete")
)

// run is one session lifetime, from Arbiter acquisition to release.
type run struct {
	owner  string
	ctx    context.Context
	cancel context.CancelCauseFunc
	log    logrus.FieldLogger

	mu   sync.Mutex
	sess thermo.Session

	done chan struct{} // Closed once the session ended and the Arbiter was released.
}

// stop cancels the session with cause and asks the driver to return.
func (r *run) stop(cause error) {
	r.cancel(cause)
	r.mu.Lock()
	s := r.sess
	r.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

func (t *Thermometer) acquire(owner string) error {
	if err := t.arbiter.Acquire(owner); err != nil {
		t.busy.Add(1)
		return err
	}
	return nil
}

// open acquires the Arbiter for owner and starts a session on the worker.
//
// fn is called on the worker for each frame. end is called on the worker once
// the session ended, before the Arbiter is released. open returns once the
// session is streaming or failed to start.
func (t *Thermometer) open(ctx context.Context, owner string, fn func(r *run, f *thermo.Frame), end func(r *run, err error)) (*run, error) {
	if err := t.acquire(owner); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancelCause(context.Background())
	r := &run{
		owner:  owner,
		ctx:    sctx,
		cancel: cancel,
		log:    t.log.WithField("owner", owner),
		done:   make(chan struct{}),
	}
	ready := make(chan error, 1)
	job := func() {
		err := t.session(r, ready, fn)
		if err != nil && !errors.Is(err, thermo.ErrInvalidState) {
			t.deviceErrors.Add(1)
			r.log.WithError(err).Warn("session failed")
		}
		end(r, err)
		cancel(nil)
		t.arbiter.Release(owner)
		r.log.Debug("session released")
		close(r.done)
	}
	if err := t.worker.submit(ctx, job); err != nil {
		cancel(nil)
		t.arbiter.Release(owner)
		return nil, err
	}
	select {
	case err := <-ready:
		if err != nil {
			<-r.done
			return nil, err
		}
		return r, nil
	case <-ctx.Done():
		r.stop(context.Cause(ctx))
		<-r.done
		return nil, ctx.Err()
	}
}

// session runs on the worker.
func (t *Thermometer) session(r *run, ready chan<- error, fn func(r *run, f *thermo.Frame)) error {
	s, err := t.sensor()
	if err != nil {
		err = thermo.NewDeviceError("open", err)
		ready <- err
		return err
	}
	if c, ok := s.(io.Closer); ok {
		defer c.Close()
	}
	if !s.Available() {
		err = thermo.NewDeviceError("open", thermo.ErrUnavailable)
		ready <- err
		return err
	}
	r.mu.Lock()
	r.sess = s
	r.mu.Unlock()
	t.sessions.Add(1)
	r.log.Debug("session opened")
	ready <- nil
	if err = s.Stream(r.ctx, func(f *thermo.Frame) { fn(r, f) }); err != nil {
		if errors.Is(err, thermo.ErrInvalidState) {
			return err
		}
		return thermo.NewDeviceError("stream", err)
	}
	return nil
}

func newOwner(kind string) string {
	return kind + "-" + uuid.New().String()
}
