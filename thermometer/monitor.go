// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"
	"sync"
	"time"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

// Monitor keeps a frame stream open and suspends it while a one-shot
// measurement is in flight.
//
// After the measurement, observation resumes. If ResumeOnFailure is false,
// a failed or cancelled measurement leaves observation paused until Resume is
// called.
type Monitor struct {
	ResumeOnFailure bool
	RetryDelay      time.Duration // Delay before reopening after a device error.

	t       *Thermometer
	onFrame func(f *thermo.Frame)
	wake    chan struct{}

	mu        sync.Mutex
	cond      *sync.Cond
	stream    *Stream
	opening   bool // Run is between Observe and publishing stream.
	measuring int
	paused    bool
}

// NewMonitor returns a Monitor calling onFrame for every frame observed.
// onFrame runs on the goroutine calling Run.
func NewMonitor(t *Thermometer, onFrame func(f *thermo.Frame)) *Monitor {
	m := &Monitor{
		ResumeOnFailure: true,
		RetryDelay:      time.Second,
		t:               t,
		onFrame:         onFrame,
		wake:            make(chan struct{}, 1),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Run observes frames until ctx is done. Device errors are logged and the
// stream reopened after RetryDelay.
func (m *Monitor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		m.mu.Lock()
		if m.measuring != 0 || m.paused {
			m.mu.Unlock()
			m.sleep(ctx, 0)
			continue
		}
		m.opening = true
		m.mu.Unlock()

		s, err := m.t.Observe(ctx)

		m.mu.Lock()
		if err == nil && (m.measuring != 0 || m.paused) {
			// A measurement started meanwhile; hand over the session.
			m.mu.Unlock()
			s.Close()
			m.mu.Lock()
			s = nil
		}
		m.opening = false
		m.stream = s
		m.cond.Broadcast()
		m.mu.Unlock()

		if err != nil {
			if ctx.Err() == nil {
				m.t.log.WithError(err).Warn("observe failed")
				m.sleep(ctx, m.RetryDelay)
			}
			continue
		}
		if s == nil {
			continue
		}
		err = m.pump(ctx, s)
		// Close before unpublishing so Measure never sees a stream that still
		// holds the Arbiter.
		s.Close()
		m.mu.Lock()
		if m.stream == s {
			m.stream = nil
		}
		m.mu.Unlock()
		if thermo.IsDeviceError(err) {
			m.t.log.WithError(err).Warn("stream failed")
			m.sleep(ctx, m.RetryDelay)
		}
	}
	return nil
}

// Measure suspends observation, runs a measurement and resumes observation.
func (m *Monitor) Measure(ctx context.Context, c thermo.Classifier) (*thermo.Result, error) {
	m.mu.Lock()
	m.measuring++
	for m.opening {
		m.cond.Wait()
	}
	s := m.stream
	m.stream = nil
	m.mu.Unlock()
	if s != nil {
		s.Close()
	}

	res, err := m.t.Measure(ctx, c)

	m.mu.Lock()
	m.measuring--
	if err != nil && !m.ResumeOnFailure {
		m.paused = true
	}
	m.mu.Unlock()
	m.signal()
	return res, errors.Wrap(err, "measure")
}

// Resume restarts observation paused after a failed measurement.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.signal()
}

// Paused returns true if observation stays suspended after a failure.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Private details.

func (m *Monitor) pump(ctx context.Context, s *Stream) error {
	for {
		f, err := s.Next(ctx)
		if err != nil {
			return err
		}
		m.onFrame(f)
	}
}

func (m *Monitor) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// sleep waits for d, a signal or ctx. d == 0 waits without timeout.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ctx.Done():
	case <-m.wake:
	case <-timeout:
	}
}
