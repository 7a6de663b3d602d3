// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"
	"sync"

	"github.com/maruel/go-thermo/thermo"
)

// Stream is an infinite, non-restartable sequence of frames.
//
// It holds a single slot: when the consumer is slower than the sensor, unread
// frames are overwritten so Next always returns the most recent one. The
// sensor is never blocked by the consumer.
//
// Next must be called from a single goroutine. Close is safe to call from
// any goroutine.
type Stream struct {
	t      *Thermometer
	run    *run
	notify chan struct{} // Capacity 1; wakes Next.

	mu        sync.Mutex
	stopWatch func() bool   // Unregisters the ctx watch; nil until Observe returns.
	frame     *thermo.Frame // Unread frame, nil once consumed.
	err       error         // Terminal error, returned once by Next.
	ended     bool          // The session returned.
	closed    bool          // Close was called or the terminal error was returned.
	dropped   uint64
	delivered uint64
}

// Observe starts a session and returns its frame stream.
//
// It fails with thermo.ErrSessionBusy if a session is already live. The
// stream is closed automatically when ctx is done; it then stops the session
// and releases the Arbiter.
func (t *Thermometer) Observe(ctx context.Context) (*Stream, error) {
	s := &Stream{t: t, notify: make(chan struct{}, 1)}
	r, err := t.open(ctx, newOwner("observe"), s.publish, s.end)
	if err != nil {
		return nil, err
	}
	s.run = r
	stop := context.AfterFunc(ctx, func() { s.Close() })
	s.mu.Lock()
	s.stopWatch = stop
	s.mu.Unlock()
	return s, nil
}

// Next returns the latest unread frame, blocking until one is available.
//
// Once the session ended with a device error, that error is returned once;
// subsequent calls, and calls after Close, return thermo.ErrStreamClosed.
func (s *Stream) Next(ctx context.Context) (*thermo.Frame, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, thermo.ErrStreamClosed
		}
		if f := s.frame; f != nil {
			s.frame = nil
			s.delivered++
			s.mu.Unlock()
			s.t.framesDelivered.Add(1)
			return f, nil
		}
		if s.ended {
			err := s.err
			if err == nil {
				err = thermo.ErrStreamClosed
			}
			s.closed = true
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close stops the session and returns once the Arbiter slot is released. No
// frame is delivered afterward. It is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.frame = nil
	stop := s.stopWatch
	s.mu.Unlock()
	s.wake()
	s.run.stop(errConsumerClosed)
	<-s.run.done
	if stop != nil {
		stop()
	}
	return nil
}

// Done is closed once the session ended and the Arbiter was released.
func (s *Stream) Done() <-chan struct{} {
	return s.run.done
}

// Err returns the device error that ended the session, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of frames overwritten before being read.
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Delivered returns the number of frames returned by Next.
func (s *Stream) Delivered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// Private details.

// publish runs on the worker.
func (s *Stream) publish(r *run, f *thermo.Frame) {
	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return
	}
	if s.frame != nil {
		s.dropped++
		s.t.framesDropped.Add(1)
	}
	s.frame = f
	s.mu.Unlock()
	s.wake()
}

// end runs on the worker.
func (s *Stream) end(r *run, err error) {
	s.mu.Lock()
	s.ended = true
	s.err = err
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
