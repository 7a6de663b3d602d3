// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermotest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/go-thermo/thermo"
	"periph.io/x/periph/conn/physic"
)

// Playback is a thermo.Session that replays scripted frames.
//
// Each delivered frame is a copy, so Frames can be reused across sessions.
// Once Frames are exhausted, Stream returns Err wrapped as a
// thermo.DeviceError, or keeps idling until stopped when Err is nil (or loops
// when Loop is set).
type Playback struct {
	Frames      []*thermo.Frame
	Err         error
	Loop        bool
	Interval    time.Duration // Delay before each frame; 0 means as fast as possible.
	Unavailable bool
	Firmware    string
	Housing     physic.Temperature

	streaming int32
	stopOnce  sync.Once
	stopMu    sync.Mutex
	stopped   chan struct{}
	delivered int32
	stopCalls int32
}

// Available implements thermo.Session.
func (p *Playback) Available() bool {
	return !p.Unavailable
}

// Stream implements thermo.Session.
func (p *Playback) Stream(ctx context.Context, fn func(f *thermo.Frame)) error {
	if !atomic.CompareAndSwapInt32(&p.streaming, 0, 1) {
		return thermo.ErrInvalidState
	}
	defer atomic.StoreInt32(&p.streaming, 0)
	stopped := p.stopChan()
	for i := 0; ; i++ {
		if i == len(p.Frames) {
			if p.Err != nil {
				return thermo.NewDeviceError("playback", p.Err)
			}
			if !p.Loop || len(p.Frames) == 0 {
				select {
				case <-ctx.Done():
				case <-stopped:
				}
				return nil
			}
			i = 0
		}
		var tick <-chan time.Time
		if p.Interval > 0 {
			tick = time.After(p.Interval)
		} else {
			c := make(chan time.Time, 1)
			c <- time.Time{}
			tick = c
		}
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			return nil
		case <-tick:
		}
		// Prioritize cancellation over a ready tick.
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			return nil
		default:
		}
		atomic.AddInt32(&p.delivered, 1)
		fn(p.Frames[i].Clone())
	}
}

// Stop implements thermo.Session.
func (p *Playback) Stop() {
	atomic.AddInt32(&p.stopCalls, 1)
	c := p.stopChan()
	p.stopOnce.Do(func() { close(c) })
}

// Delivered returns the number of frames handed to the callback.
func (p *Playback) Delivered() int {
	return int(atomic.LoadInt32(&p.delivered))
}

// StopCalls returns the number of times Stop was called.
func (p *Playback) StopCalls() int {
	return int(atomic.LoadInt32(&p.stopCalls))
}

// Streaming returns true while a Stream call is in flight.
func (p *Playback) Streaming() bool {
	return atomic.LoadInt32(&p.streaming) != 0
}

// Version implements thermo.Versioner.
func (p *Playback) Version() (string, error) {
	return p.Firmware, nil
}

// Ambient implements thermo.AmbientSensor.
func (p *Playback) Ambient() (physic.Temperature, error) {
	return p.Housing, nil
}

func (p *Playback) stopChan() chan struct{} {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()
	if p.stopped == nil {
		p.stopped = make(chan struct{})
	}
	return p.stopped
}

// Uniform returns a w x h frame where every cell is v.
func Uniform(w, h int, v float32) *thermo.Frame {
	f := thermo.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}
