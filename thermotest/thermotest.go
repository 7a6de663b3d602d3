// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermotest implements fake sensor sessions and classifiers.
//
// Importing this package registers the "fake" sensor in registry.Default.
package thermotest

import (
	"context"
	"image"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
	"periph.io/x/periph/conn/physic"
)

func init() {
	registry.MustRegisterSensor("fake", func() (thermo.Session, error) {
		return New(32, 32), nil
	})
}

// Session is a fake thermo.Session rendering a warm face-like blob over a
// room temperature background.
type Session struct {
	W        int
	H        int
	Interval time.Duration // Delay between frames. Defaults to ~9Hz.

	mu        sync.Mutex
	noise     *noise
	frames    int
	streaming int32
	stopOnce  sync.Once
	stopped   chan struct{}
}

// New returns a fake session producing w x h frames.
func New(w, h int) *Session {
	return &Session{
		W:        w,
		H:        h,
		Interval: 111 * time.Millisecond,
		noise:    makeNoise(w, h),
		stopped:  make(chan struct{}),
	}
}

// Available implements thermo.Session.
func (s *Session) Available() bool {
	return true
}

// Stream implements thermo.Session.
func (s *Session) Stream(ctx context.Context, fn func(f *thermo.Frame)) error {
	if !atomic.CompareAndSwapInt32(&s.streaming, 0, 1) {
		return thermo.ErrInvalidState
	}
	defer atomic.StoreInt32(&s.streaming, 0)
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopped:
			return nil
		case <-t.C:
		}
		s.mu.Lock()
		f := thermo.NewFrame(s.W, s.H)
		s.noise.update()
		s.noise.render(f)
		s.frames++
		s.mu.Unlock()
		fn(f)
	}
}

// Stop implements thermo.Session.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Frames returns the number of frames produced so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Version implements thermo.Versioner.
func (s *Session) Version() (string, error) {
	return "fake-1.0", nil
}

// Ambient implements thermo.AmbientSensor.
func (s *Session) Ambient() (physic.Temperature, error) {
	return physic.ZeroCelsius + 25*physic.Celsius, nil
}

// Face returns the region where the warm blob is rendered.
func (s *Session) Face() image.Rectangle {
	return image.Rect(s.W/4, s.H/4, s.W*3/4, s.H*3/4)
}

//

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	w, h    int
	rand    *rand.Rand
	vectors []vector
}

func makeNoise(w, h int) *noise {
	n := &noise{w: w, h: h, rand: rand.New(rand.NewSource(0))}
	n.vectors = make([]vector, 6)
	for i := range n.vectors {
		n.vectors[i].intensity = 8 + n.rand.NormFloat64()
		n.vectors[i].x = float64(w)/2 + n.rand.NormFloat64()*float64(w)/16
		n.vectors[i].y = float64(h)/2 + n.rand.NormFloat64()*float64(h)/16
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.05
		n.vectors[i].x += n.rand.NormFloat64() * 0.05
		n.vectors[i].y += n.rand.NormFloat64() * 0.05
	}
}

// render paints a room at 25°C with a blob peaking around 36°C.
func (n *noise) render(f *thermo.Frame) {
	for y := 0; y < n.h; y++ {
		fy := float64(y)
		for x := 0; x < n.w; x++ {
			fx := float64(x)
			value := 25.
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy)
				value += vect.intensity / (1 + distance/4)
			}
			if value > 36.8 {
				value = 36.8
			}
			f.Pix[y*n.w+x] = float32(value + n.rand.NormFloat64()*0.05)
		}
	}
}
