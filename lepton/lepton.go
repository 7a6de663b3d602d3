// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lepton exposes a radiometric FLIR Lepton connected over SPI and I²C
// as a thermo.Session.
//
// The Lepton must run in radiometric TLinear mode, where each pixel is the
// scene temperature in centi-Kelvin. This is the default on Lepton 2.5 and
// 3.5.
//
// Importing this package registers the sensor "lepton" using the first
// available SPI port and I²C bus.
//
// References:
//
// FLIR LEPTON® Long Wave Infrared (LWIR) Datasheet
//   http://cvs.flir.com/lepton-data-brief
//   p. 7 Sensitivity is below 0.05°C
//   p. 28-35 SPI protocol explanation.
//
// Connecting to a Raspberry Pi:
//   https://github.com/PureEngineering/LeptonModule/wiki
package lepton

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"

	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/devices/lepton"
	"periph.io/x/periph/devices/lepton/image14bit"
	"periph.io/x/periph/host"
)

// Dev is the part of a periph.io lepton.Dev used by Session. It can be mocked.
type Dev interface {
	NextFrame(img *lepton.Frame) error
	Bounds() image.Rectangle
	GetSerial() (uint64, error)
	GetTempHousing() (physic.Temperature, error)
}

// Opts selects the buses to use. Empty names select the first bus found.
type Opts struct {
	SPI   string
	I2C   string
	SPIHz physic.Frequency // 0 keeps the driver default.
	I2CHz physic.Frequency // 0 keeps the driver default.
}

// Session streams frames from a Lepton.
type Session struct {
	dev     Dev
	closers []io.Closer

	streaming int32
	stopMu    sync.Mutex
	stopped   chan struct{}
	stopOnce  sync.Once
}

// Open initializes the host drivers and connects to the camera.
func Open(o *Opts) (*Session, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	spiPort, err := spireg.Open(o.SPI)
	if err != nil {
		return nil, errors.Wrap(err, "spi")
	}
	if o.SPIHz != 0 {
		if err := spiPort.LimitSpeed(o.SPIHz); err != nil {
			spiPort.Close()
			return nil, err
		}
	}
	i2cBus, err := i2creg.Open(o.I2C)
	if err != nil {
		spiPort.Close()
		return nil, errors.Wrap(err, "i2c")
	}
	if o.I2CHz != 0 {
		if err := i2cBus.SetSpeed(o.I2CHz); err != nil {
			i2cBus.Close()
			spiPort.Close()
			return nil, err
		}
	}
	dev, err := lepton.New(spiPort, i2cBus)
	if err != nil {
		i2cBus.Close()
		spiPort.Close()
		return nil, err
	}
	logrus.WithField("sensor", "lepton").Debugf("opened %s", dev)
	return New(dev, i2cBus, spiPort), nil
}

// New wraps an already opened device. closers are closed in order by Close.
func New(d Dev, closers ...io.Closer) *Session {
	return &Session{dev: d, closers: closers}
}

// Factory returns a thermo.SessionFactory opening a camera with o.
func Factory(o *Opts) thermo.SessionFactory {
	opts := *o
	return func() (thermo.Session, error) {
		return Open(&opts)
	}
}

// Available implements thermo.Session.
func (s *Session) Available() bool {
	return s.dev != nil
}

// Stream implements thermo.Session.
//
// A frame read blocks for up to one frame period, so Stop and ctx are
// honored between frames.
func (s *Session) Stream(ctx context.Context, fn func(f *thermo.Frame)) error {
	if !atomic.CompareAndSwapInt32(&s.streaming, 0, 1) {
		return thermo.ErrInvalidState
	}
	defer atomic.StoreInt32(&s.streaming, 0)
	stopped := s.stopChan()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			return nil
		default:
		}
		raw := lepton.Frame{Gray14: image14bit.NewGray14(s.dev.Bounds())}
		if err := s.dev.NextFrame(&raw); err != nil {
			return err
		}
		f := thermo.NewFrame(raw.Bounds().Dx(), raw.Bounds().Dy())
		Convert(&raw, f)
		fn(f)
	}
}

// Stop implements thermo.Session.
func (s *Session) Stop() {
	c := s.stopChan()
	s.stopOnce.Do(func() { close(c) })
}

// Close releases the buses.
func (s *Session) Close() error {
	var err error
	for _, c := range s.closers {
		if err1 := c.Close(); err == nil {
			err = err1
		}
	}
	s.closers = nil
	return err
}

// Version implements thermo.Versioner. The Lepton doesn't report its firmware
// over CCI so the serial number is used instead.
func (s *Session) Version() (string, error) {
	serial, err := s.dev.GetSerial()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("lepton-%#x", serial), nil
}

// Ambient implements thermo.AmbientSensor. It is the housing temperature.
func (s *Session) Ambient() (physic.Temperature, error) {
	return s.dev.GetTempHousing()
}

// Convert converts a TLinear frame in centi-Kelvin to °C into dst, which
// must be the same size.
func Convert(src *lepton.Frame, dst *thermo.Frame) {
	b := src.Bounds()
	for y := 0; y < dst.H; y++ {
		for x := 0; x < dst.W; x++ {
			dst.Set(x, y, CentiKToC(uint16(src.Intensity14At(b.Min.X+x, b.Min.Y+y))))
		}
	}
}

// CentiKToC converts a raw TLinear value to °C.
func CentiKToC(v uint16) float32 {
	return float32(v)/100 - 273.15
}

// Private details.

func (s *Session) stopChan() chan struct{} {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stopped == nil {
		s.stopped = make(chan struct{})
	}
	return s.stopped
}

func init() {
	registry.MustRegisterSensor("lepton", Factory(&Opts{}))
}
