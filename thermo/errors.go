// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when Stream is called on a session that is
	// already streaming. It is a programming error.
	ErrInvalidState = errors.New("thermo: session is already streaming")
	// ErrSessionBusy is returned when another owner holds the hardware
	// session. Retry once the owner released it.
	ErrSessionBusy = errors.New("thermo: session busy")
	// ErrStreamClosed is returned by a frame stream after it was closed.
	ErrStreamClosed = errors.New("thermo: stream closed")
	// ErrUnavailable is wrapped in a DeviceError when the sensor reports it
	// is not available.
	ErrUnavailable = errors.New("thermo: sensor not available")
)

// DeviceError is a sensor I/O or driver fault.
type DeviceError struct {
	Op  string
	Err error
}

// NewDeviceError wraps err as a DeviceError, unless it already is one.
func NewDeviceError(op string, err error) error {
	var d *DeviceError
	if errors.As(err, &d) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}

func (d *DeviceError) Error() string {
	return fmt.Sprintf("thermo: %s: %s", d.Op, d.Err)
}

func (d *DeviceError) Unwrap() error {
	return d.Err
}

// IsDeviceError returns true if err is or wraps a DeviceError.
func IsDeviceError(err error) bool {
	var d *DeviceError
	return errors.As(err, &d)
}
