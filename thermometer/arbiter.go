// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"
	"sync"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

// Arbiter grants exclusive ownership of the single hardware session.
//
// The zero value is ready to use.
type Arbiter struct {
	mu     sync.Mutex
	holder string
	free   chan struct{} // Closed on release.
}

// Acquire takes ownership for owner. It fails with thermo.ErrSessionBusy if
// another owner holds it. Acquiring again as the current holder is a no-op.
func (a *Arbiter) Acquire(owner string) error {
	if owner == "" {
		return errors.New("thermometer: empty owner")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder == owner {
		return nil
	}
	if a.holder != "" {
		return errors.Wrapf(thermo.ErrSessionBusy, "held by %s", a.holder)
	}
	a.holder = owner
	a.free = make(chan struct{})
	return nil
}

// AcquireWait is Acquire but waits for the current holder to release instead
// of failing.
func (a *Arbiter) AcquireWait(ctx context.Context, owner string) error {
	for {
		err := a.Acquire(owner)
		if !errors.Is(err, thermo.ErrSessionBusy) {
			return err
		}
		a.mu.Lock()
		free := a.free
		a.mu.Unlock()
		if free == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-free:
		}
	}
}

// Release gives up ownership. It returns false, doing nothing, if owner is not
// the current holder, so it is safe to call more than once.
func (a *Arbiter) Release(owner string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if owner == "" || a.holder != owner {
		return false
	}
	a.holder = ""
	close(a.free)
	return true
}

// Holder returns the current owner, or "" if free.
func (a *Arbiter) Holder() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holder
}
