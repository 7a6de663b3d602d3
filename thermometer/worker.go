// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

var errWorkerClosed = errors.New("thermometer: closed")

// worker runs session jobs one at a time on a single OS thread, since drivers
// are not guaranteed to be reentrant.
type worker struct {
	jobs     chan func()
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

func newWorker() *worker {
	w := &worker{
		jobs: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j()
		}
	}
}

// submit hands j to the worker. It blocks while a previous job is still
// running.
func (w *worker) submit(ctx context.Context, j func()) error {
	select {
	case <-w.quit:
		return errWorkerClosed
	default:
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return errWorkerClosed
	}
}

// close stops accepting jobs and waits for the running one to return.
func (w *worker) close() {
	w.quitOnce.Do(func() { close(w.quit) })
	<-w.done
}
