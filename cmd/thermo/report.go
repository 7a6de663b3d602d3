// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/maruel/go-thermo/thermo"
	"github.com/sirupsen/logrus"
)

// reporter classifies the observed frames and reports each confident result.
//
// After a report, frames are ignored for cooldown and a fresh classifier is
// started.
type reporter struct {
	factory  thermo.ClassifierFactory
	cooldown time.Duration
	onResult func(r *thermo.Result)
	now      func() time.Time
	log      logrus.FieldLogger

	c     thermo.Classifier
	res   thermo.Result
	until time.Time
}

func newReporter(f thermo.ClassifierFactory, onResult func(r *thermo.Result)) *reporter {
	return &reporter{
		factory:  f,
		cooldown: 5 * time.Second,
		onResult: onResult,
		now:      time.Now,
		log:      logrus.WithField("component", "report"),
	}
}

// feed is called for every observed frame, from a single goroutine.
func (r *reporter) feed(f *thermo.Frame) {
	now := r.now()
	if now.Before(r.until) {
		return
	}
	if r.c == nil {
		c, err := r.factory()
		if err != nil {
			r.log.WithError(err).Error("failed to create classifier")
			r.until = now.Add(r.cooldown)
			return
		}
		r.c = c
		r.res = thermo.Result{}
	}
	r.c.Classify(f, &r.res)
	r.res.Latest = f
	if !r.res.Confident() {
		return
	}
	res := r.res
	r.c = nil
	r.until = now.Add(r.cooldown)
	r.log.Infof("measured %s", &res)
	r.onResult(&res)
}
