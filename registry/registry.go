// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package registry maps plugin names to sensor and classifier factories.
//
// Plugins register themselves explicitly, usually from an init() function in
// their package, the same way periph.io registers SPI and I²C buses. Hosts
// resolve a name once at startup and inject the factory into the engines.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/maruel/go-thermo/thermo"
	"github.com/pkg/errors"
)

// ErrNotRegistered is returned when resolving an unknown name.
var ErrNotRegistered = errors.New("registry: not registered")

// Registry holds named factories. The zero value is ready to use.
type Registry struct {
	mu          sync.Mutex
	sensors     map[string]thermo.SessionFactory
	classifiers map[string]thermo.ClassifierFactory
}

// Default is the process wide registry used by the plugin packages.
var Default = &Registry{}

// RegisterSensor registers a sensor factory. Registering the same name twice
// fails.
func (r *Registry) RegisterSensor(name string, f thermo.SessionFactory) error {
	if name == "" || f == nil {
		return errors.New("registry: name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sensors == nil {
		r.sensors = map[string]thermo.SessionFactory{}
	}
	if _, ok := r.sensors[name]; ok {
		return errors.Errorf("registry: sensor %q already registered", name)
	}
	r.sensors[name] = f
	return nil
}

// RegisterClassifier registers a classifier factory. Registering the same name
// twice fails.
func (r *Registry) RegisterClassifier(name string, f thermo.ClassifierFactory) error {
	if name == "" || f == nil {
		return errors.New("registry: name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.classifiers == nil {
		r.classifiers = map[string]thermo.ClassifierFactory{}
	}
	if _, ok := r.classifiers[name]; ok {
		return errors.Errorf("registry: classifier %q already registered", name)
	}
	r.classifiers[name] = f
	return nil
}

// Sensor resolves a sensor factory. The returned factory never panics: a
// panicking plugin is reported as an error, and so is a nil session, typed
// or not.
func (r *Registry) Sensor(name string) (thermo.SessionFactory, error) {
	r.mu.Lock()
	f, ok := r.sensors[name]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "sensor %q", name)
	}
	return func() (s thermo.Session, err error) {
		defer recoverTo(&err, "sensor", name)
		if s, err = f(); err == nil && isNil(s) {
			err = errors.Errorf("registry: sensor %q returned nil", name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "sensor %q", name)
		}
		return s, nil
	}, nil
}

// Classifier resolves a classifier factory. The returned factory never panics.
func (r *Registry) Classifier(name string) (thermo.ClassifierFactory, error) {
	r.mu.Lock()
	f, ok := r.classifiers[name]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "classifier %q", name)
	}
	return func() (c thermo.Classifier, err error) {
		defer recoverTo(&err, "classifier", name)
		if c, err = f(); err == nil && isNil(c) {
			err = errors.Errorf("registry: classifier %q returned nil", name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "classifier %q", name)
		}
		return c, nil
	}, nil
}

// Sensors returns the registered sensor names, sorted.
func (r *Registry) Sensors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sensors))
	for k := range r.sensors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Classifiers returns the registered classifier names, sorted.
func (r *Registry) Classifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.classifiers))
	for k := range r.classifiers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MustRegisterSensor registers into Default and panics on failure. It is
// meant to be called from init().
func MustRegisterSensor(name string, f thermo.SessionFactory) {
	if err := Default.RegisterSensor(name, f); err != nil {
		panic(err)
	}
}

// MustRegisterClassifier registers into Default and panics on failure. It is
// meant to be called from init().
func MustRegisterClassifier(name string, f thermo.ClassifierFactory) {
	if err := Default.RegisterClassifier(name, f); err != nil {
		panic(err)
	}
}

//

func recoverTo(err *error, kind, name string) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("registry: %s %q panicked: %v", kind, name, v)
	}
}

// isNil returns true for a nil interface and for a nil pointer stored in one.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return r.IsNil()
	}
	return false
}
