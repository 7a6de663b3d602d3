// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package api

import (
	"testing"
	"time"

	"github.com/maruel/go-thermo/thermo"
)

func TestPushRequest_Validate(t *testing.T) {
	p := &PushRequest{}
	if p.Validate() == nil {
		t.Fatal("empty")
	}
	p.ID = 1
	p.Secret = []byte("x")
	if p.Validate() == nil {
		t.Fatal("no item")
	}
	p.Items = []PushRequestItem{{}}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestNewMeasurement(t *testing.T) {
	f, err := thermo.FrameFromRows([][]float32{{30, 31}, {36.5, 20}})
	if err != nil {
		t.Fatal(err)
	}
	r := &thermo.Result{Kind: thermo.Snapshot, Temperature: 36.5, Latest: f}
	m := NewMeasurement(r, 2, time.Second)
	if m.Kind != "Snapshot" || m.Temperature != 36.5 || m.Duration != time.Second {
		t.Fatalf("%+v", m)
	}
	if len(m.Hottest) != 2 || m.Hottest[0] != (Point{X: 0, Y: 1, Value: 36.5}) || m.Hottest[1].Value != 31 {
		t.Fatalf("%+v", m.Hottest)
	}
	if m := NewMeasurement(&thermo.Result{Kind: thermo.Average}, 2, 0); m.Hottest != nil {
		t.Fatal("no frame")
	}
	i := NewItem(time.Time{}, r, nil)
	if i.Kind != "Snapshot" || i.Temperature != 36.5 {
		t.Fatalf("%+v", i)
	}
}
