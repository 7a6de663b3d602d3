// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/maruel/go-thermo/thermotest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	pb := &playbacks{frames: seq(1), loop: true, interval: time.Millisecond}
	th := newThermometer(t, pb.factory)
	if _, err := th.Measure(context.Background(), &thermotest.Classifier{After: 2}); err != nil {
		t.Fatal(err)
	}
	c := NewCollector(th, "thermo")
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(c); n != 10 {
		t.Fatal(n)
	}
	expected := `
# HELP thermo_measurements_total Confident measurements returned.
# TYPE thermo_measurements_total counter
thermo_measurements_total 1
# HELP thermo_session_active 1 while a sensor session is live.
# TYPE thermo_session_active gauge
thermo_session_active 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "thermo_measurements_total", "thermo_session_active"); err != nil {
		t.Fatal(err)
	}
}
