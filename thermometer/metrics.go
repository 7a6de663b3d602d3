// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermometer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports Stats as Prometheus metrics.
type Collector struct {
	t      *Thermometer
	active *prometheus.Desc
	descs  []*prometheus.Desc
}

// NewCollector returns a Collector for t. Register it with a
// prometheus.Registerer.
func NewCollector(t *Thermometer, namespace string) *Collector {
	d := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		t:      t,
		active: d("session_active", "1 while a sensor session is live."),
		descs: []*prometheus.Desc{
			d("sessions_total", "Sensor sessions opened."),
			d("session_busy_total", "Requests rejected because the session was busy."),
			d("device_errors_total", "Sensor faults."),
			d("frames_delivered_total", "Frames returned to stream consumers."),
			d("frames_dropped_total", "Frames overwritten before being consumed."),
			d("frames_classified_total", "Frames fed to classifiers."),
			d("measurements_total", "Confident measurements returned."),
			d("measurements_cancelled_total", "Measurements cancelled by the caller."),
			d("measurements_failed_total", "Measurements that failed."),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.t.Stats()
	active := 0.
	if c.t.Holder() != "" {
		active = 1
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, active)
	for i, v := range []uint64{
		s.Sessions,
		s.Busy,
		s.DeviceErrors,
		s.FramesDelivered,
		s.FramesDropped,
		s.FramesClassified,
		s.Measurements,
		s.MeasureCancelled,
		s.MeasureFailed,
	} {
		ch <- prometheus.MustNewConstMetric(c.descs[i], prometheus.CounterValue, float64(v))
	}
}
