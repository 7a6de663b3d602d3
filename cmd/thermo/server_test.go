// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maruel/go-thermo/api"
	"github.com/maruel/go-thermo/palette"
	"github.com/maruel/go-thermo/thermo"
	"github.com/maruel/go-thermo/thermometer"
	"github.com/maruel/go-thermo/thermotest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

func TestRoot(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != 200 || !strings.Contains(body, "/stream") {
		t.Fatal(resp.StatusCode, body)
	}
}

func TestStill(t *testing.T) {
	s, ts := newTestServer(t)
	if resp, _ := get(t, ts.URL+"/still.png"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatal(resp.StatusCode)
	}
	s.addFrame(thermotest.Uniform(4, 3, 36.5))
	resp, err := http.Get(ts.URL + "/still.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatal(b)
	}
}

func TestMeasureHandler(t *testing.T) {
	s, ts := newTestServer(t)
	var pushed *thermo.Result
	var pushedPNG []byte
	s.onResult = func(r *thermo.Result, png []byte) {
		pushed = r
		pushedPNG = png
	}
	resp, body := post(t, ts.URL+"/api/thermo/v1/measure")
	if resp.StatusCode != 200 {
		t.Fatal(resp.StatusCode, body)
	}
	m := api.Measurement{}
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatal(err)
	}
	if m.Temperature != 36.5 || m.Kind != "Snapshot" || len(m.Hottest) != 5 {
		t.Fatalf("%+v", m)
	}
	if pushed == nil || pushed.Temperature != 36.5 || len(pushedPNG) == 0 {
		t.Fatal("result not reported")
	}
}

func TestMeasureHandler_errors(t *testing.T) {
	s, ts := newTestServer(t)
	if resp, _ := get(t, ts.URL+"/api/thermo/v1/measure"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatal(resp.StatusCode)
	}
	if resp, _ := post(t, ts.URL+"/api/thermo/v1/measure?timeout=bad"); resp.StatusCode != http.StatusBadRequest {
		t.Fatal(resp.StatusCode)
	}
	st, err := s.th.Observe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	resp, body := post(t, ts.URL+"/api/thermo/v1/measure")
	if resp.StatusCode != http.StatusConflict || !strings.Contains(body, "busy") {
		t.Fatal(resp.StatusCode, body)
	}
	st.Close()
	s.classifier = func() (thermo.Classifier, error) { return &thermotest.Classifier{}, nil }
	if resp, _ := post(t, ts.URL+"/api/thermo/v1/measure?timeout=20ms"); resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatal(resp.StatusCode)
	}
	if h := s.th.Holder(); h != "" {
		t.Fatal(h)
	}
}

func TestInfoHandler(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/thermo/v1/info")
	if resp.StatusCode != 200 {
		t.Fatal(resp.StatusCode)
	}
	i := api.Info{}
	if err := json.Unmarshal([]byte(body), &i); err != nil {
		t.Fatal(err)
	}
	if !i.Available || i.Version != "test" {
		t.Fatalf("%+v", i)
	}
}

func TestMetricsHandler(t *testing.T) {
	_, ts := newTestServer(t)
	post(t, ts.URL+"/api/thermo/v1/measure")
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 || !strings.Contains(body, "thermo_measurements_total 1") {
		t.Fatal(resp.StatusCode, body)
	}
}

func TestStream(t *testing.T) {
	s, ts := newTestServer(t)
	s.addFrame(thermotest.Uniform(4, 3, 36.5))
	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", "", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.SetDeadline(time.Now().Add(5 * time.Second))
	msg := ""
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatal(err)
	}
	if msg[0] != 'I' {
		t.Fatal(msg[:1])
	}
	raw, err := base64.StdEncoding.DecodeString(msg[1:])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(strings.NewReader(string(raw))); err != nil {
		t.Fatal(err)
	}
	if err := websocket.Message.Receive(ws, &msg); err != nil {
		t.Fatal(err)
	}
	if msg[0] != 'M' {
		t.Fatal(msg[:1])
	}
	meta := api.Metadata{}
	if err := json.Unmarshal([]byte(msg[1:]), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Frame != 1 || meta.Max != 36.5 || meta.Dropped != 0 {
		t.Fatalf("%+v", meta)
	}
}

//

func newTestServer(t *testing.T) (*webServer, *httptest.Server) {
	l := logrus.New()
	l.Out = io.Discard
	sensor := func() (thermo.Session, error) {
		return &thermotest.Playback{
			Frames:   []*thermo.Frame{thermotest.Uniform(4, 3, 36.5)},
			Loop:     true,
			Interval: time.Millisecond,
			Firmware: "test",
		}, nil
	}
	cf := func() (thermo.Classifier, error) { return &thermotest.Classifier{After: 2}, nil }
	th, err := thermometer.New(&thermometer.Options{Sensor: sensor, Classifier: cf, Log: l})
	if err != nil {
		t.Fatal(err)
	}
	info, err := th.Info(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s := newWebServer(th, cf, palette.Ironbow(360), palette.DefaultOptions(), info)
	s.log = l
	s.monitor = thermometer.NewMonitor(th, s.addFrame)
	reg := prometheus.NewRegistry()
	reg.MustRegister(thermometer.NewCollector(th, "thermo"))
	ts := httptest.NewServer(s.routes(reg))
	t.Cleanup(func() {
		s.close()
		ts.Close()
		th.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func post(t *testing.T, url string) (*http.Response, string) {
	resp, err := http.Post(url, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}
