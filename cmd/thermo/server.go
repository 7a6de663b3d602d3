// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/maruel/go-thermo/api"
	"github.com/maruel/go-thermo/palette"
	"github.com/maruel/go-thermo/thermo"
	"github.com/maruel/go-thermo/thermometer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

// webServer renders observed frames and serves one-shot measurements.
type webServer struct {
	th         *thermometer.Thermometer
	monitor    *thermometer.Monitor
	classifier thermo.ClassifierFactory
	opts       palette.Options
	info       *thermo.Info
	onResult   func(r *thermo.Result, png []byte)
	log        logrus.FieldLogger

	mu      sync.Mutex
	cond    *sync.Cond
	pal     *palette.Palette
	png     []byte       // Latest color mapped frame.
	meta    api.Metadata // Metadata of png.
	closed  bool
	mapErrs int
}

func newWebServer(th *thermometer.Thermometer, c thermo.ClassifierFactory, pal *palette.Palette, opts palette.Options, info *thermo.Info) *webServer {
	s := &webServer{
		th:         th,
		classifier: c,
		opts:       opts,
		info:       info,
		pal:        pal,
		log:        logrus.WithField("component", "web"),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// routes returns the HTTP handler. Metrics are gathered from g.
func (s *webServer) routes(g prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.root).Methods("GET")
	r.HandleFunc("/still.png", s.still).Methods("GET")
	r.Handle("/stream", websocket.Handler(s.stream))
	r.HandleFunc("/api/thermo/v1/measure", jsonAPI(s.measure))
	r.HandleFunc("/api/thermo/v1/info", s.infoHdlr).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return loggingHandler{handler: r, log: s.log}
}

// setPalette replaces the palette used for the following frames.
func (s *webServer) setPalette(p *palette.Palette) {
	s.mu.Lock()
	s.pal = p
	s.mapErrs = 0
	s.mu.Unlock()
}

// addFrame renders f and wakes up the streams. It is called by the Monitor.
func (s *webServer) addFrame(f *thermo.Frame) {
	s.mu.Lock()
	pal := s.pal
	s.mu.Unlock()
	img, err := palette.Map(f, pal, &s.opts)
	if err != nil {
		s.mu.Lock()
		s.mapErrs++
		n := s.mapErrs
		s.mu.Unlock()
		if n == 1 {
			s.log.WithError(err).Error("failed to render frame")
		}
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.log.WithError(err).Error("failed to encode frame")
		return
	}
	min, max := f.MinMax(f.Bounds())
	hot := thermo.Hottest(f, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.png = buf.Bytes()
	s.meta.Frame++
	s.meta.Min = min
	s.meta.Max = max
	if len(hot) != 0 {
		s.meta.Hottest = api.Point{X: hot[0].X, Y: hot[0].Y, Value: hot[0].Value}
	}
	s.cond.Broadcast()
}

// close wakes up the streams so they return.
func (s *webServer) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *webServer) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(read("root.html")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *webServer) still(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b := s.png
	s.mu.Unlock()
	if b == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(b)
}

// stream sends the latest images as WebSocket frames.
//
// Frames rendered while the previous one is being sent are skipped.
func (s *webServer) stream(w *websocket.Conn) {
	s.log.Debugf("websocket from %s", w.Request().RemoteAddr)
	defer w.Close()
	last := uint64(0)
	buf := &bytes.Buffer{}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for !s.closed && s.meta.Frame == last {
			s.cond.Wait()
		}
		if s.closed {
			return
		}
		img := s.png
		meta := s.meta
		meta.Dropped = meta.Frame - last - 1
		if last == 0 {
			meta.Dropped = 0
		}
		last = meta.Frame
		s.mu.Unlock()
		// Do the actual I/O without the lock.
		err := writeFrame(w, buf, img, &meta)
		s.mu.Lock()
		// To break out of the loop, the lock must be held.
		if err != nil {
			s.log.WithError(err).Debug("websocket closed")
			return
		}
	}
}

// measure runs a one-shot measurement. The optional "timeout" form value
// bounds it; otherwise it lasts until the client goes away.
func (s *webServer) measure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if t := r.FormValue("timeout"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			errorJSON(w, err, http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	var c thermo.Classifier
	if s.classifier != nil {
		var err error
		if c, err = s.classifier(); err != nil {
			errorJSON(w, err, http.StatusInternalServerError)
			return
		}
	}
	start := time.Now()
	res, err := s.monitor.Measure(ctx, c)
	if err != nil {
		errorJSON(w, err, statusOf(err))
		return
	}
	if s.onResult != nil {
		s.onResult(res, s.render(res.Latest))
	}
	returnJSON(w, api.NewMeasurement(res, 5, time.Since(start).Round(time.Millisecond)))
}

func (s *webServer) infoHdlr(w http.ResponseWriter, r *http.Request) {
	i := s.info
	if i == nil {
		i = &thermo.Info{}
	}
	returnJSON(w, api.NewInfo(i, s.th.Holder()))
}

// render returns f color mapped as a PNG, or nil.
func (s *webServer) render(f *thermo.Frame) []byte {
	if f == nil {
		return nil
	}
	s.mu.Lock()
	pal := s.pal
	s.mu.Unlock()
	img, err := palette.Map(f, pal, &s.opts)
	if err != nil {
		return nil
	}
	var buf bytes.Buffer
	if png.Encode(&buf, img) != nil {
		return nil
	}
	return buf.Bytes()
}

// Private details.

func writeFrame(w *websocket.Conn, buf *bytes.Buffer, img []byte, meta *api.Metadata) error {
	// Frame I is for Image.
	buf.Reset()
	buf.WriteString("I")
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	encoder.Write(img)
	encoder.Close()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	// Frame M is for Metadata.
	buf.Reset()
	buf.WriteString("M")
	if err := json.NewEncoder(buf).Encode(meta); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// statusOf maps a measurement error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, thermo.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case thermo.IsDeviceError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func returnJSON(w http.ResponseWriter, ret interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ret)
}

func errorJSON(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&api.Error{Error: err.Error()})
}

func jsonAPI(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			errorJSON(w, errors.New("only POST is supported"), http.StatusMethodNotAllowed)
			return
		}
		f(w, r)
	}
}

type loggingHandler struct {
	handler http.Handler
	log     logrus.FieldLogger
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

// ServeHTTP logs each HTTP request at debug level.
func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
	l.handler.ServeHTTP(lrw, r)
	l.log.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"status": lrw.status,
		"size":   lrw.length,
	}).Debugf("%s %s", r.Method, r.RequestURI)
}
