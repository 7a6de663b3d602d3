// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermo serves a live color mapped view of a thermal sensor and one-shot
// body temperature measurements.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/maruel/go-thermo/api"
	_ "github.com/maruel/go-thermo/classify"
	"github.com/maruel/go-thermo/lepton"
	"github.com/maruel/go-thermo/palette"
	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
	"github.com/maruel/go-thermo/thermometer"
	_ "github.com/maruel/go-thermo/thermotest"
	"github.com/maruel/interrupt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// sensorFactory resolves the sensor, honoring the bus names for the lepton.
func sensorFactory(c *Config) (thermo.SessionFactory, error) {
	if c.Sensor == "lepton" && (c.SPI != "" || c.I2C != "") {
		return lepton.Factory(&lepton.Opts{SPI: c.SPI, I2C: c.I2C}), nil
	}
	return registry.Default.Sensor(c.Sensor)
}

// loadPalette returns the palette at path, or the built-in one sized for o.
// A palette too short for the temperature window is an error.
func loadPalette(path string, o *palette.Options) (*palette.Palette, error) {
	if o.Buckets() <= 0 {
		return nil, errors.Errorf("invalid temperature window [%g, %g)", o.Start, o.End)
	}
	if path == "" {
		return palette.Ironbow(o.Buckets()), nil
	}
	p, err := palette.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if p.Len() < o.Buckets() {
		return nil, errors.Wrapf(palette.ErrPaletteTooShort, "%s has %d colors, need %d", path, p.Len(), o.Buckets())
	}
	return p, nil
}

// reloadPalette reloads the palette every time the file changes.
func reloadPalette(ctx context.Context, path string, s *webServer) {
	for {
		if err := watchFile(ctx, path); err != nil {
			logrus.WithError(err).Warn("stopped watching palette")
			return
		}
		if ctx.Err() != nil {
			return
		}
		p, err := loadPalette(path, &s.opts)
		if err != nil {
			logrus.WithError(err).Warn("failed to reload palette")
			continue
		}
		logrus.Infof("reloaded palette %s", path)
		s.setPalette(p)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "config file, .json or .yaml; defaults to ~/.config/thermo/thermo.json")
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	port := flag.Int("port", 8010, "http port to listen on")
	sensor := flag.String("sensor", "", "sensor to use, overrides the config: "+strings.Join(registry.Default.Sensors(), ", "))
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-interrupt.Channel
		cancel()
	}()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *sensor != "" {
		cfg.Sensor = *sensor
	}
	sf, err := sensorFactory(cfg)
	if err != nil {
		return err
	}
	cf, err := registry.Default.Classifier(cfg.Classifier)
	if err != nil {
		return err
	}
	opts := cfg.paletteOptions()
	pal, err := loadPalette(cfg.Palette, &opts)
	if err != nil {
		return err
	}
	th, err := thermometer.New(&thermometer.Options{Sensor: sf, Classifier: cf})
	if err != nil {
		return err
	}
	defer th.Close()

	info, err := th.Info(ctx)
	if err != nil {
		return errors.Wrapf(err, "%s\nIf testing without hardware, use -sensor fake to simulate a camera", cfg.Sensor)
	}
	logrus.WithFields(logrus.Fields{"sensor": cfg.Sensor, "version": info.Version}).Infof("ambient %.1f°C", thermo.Celsius(info.Ambient))

	s := newWebServer(th, cf, pal, opts, info)
	seeder := newSeeder(cfg.Push)
	if seeder != nil {
		s.onResult = func(r *thermo.Result, png []byte) {
			seeder.push(api.NewItem(time.Now().UTC(), r, png))
		}
		go seeder.run(ctx)
	}
	onFrame := s.addFrame
	if cfg.AutoReport {
		rep := newReporter(cf, func(r *thermo.Result) {
			if seeder != nil {
				seeder.push(api.NewItem(time.Now().UTC(), r, s.render(r.Latest)))
			}
		})
		onFrame = func(f *thermo.Frame) {
			s.addFrame(f)
			rep.feed(f)
		}
	}
	m := thermometer.NewMonitor(th, onFrame)
	m.ResumeOnFailure = cfg.ResumeOnFailure
	s.monitor = m

	reg := prometheus.NewRegistry()
	reg.MustRegister(thermometer.NewCollector(th, "thermo"))
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", *port),
		Handler:     s.routes(reg),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logrus.Infof("Listening on %d", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("http server failed")
			cancel()
		}
	}()
	if cfg.Palette != "" {
		go reloadPalette(ctx, cfg.Palette, s)
	}

	err = m.Run(ctx)
	s.close()
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	srv.Shutdown(sctx)
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermo: %s.\n", err)
		os.Exit(1)
	}
}
