// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermo-grab takes a single body temperature measurement.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"strings"
	"time"

	_ "github.com/maruel/go-thermo/classify"
	"github.com/maruel/go-thermo/lepton"
	"github.com/maruel/go-thermo/palette"
	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
	"github.com/maruel/go-thermo/thermometer"
	_ "github.com/maruel/go-thermo/thermotest"
	"github.com/maruel/interrupt"
	"github.com/sirupsen/logrus"
)

func mainImpl() error {
	sensorName := flag.String("sensor", "lepton", "sensor to use: "+strings.Join(registry.Default.Sensors(), ", "))
	classifierName := flag.String("classifier", "average", "classifier to use: "+strings.Join(registry.Default.Classifiers(), ", "))
	i2cName := flag.String("i2c", "", "I²C bus to use")
	spiName := flag.String("spi", "", "SPI bus to use")
	timeout := flag.Duration("timeout", 0, "give up after this duration; 0 waits until interrupted")
	out := flag.String("o", "", "save the last frame as a color mapped PNG")
	palettePath := flag.String("palette", "", "palette PNG; defaults to ironbow")
	hottest := flag.Int("hottest", 0, "print the N hottest cells")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument")
	}
	logrus.SetLevel(logrus.WarnLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var sf thermo.SessionFactory
	if *sensorName == "lepton" {
		sf = lepton.Factory(&lepton.Opts{SPI: *spiName, I2C: *i2cName})
	} else {
		var err error
		if sf, err = registry.Default.Sensor(*sensorName); err != nil {
			return err
		}
	}
	cf, err := registry.Default.Classifier(*classifierName)
	if err != nil {
		return err
	}
	defOpts := palette.DefaultOptions()
	pal := palette.Ironbow(defOpts.Buckets())
	if *palettePath != "" {
		if pal, err = palette.LoadFile(*palettePath); err != nil {
			return err
		}
	}

	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-interrupt.Channel
		cancel()
	}()
	if *timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	th, err := thermometer.New(&thermometer.Options{Sensor: sf, Classifier: cf})
	if err != nil {
		return err
	}
	defer th.Close()
	start := time.Now()
	res, err := th.Measure(ctx, nil)
	if err != nil {
		if thermo.IsDeviceError(err) && *sensorName == "lepton" {
			return fmt.Errorf("%s\nIf testing without hardware, use -sensor fake to simulate a camera", err)
		}
		return err
	}
	fmt.Printf("%s in %s\n", res, time.Since(start).Round(time.Millisecond))
	if *hottest > 0 {
		for _, p := range thermo.Hottest(res.Latest, *hottest) {
			fmt.Printf("  %s\n", p)
		}
	}
	if *out != "" {
		o := palette.DefaultOptions()
		o.Extra = palette.DefaultCenterRect()
		img, err := palette.Map(res.Latest, pal, &o)
		if err != nil {
			return err
		}
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermo-grab: %s.\n", err)
		os.Exit(1)
	}
}
