// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermo-query queries the sensor for its state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/maruel/go-thermo/lepton"
	"github.com/maruel/go-thermo/registry"
	"github.com/maruel/go-thermo/thermo"
	"github.com/maruel/go-thermo/thermometer"
	_ "github.com/maruel/go-thermo/thermotest"
	"github.com/sirupsen/logrus"
)

func mainImpl() error {
	sensorName := flag.String("sensor", "lepton", "sensor to use: "+strings.Join(registry.Default.Sensors(), ", "))
	i2cName := flag.String("i2c", "", "I²C bus to use")
	spiName := flag.String("spi", "", "SPI bus to use")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
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
	th, err := thermometer.New(&thermometer.Options{Sensor: sf})
	if err != nil {
		return err
	}
	defer th.Close()
	i, err := th.Info(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Available: %t\n", i.Available)
	fmt.Printf("Version:   %s\n", i.Version)
	fmt.Printf("Ambient:   %.2f°C\n", thermo.Celsius(i.Ambient))
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermo-query: %s.\n", err)
		os.Exit(1)
	}
}
