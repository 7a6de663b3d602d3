// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/maruel/go-thermo/palette"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Sensor          string     `json:"sensor" yaml:"sensor"`         // Registered sensor name.
	Classifier      string     `json:"classifier" yaml:"classifier"` // Registered classifier name.
	SPI             string     `json:"spi" yaml:"spi"`               // SPI port for the lepton sensor.
	I2C             string     `json:"i2c" yaml:"i2c"`               // I²C bus for the lepton sensor.
	Palette         string     `json:"palette" yaml:"palette"`       // PNG strip; empty uses the built-in ironbow.
	Start           float32    `json:"start" yaml:"start"`
	End             float32    `json:"end" yaml:"end"`
	Compensation    float32    `json:"compensation" yaml:"compensation"`
	Scale           int        `json:"scale" yaml:"scale"`
	Marker          int        `json:"marker" yaml:"marker"` // Center rectangle size in pixels; 0 disables it.
	ResumeOnFailure bool       `json:"resume_on_failure" yaml:"resume_on_failure"`
	AutoReport      bool       `json:"auto_report" yaml:"auto_report"`
	Push            PushConfig `json:"push" yaml:"push"`
}

// PushConfig describes where measurements are sent.
type PushConfig struct {
	ID     int64  `json:"id" yaml:"id"`
	Secret string `json:"secret" yaml:"secret"`
	Server string `json:"server" yaml:"server"` // Host name or base URL.
}

func (p *PushConfig) isValid() bool {
	return p.ID != 0 && len(p.Secret) != 0 && len(p.Server) != 0
}

// defaultConfig returns the values used for fields missing from the file.
func defaultConfig() *Config {
	o := palette.DefaultOptions()
	return &Config{
		Sensor:          "lepton",
		Classifier:      "average",
		Start:           o.Start,
		End:             o.End,
		Compensation:    o.Compensation,
		Scale:           o.Scale,
		Marker:          palette.DefaultCenterRect().Size,
		ResumeOnFailure: true,
	}
}

// paletteOptions returns the temperature window and rendering options.
func (c *Config) paletteOptions() palette.Options {
	o := palette.Options{Start: c.Start, End: c.End, Compensation: c.Compensation, Scale: c.Scale}
	if c.Marker > 0 {
		r := palette.DefaultCenterRect()
		r.Size = c.Marker
		o.Extra = r
	}
	return o
}

// defaultConfigPath returns ~/.config/thermo/thermo.json.
func defaultConfigPath() string {
	home := os.Getenv("HOME")
	if usr, err := user.Current(); err == nil {
		home = usr.HomeDir
	}
	return filepath.Join(home, ".config", "thermo", "thermo.json")
}

// LoadConfig loads path, or the default path if empty.
//
// A JSON file is normalized: it is created if missing and rewritten with all
// the fields if it differs. YAML files are only read.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	c := defaultConfig()
	srcData, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(srcData, c); err != nil {
			return nil, errors.Wrapf(err, "%s is invalid yaml", path)
		}
		return c, nil
	}
	if len(srcData) != 0 {
		if err := json.Unmarshal(srcData, c); err != nil {
			return nil, errors.Wrapf(err, "%s is invalid json", path)
		}
	}

	// Normalizes the config file.
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if !bytes.Equal(srcData, data) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			logrus.WithError(err).Warnf("failed to create %s", filepath.Dir(path))
		} else if err := os.WriteFile(path, data, 0600); err != nil {
			logrus.WithError(err).Warnf("failed to write %s", path)
		}
	}
	return c, nil
}
