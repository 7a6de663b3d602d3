// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/go-thermo/palette"
)

func TestLoadConfig_create(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "thermo.json")
	c, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor != "lepton" || c.Classifier != "average" || !c.ResumeOnFailure || c.End != 41 {
		t.Fatalf("%+v", c)
	}
	// The normalized file was written.
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	c2 := &Config{}
	if err := json.Unmarshal(data, c2); err != nil {
		t.Fatal(err)
	}
	if *c2 != *c {
		t.Fatalf("%+v != %+v", c2, c)
	}
}

func TestLoadConfig_normalize(t *testing.T) {
	p := filepath.Join(t.TempDir(), "thermo.json")
	if err := os.WriteFile(p, []byte(`{"sensor": "fake", "push": {"id": 2}}`), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor != "fake" || c.Push.ID != 2 || c.Classifier != "average" {
		t.Fatalf("%+v", c)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["resume_on_failure"]; !ok {
		t.Fatalf("not normalized: %s", data)
	}
	// Loading again doesn't change it.
	if _, err := LoadConfig(p); err != nil {
		t.Fatal(err)
	}
	data2, _ := os.ReadFile(p)
	if string(data) != string(data2) {
		t.Fatal("unstable normalization")
	}
}

func TestLoadConfig_invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "thermo.json")
	if err := os.WriteFile(p, []byte(`{`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected error")
	}
	// The file is left untouched.
	if data, _ := os.ReadFile(p); string(data) != "{" {
		t.Fatal(string(data))
	}
}

func TestLoadConfig_yaml(t *testing.T) {
	p := filepath.Join(t.TempDir(), "thermo.yaml")
	y := "sensor: fake\nclassifier: snapshot\nstart: 10\nmarker: 0\nresume_on_failure: false\npush:\n  id: 3\n  secret: s\n  server: example.com\n"
	if err := os.WriteFile(p, []byte(y), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sensor != "fake" || c.Classifier != "snapshot" || c.Start != 10 || c.End != 41 || c.ResumeOnFailure {
		t.Fatalf("%+v", c)
	}
	if !c.Push.isValid() {
		t.Fatalf("%+v", c.Push)
	}
	if o := c.paletteOptions(); o.Extra != nil || o.Start != 10 {
		t.Fatalf("%+v", o)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestConfig_paletteOptions(t *testing.T) {
	c := defaultConfig()
	o := c.paletteOptions()
	d := palette.DefaultOptions()
	if o.Start != d.Start || o.End != d.End || o.Compensation != d.Compensation || o.Scale != d.Scale {
		t.Fatalf("%+v", o)
	}
	r, ok := o.Extra.(*palette.CenterRect)
	if !ok || r.Size != 20 {
		t.Fatalf("%#v", o.Extra)
	}
}
