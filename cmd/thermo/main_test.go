// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/go-thermo/palette"
	"github.com/maruel/go-thermo/thermo"
)

func TestLoadPalette_wideWindow(t *testing.T) {
	c := defaultConfig()
	c.Start = -20
	c.End = 120
	o := c.paletteOptions()
	p, err := loadPalette("", &o)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != o.Buckets() || p.Len() != 1400 {
		t.Fatal(p.Len())
	}
	if _, err := palette.Map(thermo.NewFrame(4, 4), p, &o); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPalette_tooShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 100, 1))); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	o := palette.DefaultOptions()
	if _, err := loadPalette(path, &o); !errors.Is(err, palette.ErrPaletteTooShort) {
		t.Fatal(err)
	}
	o.End = o.Start
	if _, err := loadPalette("", &o); err == nil {
		t.Fatal("expected invalid window")
	}
}
