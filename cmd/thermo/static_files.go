// Copyright 2021 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !debug
// +build !debug

package main

import (
	"embed"
)

//go:embed static
var staticFiles embed.FS

func read(name string) []byte {
	content, err := staticFiles.ReadFile("static/" + name)
	if err != nil {
		panic(err)
	}
	return content
}
