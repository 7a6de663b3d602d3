// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build debug
// +build debug

package main

import (
	"os"
	"path/filepath"
	"runtime"
)

// read reads the file from the source tree so it can be edited live.
func read(name string) []byte {
	_, file, _, _ := runtime.Caller(0)
	content, err := os.ReadFile(filepath.Join(filepath.Dir(file), "static", name))
	if err != nil {
		panic(err)
	}
	return content
}
