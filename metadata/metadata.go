// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package metadata provides a data structure to hold build metadata.
package metadata

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"go.chromium.org/infra/codesearch/packageindex/runtimex"
)

// Metadata holds arbitrary key-value pairs describing the build
// environment a record was extracted in. Some keys are well-known and
// set at creation:
//   - num_cpu: number of CPUs
//   - goos, goarch: the values of Go's GOOS/GOARCH constants
//   - cpu_brand: the CPU brand string, when identifiable
type Metadata struct {
	entries map[string]string
}

// New returns an initialized Metadata struct.
func New() Metadata {
	md := Metadata{
		entries: make(map[string]string),
	}
	md.entries["num_cpu"] = strconv.Itoa(runtimex.NumCPU())
	md.entries["goos"] = runtime.GOOS
	md.entries["goarch"] = runtime.GOARCH
	if brand := cpuid.CPU.BrandName; brand != "" {
		md.entries["cpu_brand"] = brand
	}
	return md
}

// Set sets a key-value pair in the metadata.
// Well-known keys cannot be overridden.
func (md Metadata) Set(key, value string) error {
	switch key {
	case "num_cpu", "goos", "goarch", "cpu_brand":
		return fmt.Errorf("cannot override well-known key %q in metadata", key)
	}
	md.entries[key] = value
	return nil
}

// Map returns a copy of all entries.
func (md Metadata) Map() map[string]string {
	m := make(map[string]string, len(md.entries))
	for k, v := range md.entries {
		m[k] = v
	}
	return m
}
