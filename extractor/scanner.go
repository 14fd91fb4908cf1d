// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package extractor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.chromium.org/infra/codesearch/packageindex/toolsupport/gccutil"
	"go.chromium.org/infra/codesearch/packageindex/toolsupport/msvcutil"
)

// gccScanner runs the compiler's preprocessor in -M mode.
type gccScanner struct {
	timeout time.Duration
}

func (s gccScanner) ScanDeps(ctx context.Context, inv Invocation) ([]string, error) {
	return gccutil.Deps(ctx, inv.Args, inv.Env, inv.Dir, s.timeout)
}

// msvcScanner runs cl.exe or clang-cl with /showIncludes.
type msvcScanner struct {
	timeout time.Duration
}

func (s msvcScanner) ScanDeps(ctx context.Context, inv Invocation) ([]string, error) {
	return msvcutil.Deps(ctx, inv.Args, inv.Env, inv.Dir, s.timeout)
}

// filepathsScanner reads a <source>.filepaths sidecar written by the
// build system, one input path per line.
type filepathsScanner struct{}

func (filepathsScanner) ScanDeps(ctx context.Context, inv Invocation) ([]string, error) {
	fname := inv.Source + ".filepaths"
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(inv.Dir, fname)
	}
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("source %s has no filepaths sidecar: %w", inv.Source, err)
	}
	defer f.Close()
	var deps []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		deps = append(deps, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", fname, err)
	}
	return deps, nil
}
