// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package extractor determines the transitive set of files a
// compilation reads.
//
// Dependency discovery is compiler-family specific, so it is modeled
// as a Scanner selected by configuration: gcc-like drivers run the
// preprocessor in -M mode, msvc-like drivers use /showIncludes,
// build systems that record inputs themselves provide *.filepaths
// sidecar files, and a built-in include scanner can emulate discovery
// without any compiler at all.
//
// Whatever the scanner, Extract returns the same contract: the
// primary source first, then every other input in first-discovered
// order, deduplicated by resolved absolute path. The order is part of
// the contract; downstream record assembly must not re-sort it.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Invocation is one compiler invocation, as recorded by a build.
type Invocation struct {
	// Args is the argument vector. Args[0] is the compiler.
	Args []string

	// Env is the environment for dependency discovery subprocesses.
	Env []string

	// Dir is the absolute working directory of the compilation.
	Dir string

	// Source is the primary source file, as passed to the compiler.
	Source string
}

// Error is a dependency extraction failure. The whole record assembly
// for the affected compilation is aborted; partial dependency sets
// are never returned.
type Error struct {
	Source string
	Err    error
}

func (e Error) Error() string {
	return fmt.Sprintf("extract deps for %s: %v", e.Source, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Scanner discovers the files an invocation reads.
// Returned paths may be absolute or relative to the invocation's
// working directory, in discovery order, possibly with duplicates.
type Scanner interface {
	ScanDeps(ctx context.Context, inv Invocation) ([]string, error)
}

// Compiler families a Scanner can be selected for.
const (
	FamilyGCC       = "gcc"
	FamilyMSVC      = "msvc"
	FamilyFilepaths = "filepaths"
	FamilyScan      = "scan"
)

// NewScanner returns the Scanner for the configured compiler family.
// timeout bounds each discovery subprocess, where one is used.
func NewScanner(family string, timeout time.Duration) (Scanner, error) {
	switch family {
	case FamilyGCC:
		return gccScanner{timeout: timeout}, nil
	case FamilyMSVC:
		return msvcScanner{timeout: timeout}, nil
	case FamilyFilepaths:
		return filepathsScanner{}, nil
	case FamilyScan:
		return includeScanner{}, nil
	}
	return nil, fmt.Errorf("unknown compiler family %q", family)
}

// Extractor resolves the required inputs of compilations.
type Extractor struct {
	Scanner Scanner
}

// Extract returns the ordered transitive inputs of inv as absolute
// paths: the primary source first, then discovered inputs in
// first-discovered order, deduplicated by resolved path. Generated
// .pb.h headers carry their .meta sidecar, when present, right after
// the header itself.
func (e Extractor) Extract(ctx context.Context, inv Invocation) ([]string, error) {
	if len(inv.Args) == 0 {
		return nil, Error{Source: inv.Source, Err: fmt.Errorf("empty command")}
	}
	if inv.Source == "" {
		return nil, Error{Source: inv.Source, Err: fmt.Errorf("no source file")}
	}
	deps, err := e.Scanner.ScanDeps(ctx, inv)
	if err != nil {
		return nil, Error{Source: inv.Source, Err: err}
	}
	seen := make(map[string]bool)
	var out []string
	add := func(fname string) {
		// The clang tool uses '//' to separate the system path from
		// the relative path used in the #include statement.
		fname = strings.ReplaceAll(strings.TrimSpace(fname), "//", "/")
		if fname == "" {
			return
		}
		// Builtin compiler headers are not packaged. crbug.com/513826
		if strings.Contains(fname, "third_party/llvm-build") {
			return
		}
		if !filepath.IsAbs(fname) {
			fname = filepath.Join(inv.Dir, fname)
		}
		fname = filepath.Clean(fname)
		if seen[fname] {
			return
		}
		seen[fname] = true
		out = append(out, fname)
		// .pb.h.meta is required for CC/PB cross references.
		if strings.HasSuffix(fname, ".pb.h") {
			if _, err := os.Stat(fname + ".meta"); err == nil {
				meta := fname + ".meta"
				if !seen[meta] {
					seen[meta] = true
					out = append(out, meta)
				}
			}
		}
	}
	add(inv.Source)
	for _, d := range deps {
		add(d)
	}
	return out, nil
}
