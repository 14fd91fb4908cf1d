// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gccutil

import (
	"path/filepath"
	"strings"
)

// ScanDepsParams holds the parts of a gcc-like command line that an
// include scanner needs.
type ScanDepsParams struct {
	// Sources are the source files named on the command line.
	Sources []string

	// Includes are force-included files (-include).
	Includes []string

	// Dirs are include directories, in command line order.
	Dirs []string

	// Sysroots are sysroot/toolchain directories.
	Sysroots []string
}

// ParseScanDepsParams parses args for the include scanner.
// It only parses the major include-path flags used in chromium; the
// full set is
// https://clang.llvm.org/docs/ClangCommandLineReference.html#include-path-management
func ParseScanDepsParams(args []string) ScanDepsParams {
	var p ScanDepsParams
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-I", "--include-directory", "-isystem", "-iquote":
			i++
			if i < len(args) {
				p.Dirs = append(p.Dirs, args[i])
			}
			continue
		case "-include":
			i++
			if i < len(args) {
				p.Includes = append(p.Includes, args[i])
			}
			continue
		case "--sysroot", "-isysroot":
			i++
			if i < len(args) {
				p.Sysroots = append(p.Sysroots, args[i])
			}
			continue
		}
		switch {
		case strings.HasPrefix(arg, "-I"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-I"))
		case strings.HasPrefix(arg, "--include-directory="):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "--include-directory="))
		case strings.HasPrefix(arg, "-iquote"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-iquote"))
		case strings.HasPrefix(arg, "-isystem"):
			p.Dirs = append(p.Dirs, strings.TrimPrefix(arg, "-isystem"))
		case strings.HasPrefix(arg, "--sysroot="):
			p.Sysroots = append(p.Sysroots, strings.TrimPrefix(arg, "--sysroot="))
		case strings.HasPrefix(arg, "-include"):
			p.Includes = append(p.Includes, strings.TrimPrefix(arg, "-include"))
		case !strings.HasPrefix(arg, "-"):
			switch filepath.Ext(arg) {
			case ".c", ".cc", ".cxx", ".cpp", ".m", ".mm", ".S":
				p.Sources = append(p.Sources, arg)
			}
		}
	}
	return p
}
