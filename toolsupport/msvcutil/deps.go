// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package msvcutil provides dependency discovery for msvc-like
// drivers (cl.exe, clang-cl).
package msvcutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/codesearch/packageindex/execute"
	"go.chromium.org/infra/codesearch/packageindex/execute/localexec"
	"go.chromium.org/infra/codesearch/packageindex/runtimex"
	"go.chromium.org/infra/codesearch/packageindex/sync/semaphore"
)

// msvc may print localized text, but we assume developers don't use that.
const depsPrefix = "Note: including file: "

// Semaphore limits concurrent msvc deps invocations.
var Semaphore = semaphore.New("deps-msvc", runtimex.NumCPU()*2)

// ParseShowIncludes parses /showIncludes output and returns the
// included files in discovery order, plus the remaining output lines
// (e.g. compiler error messages).
func ParseShowIncludes(b []byte) ([]string, []byte) {
	// showIncludes contents
	//  Note: including file:  <pathname>\r\n
	var deps []string
	var outs []byte
	for len(b) > 0 {
		line := b
		i := bytes.IndexByte(b, '\n')
		if i >= 0 {
			line = b[:i]
			b = b[i+1:]
		} else {
			b = nil
		}
		line = bytes.TrimRight(line, "\r")
		if rest, ok := bytes.CutPrefix(line, []byte(depsPrefix)); ok {
			deps = append(deps, string(bytes.TrimSpace(rest)))
			continue
		}
		outs = append(outs, line...)
		outs = append(outs, '\n')
	}
	return deps, outs
}

// DepsArgs returns command line args to get deps for args.
// /c becomes /P (preprocess only, no codegen) and the output
// arguments are dropped.
func DepsArgs(args []string) []string {
	var dargs []string
	hasShowIncludes := false
	for _, arg := range args {
		switch arg {
		case "/showIncludes:user":
			dargs = append(dargs, "/showIncludes")
			hasShowIncludes = true
			continue
		case "/showIncludes":
			hasShowIncludes = true
		case "/c":
			dargs = append(dargs, "/P")
			continue
		}
		switch {
		case strings.HasPrefix(arg, "/Fo"):
			continue
		case strings.HasPrefix(arg, "/Fd"):
			continue
		}
		dargs = append(dargs, arg)
	}
	if !hasShowIncludes {
		dargs = append(dargs, "/showIncludes")
	}
	return dargs
}

// Deps runs dependency discovery for the command specified by args,
// env and cwd, and returns the files the compilation reads.
// The primary source is appended last, as /showIncludes does not
// report it; callers reorder as needed.
func Deps(ctx context.Context, args, env []string, cwd string, timeout time.Duration) ([]string, error) {
	started := time.Now()
	var src, out string
	for _, arg := range args {
		// /P generates *.i in the current dir.
		switch ext := filepath.Ext(arg); ext {
		case ".cpp", ".cc", ".cxx", ".c", ".S", ".s":
			src = arg
			out = strings.TrimSuffix(filepath.Base(arg), ext) + ".i"
		}
	}
	cmd := &execute.Cmd{
		ID:      "deps-msvc " + src,
		Args:    DepsArgs(args),
		Env:     env,
		Dir:     cwd,
		Timeout: timeout,
	}
	var wait time.Duration
	err := Semaphore.Do(ctx, func(ctx context.Context) error {
		wait = time.Since(started)
		return localexec.Run(ctx, cmd)
	})
	if out != "" {
		if rerr := os.Remove(filepath.Join(cwd, out)); rerr != nil && !os.IsNotExist(rerr) {
			log.Warnf("failed to remove %s: %v", filepath.Join(cwd, out), rerr)
		}
	}
	if err != nil {
		log.Warnf("failed to run %q: %v\n%s\n%s", cmd.Args, err, cmd.Stdout(), cmd.Stderr())
		return nil, err
	}
	// Note: some execution environments merge stdout and stderr.
	combined := append(append([]byte{}, cmd.Stderr()...), cmd.Stdout()...)
	deps, extra := ParseShowIncludes(combined)
	log.Debugf("msvc deps out:%d -> deps:%d extra:%d %s (wait:%s)", len(combined), len(deps), len(extra), time.Since(started), wait)
	if src != "" {
		deps = append(deps, src)
	}
	return deps, nil
}
