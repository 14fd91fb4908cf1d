// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gccutil provides dependency discovery for gcc-like drivers
// (gcc, g++, clang, clang++).
package gccutil

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/codesearch/packageindex/execute"
	"go.chromium.org/infra/codesearch/packageindex/execute/localexec"
	"go.chromium.org/infra/codesearch/packageindex/runtimex"
	"go.chromium.org/infra/codesearch/packageindex/sync/semaphore"
	"go.chromium.org/infra/codesearch/packageindex/toolsupport/makeutil"
)

// Semaphore limits concurrent gcc deps invocations.
var Semaphore = semaphore.New("deps-gcc", runtimex.NumCPU()*2)

// DepsArgs returns command line args to get deps for args.
// It drops compile/output arguments and appends -M, so the driver
// only runs the preprocessor and prints a makefile-style rule.
func DepsArgs(args []string) []string {
	var dargs []string
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		switch arg {
		case "-MD", "-MMD", "-c":
			continue
		case "-MF", "-o":
			skip = true
			continue
		}
		if strings.HasPrefix(arg, "-MF") {
			continue
		}
		if strings.HasPrefix(arg, "-o") && strings.ContainsAny(arg[2:], "/\\.") {
			continue
		}
		dargs = append(dargs, arg)
	}
	dargs = append(dargs, "-M")
	return dargs
}

// Deps runs dependency discovery for the command specified by args,
// env and cwd, and returns the files the compilation reads, in the
// compiler's discovery order.
func Deps(ctx context.Context, args, env []string, cwd string, timeout time.Duration) ([]string, error) {
	started := time.Now()
	cmd := &execute.Cmd{
		ID:      "deps-gcc " + args[len(args)-1],
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
	if err != nil {
		log.Warnf("failed to run %q: %v\n%s\n%s", cmd.Args, err, cmd.Stdout(), cmd.Stderr())
		return nil, err
	}
	stdout := cmd.Stdout()
	if len(stdout) == 0 {
		log.Warnf("failed to run gcc deps? stdout:0 args:%q\nstderr:%s", cmd.Args, cmd.Stderr())
	}
	deps := makeutil.ParseDeps(stdout)
	log.Debugf("gcc deps stdout:%d -> deps:%d: %s (wait:%s)", len(stdout), len(deps), time.Since(started), wait)
	return deps, nil
}
