// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package localexec implements local command execution.
package localexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/codesearch/packageindex/execute"
	"go.chromium.org/infra/codesearch/packageindex/runtimex"
	"go.chromium.org/infra/codesearch/packageindex/sync/semaphore"
)

// forkSema protects from fork resource exhaustion when many commands
// are started at once. http://b/278658064
var forkSema = semaphore.New("fork", runtimex.NumCPU())

// Run runs a cmd locally, capturing its stdout/stderr into cmd's buffers.
// When cmd.Timeout is positive, the execution is bounded by it and a
// timed-out run fails with context.DeadlineExceeded.
func Run(ctx context.Context, cmd *execute.Cmd) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("no arguments in the command. ID: %s", cmd.ID)
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}
	log.Debugf("%s run: %s", cmd.ID, cmd.Command())
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdout = cmd.StdoutWriter()
	c.Stderr = cmd.StderrWriter()

	started := time.Now()
	err := forkSema.Do(ctx, func(ctx context.Context) error {
		return c.Start()
	})
	if err == nil {
		err = c.Wait()
	}
	dur := time.Since(started)

	if cerr := context.Cause(ctx); cerr != nil && err != nil {
		// the process was killed by ctx. report the cause, not "signal: killed".
		log.Warnf("%s interrupted after %s: %v", cmd.ID, dur, cerr)
		return cerr
	}
	var eerr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &eerr):
		log.Debugf("%s exit=%d in %s", cmd.ID, eerr.ExitCode(), dur)
		return execute.ExitError{ExitCode: eerr.ExitCode()}
	default:
		return err
	}
	log.Debugf("%s exit=0 in %s", cmd.ID, dur)
	return nil
}
