// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package execute describes a command to be executed.
package execute

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.chromium.org/infra/codesearch/packageindex/toolsupport/shutil"
)

// Cmd is a command to be executed.
type Cmd struct {
	// ID identifies the command for logging.
	ID string

	// Args are the command line arguments. Args[0] is the executable.
	Args []string

	// Env is the environment of the command, nil for the current process env.
	Env []string

	// Dir is the working directory of the command. abs path.
	Dir string

	// Timeout bounds the execution. 0 means no bound.
	Timeout time.Duration

	stdoutBuf bytes.Buffer
	stderrBuf bytes.Buffer
}

// StdoutWriter returns a writer set for stdout of the cmd.
func (c *Cmd) StdoutWriter() io.Writer {
	c.stdoutBuf.Reset()
	return &c.stdoutBuf
}

// StderrWriter returns a writer set for stderr of the cmd.
func (c *Cmd) StderrWriter() io.Writer {
	c.stderrBuf.Reset()
	return &c.stderrBuf
}

// Stdout returns stdout bytes of the cmd execution.
func (c *Cmd) Stdout() []byte {
	return c.stdoutBuf.Bytes()
}

// Stderr returns stderr bytes of the cmd execution.
func (c *Cmd) Stderr() []byte {
	return c.stderrBuf.Bytes()
}

// String returns an identifiable string of the cmd.
func (c *Cmd) String() string {
	return fmt.Sprintf("cmd %s args=%q dir=%s", c.ID, c.Args, c.Dir)
}

// Command returns a command line string.
func (c *Cmd) Command() string {
	if len(c.Args) == 3 && c.Args[0] == "/bin/sh" && c.Args[1] == "-c" {
		return c.Args[2]
	}
	return shutil.Join(c.Args)
}

// ExitError is an error of cmd execution with non-zero exit code.
type ExitError struct {
	ExitCode int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit=%d", e.ExitCode)
}
