// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdb reads clang compilation databases
// (compile_commands.json).
package compdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.chromium.org/infra/codesearch/packageindex/toolsupport/cmdutil"
	"go.chromium.org/infra/codesearch/packageindex/toolsupport/shutil"
)

// Command is one entry of a compilation database.
// Either Command or Arguments is set, per the compile_commands.json
// format. https://clang.llvm.org/docs/JSONCompilationDatabase.html
type Command struct {
	Directory string   `json:"directory"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	File      string   `json:"file"`
	Output    string   `json:"output,omitempty"`
}

// Load reads a compilation database from fname.
func Load(fname string) ([]Command, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	var cmds []Command
	err = json.Unmarshal(b, &cmds)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fname, err)
	}
	return cmds, nil
}

// Argv returns the argument vector of the command, shell-splitting
// Command when Arguments is not set, and with any launcher prefix
// (goma, ccache etc) stripped so that argv[0] is the compiler.
func (c Command) Argv() ([]string, error) {
	args := c.Arguments
	if len(args) == 0 {
		var err error
		args, err = shutil.Split(c.Command)
		if err != nil && runtime.GOOS == "windows" {
			args, err = cmdutil.Split(c.Command)
		}
		if err != nil {
			return nil, fmt.Errorf("split command for %s: %w", c.File, err)
		}
	}
	args = stripLaunchers(args)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command for %s", c.File)
	}
	return args, nil
}

// stripLaunchers drops leading compiler-launcher executables, so the
// command starts at the compiler itself. Some build configurations
// prefix the compiler with goma, ccache or similar wrappers.
func stripLaunchers(args []string) []string {
	for i, arg := range args {
		name := filepath.Base(strings.ReplaceAll(arg, `\`, "/"))
		name = strings.TrimSuffix(name, ".exe")
		switch name {
		case "clang", "clang++", "clang-cl", "gcc", "g++", "cl", "cc", "c++":
			return args[i:]
		}
		// chromium builds name clang variously (clang++-15,
		// clang_x64 wrappers); match by substring.
		if strings.Contains(name, "clang") {
			return args[i:]
		}
	}
	return args
}
