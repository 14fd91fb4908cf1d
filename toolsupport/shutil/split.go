// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides shell utilities.
package shutil

import (
	"fmt"
	"strings"
)

// Split splits a posix shell command line into args.
// It handles double quotes, single quotes and backslash escapes, and
// returns an error for command lines that need a real shell
// (pipelines, redirects, env assignments etc).
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	started := false
	escaped := false
	quote := rune(0)
	for _, ch := range cmdline {
		if escaped {
			sb.WriteRune(ch)
			escaped = false
			continue
		}
		switch {
		case quote == '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			sb.WriteRune(ch)
			continue
		case quote == '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				sb.WriteRune(ch)
			}
			continue
		}
		switch ch {
		case '\\':
			started = true
			escaped = true
		case '\'', '"':
			started = true
			quote = ch
		case ' ', '\t':
			if started {
				args = append(args, sb.String())
				sb.Reset()
				started = false
			}
		case ';', '&', '|', '<', '>', '$', '#', '`', '\n':
			return nil, fmt.Errorf("failed to split: cmdline contains shell metachar %q", ch)
		default:
			started = true
			sb.WriteRune(ch)
		}
	}
	if escaped || quote != 0 {
		return nil, fmt.Errorf("failed to split: unterminated quote or escape in %q", cmdline)
	}
	if started {
		args = append(args, sb.String())
	}
	if len(args) > 0 && strings.Contains(args[0], "=") {
		// argv[0] with '=' would set an env var and need to invoke via sh.
		return nil, fmt.Errorf("argv[0] is env set %q", args[0])
	}
	return args, nil
}
