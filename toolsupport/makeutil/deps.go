// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makeutil provides utilities for make.
package makeutil

import (
	"bytes"
	"strings"
)

// ParseDeps parses makefile-style deps output
//
//	<output>: <input> ...
//
// and returns the list of inputs in the order written.
// Inputs are space separated. '\'+newline is a space, and
// '\'+space is an escaped space (part of a name, not a separator).
func ParseDeps(b []byte) []string {
	i := bytes.IndexByte(b, ':')
	if i < 0 {
		return nil
	}
	var inputs []string
	s := b[i+1:]
	for len(s) > 0 {
		var token string
		token, s = nextToken(s)
		if token != "" && !strings.HasSuffix(token, ":") {
			inputs = append(inputs, token)
		}
	}
	return inputs
}

func nextToken(s []byte) (string, []byte) {
	// skip separators.
	for len(s) > 0 {
		switch {
		case s[0] == ' ', s[0] == '\t', s[0] == '\n', s[0] == '\r':
			s = s[1:]
		case s[0] == '\\' && len(s) > 1 && s[1] == '\n':
			s = s[2:]
		case s[0] == '\\' && len(s) > 2 && s[1] == '\r' && s[2] == '\n':
			s = s[3:]
		default:
			goto token
		}
	}
	return "", nil
token:
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case ' ':
				sb.WriteByte(' ')
				i++
				continue
			case '\n':
				return sb.String(), s[i+2:]
			case '\r':
				if i+2 < len(s) && s[i+2] == '\n' {
					return sb.String(), s[i+3:]
				}
			}
			sb.WriteByte('\\')
			sb.WriteByte(s[i+1])
			i++
			continue
		}
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			return sb.String(), s[i+1:]
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil
}
