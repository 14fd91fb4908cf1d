// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shutil

import "strings"

// Join joins command line args to a single string.
func Join(args []string) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if strings.ContainsAny(arg, " \t\"'\\") {
			sb.WriteByte('"')
			for _, ch := range arg {
				if ch == '"' || ch == '\\' {
					sb.WriteByte('\\')
				}
				sb.WriteRune(ch)
			}
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(arg)
	}
	return sb.String()
}
