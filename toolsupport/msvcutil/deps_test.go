// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package msvcutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseShowIncludes(t *testing.T) {
	b := []byte("foo.cc\r\n" +
		"Note: including file: ..\\..\\foo.h\r\n" +
		"Note: including file:  C:\\win_toolchain\\VC\\include\\vector\r\n" +
		"some error text\r\n")
	deps, outs := ParseShowIncludes(b)
	wantDeps := []string{
		`..\..\foo.h`,
		`C:\win_toolchain\VC\include\vector`,
	}
	if diff := cmp.Diff(wantDeps, deps); diff != "" {
		t.Errorf("deps -want +got:\n%s", diff)
	}
	wantOuts := "foo.cc\nsome error text\n"
	if got := string(outs); got != wantOuts {
		t.Errorf("outs=%q; want %q", got, wantOuts)
	}
}

func TestDepsArgs(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "compile_to_preprocess",
			args: []string{"clang-cl", "/c", "foo.cc", "/Foobj/foo.obj", "/Fdobj/foo.pdb"},
			want: []string{"clang-cl", "/P", "foo.cc", "/showIncludes"},
		},
		{
			name: "showincludes_user_widened",
			args: []string{"clang-cl", "/showIncludes:user", "/c", "foo.cc"},
			want: []string{"clang-cl", "/showIncludes", "/P", "foo.cc"},
		},
		{
			name: "showincludes_kept",
			args: []string{"clang-cl", "/showIncludes", "/c", "foo.cc"},
			want: []string{"clang-cl", "/showIncludes", "/P", "foo.cc"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := DepsArgs(tc.args)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("DepsArgs(%q) -want +got:\n%s", tc.args, diff)
			}
		})
	}
}
