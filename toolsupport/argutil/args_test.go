// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package argutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/codesearch/packageindex/vname"
)

func testRules(t *testing.T) *vname.Rules {
	t.Helper()
	rules, err := vname.New([]vname.Rule{
		{Root: "", Prefix: "/b/src"},
		{Root: "win_toolchain", Prefix: "/b/win_toolchain"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return rules
}

func TestNormalize(t *testing.T) {
	rules := testRules(t)
	for _, tc := range []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "drop_output",
			args: []string{"clang++", "-c", "../../foo.cc", "-o", "obj/foo.o"},
			want: []string{"clang++", "-c", "../../foo.cc", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "drop_attached_output_and_depfile",
			args: []string{"clang", "-MMD", "-MF", "obj/foo.d", "-c", "foo.c", "-oobj/foo.o"},
			want: []string{"clang", "-c", "foo.c", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "rewrite_abs_include_under_root",
			args: []string{"clang++", "-I/b/src/base", "-isystem", "/b/src/third_party/libc++", "-c", "foo.cc"},
			want: []string{"clang++", "-Ibase", "-isystem", "third_party/libc++", "-c", "foo.cc", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "rewrite_named_root",
			args: []string{"clang++", "-isystem/b/win_toolchain/VC/include", "-c", "foo.cc"},
			want: []string{"clang++", "-isystemwin_toolchain/VC/include", "-c", "foo.cc", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "verbatim_outside_roots",
			args: []string{"clang", "-I/usr/local/include", "-Irelative/include", "-c", "foo.c"},
			want: []string{"clang", "-I/usr/local/include", "-Irelative/include", "-c", "foo.c", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "order_preserved_for_repeated_flags",
			args: []string{"clang", "-DA=1", "-I/b/src/a", "-DB=2", "-I/b/src/b", "-c", "foo.c"},
			want: []string{"clang", "-DA=1", "-Ia", "-DB=2", "-Ib", "-c", "foo.c", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
		{
			name: "plain_dash_o_flag_tails_kept",
			args: []string{"clang", "-fopenmp", "-c", "foo.c"},
			want: []string{"clang", "-fopenmp", "-c", "foo.c", "-DKYTHE_IS_RUNNING=1", "-w"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.args, rules)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Normalize(%q) -want +got:\n%s", tc.args, diff)
			}
		})
	}
}

func TestNormalize_MSVC(t *testing.T) {
	rules := testRules(t)
	args := []string{
		`..\..\bin\clang-cl.exe`,
		"/c", "../../foo.cc",
		"/Foobj/foo.obj",
		"/Fdobj/foo.pdb",
		"/showIncludes:user",
		`-imsvcC:\win_sdk\include`,
		"-imsvc", "/b/win_toolchain/VC/ATLMFC/include",
	}
	want := []string{
		`..\..\bin\clang-cl.exe`,
		"/c", "../../foo.cc",
		"-imsvcC:/win_sdk/include",
		"-imsvc", "win_toolchain/VC/ATLMFC/include",
		"-D__CLANG_CUDA_WRAPPERS_NEW",
		"-D__CLANG_CUDA_WRAPPERS_COMPLEX",
		"-D__CLANG_CUDA_WRAPPERS_ALGORITHM",
		"-DKYTHE_IS_RUNNING=1",
		"-w",
	}
	got := Normalize(args, rules)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize -want +got:\n%s", diff)
	}
}

func TestOutputKey(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{
			name: "separate",
			args: []string{"clang++", "-c", "foo.cc", "-o", "obj/foo.o"},
			want: "obj/foo.o",
		},
		{
			name: "attached",
			args: []string{"clang++", "-c", "foo.cc", "-oobj/foo.o"},
			want: "obj/foo.o",
		},
		{
			name: "msvc",
			args: []string{"clang-cl", "/c", "foo.cc", "/Foobj/foo.obj"},
			want: "obj/foo.obj",
		},
		{
			name: "none",
			args: []string{"clang++", "-c", "foo.cc"},
			want: "",
		},
		{
			name: "not output flag",
			args: []string{"clang++", "-open", "-c", "foo.cc"},
			want: "",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := OutputKey(tc.args); got != tc.want {
				t.Errorf("OutputKey(%q)=%q; want %q", tc.args, got, tc.want)
			}
		})
	}
}
