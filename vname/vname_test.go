// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vname

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	rules, err := newRules([]Rule{
		{Root: "", Prefix: "/b/src"},
		{Root: "out", Prefix: "/b/src/out/Debug/gen"},
		{Root: "win_toolchain", Prefix: "/b/win_toolchain"},
		{Root: "debian_sid_amd64-sysroot", Prefix: "/b/src/build/linux/debian_sid_amd64-sysroot"},
	}, false)
	if err != nil {
		t.Fatalf("newRules=%v; want nil", err)
	}

	for _, tc := range []struct {
		name     string
		path     string
		wantRoot string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "primary",
			path:     "/b/src/base/logging.h",
			wantRoot: "",
			wantPath: "base/logging.h",
		},
		{
			name:     "longest_prefix_wins",
			path:     "/b/src/out/Debug/gen/main.pb.h",
			wantRoot: "out",
			wantPath: "main.pb.h",
		},
		{
			name:     "sysroot_under_primary",
			path:     "/b/src/build/linux/debian_sid_amd64-sysroot/usr/include/stdio.h",
			wantRoot: "debian_sid_amd64-sysroot",
			wantPath: "usr/include/stdio.h",
		},
		{
			name:     "toolchain",
			path:     "/b/win_toolchain/VC/Tools/include/vector",
			wantRoot: "win_toolchain",
			wantPath: "VC/Tools/include/vector",
		},
		{
			name:     "prefix_exact",
			path:     "/b/src",
			wantRoot: "",
			wantPath: "",
		},
		{
			name:    "partial_segment_no_match",
			path:    "/b/win_toolchain2/foo.h",
			wantErr: true,
		},
		{
			name:    "outside_all_roots",
			path:    "/usr/include/stdio.h",
			wantErr: true,
		},
		{
			name:     "dot_segments_cleaned",
			path:     "/b/src/out/Debug/../../base/logging.h",
			wantRoot: "",
			wantPath: "base/logging.h",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			root, rel, err := rules.Resolve(tc.path)
			if tc.wantErr {
				var uerr UnresolvedPathError
				if !errors.As(err, &uerr) {
					t.Fatalf("Resolve(%q)=%q,%q,%v; want UnresolvedPathError", tc.path, root, rel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q)=%v; want nil err", tc.path, err)
			}
			if root != tc.wantRoot || rel != tc.wantPath {
				t.Errorf("Resolve(%q)=(%q, %q); want (%q, %q)", tc.path, root, rel, tc.wantRoot, tc.wantPath)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	// Two orderings of the same table must resolve identically.
	a := []Rule{
		{Root: "", Prefix: "/b/src"},
		{Root: "gen", Prefix: "/b/src/out/gen"},
	}
	b := []Rule{a[1], a[0]}
	ra, err := newRules(a, false)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := newRules(b, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/b/src/out/gen/x.h", "/b/src/base/x.h"} {
		rootA, relA, errA := ra.Resolve(p)
		rootB, relB, errB := rb.Resolve(p)
		if rootA != rootB || relA != relB || (errA == nil) != (errB == nil) {
			t.Errorf("Resolve(%q) differs: (%q,%q,%v) vs (%q,%q,%v)", p, rootA, relA, errA, rootB, relB, errB)
		}
	}
}

func TestNew_AmbiguousRoots(t *testing.T) {
	_, err := newRules([]Rule{
		{Root: "a", Prefix: "/b/src/gen"},
		{Root: "b", Prefix: "/b/src/gen/"},
	}, false)
	if err == nil {
		t.Error("newRules with duplicate prefixes succeeded; want error")
	}
}

func TestResolve_CaseFold(t *testing.T) {
	rules, err := newRules([]Rule{
		{Root: "win_toolchain", Prefix: `C:\b\win_toolchain`},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	root, rel, err := rules.Resolve(`c:/B/Win_Toolchain/vc/include/vector`)
	if err != nil {
		t.Fatalf("Resolve=%v; want nil", err)
	}
	if root != "win_toolchain" || rel != "vc/include/vector" {
		t.Errorf("Resolve=(%q, %q); want (win_toolchain, vc/include/vector)", root, rel)
	}
}
