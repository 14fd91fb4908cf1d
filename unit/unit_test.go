// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package unit

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/codesearch/packageindex/digest"
	"go.chromium.org/infra/codesearch/packageindex/kythe"
	"go.chromium.org/infra/codesearch/packageindex/vname"
)

func writeFile(t *testing.T, fname, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(fname), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fname, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRules(t *testing.T, rules []vname.Rule) *vname.Rules {
	t.Helper()
	r, err := vname.New(rules)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src/test.cc"), "#include \"test.h\"\n")
	writeFile(t, filepath.Join(dir, "src/test.h"), "#pragma once\n")
	writeFile(t, filepath.Join(dir, "out/gen/foo.h"), "// generated\n")

	rules := mustRules(t, []vname.Rule{
		{Root: "", Prefix: dir},
		{Root: "GEN", Prefix: filepath.Join(dir, "out")},
	})
	a := &Assembler{
		Corpus:      "chromium",
		Language:    "c++",
		BuildConfig: "linux",
		Rules:       rules,
		Digests:     digest.NewStore(digest.Option{}),
	}
	got, err := a.Assemble(ctx, Invocation{
		Args:   []string{"clang++", "-I" + filepath.Join(dir, "out"), "-c", "src/test.cc", "-o", "obj/test.o"},
		Dir:    dir,
		Source: "src/test.cc",
		Inputs: []string{
			filepath.Join(dir, "src/test.cc"),
			filepath.Join(dir, "src/test.h"),
			filepath.Join(dir, "out/gen/foo.h"),
			filepath.Join(dir, "src/test.h"), // dup
		},
	})
	if err != nil {
		t.Fatalf("Assemble()=%v; want nil err", err)
	}
	want := &kythe.CompilationUnit{
		VName: kythe.VName{Corpus: "chromium", Language: "c++"},
		RequiredInput: []kythe.RequiredInput{
			{
				VName: kythe.VName{Corpus: "chromium", Path: "src/test.cc"},
				Info:  kythe.FileInfo{Path: "src/test.cc", Digest: digest.FromBytes([]byte("#include \"test.h\"\n")).Hash},
			},
			{
				VName: kythe.VName{Corpus: "chromium", Path: "src/test.h"},
				Info:  kythe.FileInfo{Path: "src/test.h", Digest: digest.FromBytes([]byte("#pragma once\n")).Hash},
			},
			{
				VName: kythe.VName{Corpus: "chromium", Root: "GEN", Path: "gen/foo.h"},
				Info:  kythe.FileInfo{Path: "out/gen/foo.h", Digest: digest.FromBytes([]byte("// generated\n")).Hash},
			},
		},
		Argument: []string{
			"clang++", "-IGEN", "-c", "src/test.cc",
			"-DKYTHE_IS_RUNNING=1", "-w",
		},
		SourceFile:       []string{"src/test.cc"},
		OutputKey:        "obj/test.o",
		WorkingDirectory: ".",
		Details: []kythe.Details{
			{Type: kythe.BuildDetailsType, BuildConfig: "linux"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Assemble() diff -want +got:\n%s", diff)
	}
}

func TestAssemble_IdentityDedupe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// The same logical header staged under two prefixes mapping to
	// one root. The record keeps the first occurrence only.
	writeFile(t, filepath.Join(dir, "test.cc"), "int main() {}\n")
	writeFile(t, filepath.Join(dir, "s1/x.h"), "// one\n")
	writeFile(t, filepath.Join(dir, "s2/x.h"), "// two\n")

	rules := mustRules(t, []vname.Rule{
		{Root: "", Prefix: dir},
		{Root: "SYS", Prefix: filepath.Join(dir, "s1")},
		{Root: "SYS", Prefix: filepath.Join(dir, "s2")},
	})
	a := &Assembler{
		Corpus:  "chromium",
		Rules:   rules,
		Digests: digest.NewStore(digest.Option{}),
	}
	got, err := a.Assemble(ctx, Invocation{
		Args:   []string{"clang++", "-c", "test.cc"},
		Dir:    dir,
		Source: "test.cc",
		Inputs: []string{
			filepath.Join(dir, "test.cc"),
			filepath.Join(dir, "s1/x.h"),
			filepath.Join(dir, "s2/x.h"),
		},
	})
	if err != nil {
		t.Fatalf("Assemble()=%v; want nil err", err)
	}
	var paths []string
	for _, ri := range got.RequiredInput {
		paths = append(paths, ri.Info.Path)
	}
	want := []string{"test.cc", "s1/x.h"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("required input paths diff -want +got:\n%s", diff)
	}
	if got.RequiredInput[1].Info.Digest != digest.FromBytes([]byte("// one\n")).Hash {
		t.Errorf("dedupe kept the wrong occurrence: %v", got.RequiredInput[1])
	}
}

func TestAssemble_UnresolvedInput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test.cc"), "int main() {}\n")

	rules := mustRules(t, []vname.Rule{{Root: "", Prefix: dir}})
	a := &Assembler{
		Corpus:  "chromium",
		Rules:   rules,
		Digests: digest.NewStore(digest.Option{}),
	}
	_, err := a.Assemble(ctx, Invocation{
		Args:   []string{"clang++", "-c", "test.cc"},
		Dir:    dir,
		Source: "test.cc",
		Inputs: []string{
			filepath.Join(dir, "test.cc"),
			"/nonexistent-root/stray.h",
		},
	})
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("Assemble()=%v; want ResolutionError", err)
	}
	var uerr vname.UnresolvedPathError
	if !errors.As(err, &uerr) {
		t.Errorf("Assemble()=%v; want wrapped UnresolvedPathError", err)
	}
	if rerr.Source != "test.cc" {
		t.Errorf("ResolutionError.Source=%q; want test.cc", rerr.Source)
	}
}

func TestAssemble_MissingInput(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test.cc"), "int main() {}\n")

	rules := mustRules(t, []vname.Rule{{Root: "", Prefix: dir}})
	a := &Assembler{
		Corpus:  "chromium",
		Rules:   rules,
		Digests: digest.NewStore(digest.Option{}),
	}
	_, err := a.Assemble(ctx, Invocation{
		Args:   []string{"clang++", "-c", "test.cc"},
		Dir:    dir,
		Source: "test.cc",
		Inputs: []string{
			filepath.Join(dir, "test.cc"),
			filepath.Join(dir, "deleted.h"),
		},
	})
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("Assemble()=%v; want ResolutionError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Assemble()=%v; want wrapped fs.ErrNotExist", err)
	}
}

func TestAssemble_NoInputs(t *testing.T) {
	ctx := context.Background()
	a := &Assembler{
		Corpus:  "chromium",
		Digests: digest.NewStore(digest.Option{}),
	}
	if _, err := a.Assemble(ctx, Invocation{Source: "test.cc"}); err == nil {
		t.Error("Assemble() with no inputs; want error")
	}
}

func TestAssemble_PathsRelativeToWorkingDir(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "test.cc"), "int main() {}\n")
	writeFile(t, filepath.Join(base, "win_toolchain/include/sdk.h"), "// sdk\n")
	dir := filepath.Join(base, "out/debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	rules := mustRules(t, []vname.Rule{
		{Root: "", Prefix: base},
		{Root: "WIN_SDK", Prefix: filepath.Join(base, "win_toolchain")},
	})
	a := &Assembler{
		Corpus:  "chromium",
		Rules:   rules,
		Digests: digest.NewStore(digest.Option{}),
	}
	got, err := a.Assemble(ctx, Invocation{
		Args:   []string{"clang++", "-c", "../../test.cc"},
		Dir:    dir,
		Source: "../../test.cc",
		Inputs: []string{
			filepath.Join(base, "test.cc"),
			filepath.Join(base, "win_toolchain/include/sdk.h"),
		},
	})
	if err != nil {
		t.Fatalf("Assemble()=%v; want nil err", err)
	}
	// info.path is how the bytes are read back from the working
	// directory, regardless of which root classified the input.
	for _, ri := range got.RequiredInput {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ri.Info.Path))); err != nil {
			t.Errorf("info.path %q is not readable from the working directory: %v", ri.Info.Path, err)
		}
	}
	if diff := cmp.Diff([]string{"../../test.cc"}, got.SourceFile); diff != "" {
		t.Errorf("source_file diff -want +got:\n%s", diff)
	}
	if got.RequiredInput[1].Info.Path != "../../win_toolchain/include/sdk.h" {
		t.Errorf("info.path=%q; want ../../win_toolchain/include/sdk.h", got.RequiredInput[1].Info.Path)
	}
	if got.RequiredInput[1].VName.Root != "WIN_SDK" {
		t.Errorf("v_name root=%q; want WIN_SDK", got.RequiredInput[1].VName.Root)
	}
}
