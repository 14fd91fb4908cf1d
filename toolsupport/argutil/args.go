// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package argutil normalizes compiler command lines for indexing.
//
// A recorded argument list must be meaningful away from the machine
// that ran the build: object-output arguments are dropped (they leak
// build-specific paths and mean nothing to an indexer), absolute
// include-search paths are rewritten to root-relative form, and
// indexer-identification defines are appended. The relative order of
// all surviving arguments is preserved exactly, since compilers are
// order-sensitive for repeated flags like -D and -I.
package argutil

import (
	"path/filepath"
	"strings"

	"go.chromium.org/infra/codesearch/packageindex/vname"
)

// indexerDefines are appended, in this order, to every normalized
// argument list so downstream tools can detect indexer-produced
// records. KYTHE_IS_RUNNING guards indexing-only pragmas in generated
// code.
var indexerDefines = []string{
	"-DKYTHE_IS_RUNNING=1",
}

// msvcIndexerDefines additionally guard the CUDA wrapper headers,
// which break the indexer when processed as ordinary includes.
var msvcIndexerDefines = []string{
	"-D__CLANG_CUDA_WRAPPERS_NEW",
	"-D__CLANG_CUDA_WRAPPERS_COMPLEX",
	"-D__CLANG_CUDA_WRAPPERS_ALGORITHM",
}

// isSearchDirFlag reports include-search flags that take their value
// as the following argument.
func isSearchDirFlag(arg string) bool {
	switch arg {
	case "-I", "--include-directory", "-isystem", "-iquote", "-imsvc", "-isysroot", "/winsysroot", "--sysroot":
		return true
	}
	return false
}

// include-search flags whose value is attached to the flag itself,
// longest first so -isystem is not mistaken for -I with a value.
var searchDirPrefixes = []string{
	"--include-directory=",
	"/winsysroot",
	"--sysroot=",
	"-isysroot",
	"-isystem",
	"-iquote",
	"-imsvc",
	"-I",
}

// Normalize rewrites a raw compiler argument list into the canonical
// form recorded in a compilation unit. rules may be nil, in which
// case search paths are left verbatim.
func Normalize(args []string, rules *vname.Rules) []string {
	if len(args) == 0 {
		return nil
	}
	msvc := isMSVCDriver(args[0])
	out := make([]string, 0, len(args)+len(indexerDefines)+1)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-MF", "-MT", "-MQ":
			// depfile arguments are irrelevant to indexing.
			i++
			continue
		case "-MD", "-MMD":
			continue
		case "-o":
			i++
			continue
		}
		if isSearchDirFlag(arg) && i+1 < len(args) {
			out = append(out, arg, rewriteDir(args[i+1], rules, msvc))
			i++
			continue
		}
		if dir, prefix, ok := splitSearchDirArg(arg); ok {
			out = append(out, prefix+rewriteDir(dir, rules, msvc))
			continue
		}
		if strings.HasPrefix(arg, "-MF") {
			continue
		}
		if strings.HasPrefix(arg, "-o") && len(arg) > 2 && filepathLike(arg[2:]) {
			continue
		}
		if msvc && isUnwantedMSVCArg(arg) {
			continue
		}
		out = append(out, arg)
	}
	if msvc {
		out = append(out, msvcIndexerDefines...)
	}
	out = append(out, indexerDefines...)
	// Disable all warnings; the indexer's job is to index the code,
	// not to verify it.
	out = append(out, "-w")
	return out
}

// OutputKey returns the compilation output named by args (-o or /Fo),
// as written on the command line, or "" when no output is named.
func OutputKey(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-o" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-o") && len(arg) > 2 && filepathLike(arg[2:]) {
			return arg[2:]
		}
		if strings.HasPrefix(arg, "/Fo") && len(arg) > 3 {
			return arg[3:]
		}
	}
	return ""
}

// splitSearchDirArg splits an attached-value search flag into its
// directory value and flag prefix.
func splitSearchDirArg(arg string) (dir, prefix string, ok bool) {
	for _, p := range searchDirPrefixes {
		if strings.HasPrefix(arg, p) && len(arg) > len(p) {
			return arg[len(p):], p, true
		}
	}
	return "", "", false
}

// rewriteDir rewrites an absolute search directory to root-relative
// form when it falls under a configured root: the bare relative path
// for the default root, "<root>/<path>" for a named one. Other
// directories are left verbatim, except that msvc-driver paths always
// use forward slashes.
func rewriteDir(dir string, rules *vname.Rules, msvc bool) string {
	if msvc {
		dir = strings.ReplaceAll(dir, `\`, "/")
	}
	if rules == nil || !isAbs(dir) {
		return dir
	}
	root, rel, err := rules.Resolve(dir)
	if err != nil {
		return dir
	}
	if root == "" {
		return rel
	}
	if rel == "" {
		return root
	}
	return root + "/" + rel
}

func isAbs(dir string) bool {
	if filepath.IsAbs(dir) {
		return true
	}
	// windows drive path, even when inspected on a posix host.
	return len(dir) >= 3 && dir[1] == ':' && (dir[2] == '/' || dir[2] == '\\')
}

// filepathLike reports whether s looks like a path value rather than
// the tail of an unrelated flag (-open, -os etc).
func filepathLike(s string) bool {
	return strings.ContainsAny(s, "/\\.")
}

func isMSVCDriver(argv0 string) bool {
	name := filepath.Base(strings.ReplaceAll(argv0, `\`, "/"))
	name = strings.TrimSuffix(name, ".exe")
	return name == "cl" || strings.HasSuffix(name, "clang-cl")
}

// isUnwantedMSVCArg reports clang-cl arguments that are known to
// break the indexer and carry no semantic value for it.
func isUnwantedMSVCArg(arg string) bool {
	switch {
	case strings.HasPrefix(arg, "/Fo"), strings.HasPrefix(arg, "/Fd"), strings.HasPrefix(arg, "/Fp"):
		// object, pdb and pch outputs.
		return true
	case strings.HasPrefix(arg, "/showIncludes"):
		return true
	}
	return false
}
