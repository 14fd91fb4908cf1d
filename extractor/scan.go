// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/codesearch/packageindex/toolsupport/gccutil"
)

// includeScanner discovers inputs by scanning preprocessor directives
// itself, without running a compiler. It understands #include,
// #include_next, #import and object-like #define of include paths
// (for the chromium buildflag pattern), but does not evaluate
// conditionals, so it may over-approximate the input set.
type includeScanner struct{}

func (includeScanner) ScanDeps(ctx context.Context, inv Invocation) ([]string, error) {
	params := gccutil.ParseScanDepsParams(inv.Args)
	s := &scanState{
		dir:     inv.Dir,
		dirs:    params.Dirs,
		roots:   params.Sysroots,
		visited: make(map[string]bool),
		defines: make(map[string][]string),
	}
	sources := params.Sources
	if len(sources) == 0 {
		sources = []string{inv.Source}
	}
	var queue []string
	enqueue := func(fname string) {
		fname = s.abs(fname)
		if s.visited[fname] {
			return
		}
		s.visited[fname] = true
		s.deps = append(s.deps, fname)
		queue = append(queue, fname)
	}
	for _, src := range sources {
		enqueue(src)
	}
	for _, inc := range params.Includes {
		fname, ok := s.resolve(inc, inv.Dir)
		if !ok {
			return nil, fmt.Errorf("-include %s not found", inc)
		}
		enqueue(fname)
	}
	entryPoints := len(queue)
	for popped := 0; len(queue) > 0; popped++ {
		fname := queue[0]
		queue = queue[1:]
		buf, err := os.ReadFile(fname)
		if err != nil {
			// Only the entry points must exist. Headers referenced
			// from unevaluated conditional branches may be absent.
			if popped < entryPoints {
				return nil, err
			}
			continue
		}
		includes := s.cppScan(fname, buf)
		for _, inc := range includes {
			for _, path := range s.expand(nil, inc) {
				resolved, ok := s.resolvePath(path, filepath.Dir(fname))
				if !ok {
					continue
				}
				enqueue(resolved)
			}
		}
	}
	return s.deps, nil
}

type scanState struct {
	dir     string   // working directory
	dirs    []string // include search dirs, relative to dir
	roots   []string // sysroots
	visited map[string]bool
	deps    []string
	defines map[string][]string
}

func (s *scanState) abs(fname string) string {
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(s.dir, fname)
	}
	return filepath.Clean(fname)
}

// resolvePath resolves one delimited include path. incDir is the
// directory of the including file, searched first for "quoted" form.
func (s *scanState) resolvePath(path, incDir string) (string, bool) {
	switch {
	case strings.HasPrefix(path, `"`):
		name := strings.Trim(path, `"`)
		if fname, ok := s.lookup(filepath.Join(incDir, name)); ok {
			return fname, true
		}
		return s.resolve(name, "")
	case strings.HasPrefix(path, "<"):
		return s.resolve(strings.Trim(path, "<>"), "")
	}
	return "", false
}

// resolve searches name in the include dirs and sysroots.
// When incDir is non-empty it is searched first (used for -include,
// which gcc resolves against the working directory).
func (s *scanState) resolve(name, incDir string) (string, bool) {
	if incDir != "" {
		if fname, ok := s.lookup(filepath.Join(incDir, name)); ok {
			return fname, true
		}
	}
	for _, dir := range s.dirs {
		if fname, ok := s.lookup(filepath.Join(dir, name)); ok {
			return fname, true
		}
	}
	for _, root := range s.roots {
		if fname, ok := s.lookup(filepath.Join(root, "usr", "include", name)); ok {
			return fname, true
		}
	}
	return "", false
}

func (s *scanState) lookup(fname string) (string, bool) {
	fname = s.abs(fname)
	fi, err := os.Lstat(fname)
	if err != nil || fi.IsDir() {
		return "", false
	}
	return fname, true
}

// expand resolves macro include names to the delimited paths they
// were defined as. Non-macro tokens pass through unchanged.
func (s *scanState) expand(paths []string, incname string) []string {
	if incname == "" {
		return paths
	}
	if strings.HasPrefix(incname, `"`) || strings.HasPrefix(incname, "<") {
		return append(paths, incname)
	}
	for _, v := range s.defines[incname] {
		paths = s.expand(paths, v)
	}
	return paths
}

// cppScan collects #include/#import paths and object-like #define
// values from buf. Include paths keep their delimiters; bare
// uppercase tokens are macro references to be expanded later.
func (s *scanState) cppScan(fname string, buf []byte) []string {
	var includes []string
	for len(buf) > 0 {
		buf = bytes.TrimSpace(buf)
		if len(buf) == 0 {
			break
		}
		var line []byte
		if i := bytes.IndexByte(buf, '\n'); i < 0 {
			line, buf = buf, nil
		} else {
			line, buf = buf[:i], buf[i+1:]
		}
		if line[0] != '#' {
			continue
		}
		line = bytes.TrimSpace(line[1:])
		switch {
		case bytes.HasPrefix(line, []byte("include")):
			line = bytes.TrimPrefix(line, []byte("include"))
			line = bytes.TrimPrefix(line, []byte("_next"))
			if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
				continue
			}
		case bytes.HasPrefix(line, []byte("import")):
			line = bytes.TrimPrefix(line, []byte("import"))
			if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
				continue
			}
		case bytes.HasPrefix(line, []byte("define")):
			line = bytes.TrimPrefix(line, []byte("define"))
			if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
				continue
			}
			s.addDefine(bytes.TrimSpace(line))
			continue
		default:
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		includes = addIncludePath(includes, line)
	}
	return includes
}

func addIncludePath(paths []string, incpath []byte) []string {
	delim := string(incpath[0])
	switch delim {
	case `"`:
	case `<`:
		delim = ">"
	default:
		delim = " \t"
	}
	i := bytes.IndexAny(incpath[1:], delim)
	if i < 0 {
		if delim == ">" || delim == `"` {
			// unclosed path
			return paths
		}
		// otherwise, use rest of line as token.
	} else if delim == `"` || delim == ">" {
		incpath = incpath[:i+2] // include delim both side.
	} else {
		incpath = incpath[:i+1]
	}
	if incpath[0] != '"' && incpath[0] != '<' && (incpath[0] < 'A' || incpath[0] > 'Z') {
		// not <>, "", nor upper macros
		return paths
	}
	return append(paths, string(incpath))
}

func (s *scanState) addDefine(line []byte) {
	// MACRO "path.h" or MACRO <path.h>
	i := bytes.IndexAny(line, " \t")
	if i < 0 {
		return
	}
	macro := string(line[:i])
	if strings.Contains(macro, "(") {
		// function-like macro
		return
	}
	value := bytes.TrimSpace(line[i+1:])
	if len(value) == 0 {
		return
	}
	if value[0] != '"' && value[0] != '<' {
		return
	}
	s.defines[macro] = append(s.defines[macro], string(value))
}
