// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package vname classifies absolute file paths into (root, path) pairs.
//
// A root is a named filesystem namespace: the primary source tree
// (the empty root name), a generated-output tree, a toolchain tree
// such as win_toolchain, or a sysroot. Classifying against roots
// produces stable root-relative paths that do not depend on where a
// build happened to be checked out, so the same logical file resolves
// identically across machines and platforms.
package vname

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Rule maps a filesystem prefix to a root name.
// The empty root name denotes the primary source tree.
type Rule struct {
	Root   string `json:"root"`
	Prefix string `json:"prefix"`
}

// UnresolvedPathError reports a path that no configured root covers.
type UnresolvedPathError struct {
	Path string
}

func (e UnresolvedPathError) Error() string {
	return fmt.Sprintf("no root configured for %s", e.Path)
}

// Rules is an immutable root table. Lookup is longest-prefix,
// aligned at path separators.
type Rules struct {
	// sorted by prefix length descending, then by prefix,
	// so that lookup order is deterministic.
	rules []Rule

	// foldCase compares prefixes case-insensitively, per the
	// platform's filesystem semantics.
	foldCase bool
}

// New creates a root table from rules.
// It fails when two rules share a prefix, since resolution would be
// ambiguous; ambiguity is a configuration error, not a runtime one.
func New(rules []Rule) (*Rules, error) {
	return newRules(rules, runtime.GOOS == "windows")
}

func newRules(rules []Rule, foldCase bool) (*Rules, error) {
	rs := make([]Rule, 0, len(rules))
	seen := make(map[string]string)
	for _, r := range rules {
		if r.Prefix == "" {
			return nil, fmt.Errorf("root %q has empty prefix", r.Root)
		}
		prefix := normalize(r.Prefix, foldCase)
		if root, ok := seen[prefix]; ok {
			return nil, fmt.Errorf("ambiguous roots %q and %q for prefix %s", root, r.Root, r.Prefix)
		}
		seen[prefix] = r.Root
		rs = append(rs, Rule{Root: r.Root, Prefix: prefix})
	}
	sort.Slice(rs, func(i, j int) bool {
		if len(rs[i].Prefix) != len(rs[j].Prefix) {
			return len(rs[i].Prefix) > len(rs[j].Prefix)
		}
		return rs[i].Prefix < rs[j].Prefix
	})
	return &Rules{rules: rs, foldCase: foldCase}, nil
}

// toSlash converts p to the forward-slash convention. Windows paths
// may arrive with either separator, regardless of the host platform.
func toSlash(p string, foldCase bool) string {
	if foldCase {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func normalize(p string, foldCase bool) string {
	p = toSlash(p, foldCase)
	p = strings.TrimSuffix(p, "/")
	if foldCase {
		p = strings.ToLower(p)
	}
	return p
}

// Resolve classifies an absolute path into (root, root-relative path).
// The chosen root is always the longest matching prefix, and matches
// align at path separators: /foo/ba is not under the /foo/bar root.
// The returned path uses forward slashes on every platform.
func (r *Rules) Resolve(absPath string) (root, relPath string, err error) {
	p := toSlash(absPath, r.foldCase)
	key := p
	if r.foldCase {
		key = strings.ToLower(p)
	}
	for _, rule := range r.rules {
		if key == rule.Prefix {
			return rule.Root, "", nil
		}
		if strings.HasPrefix(key, rule.Prefix+"/") {
			return rule.Root, p[len(rule.Prefix)+1:], nil
		}
	}
	return "", "", UnresolvedPathError{Path: absPath}
}

// Roots returns the configured root names, most specific prefix first.
func (r *Rules) Roots() []Rule {
	rs := make([]Rule, len(r.rules))
	copy(rs, r.rules)
	return rs
}
