// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package unit assembles compilation records.
//
// An Assembler joins the outputs of the other stages into one
// self-contained kythe.CompilationUnit: extraction-ordered inputs are
// classified against the root table, digested, deduplicated by
// logical identity, and recorded together with the normalized
// argument list, output key, working directory and build details.
//
// Assembly is all-or-nothing. Any input that cannot be classified or
// read fails the whole record with a ResolutionError; a record that
// silently dropped an input would index wrong code.
package unit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/codesearch/packageindex/digest"
	"go.chromium.org/infra/codesearch/packageindex/kythe"
	"go.chromium.org/infra/codesearch/packageindex/metadata"
	"go.chromium.org/infra/codesearch/packageindex/toolsupport/argutil"
	"go.chromium.org/infra/codesearch/packageindex/vname"
)

// ResolutionError reports every input of a compilation that failed
// to classify or digest. The record it belongs to is discarded.
type ResolutionError struct {
	Source string
	Errs   []error
}

func (e *ResolutionError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("resolve inputs of %s: %s", e.Source, strings.Join(msgs, "; "))
}

func (e *ResolutionError) Unwrap() []error {
	return e.Errs
}

// Invocation is the assembled view of one compilation: the raw
// command plus the ordered absolute input paths the extractor found.
// Inputs[0] is the primary source.
type Invocation struct {
	Args   []string
	Dir    string
	Source string
	Output string // output key override; derived from Args when empty
	Inputs []string
}

// Assembler builds compilation records for one corpus.
type Assembler struct {
	Corpus      string
	Language    string
	BuildConfig string
	Rules       *vname.Rules
	Digests     *digest.Store

	// Metadata is recorded on every unit's build details.
	// Optional.
	Metadata *metadata.Metadata
}

// identity is the logical identity of a required input within a
// record. Two physical paths with the same identity are one input.
type identity struct {
	corpus string
	root   string
	path   string
}

// Assemble builds the canonical compilation record for inv.
// Required inputs keep first-extraction order with the source first,
// deduplicated by (corpus, root, path).
func (a *Assembler) Assemble(ctx context.Context, inv Invocation) (*kythe.CompilationUnit, error) {
	if len(inv.Inputs) == 0 {
		return nil, &ResolutionError{Source: inv.Source, Errs: []error{fmt.Errorf("no inputs")}}
	}
	var errs []error
	seen := make(map[identity]bool)
	var required []kythe.RequiredInput
	for _, fname := range inv.Inputs {
		root, rel, err := a.Rules.Resolve(fname)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id := identity{corpus: a.Corpus, root: root, path: rel}
		if seen[id] {
			continue
		}
		seen[id] = true
		d, err := a.Digests.Digest(ctx, fname)
		if err != nil {
			errs = append(errs, fmt.Errorf("digest %s: %w", fname, err))
			continue
		}
		required = append(required, kythe.RequiredInput{
			VName: kythe.VName{
				Corpus: a.Corpus,
				Root:   root,
				Path:   rel,
			},
			Info: kythe.FileInfo{
				// the path the compiler would read the bytes from,
				// relative to the working directory.
				Path:   relativeTo(inv.Dir, fname),
				Digest: d.Hash,
			},
		})
	}
	if len(errs) > 0 {
		return nil, &ResolutionError{Source: inv.Source, Errs: errs}
	}
	output := inv.Output
	if output == "" {
		output = argutil.OutputKey(inv.Args)
	}
	var details []kythe.Details
	d := kythe.Details{
		Type:        kythe.BuildDetailsType,
		BuildConfig: a.BuildConfig,
	}
	if a.Metadata != nil {
		d.Metadata = a.Metadata.Map()
	}
	if d.BuildConfig != "" || d.Metadata != nil {
		details = append(details, d)
	}
	u := &kythe.CompilationUnit{
		VName: kythe.VName{
			Corpus:   a.Corpus,
			Language: a.Language,
		},
		RequiredInput:    required,
		Argument:         argutil.Normalize(inv.Args, a.Rules),
		SourceFile:       []string{filepath.ToSlash(inv.Source)},
		OutputKey:        output,
		WorkingDirectory: workingDirectory(inv.Dir, a.Rules),
		Details:          details,
	}
	if err := u.Validate(); err != nil {
		return nil, &ResolutionError{Source: inv.Source, Errs: []error{err}}
	}
	return u, nil
}

// relativeTo returns the forward-slash path of fname relative to
// dir, the path a tool running in dir would read the file from.
// fname is returned as-is when no relative path exists.
func relativeTo(dir, fname string) string {
	rel, err := filepath.Rel(dir, fname)
	if err != nil {
		return filepath.ToSlash(fname)
	}
	return filepath.ToSlash(rel)
}

// qualifiedPath is the path arguments use to refer to a root: the
// root-relative path, prefixed with the root id for named roots. It
// matches the form the argument normalizer rewrites search dirs to.
func qualifiedPath(root, rel string) string {
	if root == "" {
		return rel
	}
	if rel == "" {
		return root
	}
	return root + "/" + rel
}

// workingDirectory records dir in root-relative form when a root
// covers it, so records from different checkouts compare equal.
func workingDirectory(dir string, rules *vname.Rules) string {
	if rules == nil {
		return dir
	}
	root, rel, err := rules.Resolve(dir)
	if err != nil {
		return dir
	}
	if q := qualifiedPath(root, rel); q != "" {
		return q
	}
	return "."
}
