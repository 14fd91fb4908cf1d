// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package indexpack turns a compilation database into a kzip archive
// of compilation records.
//
// Records are independent, so extraction and assembly run on a
// bounded worker pool. A failed record is logged and skipped; the
// rest of the batch proceeds. The archive itself is written serially
// in database order, which together with the digest-named entries
// makes the output deterministic for a fixed source snapshot.
package indexpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/codesearch/packageindex/compdb"
	"go.chromium.org/infra/codesearch/packageindex/config"
	"go.chromium.org/infra/codesearch/packageindex/digest"
	"go.chromium.org/infra/codesearch/packageindex/extractor"
	"go.chromium.org/infra/codesearch/packageindex/kythe"
	"go.chromium.org/infra/codesearch/packageindex/kzip"
	"go.chromium.org/infra/codesearch/packageindex/metadata"
	"go.chromium.org/infra/codesearch/packageindex/runtimex"
	"go.chromium.org/infra/codesearch/packageindex/unit"
)

// Pack extracts compilation records for one configured corpus.
type Pack struct {
	cfg   *config.Config
	base  string
	ex    extractor.Extractor
	asm   *unit.Assembler
	limit int
}

// Stats summarizes one Index run.
type Stats struct {
	// Total is the number of database entries seen.
	Total int
	// Units is the number of records written.
	Units int
	// Failed is the number of entries whose record was discarded.
	Failed int
}

// New builds a Pack. base is the directory relative root prefixes and
// compilation directories resolve against, typically the checkout
// root. meta may be nil.
func New(cfg *config.Config, base string, meta *metadata.Metadata, dopt digest.Option) (*Pack, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Rules(base)
	if err != nil {
		return nil, err
	}
	scanner, err := cfg.Scanner()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		for k, v := range cfg.Metadata {
			if err := meta.Set(k, v); err != nil {
				return nil, err
			}
		}
	}
	return &Pack{
		cfg:  cfg,
		base: base,
		ex:   extractor.Extractor{Scanner: scanner},
		asm: &unit.Assembler{
			Corpus:      cfg.Corpus,
			Language:    cfg.Language,
			BuildConfig: cfg.BuildConfig,
			Rules:       rules,
			Digests:     digest.NewStore(dopt),
			Metadata:    meta,
		},
		limit: runtimex.NumCPU(),
	}, nil
}

// record is the outcome for one database entry.
type record struct {
	unit *kythe.CompilationUnit
	// files maps content digest to the absolute path it was read
	// from, for the archive writing phase.
	files map[string]string
	err   error
}

// Index extracts a record for every command and writes the archive to
// w. Per-entry failures are counted, not fatal; Index returns an
// error only when the whole run cannot proceed.
func (p *Pack) Index(ctx context.Context, commands []compdb.Command, w io.Writer) (Stats, error) {
	stats := Stats{Total: len(commands)}
	results := make([]record, len(commands))
	var eg errgroup.Group
	eg.SetLimit(p.limit)
	for i, cmd := range commands {
		eg.Go(func() error {
			results[i] = p.one(ctx, cmd)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	kzw, err := kzip.NewWriter(w, "")
	if err != nil {
		return stats, err
	}
	for i, res := range results {
		err := res.err
		if err == nil {
			err = p.write(kzw, res)
			if err != nil && !errors.Is(err, errStaleInput) {
				// the archive itself cannot be written.
				return stats, err
			}
		}
		if err != nil {
			log.Warn("record discarded", "file", commands[i].File, "err", err)
			stats.Failed++
			continue
		}
		stats.Units++
	}
	if err := kzw.Close(); err != nil {
		return stats, err
	}
	iostats := p.asm.Digests.IOMetrics.Stats()
	log.Debug("digest io",
		"ops", iostats.Ops,
		"reads", iostats.ROps,
		"read_bytes", iostats.RBytes,
		"errs", iostats.OpsErrs+iostats.RErrs)
	return stats, nil
}

func (p *Pack) one(ctx context.Context, cmd compdb.Command) record {
	args, err := cmd.Argv()
	if err != nil {
		return record{err: err}
	}
	dir := cmd.Directory
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.base, dir)
	}
	inv := extractor.Invocation{
		Args:   args,
		Dir:    dir,
		Source: cmd.File,
	}
	inputs, err := p.ex.Extract(ctx, inv)
	if err != nil {
		return record{err: err}
	}
	u, err := p.asm.Assemble(ctx, unit.Invocation{
		Args:   args,
		Dir:    dir,
		Source: cmd.File,
		Output: cmd.Output,
		Inputs: inputs,
	})
	if err != nil {
		return record{err: err}
	}
	// The store already digested every input during assembly, so this
	// only reads its cache.
	files := make(map[string]string, len(inputs))
	for _, fname := range inputs {
		d, err := p.asm.Digests.Digest(ctx, fname)
		if err != nil {
			return record{err: err}
		}
		files[d.Hash] = fname
	}
	log.Debug("record assembled", "file", cmd.File, "inputs", len(u.RequiredInput))
	return record{unit: u, files: files}
}

// errStaleInput marks a record whose inputs changed between assembly
// and the archive write. A unit referencing content the archive does
// not hold is worse than no unit, so such records are discarded.
var errStaleInput = errors.New("input changed since assembly")

func (p *Pack) write(kzw *kzip.Writer, res record) error {
	for _, ri := range res.unit.RequiredInput {
		fname, ok := res.files[ri.Info.Digest]
		if !ok {
			return fmt.Errorf("%w: no file for digest %s (%s)", errStaleInput, ri.Info.Digest, ri.Info.Path)
		}
		content, err := os.ReadFile(fname)
		if err != nil {
			return fmt.Errorf("%w: %v", errStaleInput, err)
		}
		if d := digest.FromBytes(content).Hash; d != ri.Info.Digest {
			return fmt.Errorf("%w: %s digested %s at assembly, %s at write", errStaleInput, fname, ri.Info.Digest, d)
		}
		if _, err := kzw.AddData(content); err != nil {
			return err
		}
	}
	_, err := kzw.AddUnit(res.unit)
	return err
}
