// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package extract is the extract subcommand: it turns a compilation
// database into a kzip archive of compilation records.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/codesearch/packageindex/compdb"
	"go.chromium.org/infra/codesearch/packageindex/config"
	"go.chromium.org/infra/codesearch/packageindex/digest"
	"go.chromium.org/infra/codesearch/packageindex/indexpack"
	"go.chromium.org/infra/codesearch/packageindex/metadata"
)

func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "extract -config <file> -compdb <file> -out <file> [-C dir]",
		ShortDesc: "extract compilation records into a kzip",
		LongDesc: `Extract compilation records into a kzip.

Reads a compile_commands.json database, determines the transitive
inputs of every compilation, and writes one self-contained record per
compilation into the output archive.

 $ package_index extract -config extract.json \
     -compdb out/debug/compile_commands.json -out chromium.kzip
`,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	configPath string
	compdbPath string
	outPath    string
	dir        string
	verbose    bool
	digestOpt  digest.Option
}

func (c *run) init() {
	c.Flags.StringVar(&c.configPath, "config", "", "extraction config file")
	c.Flags.StringVar(&c.compdbPath, "compdb", "", "compile_commands.json to extract from")
	c.Flags.StringVar(&c.outPath, "out", "", "output kzip filename")
	c.Flags.StringVar(&c.dir, "C", "", "checkout root. default is the current directory")
	c.Flags.BoolVar(&c.verbose, "v", false, "verbose logging")
	c.digestOpt.RegisterFlags(&c.Flags)
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(func() {
		cancel()
	})()
	if c.verbose {
		log.SetLevel(log.DebugLevel)
	}
	if err := c.run(ctx); err != nil {
		log.Error("extract failed", "err", err)
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context) error {
	if c.configPath == "" || c.compdbPath == "" || c.outPath == "" {
		return fmt.Errorf("-config, -compdb and -out are required")
	}
	base := c.dir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		base = wd
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	commands, err := compdb.Load(c.compdbPath)
	if err != nil {
		return err
	}
	meta := metadata.New()
	p, err := indexpack.New(cfg, base, &meta, c.digestOpt)
	if err != nil {
		return err
	}
	f, err := os.Create(c.outPath)
	if err != nil {
		return err
	}
	stats, err := p.Index(ctx, commands, f)
	if err != nil {
		f.Close()
		os.Remove(c.outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("extraction done",
		"out", filepath.Base(c.outPath),
		"total", stats.Total,
		"units", stats.Units,
		"failed", stats.Failed)
	if stats.Units == 0 && stats.Failed > 0 {
		return fmt.Errorf("all %d records failed", stats.Failed)
	}
	return nil
}
