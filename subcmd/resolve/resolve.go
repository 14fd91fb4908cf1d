// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resolve is the resolve subcommand, a debugging aid: it
// classifies paths against the configured root table and prints
// their root, root-relative path and content digest.
package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/codesearch/packageindex/config"
	"go.chromium.org/infra/codesearch/packageindex/digest"
)

func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "resolve -config <file> [-C dir] <path>...",
		ShortDesc: "classify paths against the root table",
		LongDesc: `Classify paths against the root table.

Prints root, root-relative path and content digest for each given
path, the way the extractor would record it.

 $ package_index resolve -config extract.json out/debug/gen/foo.pb.h
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
	dir        string
}

func (c *run) init() {
	c.Flags.StringVar(&c.configPath, "config", "", "extraction config file")
	c.Flags.StringVar(&c.dir, "C", "", "checkout root. default is the current directory")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(func() {
		cancel()
	})()
	if err := c.run(ctx, args); err != nil {
		log.Error("resolve failed", "err", err)
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) error {
	if c.configPath == "" {
		return fmt.Errorf("-config is required")
	}
	if len(args) == 0 {
		return fmt.Errorf("no paths given")
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
	rules, err := cfg.Rules(base)
	if err != nil {
		return err
	}
	store := digest.NewStore(digest.Option{})
	for _, arg := range args {
		fname := arg
		if !filepath.IsAbs(fname) {
			fname = filepath.Join(base, fname)
		}
		root, rel, err := rules.Resolve(fname)
		if err != nil {
			fmt.Printf("%s: %v\n", arg, err)
			continue
		}
		d, err := store.Digest(ctx, fname)
		if err != nil {
			fmt.Printf("%s: root=%q path=%q digest error: %v\n", arg, root, rel, err)
			continue
		}
		fmt.Printf("%s: root=%q path=%q digest=%s\n", arg, root, rel, d.Hash)
	}
	return nil
}
