// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command package_index extracts content-addressed compilation
// records from a build, for indexing by codesearch.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/codesearch/packageindex/subcmd/extract"
	"go.chromium.org/infra/codesearch/packageindex/subcmd/resolve"
)

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "package_index",
		Title: "Compilation record extractor for codesearch.",
		Context: func(ctx context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			extract.Cmd(),
			resolve.Cmd(),
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
