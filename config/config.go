// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the static extraction configuration: corpus
// identity, the root table, and how dependencies are discovered.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.chromium.org/infra/codesearch/packageindex/extractor"
	"go.chromium.org/infra/codesearch/packageindex/vname"
)

// Duration is a time.Duration that unmarshals from JSON strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config describes one extraction run.
type Config struct {
	// Corpus is the corpus name recorded on every unit. Required.
	Corpus string `json:"corpus"`

	// Language defaults to "c++".
	Language string `json:"language,omitempty"`

	// BuildConfig names the build flavor, e.g. "linux" or "win".
	BuildConfig string `json:"build_config,omitempty"`

	// Compiler selects the dependency discovery family:
	// "gcc", "msvc", "filepaths" or "scan". Defaults to "filepaths".
	Compiler string `json:"compiler,omitempty"`

	// ExtractionTimeout bounds each discovery subprocess.
	ExtractionTimeout Duration `json:"extraction_timeout,omitempty"`

	// Metadata is recorded on every unit's build details, in
	// addition to the well-known host keys.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Roots maps filesystem prefixes to root names. Relative
	// prefixes are resolved against a base directory at use.
	Roots []vname.Rule `json:"roots"`
}

// Load reads and validates a config file.
func Load(fname string) (*Config, error) {
	buf, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := json.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fname, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", fname, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Corpus == "" {
		return fmt.Errorf("no corpus")
	}
	if c.Language == "" {
		c.Language = "c++"
	}
	if c.Compiler == "" {
		c.Compiler = extractor.FamilyFilepaths
	}
	if _, err := extractor.NewScanner(c.Compiler, 0); err != nil {
		return err
	}
	if len(c.Roots) == 0 {
		return fmt.Errorf("no roots")
	}
	// Ambiguity (duplicate prefixes) is detected here rather than at
	// first Resolve.
	if _, err := vname.New(c.Roots); err != nil {
		return err
	}
	return nil
}

// Rules builds the resolver for this config. Relative root prefixes
// are taken as relative to base.
func (c *Config) Rules(base string) (*vname.Rules, error) {
	rules := make([]vname.Rule, len(c.Roots))
	for i, r := range c.Roots {
		if !filepath.IsAbs(r.Prefix) {
			r.Prefix = filepath.Join(base, r.Prefix)
		}
		rules[i] = r
	}
	return vname.New(rules)
}

// Scanner builds the configured dependency scanner.
func (c *Config) Scanner() (extractor.Scanner, error) {
	return extractor.NewScanner(c.Compiler, time.Duration(c.ExtractionTimeout))
}
