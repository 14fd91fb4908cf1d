// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package kythe holds the wire types of a compilation record.
//
// The shape follows the Kythe analysis protos
// (kythe.proto.CompilationUnit and friends), encoded as JSON the way
// units are stored in a kzip archive. Field order is fixed by the
// struct definitions and map keys are emitted sorted, so serializing
// the same unit twice yields byte-identical output.
package kythe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BuildDetailsType is the type URL recorded on build details entries.
const BuildDetailsType = "kythe.io/proto/kythe.proto.BuildDetails"

// VName is the logical identity of a unit or a file.
//
// For a required input, Path is the root-relative logical path,
// always forward-slash separated.
type VName struct {
	Corpus   string `json:"corpus,omitempty"`
	Language string `json:"language,omitempty"`
	Root     string `json:"root,omitempty"`
	Path     string `json:"path,omitempty"`
}

// FileInfo describes where a required input's bytes live.
// Path is relative to the unit's working directory and Digest is the
// hex-encoded content digest of the file.
type FileInfo struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

// RequiredInput is one file the compilation depends on.
type RequiredInput struct {
	VName VName    `json:"v_name"`
	Info  FileInfo `json:"info"`
}

// Details is a free-form bag of build configuration recorded on a unit.
type Details struct {
	Type        string            `json:"@type"`
	BuildConfig string            `json:"build_config,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompilationUnit is a full, self-contained description of one
// compiler invocation plus its dependencies.
type CompilationUnit struct {
	VName            VName           `json:"v_name"`
	RequiredInput    []RequiredInput `json:"required_input,omitempty"`
	Argument         []string        `json:"argument,omitempty"`
	SourceFile       []string        `json:"source_file,omitempty"`
	OutputKey        string          `json:"output_key,omitempty"`
	WorkingDirectory string          `json:"working_directory,omitempty"`
	Details          []Details       `json:"details,omitempty"`
}

// IndexedCompilation wraps a unit for storage in a kzip.
type IndexedCompilation struct {
	Unit *CompilationUnit `json:"unit"`
}

// Marshal serializes ic in the canonical JSON form.
func (ic *IndexedCompilation) Marshal() ([]byte, error) {
	if ic.Unit == nil {
		return nil, fmt.Errorf("indexed compilation without unit")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(ic)
	if err != nil {
		return nil, err
	}
	// json.Encoder terminates with a newline. drop it to keep the
	// digest of the serialized unit independent of the encoder used.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Validate checks that the unit's source files are present in its
// required inputs. A unit missing its own source cannot be indexed.
func (u *CompilationUnit) Validate() error {
	for _, src := range u.SourceFile {
		found := false
		for _, ri := range u.RequiredInput {
			if ri.Info.Path == src {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("source file %s is not in required inputs", src)
		}
	}
	return nil
}
